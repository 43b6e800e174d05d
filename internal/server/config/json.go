package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/usermanager/internal/flagx"
	"github.com/dmitrijs2005/usermanager/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "3h" and integer nanoseconds are accepted. Fields
// left out of the file keep their current values.
type JsonConfig struct {
	EndpointAddrHTTP                  string         `json:"endpoint_addr_http"`
	Storage                           string         `json:"storage"`
	DatabaseDSN                       string         `json:"database_dsn"`
	SecretKey                         string         `json:"secret_key"`
	TokenIssuer                       string         `json:"token_issuer"`
	TokenAudience                     string         `json:"token_audience"`
	SessionTokenValidityDuration      timex.Duration `json:"session_token_validity_duration"`
	ConfirmationTokenValidityDuration timex.Duration `json:"confirmation_token_validity_duration"`
	PublicBaseURL                     string         `json:"public_base_url"`
	SMTPHost                          string         `json:"smtp_host"`
	SMTPPort                          int            `json:"smtp_port"`
	SMTPUser                          string         `json:"smtp_user"`
	SMTPPassword                      string         `json:"smtp_password"`
	SMTPFrom                          string         `json:"smtp_from"`
	NotificationQueueSize             int            `json:"notification_queue_size"`
	NotificationWorkers               int            `json:"notification_workers"`
	RoleCacheTTL                      timex.Duration `json:"role_cache_ttl"`
	LogBackend                        string         `json:"log_backend"`
}

// parseJson loads configuration values from the file named by -c/-config.
// Nothing happens when the flag is absent. An unreadable file or invalid JSON
// panics, as the server must not start on a half-read configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.Storage, c.Storage)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.ConfirmationTokenValidityDuration.Duration != 0 {
		config.ConfirmationTokenValidityDuration = c.ConfirmationTokenValidityDuration.Duration
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	if c.NotificationQueueSize != 0 {
		config.NotificationQueueSize = c.NotificationQueueSize
	}
	if c.NotificationWorkers != 0 {
		config.NotificationWorkers = c.NotificationWorkers
	}
	if c.RoleCacheTTL.Duration != 0 {
		config.RoleCacheTTL = c.RoleCacheTTL.Duration
	}
	setString(&config.LogBackend, c.LogBackend)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-m", "memory", "-d", "db", "-s", "secret", "-i", "issuer", "-u", "audience",
			"-t", "180", "-b", "https://id.example.com", "-l", "slog",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				Storage:                      "memory",
				DatabaseDSN:                  "db",
				SecretKey:                    "secret",
				TokenIssuer:                  "issuer",
				TokenAudience:                "audience",
				SessionTokenValidityDuration: 3 * time.Hour,
				PublicBaseURL:                "https://id.example.com",
				LogBackend:                   "slog",
			}},
		{name: "foreign flags are ignored", args: []string{"cmd", "-c", "conf.json", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "bad minutes", args: []string{"cmd", "-t", "forever"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_KeepsValidityWhenFlagAbsent(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-a", ":8081"}

	config := &Config{SessionTokenValidityDuration: 90 * time.Second}
	parseFlags(config)

	assert.Equal(t, 90*time.Second, config.SessionTokenValidityDuration)
	assert.Equal(t, ":8081", config.EndpointAddrHTTP)
}

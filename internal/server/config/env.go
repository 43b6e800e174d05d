package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/usermanager/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable named in Config's env tags.
const EnvPrefix = "USERMANAGER_"

// parseEnv overlays USERMANAGER_* environment variables onto config. The
// file given with -env-file is loaded first (it must exist); otherwise a
// ./.env file is loaded when present. Variables already set in the process
// environment win over dotenv values.
func parseEnv(config *Config) {
	if path := flagx.EnvFile(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}

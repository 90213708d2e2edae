package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
)

// Environment variables that override file values.
const (
	EnvPort           = "BUILDWATCH_PORT"
	EnvHost           = "BUILDWATCH_HOST"
	EnvConfigFileName = "BUILDWATCH_CONFIG_FILE_NAME"
)

// loadEnvFile loads the first of .env/.env.local that exists. Existing
// process environment variables are not overwritten.
func loadEnvFile() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load env file", "path", envPath, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", envPath)
		return
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid "+EnvPort).
				WithContext("value", v).
				Build()
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvConfigFileName); v != "" {
		cfg.Build.ConfigFileName = v
	}
	return nil
}

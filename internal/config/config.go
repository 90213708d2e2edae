// Package config loads buildwatch's user configuration.
//
// Configuration lives in a YAML file (buildwatch.yaml by default). Values may
// reference environment variables (${VAR}), a .env file next to the working
// directory is loaded first, and a few BUILDWATCH_* variables override the
// file. A missing file is not an error: every option has a default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
)

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "buildwatch.yaml"

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Build   BuildConfig   `yaml:"build"`
	Watch   WatchConfig   `yaml:"watch"`
	Metrics MetricsConfig `yaml:"metrics"`
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig is where the dev server listens.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// BuildConfig describes how the build tool is located and invoked.
type BuildConfig struct {
	// ConfigFileName is the build tool's own config file, relative to the project root.
	ConfigFileName string `yaml:"config_file_name"`
	// Package is the npm package providing the build tool.
	Package   string        `yaml:"package"`
	Args      []string      `yaml:"args,omitempty"`
	OutputDir string        `yaml:"output_dir"`
	Debounce  time.Duration `yaml:"debounce"`
}

// WatchConfig lists path segments that never trigger rebuilds.
type WatchConfig struct {
	Ignore []string `yaml:"ignore,omitempty"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// NATSConfig controls report publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Settings is the subset read at every session start.
type Settings struct {
	Port           int
	Host           string
	ConfigFileName string
}

// Settings extracts the per-session settings.
func (c *Config) Settings() Settings {
	return Settings{
		Port:           c.Server.Port,
		Host:           c.Server.Host,
		ConfigFileName: c.Build.ConfigFileName,
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configPath, applies environment overrides and defaults, and
// validates the result.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
				WithContext("path", configPath).
				Build()
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Default()
	example.NATS.URL = ""
	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# buildwatch configuration\n# Values may reference environment variables, e.g. ${PORT}.\n")
	if err := os.WriteFile(configPath, append(header, data...), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}

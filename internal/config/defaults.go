package config

import "time"

// Default values for every option.
const (
	DefaultPort           = 8080
	DefaultHost           = "localhost"
	DefaultConfigFileName = "webpack.config.js"
	DefaultPackage        = "webpack"
	DefaultOutputDir      = "dist"
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMetricsAddress = ":9464"
	DefaultNATSSubject    = "buildwatch.report"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Build.ConfigFileName == "" {
		cfg.Build.ConfigFileName = DefaultConfigFileName
	}
	if cfg.Build.Package == "" {
		cfg.Build.Package = DefaultPackage
	}
	if cfg.Build.Args == nil {
		cfg.Build.Args = []string{"--json"}
	}
	if cfg.Build.OutputDir == "" {
		cfg.Build.OutputDir = DefaultOutputDir
	}
	if cfg.Build.Debounce == 0 {
		cfg.Build.Debounce = DefaultDebounce
	}
}

type watchDefaults struct{}

func (watchDefaults) Domain() string { return "watch" }

func (watchDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Watch.Ignore == nil {
		cfg.Watch.Ignore = []string{"node_modules", ".git"}
	}
}

type observabilityDefaults struct{}

func (observabilityDefaults) Domain() string { return "observability" }

func (observabilityDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = DefaultMetricsAddress
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}

var defaultAppliers = []DefaultApplier{
	serverDefaults{},
	buildDefaults{},
	watchDefaults{},
	observabilityDefaults{},
}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}

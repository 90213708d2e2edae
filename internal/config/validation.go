package config

import (
	"fmt"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
)

// Validate checks a configuration with defaults applied.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{v.validateServer, v.validateBuild, v.validateNATS, v.validateLogging} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validateServer() error {
	s := cv.config.Server
	if s.Port < 1 || s.Port > 65535 {
		return ferrors.ValidationError(fmt.Sprintf("server.port must be between 1 and 65535, got %d", s.Port)).
			WithContext("field", "server.port").
			Build()
	}
	if s.Host == "" {
		return ferrors.ValidationError("server.host must not be empty").
			WithContext("field", "server.host").
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	b := cv.config.Build
	if b.ConfigFileName == "" {
		return ferrors.ValidationError("build.config_file_name must not be empty").
			WithContext("field", "build.config_file_name").
			Build()
	}
	if filepath.IsAbs(b.ConfigFileName) {
		return ferrors.ValidationError("build.config_file_name must be relative to the project root").
			WithContext("field", "build.config_file_name").
			Build()
	}
	if b.Debounce <= 0 {
		return ferrors.ValidationError("build.debounce must be positive").
			WithContext("field", "build.debounce").
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateNATS() error {
	if cv.config.NATS.URL != "" && cv.config.NATS.Subject == "" {
		return ferrors.ValidationError("nats.subject is required when nats.url is set").
			WithContext("field", "nats.subject").
			Build()
	}
	return nil
}

func (cv *configurationValidator) validateLogging() error {
	l := cv.config.Logging
	if _, err := logLevels.NormalizeWithError(string(l.Level)); err != nil {
		return ferrors.ValidationError("logging.level is invalid").
			WithCause(err).
			WithContext("field", "logging.level").
			Build()
	}
	if _, err := logFormats.NormalizeWithError(string(l.Format)); err != nil {
		return ferrors.ValidationError("logging.format is invalid").
			WithCause(err).
			WithContext("field", "logging.format").
			Build()
	}
	return nil
}

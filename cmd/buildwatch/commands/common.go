package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildwatch/internal/config"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"buildwatch.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text or json). Overrides logging.format."`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve ServeCmd `cmd:"" help:"Run the dev server headless and restart it when its build config is saved"`
	UI    UICmd    `cmd:"" help:"Run the dev server with a terminal report panel"`
	Check CheckCmd `cmd:"" help:"Build once and print the error report"`
	Init  InitCmd  `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, level, config.NormalizeLogFormat(c.LogFormat)))
	return nil
}

// applyLogging reconfigures the default logger from the loaded config. Flags
// given on the command line win over the file.
func (c *CLI) applyLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Logging.Level
	if c.Verbose {
		level = config.LogLevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	logger := newLogger(w, level, format)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level config.LogLevel, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig reads the configuration named by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.Config)
}

// resolveRoot returns the absolute project root: the flag when given,
// otherwise the working directory.
func resolveRoot(flag string) (string, error) {
	root := flag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", ferrors.FileSystemError("cannot determine working directory").WithCause(err).Build()
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", ferrors.FileSystemError("invalid project root").
			WithCause(err).
			WithContext("root", root).
			Build()
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", ferrors.FileSystemError("project root is not a directory").
			WithCause(err).
			WithContext("root", abs).
			Build()
	}
	return abs, nil
}

// Package toolchain defines the boundary between a session and the build tool
// it drives: a loader that finds the tool for a project, a compiler exposing
// run hooks, and a dev server that serves the build output.
package toolchain

import (
	"context"
	"time"

	"git.home.luguber.info/inful/buildwatch/internal/diagnostics"
	"git.home.luguber.info/inful/buildwatch/internal/metrics"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/report"
)

// BuildConfig is everything a toolchain needs to build and serve one project.
// Context is the project root; tools run there instead of in the process
// working directory.
type BuildConfig struct {
	ConfigPath string
	Context    string
	Port       int
	Host       string
	OutputDir  string
	Args       []string
	Debounce   time.Duration
	Ignore     []string
	// Report is served by dev servers that expose the current build report.
	Report   report.Provider
	Recorder metrics.Recorder
}

// Loader locates the build tool installed for a project.
type Loader interface {
	Load(root string) (Toolchain, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(root string) (Toolchain, error)

func (f LoaderFunc) Load(root string) (Toolchain, error) { return f(root) }

// Toolchain constructs compilers and dev servers.
type Toolchain interface {
	NewCompiler(cfg BuildConfig) (Compiler, error)
	NewDevServer(c Compiler, cfg BuildConfig) (DevServer, error)
}

// Compiler exposes the two lifecycle hooks of a build run. Hooks may fire on
// any goroutine.
type Compiler interface {
	OnRunStarted(fn func()) notify.Disposable
	OnRunFinished(fn func(Stats)) notify.Disposable
}

// Runner is implemented by compilers that can build once without serving.
type Runner interface {
	Run(ctx context.Context) (Stats, error)
}

// Stats is the outcome of one finished run.
type Stats interface {
	// String is a one-line human summary.
	String() string
	Errors() []diagnostics.RawError
	Warnings() []diagnostics.RawError
	// ShortenRequest renders a module path for display.
	ShortenRequest(path string) string
}

// DevServer serves the build output while the compiler watches for changes.
type DevServer interface {
	// Listen binds host:port and returns once the server accepts connections.
	Listen(ctx context.Context, port int, host string) error
	// Close stops serving and watching. It is safe to call after a failed Listen.
	Close(ctx context.Context) error
}

// Package session runs one dev server session at a time: it loads settings,
// resolves the build tool, wires build hooks into a report model and drives
// the dev server through start and stop.
//
// All transitions run as tasks on an eventloop.Loop. Start and Stop return at
// once; the work happens on later turns of the loop, in the order requested.
package session

import (
	"time"

	"git.home.luguber.info/inful/buildwatch/internal/config"
	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/metrics"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

const (
	defaultListenTimeout   = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Options configures a Controller.
type Options struct {
	Loader toolchain.Loader
	// Configure reads the current settings. It runs inside every start so
	// edits take effect on the next session. Defaults to config.Default.
	Configure       func() (*config.Config, error)
	Recorder        metrics.Recorder
	ListenTimeout   time.Duration
	ShutdownTimeout time.Duration
}

// Controller starts sessions on a loop. The loop must outlive every session
// the controller starts.
type Controller struct {
	loop            *eventloop.Loop
	loader          toolchain.Loader
	configure       func() (*config.Config, error)
	recorder        metrics.Recorder
	listenTimeout   time.Duration
	shutdownTimeout time.Duration
}

// NewController creates a controller scheduling its work on loop.
func NewController(loop *eventloop.Loop, opts Options) *Controller {
	c := &Controller{
		loop:            loop,
		loader:          opts.Loader,
		configure:       opts.Configure,
		recorder:        opts.Recorder,
		listenTimeout:   opts.ListenTimeout,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if c.configure == nil {
		c.configure = func() (*config.Config, error) { return config.Default(), nil }
	}
	if c.recorder == nil {
		c.recorder = metrics.NoopRecorder{}
	}
	if c.listenTimeout <= 0 {
		c.listenTimeout = defaultListenTimeout
	}
	if c.shutdownTimeout <= 0 {
		c.shutdownTimeout = defaultShutdownTimeout
	}
	return c
}

// Start requests a new session for the project at root and returns its
// handle immediately. started is called exactly once, on the loop, with nil
// once the dev server listens or with the startup or listen failure. Start
// does not check for other running sessions; callers enforce that.
func (c *Controller) Start(root string, out host.Output, started func(error)) *Session {
	if started == nil {
		started = func(error) {}
	}
	s := newSession(c, root, out)
	if !c.loop.Post(func() { s.begin(started) }) {
		err := ferrors.StartupError("session loop is closed").Build()
		s.setState(Failed)
		s.startF.Reject(err)
		started(err)
	}
	return s
}

// Package app wires the dev server commands to a host: it keeps at most one
// session alive, points the shared report proxy at it, and restarts it when
// its build config file is saved.
package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/logfields"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/session"
)

// User-facing messages.
const (
	MsgAlreadyRunning = "Already running."
	MsgNoRoot         = "Cannot locate workspace root. It is needed to resolve the build tool location."
	MsgStarting       = "Starting dev server..."
	MsgStartFailed    = "Could not start dev server. See output window for details."
	MsgNotRunning     = "Not running"
	MsgStopping       = "Stopping dev server..."
)

// SaveTracker follows saves of individual files.
type SaveTracker interface {
	Track(path string) error
	Untrack(path string)
}

// App owns the current session. Command methods may be called from any
// goroutine; their work runs on the loop.
type App struct {
	loop    *eventloop.Loop
	host    host.Host
	ctrl    *session.Controller
	proxy   *report.Proxy
	root    string
	tracker SaveTracker

	// Loop-owned.
	current *session.Session
	tracked string

	// Mirrors current for readers off the loop.
	active atomic.Pointer[session.Session]
}

// New creates an app for the workspace at root. An empty root means no
// workspace is open. tracker may be nil.
func New(loop *eventloop.Loop, h host.Host, ctrl *session.Controller, root string, tracker SaveTracker) *App {
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &App{
		loop:    loop,
		host:    h,
		ctrl:    ctrl,
		proxy:   report.NewProxy(),
		root:    root,
		tracker: tracker,
	}
}

// Proxy is the report every UI binds to. It follows the current session.
func (a *App) Proxy() *report.Proxy { return a.proxy }

// Current returns the active session, nil when none.
func (a *App) Current() *session.Session { return a.active.Load() }

// StartDevServer starts a session unless one is already active. The future
// settles with the start outcome.
func (a *App) StartDevServer() *eventloop.Future[struct{}] {
	f := eventloop.NewFuture[struct{}]()
	if !a.loop.Post(func() { a.start(f) }) {
		f.Resolve(struct{}{})
	}
	return f
}

// StopDevServer stops the active session. The future settles once it has
// shut down.
func (a *App) StopDevServer() *eventloop.Future[struct{}] {
	f := eventloop.NewFuture[struct{}]()
	if !a.loop.Post(func() { a.stop(f) }) {
		f.Resolve(struct{}{})
	}
	return f
}

// Restart stops the active session, if any, and starts a fresh one.
func (a *App) Restart() *eventloop.Future[struct{}] {
	f := eventloop.NewFuture[struct{}]()
	if !a.loop.Post(func() { a.restart(f) }) {
		f.Resolve(struct{}{})
	}
	return f
}

// RevealOutput shows the output log.
func (a *App) RevealOutput() {
	a.loop.Post(a.host.RevealOutput)
}

// HandleSaved restarts the active session when path is its build config.
func (a *App) HandleSaved(path string) {
	a.loop.Post(func() {
		s := a.current
		if s == nil {
			return
		}
		configPath, ok := s.ConfigPath()
		if !ok || !samePath(path, configPath) {
			return
		}
		slog.Info("Build config saved; restarting dev server", logfields.ConfigPath(configPath))
		a.restart(eventloop.NewFuture[struct{}]())
	})
}

// Shutdown stops the active session, if any, and waits for it or for ctx.
func (a *App) Shutdown(ctx context.Context) error {
	f := eventloop.NewFuture[struct{}]()
	posted := a.loop.Post(func() {
		if a.current == nil {
			f.Resolve(struct{}{})
			return
		}
		a.stop(f)
	})
	if !posted {
		return nil
	}
	_, err := f.Wait(ctx)
	return err
}

func (a *App) start(f *eventloop.Future[struct{}]) {
	if a.current != nil {
		a.host.ShowError(MsgAlreadyRunning)
		f.Resolve(struct{}{})
		return
	}
	if a.root == "" {
		a.host.ShowInfo(MsgNoRoot)
		f.Resolve(struct{}{})
		return
	}

	done := make(chan struct{})
	a.host.WithProgress(MsgStarting, done)

	var s *session.Session
	s = a.ctrl.Start(a.root, a.host, func(err error) {
		close(done)
		if err != nil {
			a.host.ShowError(MsgStartFailed)
			if a.current == s {
				a.setCurrent(nil)
			}
			f.Reject(err)
			return
		}
		a.track(s)
		f.Resolve(struct{}{})
	})
	a.setCurrent(s)
}

func (a *App) stop(f *eventloop.Future[struct{}]) {
	s := a.current
	if s == nil {
		a.host.ShowInfo(MsgNotRunning)
		f.Resolve(struct{}{})
		return
	}
	a.stopSession(s, func() { f.Resolve(struct{}{}) })
}

func (a *App) restart(f *eventloop.Future[struct{}]) {
	s := a.current
	if s == nil {
		a.start(f)
		return
	}
	a.stopSession(s, func() { a.start(f) })
}

// stopSession stops s and runs then on the loop once it is down.
func (a *App) stopSession(s *session.Session, then func()) {
	done := make(chan struct{})
	a.host.WithProgress(MsgStopping, done)
	s.Stop().OnSettled(a.loop, func(struct{}, error) {
		close(done)
		if a.current == s {
			a.untrack()
			a.setCurrent(nil)
		}
		then()
	})
}

// setCurrent swaps the active session and retargets the proxy.
func (a *App) setCurrent(s *session.Session) {
	a.current = s
	a.active.Store(s)
	if s == nil {
		a.proxy.SetTarget(nil)
		return
	}
	a.proxy.SetTarget(s.Report())
}

func (a *App) track(s *session.Session) {
	if a.tracker == nil {
		return
	}
	path, ok := s.ConfigPath()
	if !ok {
		return
	}
	if err := a.tracker.Track(path); err != nil {
		slog.Warn("Cannot watch build config for saves", logfields.ConfigPath(path), logfields.Error(err))
		return
	}
	a.tracked = path
}

func (a *App) untrack() {
	if a.tracker == nil || a.tracked == "" {
		return
	}
	a.tracker.Untrack(a.tracked)
	a.tracked = ""
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && filepath.Clean(absA) == filepath.Clean(absB)
}

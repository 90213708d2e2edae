package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/buildwatch/internal/diagnostics"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

type fakeStats struct {
	summary  string
	errors   []diagnostics.RawError
	warnings []diagnostics.RawError
}

func (f fakeStats) String() string                   { return f.summary }
func (f fakeStats) Errors() []diagnostics.RawError   { return f.errors }
func (f fakeStats) Warnings() []diagnostics.RawError { return f.warnings }
func (f fakeStats) ShortenRequest(p string) string   { return "short:" + p }

type fakeCompiler struct {
	started  *notify.Notifier[struct{}]
	finished *notify.Notifier[toolchain.Stats]
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{started: notify.New[struct{}](), finished: notify.New[toolchain.Stats]()}
}

func (c *fakeCompiler) OnRunStarted(fn func()) notify.Disposable {
	return c.started.Subscribe(func(struct{}) { fn() })
}

func (c *fakeCompiler) OnRunFinished(fn func(toolchain.Stats)) notify.Disposable {
	return c.finished.Subscribe(fn)
}

// run fires a complete build from a foreign goroutine, like a real compiler.
func (c *fakeCompiler) run(stats toolchain.Stats) {
	c.started.Publish(struct{}{})
	c.finished.Publish(stats)
}

type fakeServer struct {
	listenErr error
	// gate, when set, holds Listen until closed.
	gate   chan struct{}
	listen atomic.Int32
	closes atomic.Int32
	mu     sync.Mutex
	port   int
	host   string
}

func (s *fakeServer) Listen(_ context.Context, port int, host string) error {
	if s.gate != nil {
		<-s.gate
	}
	s.listen.Add(1)
	s.mu.Lock()
	s.port, s.host = port, host
	s.mu.Unlock()
	return s.listenErr
}

func (s *fakeServer) Close(context.Context) error {
	s.closes.Add(1)
	return nil
}

type fakeToolchain struct {
	compiler    *fakeCompiler
	server      *fakeServer
	compilerErr error
	panicMsg    string
	lastConfig  toolchain.BuildConfig
}

func (t *fakeToolchain) NewCompiler(cfg toolchain.BuildConfig) (toolchain.Compiler, error) {
	if t.panicMsg != "" {
		panic(t.panicMsg)
	}
	if t.compilerErr != nil {
		return nil, t.compilerErr
	}
	t.lastConfig = cfg
	return t.compiler, nil
}

func (t *fakeToolchain) NewDevServer(c toolchain.Compiler, _ toolchain.BuildConfig) (toolchain.DevServer, error) {
	if c != t.compiler {
		return nil, errors.New("foreign compiler")
	}
	return t.server, nil
}

func newFakeToolchain() *fakeToolchain {
	return &fakeToolchain{compiler: newFakeCompiler(), server: &fakeServer{}}
}

func loaderFor(tc *fakeToolchain) toolchain.Loader {
	return toolchain.LoaderFunc(func(string) (toolchain.Toolchain, error) { return tc, nil })
}

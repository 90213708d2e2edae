package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildwatch/internal/config"
	"git.home.luguber.info/inful/buildwatch/internal/diagnostics"
	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

const waitFor = 2 * time.Second

func newLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop := eventloop.New()
	t.Cleanup(loop.Close)
	return loop
}

// flush waits until every task posted so far has run.
func flush(t *testing.T, loop *eventloop.Loop) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, loop.Post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("loop did not drain")
	}
}

type startResult struct {
	ch chan error
}

func newStartResult() *startResult { return &startResult{ch: make(chan error, 1)} }

func (r *startResult) cb(err error) { r.ch <- err }

func (r *startResult) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.ch:
		return err
	case <-time.After(waitFor):
		t.Fatal("start callback not called")
		return nil
	}
}

func waitStop(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err := s.Stop().Wait(ctx)
	require.NoError(t, err)
}

func TestStart_ResolvesConfigPathUnderRoot(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	out := host.NewRecorder(nil)
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})

	res := newStartResult()
	s := ctrl.Start("/proj", out, res.cb)
	require.NoError(t, res.wait(t))

	path, ok := s.ConfigPath()
	require.True(t, ok)
	require.Equal(t, "/proj/webpack.config.js", path)
	require.Equal(t, Running, s.State())
	require.Equal(t, "/proj", tc.lastConfig.Context)
	require.Equal(t, 8080, tc.server.port)
	require.Equal(t, "localhost", tc.server.host)
	require.Equal(t, []string{
		"Opening file /proj/webpack.config.js...",
		"about to listen...",
		"listening!",
	}, out.Lines())
	require.Equal(t, 1, out.Reveals())
}

func TestStart_ReturnsBeforeDeferredWorkRuns(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})

	release := make(chan struct{})
	loop.Post(func() { <-release })

	s := ctrl.Start("/proj", host.NewRecorder(nil), nil)
	require.Equal(t, Idle, s.State())
	_, ok := s.ConfigPath()
	require.False(t, ok)

	close(release)
	require.NoError(t, s.WaitStarted(t.Context()))
}

func TestConfigPath_UnavailableUntilListening(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	tc.server.gate = make(chan struct{})
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})

	s := ctrl.Start("/proj", host.NewRecorder(nil), nil)
	flush(t, loop)
	require.Equal(t, Starting, s.State())
	_, ok := s.ConfigPath()
	require.False(t, ok)

	close(tc.server.gate)
	require.NoError(t, s.WaitStarted(t.Context()))
	_, ok = s.ConfigPath()
	require.True(t, ok)
}

func TestStart_UsesConfiguredSettings(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	ctrl := NewController(loop, Options{
		Loader: loaderFor(tc),
		Configure: func() (*config.Config, error) {
			cfg := config.Default()
			cfg.Server.Port = 9999
			cfg.Build.ConfigFileName = "webpack.dev.js"
			return cfg, nil
		},
	})

	s := ctrl.Start("/proj", host.NewRecorder(nil), nil)
	require.NoError(t, s.WaitStarted(t.Context()))

	path, _ := s.ConfigPath()
	require.Equal(t, "/proj/webpack.dev.js", path)
	require.Equal(t, 9999, tc.server.port)
}

func TestStop_ConcurrentCallsShareOneShutdown(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	out := host.NewRecorder(nil)
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})
	s := ctrl.Start("/proj", out, nil)
	require.NoError(t, s.WaitStarted(t.Context()))

	const n = 16
	futures := make([]*eventloop.Future[struct{}], n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			futures[i] = s.Stop()
		}()
	}
	wg.Wait()

	for _, f := range futures {
		require.Same(t, futures[0], f)
	}
	waitStop(t, s)
	flush(t, loop)

	require.EqualValues(t, 1, tc.server.closes.Load())
	require.Equal(t, Idle, s.State())
	require.Contains(t, out.Lines(), "Stopped dev server.")
	_, _, visible := out.Status()
	require.False(t, visible)
}

func TestStop_AfterLoopClosedStillSettles(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})
	s := ctrl.Start("/proj", host.NewRecorder(nil), nil)
	require.NoError(t, s.WaitStarted(t.Context()))

	loop.Close()

	waitStop(t, s)
	require.EqualValues(t, 1, tc.server.closes.Load())
}

func TestStop_BeforeStartSettlesWaitsForStart(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	tc.server.gate = make(chan struct{})
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})

	s := ctrl.Start("/proj", host.NewRecorder(nil), nil)
	stop := s.Stop()
	flush(t, loop)
	require.False(t, stop.Settled())
	require.Zero(t, tc.server.closes.Load())

	close(tc.server.gate)
	waitStop(t, s)
	require.EqualValues(t, 1, tc.server.listen.Load())
	require.EqualValues(t, 1, tc.server.closes.Load())
}

func TestStart_LoaderFailureIsStartupError(t *testing.T) {
	loop := newLoop(t)
	out := host.NewRecorder(nil)
	ctrl := NewController(loop, Options{Loader: toolchain.LoaderFunc(func(string) (toolchain.Toolchain, error) {
		return nil, ferrors.ResolveError("cannot find webpack").Build()
	})})

	res := newStartResult()
	s := ctrl.Start("/proj", out, res.cb)
	err := res.wait(t)

	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryStartup))
	require.Equal(t, Failed, s.State())
	_, ok := s.ConfigPath()
	require.False(t, ok)

	waitStop(t, s)
	require.Equal(t, Failed, s.State())
	assert.NotContains(t, out.Lines(), "Stopped dev server.")
}

func TestStart_PanicDuringConstructionIsStartupError(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	tc.panicMsg = "config exploded"
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})

	res := newStartResult()
	ctrl.Start("/proj", host.NewRecorder(nil), res.cb)
	err := res.wait(t)

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryStartup))
	require.Contains(t, err.Error(), "config exploded")
}

func TestStart_ConfigureFailureIsStartupError(t *testing.T) {
	loop := newLoop(t)
	ctrl := NewController(loop, Options{
		Loader:    loaderFor(newFakeToolchain()),
		Configure: func() (*config.Config, error) { return nil, errors.New("bad yaml") },
	})

	res := newStartResult()
	ctrl.Start("/proj", host.NewRecorder(nil), res.cb)
	require.True(t, ferrors.HasCategory(res.wait(t), ferrors.CategoryStartup))
}

func TestStart_ListenFailureClosesBestEffort(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	tc.server.listenErr = errors.New("address already in use")
	out := host.NewRecorder(nil)
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})

	res := newStartResult()
	s := ctrl.Start("/proj", out, res.cb)
	err := res.wait(t)

	require.True(t, ferrors.HasCategory(err, ferrors.CategoryListen))
	require.Contains(t, out.Lines(), "listen error!")
	require.Eventually(t, func() bool { return tc.server.closes.Load() == 1 }, waitFor, 5*time.Millisecond)

	waitStop(t, s)
	require.EqualValues(t, 1, tc.server.closes.Load())
}

func TestRunHooks_RebuildReport(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	out := host.NewRecorder(nil)
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})
	s := ctrl.Start("/proj", out, nil)
	require.NoError(t, s.WaitStarted(t.Context()))

	var mu sync.Mutex
	var changes []*report.Item
	s.Report().OnDidChange(func(it *report.Item) {
		mu.Lock()
		changes = append(changes, it)
		mu.Unlock()
	})

	line := 3
	tc.compiler.run(fakeStats{
		summary: "built",
		errors: []diagnostics.RawError{
			{File: "/proj/a.ts", RawMessage: "bad", Location: &diagnostics.CheckerLocation{Line: &line}},
			{File: "/proj/a.ts", RawMessage: "worse"},
		},
	})
	flush(t, loop)

	mu.Lock()
	require.Len(t, changes, 2)
	require.Nil(t, changes[0])
	require.Nil(t, changes[1])
	mu.Unlock()

	roots := s.Report().RootItems()
	require.Len(t, roots, 1)
	require.Equal(t, "short:/proj/a.ts", roots[0].Display.Label)
	require.Len(t, roots[0].Children, 2)

	text, tone, ok := out.Status()
	require.True(t, ok)
	require.Equal(t, "2 errors", text)
	require.Equal(t, host.ToneError, tone)
	require.Subset(t, out.Lines(), []string{"Compiling...", "built", "2 errors"})
}

func TestRunHooks_CleanRunStillFiresChange(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	out := host.NewRecorder(nil)
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})
	s := ctrl.Start("/proj", out, nil)
	require.NoError(t, s.WaitStarted(t.Context()))

	tc.compiler.run(fakeStats{summary: "first", errors: make([]diagnostics.RawError, 1)})
	flush(t, loop)
	require.Equal(t, 1, s.Report().Len())

	fired := 0
	s.Report().OnDidChange(func(*report.Item) { fired++ })
	tc.compiler.run(fakeStats{summary: "clean"})
	flush(t, loop)

	require.Zero(t, s.Report().Len())
	require.Equal(t, 2, fired)
	text, tone, _ := out.Status()
	require.Equal(t, "0 errors", text)
	require.Equal(t, host.ToneNormal, tone)
}

func TestRunHooks_IgnoredAfterStop(t *testing.T) {
	loop := newLoop(t)
	tc := newFakeToolchain()
	ctrl := NewController(loop, Options{Loader: loaderFor(tc)})
	s := ctrl.Start("/proj", host.NewRecorder(nil), nil)
	require.NoError(t, s.WaitStarted(t.Context()))
	waitStop(t, s)

	tc.compiler.run(fakeStats{errors: make([]diagnostics.RawError, 3)})
	flush(t, loop)

	require.Zero(t, s.Report().Len())
	require.Zero(t, tc.compiler.finished.Len())
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "failed", Failed.String())
	require.Equal(t, "unknown", State(42).String())
}

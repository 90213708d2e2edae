package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/session"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

const waitFor = 2 * time.Second

type stubCompiler struct{}

func (stubCompiler) OnRunStarted(func()) notify.Disposable                 { return notify.Nop }
func (stubCompiler) OnRunFinished(func(toolchain.Stats)) notify.Disposable { return notify.Nop }

type stubServer struct {
	listens, closes *atomic.Int32
	listenErr       error
}

func (s stubServer) Listen(context.Context, int, string) error {
	s.listens.Add(1)
	return s.listenErr
}

func (s stubServer) Close(context.Context) error {
	s.closes.Add(1)
	return nil
}

type stubToolchain struct {
	server stubServer
}

func (t stubToolchain) NewCompiler(toolchain.BuildConfig) (toolchain.Compiler, error) {
	return stubCompiler{}, nil
}

func (t stubToolchain) NewDevServer(toolchain.Compiler, toolchain.BuildConfig) (toolchain.DevServer, error) {
	return t.server, nil
}

type fakeTracker struct {
	mu      sync.Mutex
	tracked map[string]bool
}

func (f *fakeTracker) Track(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked[p] = true
	return nil
}

func (f *fakeTracker) Untrack(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracked, p)
}

func (f *fakeTracker) has(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracked[p]
}

type fixture struct {
	app     *App
	host    *host.Recorder
	tracker *fakeTracker
	listens atomic.Int32
	closes  atomic.Int32
}

func newFixture(t *testing.T, root string, listenErr error) *fixture {
	t.Helper()
	loop := eventloop.New()
	t.Cleanup(loop.Close)
	fx := &fixture{host: host.NewRecorder(nil), tracker: &fakeTracker{tracked: map[string]bool{}}}
	tc := stubToolchain{server: stubServer{listens: &fx.listens, closes: &fx.closes, listenErr: listenErr}}
	ctrl := session.NewController(loop, session.Options{
		Loader: toolchain.LoaderFunc(func(string) (toolchain.Toolchain, error) { return tc, nil }),
	})
	fx.app = New(loop, fx.host, ctrl, root, fx.tracker)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = fx.app.Shutdown(ctx)
	})
	return fx
}

func wait(t *testing.T, f *eventloop.Future[struct{}]) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func TestStartDevServer_RetargetsProxy(t *testing.T) {
	fx := newFixture(t, "/proj", nil)
	var resets atomic.Int32
	fx.app.Proxy().OnDidChange(func(it *report.Item) {
		if it == nil {
			resets.Add(1)
		}
	})
	require.Equal(t, report.PlaceholderLabel, fx.app.Proxy().TreeItem(nil).Label)

	require.NoError(t, wait(t, fx.app.StartDevServer()))

	s := fx.app.Current()
	require.NotNil(t, s)
	require.Same(t, s.Report(), fx.app.Proxy().Target())
	require.EqualValues(t, 1, resets.Load())
	require.True(t, fx.tracker.has("/proj/webpack.config.js"))
	require.Eventually(t, func() bool { return len(fx.host.Progress()) == 0 }, waitFor, 5*time.Millisecond)

	require.NoError(t, wait(t, fx.app.StopDevServer()))
	require.Nil(t, fx.app.Current())
	require.Nil(t, fx.app.Proxy().Target())
	require.EqualValues(t, 2, resets.Load())
	require.False(t, fx.tracker.has("/proj/webpack.config.js"))
	require.EqualValues(t, 1, fx.closes.Load())
}

func TestStartDevServer_AlreadyRunning(t *testing.T) {
	fx := newFixture(t, "/proj", nil)
	require.NoError(t, wait(t, fx.app.StartDevServer()))
	first := fx.app.Current()

	require.NoError(t, wait(t, fx.app.StartDevServer()))

	require.Equal(t, []string{MsgAlreadyRunning}, fx.host.Errors())
	require.Same(t, first, fx.app.Current())
	require.EqualValues(t, 1, fx.listens.Load())
}

func TestStartDevServer_NoWorkspaceRoot(t *testing.T) {
	fx := newFixture(t, "", nil)
	require.NoError(t, wait(t, fx.app.StartDevServer()))

	require.Equal(t, []string{MsgNoRoot}, fx.host.Infos())
	require.Nil(t, fx.app.Current())
}

func TestStartDevServer_FailureLeavesNoSession(t *testing.T) {
	fx := newFixture(t, "/proj", errors.New("address already in use"))

	err := wait(t, fx.app.StartDevServer())

	require.Error(t, err)
	require.Equal(t, []string{MsgStartFailed}, fx.host.Errors())
	require.Nil(t, fx.app.Current())
	require.Nil(t, fx.app.Proxy().Target())
}

func TestStopDevServer_NotRunning(t *testing.T) {
	fx := newFixture(t, "/proj", nil)
	require.NoError(t, wait(t, fx.app.StopDevServer()))
	require.Equal(t, []string{MsgNotRunning}, fx.host.Infos())
}

func TestHandleSaved_RestartsOnConfigSave(t *testing.T) {
	fx := newFixture(t, "/proj", nil)
	require.NoError(t, wait(t, fx.app.StartDevServer()))
	first := fx.app.Current()

	fx.app.HandleSaved(filepath.Join("/proj", "src", "index.js"))
	fx.app.HandleSaved("/proj/webpack.config.js")

	require.Eventually(t, func() bool {
		s := fx.app.Current()
		return s != nil && s != first && s.State() == session.Running
	}, waitFor, 5*time.Millisecond)
	require.EqualValues(t, 1, fx.closes.Load())
	require.EqualValues(t, 2, fx.listens.Load())
	require.Equal(t, session.Idle, first.State())
	require.True(t, fx.tracker.has("/proj/webpack.config.js"))
}

func TestRestart_WithoutSessionStarts(t *testing.T) {
	fx := newFixture(t, "/proj", nil)
	require.NoError(t, wait(t, fx.app.Restart()))
	require.NotNil(t, fx.app.Current())
	require.Empty(t, fx.host.Infos())
}

func TestRevealOutput(t *testing.T) {
	fx := newFixture(t, "/proj", nil)
	fx.app.RevealOutput()
	require.Eventually(t, func() bool { return fx.host.Reveals() == 1 }, waitFor, 5*time.Millisecond)
}

package exectool

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/buildwatch/internal/foundation/errors"
	"git.home.luguber.info/inful/buildwatch/internal/report"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

// fakeTool writes a shell script standing in for the build tool. It prints
// output and exits with code.
func fakeTool(t *testing.T, output string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool")
	script := fmt.Sprintf("#!/bin/sh\ncat <<'JSON'\n%s\nJSON\necho \"cwd=$(pwd)\" >&2\nexit %d\n", output, code)
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))
	return exe
}

func project(t *testing.T) toolchain.BuildConfig {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "webpack.config.js")
	require.NoError(t, os.WriteFile(cfgPath, []byte("module.exports = {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "index.html"), []byte("<h1>hi</h1>"), 0o644))
	return toolchain.BuildConfig{
		ConfigPath: cfgPath,
		Context:    root,
		OutputDir:  "dist",
		Debounce:   20 * time.Millisecond,
		Ignore:     []string{"node_modules"},
	}
}

func TestCompiler_RunFiresHooksInOrder(t *testing.T) {
	cfg := project(t)
	c := NewCompiler(fakeTool(t, `{"hash":"h1","errors":[],"warnings":[]}`, 0), cfg)

	var mu sync.Mutex
	var events []string
	c.OnRunStarted(func() { mu.Lock(); events = append(events, "started"); mu.Unlock() })
	c.OnRunFinished(func(s toolchain.Stats) { mu.Lock(); events = append(events, "finished:"+s.String()); mu.Unlock() })

	stats, err := c.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, "h1", stats.(*Stats).Hash())
	require.Len(t, events, 2)
	require.Equal(t, "started", events[0])
	require.Contains(t, events[1], "hash h1")
}

func TestCompiler_RunsInProjectRoot(t *testing.T) {
	cfg := project(t)
	c := NewCompiler(fakeTool(t, "garbage", 3), cfg)

	stats, err := c.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, stats.Errors(), 1)

	resolved, err := filepath.EvalSymlinks(cfg.Context)
	require.NoError(t, err)
	require.Contains(t, stats.Errors()[0].Error.Message, "cwd=")
	require.Contains(t, stats.Errors()[0].Error.Message, filepath.Base(resolved))
}

func TestCompiler_MissingExecutableReportsError(t *testing.T) {
	cfg := project(t)
	c := NewCompiler(filepath.Join(cfg.Context, "missing-tool"), cfg)

	stats, err := c.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, stats.Errors(), 1)
	require.Contains(t, stats.Errors()[0].Error.Message, "failed to run")
}

func TestCompiler_CancelledRunSkipsFinishedHook(t *testing.T) {
	cfg := project(t)
	c := NewCompiler(fakeTool(t, "{}", 0), cfg)
	var finished atomic.Int32
	c.OnRunFinished(func(toolchain.Stats) { finished.Add(1) })

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := c.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, finished.Load())
}

func TestCompiler_WatchRebuildsOnSourceChange(t *testing.T) {
	cfg := project(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Context, "src"), 0o755))
	c := NewCompiler(fakeTool(t, `{"errors":[]}`, 0), cfg)
	var runs atomic.Int32
	c.OnRunFinished(func(toolchain.Stats) { runs.Add(1) })

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Context, "src", "index.js"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestIgnoredPaths(t *testing.T) {
	c := NewCompiler("tool", toolchain.BuildConfig{Context: "/proj", OutputDir: "build/out", Ignore: []string{"node_modules"}})
	ignored := c.ignoreSet()

	require.True(t, c.isIgnoredPath("/proj/node_modules/x/index.js", ignored))
	require.True(t, c.isIgnoredPath("/proj/build/out/main.js", ignored))
	require.False(t, c.isIgnoredPath("/proj/src/main.js", ignored))

	require.True(t, shouldIgnoreEvent("/proj/src/.main.js.swp"))
	require.True(t, shouldIgnoreEvent("/proj/src/main.js~"))
	require.True(t, shouldIgnoreEvent("/proj/src/#main.js#"))
	require.False(t, shouldIgnoreEvent("/proj/src/main.js"))
}

func TestDevServer_ServesOutputAndReport(t *testing.T) {
	cfg := project(t)
	model := report.NewModel()
	model.AddItem(report.NewItem(report.DisplayItem{Label: "./src/a.ts"}))
	cfg.Report = model
	srv := NewDevServer(NewCompiler(fakeTool(t, `{"hash":"abc","errors":[]}`, 0), cfg), cfg)

	require.NoError(t, srv.Listen(t.Context(), 0, "127.0.0.1"))
	defer func() { require.NoError(t, srv.Close(context.Background())) }()
	base := "http://" + srv.Addr()

	body := get(t, base+"/healthz")
	require.Equal(t, "ok", body)
	require.Contains(t, get(t, base+"/index.html"), "<h1>hi</h1>")
	require.Contains(t, get(t, base+"/api/report"), `"label":"./src/a.ts"`)
	require.Contains(t, get(t, base+"/livereload.js"), "EventSource")
}

func TestDevServer_ListenOnBusyPortIsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()
	port := busy.Addr().(*net.TCPAddr).Port

	cfg := project(t)
	srv := NewDevServer(NewCompiler("tool", cfg), cfg)

	err = srv.Listen(t.Context(), port, "127.0.0.1")
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryListen))
	require.NoError(t, srv.Close(context.Background()))
}

func TestToolchain_NewCompilerNeedsConfigFile(t *testing.T) {
	cfg := project(t)
	tc := &Toolchain{Package: nil}
	cfg.ConfigPath = filepath.Join(cfg.Context, "nope.js")

	_, err := tc.NewCompiler(cfg)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

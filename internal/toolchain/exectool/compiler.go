package exectool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"git.home.luguber.info/inful/buildwatch/internal/logfields"
	"git.home.luguber.info/inful/buildwatch/internal/notify"
	"git.home.luguber.info/inful/buildwatch/internal/toolchain"
)

// Compiler runs the build tool's executable once per build.
type Compiler struct {
	exe      string
	cfg      toolchain.BuildConfig
	started  *notify.Notifier[struct{}]
	finished *notify.Notifier[toolchain.Stats]
	runMu    sync.Mutex
}

// NewCompiler creates a compiler for the executable at exe.
func NewCompiler(exe string, cfg toolchain.BuildConfig) *Compiler {
	return &Compiler{
		exe:      exe,
		cfg:      cfg,
		started:  notify.New[struct{}](),
		finished: notify.New[toolchain.Stats](),
	}
}

func (c *Compiler) OnRunStarted(fn func()) notify.Disposable {
	return c.started.Subscribe(func(struct{}) { fn() })
}

func (c *Compiler) OnRunFinished(fn func(toolchain.Stats)) notify.Disposable {
	return c.finished.Subscribe(fn)
}

// Run builds once. Runs never overlap. A run interrupted by ctx fires no
// finished hook and returns ctx's error.
func (c *Compiler) Run(ctx context.Context) (toolchain.Stats, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.started.Publish(struct{}{})
	stats, err := c.exec(ctx)
	if err != nil {
		return nil, err
	}
	slog.Debug("Build finished",
		logfields.Errors(len(stats.errors)),
		logfields.Warnings(len(stats.warnings)),
		logfields.Duration(stats.duration))
	c.finished.Publish(stats)
	return stats, nil
}

func (c *Compiler) exec(ctx context.Context) (*Stats, error) {
	args := append([]string{"--config", c.cfg.ConfigPath}, c.cfg.Args...)
	cmd := exec.CommandContext(ctx, c.exe, args...)
	cmd.Dir = c.cfg.Context
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		// The tool never ran; report that as the run's only error.
		slog.Warn("Build tool did not start", logfields.Path(c.exe), logfields.Error(runErr))
		stdout.Reset()
		stderr.Reset()
		fmt.Fprintf(&stderr, "failed to run %s: %v", c.exe, runErr)
	}
	return decodeStats(stdout.Bytes(), stderr.Bytes(), runErr, c.cfg.Context, time.Since(start)), nil
}

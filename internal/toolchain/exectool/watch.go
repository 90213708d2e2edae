package exectool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/buildwatch/internal/logfields"
)

// Watch builds once and then rebuilds whenever a source file under the
// project root changes. At most one build runs at a time and changes seen
// during a build queue a single follow-up build. Watch returns nil when ctx
// is cancelled.
func (c *Compiler) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	ignored := c.ignoreSet()
	if err := addDirsRecursive(watcher, c.cfg.Context, ignored); err != nil {
		return err
	}

	rebuildReq, trigger, stop := setupRebuildDebouncer(c.cfg.Debounce)
	defer stop()
	rebuildReq <- struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.rebuildWorker(gctx, rebuildReq) })
	g.Go(func() error { return c.watchLoop(gctx, watcher, ignored, trigger) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ignoreSet holds path segments never watched. The output directory is
// always included so the build does not retrigger itself.
func (c *Compiler) ignoreSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.cfg.Ignore)+1)
	for _, seg := range c.cfg.Ignore {
		set[seg] = struct{}{}
	}
	if out := c.cfg.OutputDir; out != "" && !filepath.IsAbs(out) {
		set[filepath.Clean(out)] = struct{}{}
	}
	return set
}

// setupRebuildDebouncer returns a one-slot request channel and a trigger that
// fills it once changes have been quiet for delay.
func setupRebuildDebouncer(delay time.Duration) (chan struct{}, func(), func()) {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return rebuildReq, trigger, stop
}

// rebuildWorker drains rebuild requests one build at a time. A request that
// arrives mid-build waits in the channel slot, so bursts collapse into one
// follow-up build.
func (c *Compiler) rebuildWorker(ctx context.Context, rebuildReq <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rebuildReq:
			if _, err := c.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Compiler) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, ignored map[string]struct{}, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleFileEvent(watcher, ev, ignored, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (c *Compiler) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, ignored map[string]struct{}, trigger func()) {
	if shouldIgnoreEvent(ev.Name) || c.isIgnoredPath(ev.Name, ignored) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, ignored)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (c *Compiler) isIgnoredPath(path string, ignored map[string]struct{}) bool {
	rel, err := filepath.Rel(c.cfg.Context, path)
	if err != nil {
		return false
	}
	rel = filepath.Clean(rel)
	if _, ok := ignored[rel]; ok {
		return true
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if _, ok := ignored[seg]; ok {
			return true
		}
	}
	for prefix := range ignored {
		if strings.HasPrefix(rel, prefix+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func addDirsRecursive(w *fsnotify.Watcher, root string, ignored map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if _, skip := ignored[d.Name()]; skip || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
		}
		if err := w.Add(path); err != nil {
			slog.Warn("watch add failed", slog.String("dir", path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Hidden files, including .DS_Store and emacs lock files.
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}

// Package watch reports saves of individual files.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/buildwatch/internal/logfields"
)

// DefaultDebounce collapses the burst of events editors emit per save.
const DefaultDebounce = 100 * time.Millisecond

// SaveWatcher calls a handler whenever a tracked file is written, created or
// renamed into place. Files are tracked individually; their directories are
// what fsnotify watches, which survives editors that replace files on save.
type SaveWatcher struct {
	watcher  *fsnotify.Watcher
	onSave   func(path string)
	debounce time.Duration

	mu      sync.Mutex
	tracked map[string]struct{}
	dirs    map[string]int
	timers  map[string]*time.Timer
	stopped bool
	done    chan struct{}
}

// New creates a watcher calling onSave with the absolute path of each saved
// tracked file. debounce <= 0 selects DefaultDebounce.
func New(debounce time.Duration, onSave func(path string)) (*SaveWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &SaveWatcher{
		watcher:  w,
		onSave:   onSave,
		debounce: debounce,
		tracked:  map[string]struct{}{},
		dirs:     map[string]int{},
		timers:   map[string]*time.Timer{},
		done:     make(chan struct{}),
	}, nil
}

// Track starts reporting saves of path.
func (sw *SaveWatcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, ok := sw.tracked[abs]; ok {
		return nil
	}
	dir := filepath.Dir(abs)
	if sw.dirs[dir] == 0 {
		if err := sw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	sw.dirs[dir]++
	sw.tracked[abs] = struct{}{}
	slog.Debug("Tracking file saves", logfields.Path(abs))
	return nil
}

// Untrack stops reporting saves of path.
func (sw *SaveWatcher) Untrack(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, ok := sw.tracked[abs]; !ok {
		return
	}
	delete(sw.tracked, abs)
	if t := sw.timers[abs]; t != nil {
		t.Stop()
		delete(sw.timers, abs)
	}
	dir := filepath.Dir(abs)
	sw.dirs[dir]--
	if sw.dirs[dir] <= 0 {
		delete(sw.dirs, dir)
		_ = sw.watcher.Remove(dir)
	}
}

// Run delivers events until ctx is done or Close is called.
func (sw *SaveWatcher) Run(ctx context.Context) {
	defer close(sw.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				sw.schedule(filepath.Clean(event.Name))
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Save watcher error", logfields.Error(err))
		}
	}
}

func (sw *SaveWatcher) schedule(path string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, ok := sw.tracked[path]; !ok || sw.stopped {
		return
	}
	if t := sw.timers[path]; t != nil {
		t.Stop()
	}
	sw.timers[path] = time.AfterFunc(sw.debounce, func() {
		sw.mu.Lock()
		_, still := sw.tracked[path]
		delete(sw.timers, path)
		stopped := sw.stopped
		sw.mu.Unlock()
		if still && !stopped {
			slog.Debug("File saved", logfields.Path(path))
			sw.onSave(path)
		}
	})
}

// Close stops the watcher. Pending debounced saves are dropped.
func (sw *SaveWatcher) Close() error {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return nil
	}
	sw.stopped = true
	for p, t := range sw.timers {
		t.Stop()
		delete(sw.timers, p)
	}
	sw.mu.Unlock()
	return sw.watcher.Close()
}

// Package eventloop provides the single-threaded task queue that every
// session transition and build hook runs on.
//
// Tasks posted to a Loop run one at a time, in the order they were posted, on
// one goroutine. Posting never blocks, so a task may post further tasks and
// foreign goroutines (compiler hooks, signal handlers) may post freely.
package eventloop

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Loop is a FIFO task queue drained by a single goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// New starts a loop.
func New() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post schedules task for a later turn of the loop. It reports false when the
// loop has been closed and the task was dropped.
func (l *Loop) Post(task func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting tasks. Tasks already queued still run; Close returns
// once the last of them has finished. Close must not be called from a task.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		select {
		case l.wake <- struct{}{}:
		default:
		}
	}
	l.mu.Unlock()
	<-l.done
}

// Done is closed after the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, task := range batch {
			runTask(task)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event loop task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}

package eventloop

import (
	"context"
	"sync"
)

// Future is a write-once result. The first Resolve or Reject wins; every
// reader observes the same value and error.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns an unsettled future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// Resolve settles the future successfully. It reports whether this call settled it.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err. It reports whether this call settled it.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = v, err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has a result.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Value returns the settled result. It must only be called after Done is closed.
func (f *Future[T]) Value() (T, error) {
	<-f.done
	return f.val, f.err
}

// OnSettled runs fn on loop l once f has settled. If l is closed by then, fn
// runs on its own goroutine instead, so callers waiting on fn still progress.
func (f *Future[T]) OnSettled(l *Loop, fn func(T, error)) {
	go func() {
		<-f.done
		if !l.Post(func() { fn(f.val, f.err) }) {
			fn(f.val, f.err)
		}
	}()
}

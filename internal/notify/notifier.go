// Package notify is the small publish/subscribe primitive shared by every
// component that emits change events.
//
// Listeners are kept in registration order in a doubly linked list so a
// subscription can be removed in O(1) through the handle returned at
// registration time.
package notify

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// Disposable releases whatever it was returned for. Dispose is idempotent.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a plain function to Disposable. It is not idempotent
// by itself; wrap it with Once when that matters.
type DisposableFunc func()

func (f DisposableFunc) Dispose() { f() }

// Once returns a Disposable that runs fn at most once.
func Once(fn func()) Disposable {
	var once sync.Once
	return DisposableFunc(func() { once.Do(fn) })
}

// Nop is a Disposable that does nothing.
var Nop Disposable = DisposableFunc(func() {})

type entry[E any] struct {
	fn      func(E)
	removed atomic.Bool
}

// Notifier is a registry of listeners for events of type E.
//
// Publish invokes every listener registered at the start of the pass, in
// registration order. A listener disposed during the pass is skipped if it
// has not been reached yet; listeners added during the pass are first
// invoked by the next Publish.
type Notifier[E any] struct {
	mu      sync.Mutex
	entries *list.List
}

// New creates an empty notifier.
func New[E any]() *Notifier[E] {
	return &Notifier[E]{entries: list.New()}
}

// Subscribe registers fn and returns the handle that removes it.
func (n *Notifier[E]) Subscribe(fn func(E)) Disposable {
	e := &entry[E]{fn: fn}

	n.mu.Lock()
	elem := n.entries.PushBack(e)
	n.mu.Unlock()

	return Once(func() {
		e.removed.Store(true)
		n.mu.Lock()
		n.entries.Remove(elem)
		n.mu.Unlock()
	})
}

// Publish delivers evt to all current listeners.
func (n *Notifier[E]) Publish(evt E) {
	n.mu.Lock()
	snapshot := make([]*entry[E], 0, n.entries.Len())
	for el := n.entries.Front(); el != nil; el = el.Next() {
		snapshot = append(snapshot, el.Value.(*entry[E]))
	}
	n.mu.Unlock()

	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		e.fn(evt)
	}
}

// Len returns the number of registered listeners.
func (n *Notifier[E]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries.Len()
}

package notify

import "sync"

// Disposables collects handles so they can be released together, in reverse
// order of registration.
type Disposables struct {
	mu    sync.Mutex
	items []Disposable
}

// Add registers d and returns it for chaining.
func (s *Disposables) Add(d Disposable) Disposable {
	s.mu.Lock()
	s.items = append(s.items, d)
	s.mu.Unlock()
	return d
}

// Dispose releases every collected handle. Further calls are no-ops until
// something new is added.
func (s *Disposables) Dispose() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

package report

import (
	"slices"
	"sync"

	"git.home.luguber.info/inful/buildwatch/internal/notify"
)

// Model owns the current report tree and announces changes to it.
//
// Clear and AddItem mutate silently; callers publish with FireChange once a
// batch of mutations is complete. FireChange(nil) is the "reload everything"
// signal used after every build run.
type Model struct {
	mu      sync.RWMutex
	items   []*Item
	changes *notify.Notifier[*Item]
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{changes: notify.New[*Item]()}
}

// RootItems returns a copy of the root list.
func (m *Model) RootItems() []*Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

// TreeItem returns the display form of item.
func (m *Model) TreeItem(item *Item) DisplayItem {
	return item.Display
}

// Children returns the root list for a nil item, otherwise item's children.
func (m *Model) Children(item *Item) []*Item {
	if item == nil {
		return m.RootItems()
	}
	return item.Children
}

// Parent returns item's parent, nil for root items.
func (m *Model) Parent(item *Item) *Item {
	if item == nil {
		return nil
	}
	return item.Parent
}

// AddItem appends item to the root list.
func (m *Model) AddItem(item *Item) {
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
}

// Clear empties the root list without notifying.
func (m *Model) Clear() {
	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
}

// FireChange notifies subscribers that item (or everything, for nil) changed.
func (m *Model) FireChange(item *Item) {
	m.changes.Publish(item)
}

// OnDidChange subscribes fn to change notifications.
func (m *Model) OnDidChange(fn func(*Item)) notify.Disposable {
	return m.changes.Subscribe(fn)
}

// Len returns the number of root items.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

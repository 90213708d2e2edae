package report

import (
	"sync"

	"git.home.luguber.info/inful/buildwatch/internal/notify"
)

// PlaceholderLabel is shown for any item queried while the proxy has no target.
const PlaceholderLabel = "No items here..."

// Proxy forwards tree queries to a replaceable target and re-broadcasts the
// target's change events. Subscribers attach to the proxy once and keep
// working across any number of target swaps.
type Proxy struct {
	mu        sync.RWMutex
	target    Provider
	targetSub notify.Disposable
	changes   *notify.Notifier[*Item]
}

// NewProxy returns a proxy without a target.
func NewProxy() *Proxy {
	return &Proxy{
		targetSub: notify.Nop,
		changes:   notify.New[*Item](),
	}
}

// SetTarget replaces the current target (nil clears it) and always fires a
// nil change so bound UIs drop everything they know. A nil *Model clears the
// target too.
func (p *Proxy) SetTarget(t Provider) {
	if m, ok := t.(*Model); ok && m == nil {
		t = nil
	}
	p.mu.Lock()
	p.targetSub.Dispose()
	p.targetSub = notify.Nop
	p.target = t
	if src, ok := t.(ChangeSource); ok {
		p.targetSub = src.OnDidChange(p.changes.Publish)
	}
	p.mu.Unlock()

	p.changes.Publish(nil)
}

// Target returns the current target, nil when there is none.
func (p *Proxy) Target() Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.target
}

// TreeItem delegates to the target, or returns the placeholder item.
func (p *Proxy) TreeItem(item *Item) DisplayItem {
	if t := p.Target(); t != nil {
		return t.TreeItem(item)
	}
	return DisplayItem{Label: PlaceholderLabel}
}

// Children delegates to the target, or reports nothing.
func (p *Proxy) Children(item *Item) []*Item {
	if t := p.Target(); t != nil {
		return t.Children(item)
	}
	return nil
}

// Parent delegates to the target, or reports nil.
func (p *Proxy) Parent(item *Item) *Item {
	if t := p.Target(); t != nil {
		return t.Parent(item)
	}
	return nil
}

// OnDidChange subscribes fn to the proxy's own change stream.
func (p *Proxy) OnDidChange(fn func(*Item)) notify.Disposable {
	return p.changes.Subscribe(fn)
}

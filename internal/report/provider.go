package report

import "git.home.luguber.info/inful/buildwatch/internal/notify"

// Provider is the capability set a tree UI consumes. A nil item addresses the
// invisible root.
type Provider interface {
	TreeItem(item *Item) DisplayItem
	Children(item *Item) []*Item
	Parent(item *Item) *Item
}

// ChangeSource is implemented by providers that announce changes. A nil item
// in the event means everything may have changed.
type ChangeSource interface {
	OnDidChange(fn func(*Item)) notify.Disposable
}

// Package report holds the build report tree shown to the user: the items,
// the Build Report Model that owns them, and the Proxy a UI binds to before
// any session exists.
package report

// CollapsibleState controls how a UI initially renders an item's children.
type CollapsibleState int

const (
	CollapsibleNone CollapsibleState = iota
	Collapsed
	Expanded
)

// NavigationTarget points at a location in a source file. Line and Column are
// 0-based and nil when unknown.
type NavigationTarget struct {
	File   string `json:"file"`
	Line   *int   `json:"line,omitempty"`
	Column *int   `json:"column,omitempty"`
}

// Position resolves the target for navigation. The column defaults to 0 when
// only the line is known; ok is false when there is no line.
func (t NavigationTarget) Position() (line, column int, ok bool) {
	if t.Line == nil {
		return 0, 0, false
	}
	if t.Column != nil {
		column = *t.Column
	}
	return *t.Line, column, true
}

// DisplayItem is what a tree UI renders for one node.
type DisplayItem struct {
	Label       string
	Description string
	Tooltip     string
	Collapsible CollapsibleState
	Target      *NavigationTarget
	// Warning marks entries that do not fail the build.
	Warning bool
}

// Item is one node of the report tree. Children are owned exclusively by
// their parent; Parent is a back-reference used only for upward navigation.
type Item struct {
	Display  DisplayItem
	Children []*Item
	Parent   *Item
}

// NewItem creates a childless item.
func NewItem(display DisplayItem) *Item {
	return &Item{Display: display, Children: []*Item{}}
}

// AddChild appends child and points its Parent at i.
func (i *Item) AddChild(child *Item) {
	child.Parent = i
	i.Children = append(i.Children, child)
}

package report

import "time"

// Node is the serialisable form of one tree item.
type Node struct {
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	Tooltip     string            `json:"tooltip,omitempty"`
	Target      *NavigationTarget `json:"target,omitempty"`
	Warning     bool              `json:"warning,omitempty"`
	Children    []Node            `json:"children,omitempty"`
}

// Snapshot is a point-in-time copy of a provider's whole tree.
type Snapshot struct {
	TakenAt time.Time `json:"taken_at"`
	Empty   bool      `json:"empty"`
	Items   []Node    `json:"items"`
}

// Take walks p from the root and copies every item's display form.
func Take(p Provider) Snapshot {
	items := walk(p, p.Children(nil))
	return Snapshot{
		TakenAt: time.Now().UTC(),
		Empty:   len(items) == 0,
		Items:   items,
	}
}

func walk(p Provider, items []*Item) []Node {
	nodes := make([]Node, 0, len(items))
	for _, it := range items {
		d := p.TreeItem(it)
		nodes = append(nodes, Node{
			Label:       d.Label,
			Description: d.Description,
			Tooltip:     d.Tooltip,
			Target:      d.Target,
			Warning:     d.Warning,
			Children:    walk(p, p.Children(it)),
		})
	}
	return nodes
}

// Count returns the number of leaf items in the snapshot.
func (s Snapshot) Count() int {
	n := 0
	for _, group := range s.Items {
		n += len(group.Children)
	}
	return n
}

// Counts splits the leaf items into errors and warnings.
func (s Snapshot) Counts() (errors, warnings int) {
	for _, group := range s.Items {
		for _, leaf := range group.Children {
			if leaf.Warning {
				warnings++
			} else {
				errors++
			}
		}
	}
	return errors, warnings
}

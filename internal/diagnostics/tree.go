package diagnostics

import "git.home.luguber.info/inful/buildwatch/internal/report"

// Shortener formats a file path for display, typically relative to the
// project root. A nil Shortener leaves paths unchanged.
type Shortener func(path string) string

// Group is the records of one file, in their original relative order.
type Group struct {
	File    string
	Records []Record
}

// GroupByFile groups records by File in order of first appearance.
func GroupByFile(records []Record) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, rec := range records {
		i, ok := index[rec.File]
		if !ok {
			i = len(groups)
			index[rec.File] = i
			groups = append(groups, Group{File: rec.File})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}

// BuildTree turns records into depth-0 file items with one depth-1 child per
// record.
func BuildTree(records []Record, shorten Shortener) []*report.Item {
	groups := GroupByFile(records)
	items := make([]*report.Item, 0, len(groups))
	for _, g := range groups {
		items = append(items, groupItem(g, shorten))
	}
	return items
}

func groupItem(g Group, shorten Shortener) *report.Item {
	label := g.File
	if shorten != nil && g.File != Unknown {
		label = shorten(g.File)
	}
	parent := report.NewItem(report.DisplayItem{
		Label:       label,
		Tooltip:     g.File,
		Collapsible: report.Expanded,
	})
	for _, rec := range g.Records {
		parent.AddChild(recordItem(rec))
	}
	return parent
}

func recordItem(rec Record) *report.Item {
	d := report.DisplayItem{
		Label:       positionLabel(rec.Line, rec.Column),
		Description: rec.Message,
		Tooltip:     rec.Message,
	}
	if pos := FormatPosition(rec.Line, rec.Column); pos != "" {
		d.Tooltip = rec.File + ":" + pos + "\n" + rec.Message
	}
	if rec.Severity == SeverityWarning {
		d.Tooltip = "warning: " + d.Tooltip
		d.Warning = true
	}
	if rec.HasPosition() {
		d.Target = &report.NavigationTarget{File: rec.File, Line: rec.Line, Column: rec.Column}
	}
	return report.NewItem(d)
}

package diagnostics

import "fmt"

// FormatPosition renders a 0-based position the way build tools print it:
// "line:column" 1-based, "line:?" when the column is unknown, and "" without
// a line.
func FormatPosition(line, column *int) string {
	switch {
	case line == nil:
		return ""
	case column == nil:
		return fmt.Sprintf("%d:?", *line+1)
	default:
		return fmt.Sprintf("%d:%d", *line+1, *column+1)
	}
}

// positionLabel is the label of an error item: "(line, column):" 1-based,
// with "?" for unknown parts.
func positionLabel(line, column *int) string {
	l, c := "?", "?"
	if line != nil {
		l = fmt.Sprint(*line + 1)
	}
	if column != nil {
		c = fmt.Sprint(*column + 1)
	}
	return fmt.Sprintf("(%s, %s):", l, c)
}

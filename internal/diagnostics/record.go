package diagnostics

// Severity distinguishes errors from warnings in a build run.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Record is the normalized form of one raw error. Line and Column are
// 0-based; each is nil when no layout supplied it.
type Record struct {
	File     string
	Message  string
	Line     *int
	Column   *int
	Severity Severity
}

// HasPosition reports whether the record can be navigated to.
func (r Record) HasPosition() bool {
	return r.Line != nil
}

// Normalize merges the layouts raw matches, taking each field from the first
// layout that carries it, and converts positions to 0-based. Line and column
// always come from the same layout.
func Normalize(raw RawError) Record {
	var rec Record
	positioned := false
	for _, s := range Shapes(raw) {
		if rec.File == "" {
			rec.File = s.File
		}
		if rec.Message == "" {
			rec.Message = s.Message
		}
		if !positioned && (s.Line != nil || s.Column != nil) {
			rec.Line, rec.Column = s.Line, s.Column
			positioned = true
		}
	}
	if rec.File == "" {
		rec.File = Unknown
	}
	if rec.Message == "" {
		rec.Message = Unknown
	}
	rec.Line = toZeroBased(rec.Line)
	rec.Column = toZeroBased(rec.Column)
	rec.Severity = SeverityError
	return rec
}

// NormalizeAll normalizes errors followed by warnings.
func NormalizeAll(errs, warnings []RawError) []Record {
	records := make([]Record, 0, len(errs)+len(warnings))
	for _, raw := range errs {
		records = append(records, Normalize(raw))
	}
	for _, raw := range warnings {
		rec := Normalize(raw)
		rec.Severity = SeverityWarning
		records = append(records, rec)
	}
	return records
}

func toZeroBased(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v - 1
	return &n
}

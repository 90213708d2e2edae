// Package host defines the surfaces a dev server session reports through:
// an output log, a status item, notifications and progress indicators.
package host

// Tone colours a status item.
type Tone int

const (
	ToneNormal Tone = iota
	ToneError
)

// Status is a single-line status item.
type Status interface {
	Set(text string, tone Tone)
	Hide()
}

// Output is the part of a host a session writes to.
type Output interface {
	// AppendLine adds a line to the output log.
	AppendLine(line string)
	// RevealOutput brings the output log into view.
	RevealOutput()
	// NewStatus creates a visible status item.
	NewStatus() Status
}

// Host is the full environment commands run in.
type Host interface {
	Output
	ShowInfo(msg string)
	ShowError(msg string)
	// WithProgress shows title until done is closed.
	WithProgress(title string, done <-chan struct{})
}

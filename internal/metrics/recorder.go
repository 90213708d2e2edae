package metrics

import "time"

// BuildOutcomeLabel enumerates the outcome of a single compiler run.
type BuildOutcomeLabel string

const (
	BuildClean    BuildOutcomeLabel = "clean"
	BuildWarnings BuildOutcomeLabel = "warnings"
	BuildErrors   BuildOutcomeLabel = "errors"
)

// SessionOutcomeLabel enumerates how a session start settled.
type SessionOutcomeLabel string

const (
	SessionStarted SessionOutcomeLabel = "started"
	SessionFailed  SessionOutcomeLabel = "failed"
)

// Recorder defines observability hooks for sessions, builds and live reload.
type Recorder interface {
	IncSessionStart(outcome SessionOutcomeLabel)
	IncSessionStop()
	ObserveStartupDuration(d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	SetReportCounts(errors, warnings int)
	SetLiveReloadClients(n int)
	IncLiveReloadBroadcast()
}

// OutcomeFor classifies a finished run by its error and warning counts.
func OutcomeFor(errors, warnings int) BuildOutcomeLabel {
	switch {
	case errors > 0:
		return BuildErrors
	case warnings > 0:
		return BuildWarnings
	default:
		return BuildClean
	}
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSessionStart(SessionOutcomeLabel)  {}
func (NoopRecorder) IncSessionStop()                      {}
func (NoopRecorder) ObserveStartupDuration(time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)   {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)    {}
func (NoopRecorder) SetReportCounts(int, int)             {}
func (NoopRecorder) SetLiveReloadClients(int)             {}
func (NoopRecorder) IncLiveReloadBroadcast()              {}

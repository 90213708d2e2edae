package session

// State is a session's lifecycle position.
//
//	Idle -> Starting -> Running -> Stopping -> Idle
//	Starting -> Failed
//
// Failed is terminal: recovering means starting a new session.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

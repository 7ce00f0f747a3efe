package session

// State is the lifecycle of a transcription session. A session owns at most
// one live transport; Stop leaves the transport open for fast restart, only
// Close tears it down.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closing
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

package session

// ConnState is the lifecycle state of a session.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

package session

import "fmt"

// Status enumerates the connection state machine phases.
type Status int

const (
	// Disconnected is the initial state and the result of an intentional
	// disconnect. No transport, no pending work.
	Disconnected Status = iota

	// Connecting means the transport handshake is in flight.
	Connecting

	// Connected means the handshake completed; heartbeat is active and
	// requests and events may flow.
	Connected

	// Reconnecting means the transport is torn down and a backoff timer
	// is scheduled.
	Reconnecting

	// Suspended means the session is intentionally paused (network lost
	// or app backgrounded). No retry timer runs; resumption is driven
	// externally.
	Suspended

	// Failed is terminal after exhausting retries. Only an explicit
	// Connect leaves it.
	Failed
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Suspended:
		return "suspended"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is the externally observable connection state. Attempt is set only
// while Reconnecting; Reason only when Failed.
type State struct {
	Status  Status
	Attempt int
	Reason  string
}

func (s State) String() string {
	switch s.Status {
	case Reconnecting:
		return fmt.Sprintf("reconnecting(attempt=%d)", s.Attempt)
	case Failed:
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
	return s.Status.String()
}

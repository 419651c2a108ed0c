package session

// State is the session controller's current position in its state machine.
type State uint8

const (
	// StateUnbound means no identity is bound; only binding is possible.
	StateUnbound State = iota
	// StateBinding means an identity bind is in flight.
	StateBinding
	// StateBound means an identity is bound and the friend graph is
	// available; no thread is selected.
	StateBound
	// StateThreadSelected means a friend's thread is active.
	StateThreadSelected
	// StateSending means a message send is in flight on the active thread.
	StateSending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "Unbound"
	case StateBinding:
		return "Binding"
	case StateBound:
		return "Bound"
	case StateThreadSelected:
		return "ThreadSelected"
	case StateSending:
		return "Sending"
	default:
		return "Unknown"
	}
}

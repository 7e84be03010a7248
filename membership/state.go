package membership

// State is the lifecycle stage of a connection between a slave and its master.
//
//	Disconnected → Connecting → Authenticating → Joined
//	Joined → Reconnecting → Connecting   (connection lost)
//	any → Disconnected                   (explicit stop)
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateJoined
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateDisconnected:   {StateConnecting},
	StateConnecting:     {StateAuthenticating, StateReconnecting},
	StateAuthenticating: {StateJoined, StateReconnecting},
	StateJoined:         {StateReconnecting},
	StateReconnecting:   {StateConnecting},
}

// CanTransition reports whether moving from s to next is allowed. Moving to
// Disconnected is always allowed.
func (s State) CanTransition(next State) bool {
	if next == StateDisconnected {
		return true
	}

	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

package stream

// State is the lifecycle state of the playback stream.
type State int32

const (
	// StateUninitialized means no device stream is open.
	StateUninitialized State = iota
	// StateIdle means the stream is open but not playing.
	StateIdle
	// StateStarting means the device stream is being started.
	StateStarting
	// StateRunning means render callbacks are pulling frames.
	StateRunning
	// StateStopping means the stream is draining in-flight callbacks.
	StateStopping
	// StateError means the device was lost; Initialize re-arms the engine.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsActive returns true if the device stream is started or being started.
func (s State) IsActive() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}

// transitions lists the valid state transitions, indexed by the source
// state. Every engine state change is checked against it, including the
// ones made from the render goroutine. Moving to Uninitialized (Shutdown)
// is valid from every state.
var transitions = [...][]State{
	StateUninitialized: {StateIdle},
	StateIdle:          {StateStarting, StateIdle, StateError},
	StateStarting:      {StateRunning, StateIdle, StateError},
	StateRunning:       {StateStopping, StateIdle, StateError},
	StateStopping:      {StateIdle, StateError},
	StateError:         {StateIdle},
}

// CanTransition reports whether the engine may move from one state to
// another.
func CanTransition(from, to State) bool {
	if to == StateUninitialized {
		return true
	}
	if from < 0 || int(from) >= len(transitions) {
		return false
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

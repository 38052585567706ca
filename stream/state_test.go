package stream

import "testing"

// TestStateString tests the String() method for State.
func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateUninitialized, "uninitialized"},
		{StateIdle, "idle"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{StateError, "error"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("State.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStateIsActive(t *testing.T) {
	active := map[State]bool{
		StateStarting: true,
		StateRunning:  true,
		StateStopping: true,
	}
	for _, s := range []State{StateUninitialized, StateIdle, StateStarting, StateRunning, StateStopping, StateError} {
		if got := s.IsActive(); got != active[s] {
			t.Errorf("%v.IsActive() = %v, want %v", s, got, active[s])
		}
	}
}

// TestCanTransition checks the lifecycle table.
func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUninitialized, StateIdle, true},
		{StateUninitialized, StateRunning, false},
		{StateIdle, StateStarting, true},
		{StateIdle, StateRunning, false},
		{StateStarting, StateRunning, true},
		{StateStarting, StateIdle, true},
		{StateRunning, StateStopping, true},
		{StateRunning, StateIdle, true}, // drained
		{StateRunning, StateError, true},
		{StateStopping, StateIdle, true},
		{StateStopping, StateRunning, false},
		{StateError, StateIdle, true},
		{StateError, StateRunning, false},
		{StateRunning, StateUninitialized, true},
		{StateError, StateUninitialized, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

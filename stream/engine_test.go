package stream

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

var allStates = []State{StateUninitialized, StateIdle, StateStarting, StateRunning, StateStopping, StateError}

// TestEngineTransitionFollowsTable checks every state pair against the
// lifecycle table.
func TestEngineTransitionFollowsTable(t *testing.T) {
	e := NewEngine(nil, nil, log.New(io.Discard))

	for _, from := range allStates {
		for _, to := range allStates {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				e.state.Store(int32(from))
				want := CanTransition(from, to)

				if got := e.transition(from, to); got != want {
					t.Fatalf("transition() = %v, want %v", got, want)
				}
				wantState := from
				if want {
					wantState = to
				}
				if e.State() != wantState {
					t.Errorf("State() = %v, want %v", e.State(), wantState)
				}

				e.state.Store(int32(from))
				if got := e.moveTo(to); got != want {
					t.Errorf("moveTo() = %v, want %v", got, want)
				}
			})
		}
	}
}

func TestEngineTransitionStaleSource(t *testing.T) {
	e := NewEngine(nil, nil, log.New(io.Discard))
	e.state.Store(int32(StateRunning))

	if e.transition(StateIdle, StateStarting) {
		t.Error("transition() from a stale state succeeded")
	}
	if e.State() != StateRunning {
		t.Errorf("State() = %v, want running", e.State())
	}
}

func TestDeviceErrorRespectsTable(t *testing.T) {
	tests := []struct {
		from State
		want State
	}{
		{StateUninitialized, StateUninitialized},
		{StateIdle, StateError},
		{StateStarting, StateError},
		{StateRunning, StateError},
		{StateStopping, StateError},
		{StateError, StateError},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			e := NewEngine(nil, nil, log.New(io.Discard))
			e.state.Store(int32(tt.from))

			cause := errors.New("unplugged")
			e.deviceError(cause)
			if e.State() != tt.want {
				t.Errorf("State() = %v, want %v", e.State(), tt.want)
			}
			if !errors.Is(e.faultCause(), cause) {
				t.Errorf("faultCause() = %v, want %v", e.faultCause(), cause)
			}
		})
	}
}

func TestResetCounters(t *testing.T) {
	e := NewEngine(nil, nil, log.New(io.Discard))
	e.cursor.Store(3)
	e.callbacks.Add(4)
	e.framesRendered.Add(5)
	e.underruns.Add(6)
	e.drains.Add(1)
	e.deviceErrors.Add(2)

	e.resetCounters()

	s := e.Stats()
	if s.Cursor != 0 || s.Callbacks != 0 || s.FramesRendered != 0 ||
		s.Underruns != 0 || s.Drains != 0 || s.DeviceErrors != 0 {
		t.Errorf("Stats() after reset = %+v, want zero counters", s)
	}
}

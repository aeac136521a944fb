package reactorcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReactorStateInitial(t *testing.T) {
	s := newReactorState()
	assert.Equal(t, StateAwake, s.Load())
	assert.False(t, s.IsRunning())
	assert.False(t, s.IsTerminal())
	assert.True(t, s.CanAcceptWork())
}

func TestReactorStateTryTransition(t *testing.T) {
	s := newReactorState()
	assert.True(t, s.TryTransition(StateAwake, StateRunning))
	assert.False(t, s.TryTransition(StateAwake, StateRunning), "stale CAS must fail")
	assert.Equal(t, StateRunning, s.Load())
	assert.True(t, s.IsRunning())
}

func TestReactorStateTransitionAny(t *testing.T) {
	s := newReactorState()
	s.Store(StateSleeping)
	ok := s.TransitionAny([]ReactorState{StateRunning, StateSleeping}, StateTerminating)
	assert.True(t, ok)
	assert.Equal(t, StateTerminating, s.Load())
}

func TestReactorStateTerminal(t *testing.T) {
	s := newReactorState()
	s.Store(StateTerminated)
	assert.True(t, s.IsTerminal())
	assert.False(t, s.CanAcceptWork())
}

func TestReactorStateString(t *testing.T) {
	cases := map[ReactorState]string{
		StateAwake:       "Awake",
		StateRunning:     "Running",
		StateSleeping:    "Sleeping",
		StateTerminating: "Terminating",
		StateTerminated:  "Terminated",
		ReactorState(99): "Unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

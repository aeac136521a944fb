package reactorcore

import "sync/atomic"

// ReactorState is the current state of a Reactor's tick loop.
//
// State machine, as Reactor drives it:
//
//	StateAwake (0) → StateRunning (3)        [Run()]
//	StateRunning (3) → StateTerminated (1)   [Run() exiting, after Stop() or a wake-fd setup failure]
//	StateTerminated (1) → (terminal)
//
// StateSleeping (2) and StateTerminating (4) are defined, and IsRunning and
// CanAcceptWork treat StateSleeping as live, but Reactor never enters
// either of them.
//
// Use TryTransition (CAS) for temporary states; use Store only for the
// irreversible Terminated state.
type ReactorState uint64

const (
	StateAwake       ReactorState = 0
	StateTerminated  ReactorState = 1
	StateSleeping    ReactorState = 2
	StateRunning     ReactorState = 3
	StateTerminating ReactorState = 4
)

func (s ReactorState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// reactorState is a lock-free state machine, cache-line padded to avoid
// false sharing between the owning goroutine and callers of Stop/Running
// on other goroutines.
type reactorState struct { // betteralign:ignore
	_ [64]byte
	v atomic.Uint64
	_ [56]byte
}

func newReactorState() *reactorState {
	s := &reactorState{}
	s.v.Store(uint64(StateAwake))
	return s
}

func (s *reactorState) Load() ReactorState { return ReactorState(s.v.Load()) }

func (s *reactorState) Store(state ReactorState) { s.v.Store(uint64(state)) }

func (s *reactorState) TryTransition(from, to ReactorState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *reactorState) TransitionAny(validFrom []ReactorState, to ReactorState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

func (s *reactorState) IsTerminal() bool {
	return s.Load() == StateTerminated
}

func (s *reactorState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}

func (s *reactorState) CanAcceptWork() bool {
	state := s.Load()
	return state == StateAwake || state == StateRunning || state == StateSleeping
}

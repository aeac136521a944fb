package reactorcore

import "errors"

// Sentinel errors shared across components, returned unwrapped and matched
// with errors.Is. EventPoller-specific sentinels
// (ErrFDOutOfRange, ErrFDAlreadyRegistered, ErrFDNotRegistered,
// ErrPollerClosed) live in eventpoller.go alongside the interfaces they
// guard.
var (
	// ErrCapacityExceeded is returned by Connection.Send when the send
	// RingBuffer cannot take the unsent bytes (RingBuffer.Write itself
	// reports this as false). Not a contract violation: callers are
	// expected to retry or back off.
	ErrCapacityExceeded = errors.New("reactorcore: capacity exceeded")

	// ErrOverrun names the condition of a CircularQueue reader falling
	// behind a writer that has since wrapped around and overwritten the
	// unread generation. CircularQueue.Read does not return it: it reports
	// an overrun as (zero, false) and counts it in CircularQueue.Overrun.
	ErrOverrun = errors.New("reactorcore: reader overrun")

	// ErrQueueEmpty names the condition of a dequeue finding no entry.
	// LinkedQueue.Dequeue does not return it: it reports an empty queue as
	// (nil, false).
	ErrQueueEmpty = errors.New("reactorcore: queue empty")

	// ErrReactorAlreadyRunning is returned by Reactor.Run when the
	// reactor is already executing its tick loop.
	ErrReactorAlreadyRunning = errors.New("reactorcore: reactor already running")

	// ErrReactorStopped is returned by operations attempted against a
	// reactor that has completed Stop.
	ErrReactorStopped = errors.New("reactorcore: reactor stopped")

	// ErrReentrantRun is returned when Run is called from the goroutine
	// currently driving the reactor's own tick loop.
	ErrReentrantRun = errors.New("reactorcore: reentrant Run call")
)

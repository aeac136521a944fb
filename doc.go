// Package reactorcore is a systems toolkit built around a per-thread
// event/message reactor, a family of lock-free queues, an SPSC ring
// buffer, and a slab/bin memory allocator.
//
// # Architecture
//
// A [Reactor] ticks a [Clock], drains a [TimerQueue], polls zero or more
// [MessagePoller] sources (each backed by a [LinkedQueue]), then polls an
// [EventPoller] for file-descriptor readiness. The ordering is fixed:
// timers, then messages, then I/O, every iteration.
//
// Producers allocate entries from [Allocator] (or a [ConcurrentAllocator]
// for cross-goroutine pools), enqueue them into a [LinkedQueue] or a
// [CircularQueue], or write bytes into a [RingBuffer]. A [Connection]
// composes a RingBuffer pair with the EventPoller to demonstrate the
// ring-buffer contract end to end.
//
// # Platform support
//
// The event poller has three backends selected by build tag:
//   - Linux: epoll ([newEpollPoller])
//   - Darwin: kqueue ([newKqueuePoller])
//   - other unix: poll(2) ([newPollPoller])
//
// All three share the same busy-loop fallback for sub-millisecond
// timeouts, described at busyWaitSubMilli.
//
// # Thread affinity
//
// Exactly one goroutine drives a given Reactor's tick loop. Timer
// registration from other goroutines must go through
// [TimerQueue.AddPending] and is merged at the top of a tick via
// [TimerQueue.MergePending]. The LinkedQueue and CircularQueue are safe
// for concurrent producers per their own docs; the RingBuffer is strict
// single-producer/single-consumer.
//
// # Logging
//
// [NewReactor] accepts a [Logger] via [WithLogger] and [NewAllocator] via
// [PoolConfig].Logger; when omitted, the [ProcessDefaultLogger] is used,
// which is a no-op until [SetProcessDefaultLogger] is called at startup.
// The other components do not log. No component reads a package-level
// writer implicitly.
package reactorcore

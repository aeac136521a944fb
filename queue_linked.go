package reactorcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// entryHeader is the single entry ABI described in the REDESIGN FLAGS
// section: rather than a virtual destructor used to delete entries
// polymorphically (the source's approach), every LinkedQueue node carries
// an explicit drop function invoked at reclamation time, plus the
// next/consumed bookkeeping the lock-free algorithm itself needs.
//
// Typed producers should embed entryHeader as the first field of their own
// entry struct and pass a drop func that knows how to release it (e.g. back
// to an Allocator), matching the "typed wrappers at the consumer side"
// guidance.
type entryHeader struct {
	next     atomic.Pointer[entryHeader]
	consumed atomic.Bool
	drop     func(*entryHeader)
}

// NewMessageEntry constructs a bare LinkedQueue entry with no payload of its
// own, with drop invoked when the entry is reclaimed (nil is a valid no-op
// drop). Entries that carry data embed entryHeader instead.
func NewMessageEntry(drop func(*entryHeader)) *entryHeader {
	return &entryHeader{drop: drop}
}

// LinkedQueue is the lock-free multi-producer/multi-consumer queue of
// section 4.C. Consumers gain sole ownership of a dequeued node until they
// call Commit; producers reclaim committed nodes opportunistically on
// Enqueue.
type LinkedQueue struct {
	multiWriter bool
	writerMu    sync.Mutex // only used when multiWriter; covers the linking step only

	head         *entryHeader // sentinel, never freed
	tail         atomic.Pointer[entryHeader]
	lastConsumed atomic.Pointer[entryHeader]

	blockingUsed atomic.Bool
	cond         *sync.Cond
	condMu       sync.Mutex
}

// NewLinkedQueue constructs an empty queue. multiWriter selects whether
// Enqueue serialises the linking step under a mutex (true) or assumes a
// single producer (false); the queue is always multi-consumer-safe.
func NewLinkedQueue(multiWriter bool) *LinkedQueue {
	sentinel := &entryHeader{}
	sentinel.consumed.Store(true)
	q := &LinkedQueue{multiWriter: multiWriter, head: sentinel}
	q.tail.Store(sentinel)
	q.lastConsumed.Store(sentinel)
	q.cond = sync.NewCond(&q.condMu)
	return q
}

// Enqueue links a new node onto the tail, then attempts to reclaim up to
// two already-consumed, detached nodes so memory stays bounded without a
// separate GC pass.
func (q *LinkedQueue) Enqueue(e *entryHeader) {
	q.reclaim(2)

	if q.multiWriter {
		q.writerMu.Lock()
		tail := q.tail.Load()
		tail.next.Store(e)
		q.tail.Store(e)
		q.writerMu.Unlock()
	} else {
		tail := q.tail.Load()
		tail.next.Store(e)
		q.tail.Store(e)
	}

	if q.blockingUsed.Load() {
		q.condMu.Lock()
		q.cond.Broadcast()
		q.condMu.Unlock()
	}
}

// Dequeue advances lastConsumed to its successor via CAS and returns the
// entry that was there, or (nil, false) if the queue is empty.
func (q *LinkedQueue) Dequeue() (*entryHeader, bool) {
	for {
		last := q.lastConsumed.Load()
		next := last.next.Load()
		if next == nil {
			return nil, false
		}
		if q.lastConsumed.CompareAndSwap(last, next) {
			return next, true
		}
	}
}

// BlockingDequeue dequeues, waiting on a condition variable signalled by
// Enqueue when the queue is empty, until an entry is available or ctx is
// cancelled (in which case it returns (nil, false)).
func (q *LinkedQueue) BlockingDequeue(ctx context.Context) (*entryHeader, bool) {
	if e, ok := q.Dequeue(); ok {
		return e, true
	}
	q.blockingUsed.Store(true)

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		close(done)
		q.condMu.Lock()
		q.cond.Broadcast()
		q.condMu.Unlock()
	})
	defer stop()

	q.condMu.Lock()
	defer q.condMu.Unlock()
	for {
		if e, ok := q.Dequeue(); ok {
			return e, true
		}
		select {
		case <-done:
			return nil, false
		default:
		}
		q.cond.Wait()
	}
}

// Commit marks a dequeued entry consumed, making it eligible for
// reclamation by a subsequent Enqueue once it falls off lastConsumed.
func (q *LinkedQueue) Commit(e *entryHeader) {
	e.consumed.Store(true)
}

// reclaim frees up to max already-consumed, detached nodes from the front
// of the list (strictly older than the current lastConsumed), invoking each
// node's drop function. The sentinel is never freed.
func (q *LinkedQueue) reclaim(max int) {
	for i := 0; i < max; i++ {
		head := q.head
		next := head.next.Load()
		if next == nil || next == q.lastConsumed.Load() {
			return
		}
		if !next.consumed.Load() {
			return
		}
		if !head.next.CompareAndSwap(next, next.next.Load()) {
			return
		}
		if next.drop != nil {
			next.drop(next)
		}
	}
}

package reactorcore

import (
	"sync"
	"unsafe"
)

// MessageHandler processes messages drained from a MessagePoller.
type MessageHandler interface {
	Process(now Tick, msg any)
}

// messageEntry is a LinkedQueue node carrying an arbitrary payload.
// entryHeader must be the first field: Notify/Poll convert between
// *entryHeader and *messageEntry via unsafe.Pointer, relying on that
// layout guarantee the same way container/list converts between its
// Element and embedding structs.
type messageEntry struct {
	entryHeader
	msg any
}

func entryToMessage(h *entryHeader) *messageEntry {
	return (*messageEntry)(unsafe.Pointer(h))
}

// MessagePoller is the section 4.G bridge between a LinkedQueue and the
// reactor: Poll drains up to maxPollNum queued messages per call, handing
// each to handler.Process before committing it.
type MessagePoller struct {
	queue      *LinkedQueue
	handler    MessageHandler
	maxPollNum int
	pool       *sync.Pool // non-nil only for the pool-backed constructor
}

// NewQueueMsgPoller constructs a poller whose entries are ordinary
// heap-allocated nodes, released to the GC once committed and reclaimed —
// mirroring the source's CoQueueMsgPoller<Allocator> instantiation.
func NewQueueMsgPoller(queue *LinkedQueue, handler MessageHandler, maxPollNum int) *MessagePoller {
	return &MessagePoller{queue: queue, handler: handler, maxPollNum: maxPollNum}
}

// NewPooledQueueMsgPoller constructs a poller whose entries are recycled
// through a sync.Pool instead of being released to the GC, mirroring the
// source's CoQueueMsgPoller<PooledAllocator> instantiation. Selected by a
// reactor when Config.ThreadMsgPollerUsesPool is set.
func NewPooledQueueMsgPoller(queue *LinkedQueue, handler MessageHandler, maxPollNum int) *MessagePoller {
	pool := &sync.Pool{New: func() any { return &messageEntry{} }}
	return &MessagePoller{queue: queue, handler: handler, maxPollNum: maxPollNum, pool: pool}
}

// Notify enqueues msg for a future Poll call. Safe for concurrent callers
// if the underlying LinkedQueue was constructed with multiWriter=true.
func (p *MessagePoller) Notify(msg any) {
	var e *messageEntry
	if p.pool != nil {
		e = p.pool.Get().(*messageEntry)
		e.entryHeader = entryHeader{}
		pool := p.pool
		e.entryHeader.drop = func(h *entryHeader) {
			me := entryToMessage(h)
			me.msg = nil
			pool.Put(me)
		}
	} else {
		e = &messageEntry{}
	}
	e.msg = msg
	p.queue.Enqueue(&e.entryHeader)
}

// Poll drains up to maxPollNum messages, processing each in FIFO order.
// Returns the number processed.
func (p *MessagePoller) Poll(now Tick) int {
	n := 0
	for n < p.maxPollNum {
		entry, ok := p.queue.Dequeue()
		if !ok {
			break
		}
		me := entryToMessage(entry)
		p.handler.Process(now, me.msg)
		p.queue.Commit(entry)
		n++
	}
	return n
}

package reactorcore

import "sync"

// TimerListener receives timeout callbacks from a TimerQueue. A listener
// constructed on a non-owning thread (e.g. during object preload) that
// cannot yet handle a timeout can also implement IncipientTimerListener.
type TimerListener interface {
	OnTimeout(timerID int64, userData any)
}

// IncipientTimerListener is implemented by listeners that may need to defer
// activation; TimerQueue itself never calls IsIncipient, the caller decides
// between Add and AddPending based on it.
type IncipientTimerListener interface {
	TimerListener
	IsIncipient() bool
}

type timerNode struct {
	prev, next *timerNode

	id       int64
	expire   Tick
	interval Tick
	listener TimerListener
	userData any
}

type pendingTimer struct {
	id           int64
	initialDelay Tick
	interval     Tick
	listener     TimerListener
	userData     any
}

// TimerQueue is the per-reactor timer manager of section 4.E: a doubly-
// linked list ordered by expiry tick, with an id index for O(1)
// ResetInterval/Remove. It is not internally synchronized except for the
// pending-registration path (AddPending), matching the single-owner-thread
// contract described in the source it's grounded on.
type TimerQueue struct {
	head, tail *timerNode // sentinels; head.next is soonest-expiring
	byID       map[int64]*timerNode
	nextID     int64

	pendingMu sync.Mutex
	pending   []pendingTimer
	pendingID int64
}

// NewTimerQueue constructs an empty TimerQueue.
func NewTimerQueue() *TimerQueue {
	head := &timerNode{}
	tail := &timerNode{}
	head.next = tail
	tail.prev = head
	return &TimerQueue{head: head, tail: tail, byID: make(map[int64]*timerNode)}
}

// Add registers a timer that fires at now+initialDelay, then every interval
// thereafter until Remove'd (interval == 0 means fire once).
func (q *TimerQueue) Add(listener TimerListener, userData any, initialDelay, interval Tick, now Tick) int64 {
	q.nextID++
	id := q.nextID
	q.insert(&timerNode{
		id: id, expire: now + initialDelay, interval: interval,
		listener: listener, userData: userData,
	})
	return id
}

// AddPending stashes the registration for a later MergePending call by the
// owning thread and returns a negative id for the pending registration.
// MergePending gives the activated timer a fresh positive id, which is not
// returned to the caller, so the id from AddPending is not accepted by
// Remove or ResetInterval. Safe to call from any goroutine.
func (q *TimerQueue) AddPending(listener TimerListener, userData any, initialDelay, interval Tick) int64 {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	q.pendingID--
	id := q.pendingID
	q.pending = append(q.pending, pendingTimer{
		id: id, initialDelay: initialDelay, interval: interval,
		listener: listener, userData: userData,
	})
	return id
}

// MergePending activates every timer registered via AddPending since the
// last call, translating each initialDelay into an absolute expiry against
// now. Must be called only from the owning thread.
func (q *TimerQueue) MergePending(now Tick) {
	q.pendingMu.Lock()
	batch := q.pending
	q.pending = nil
	q.pendingMu.Unlock()

	for _, p := range batch {
		q.nextID++
		id := q.nextID
		q.insert(&timerNode{
			id: id, expire: now + p.initialDelay, interval: p.interval,
			listener: p.listener, userData: p.userData,
		})
		// the pending id reserved at registration time is intentionally
		// distinct from the active id assigned here: callers that need to
		// correlate the two should capture the returned id from
		// AddPending and match it against userData, not against the
		// active-queue id.
		_ = id
	}
}

// ResetInterval updates an active timer's repeat interval without touching
// its next expiry. Returns false if the timer does not exist.
func (q *TimerQueue) ResetInterval(id int64, newInterval Tick) bool {
	node, ok := q.byID[id]
	if !ok {
		return false
	}
	node.interval = newInterval
	return true
}

// Remove deletes an active timer. Returns false if it does not exist.
func (q *TimerQueue) Remove(id int64) bool {
	node, ok := q.byID[id]
	if !ok {
		return false
	}
	q.unlink(node)
	delete(q.byID, id)
	return true
}

// Tick fires every timer whose expiry is <= now, advancing repeating
// timers' expiry by interval (catching up to now+1 if they fell behind) and
// repositioning them; one-shot timers (interval == 0) are removed.
func (q *TimerQueue) Tick(now Tick) {
	node := q.head.next
	for node != q.tail && node.expire <= now {
		next := node.next
		node.listener.OnTimeout(node.id, node.userData)

		if node.interval <= 0 {
			q.unlink(node)
			delete(q.byID, node.id)
		} else {
			node.expire += node.interval
			if node.expire <= now {
				node.expire = now + 1
			}
			q.unlink(node)
			q.insert(node)
		}
		node = next
	}
}

// NextTimeout returns the duration until the soonest-expiring active timer,
// clamped to zero if it has already passed, or (0, false) if no timer is
// active.
func (q *TimerQueue) NextTimeout(now Tick) (Tick, bool) {
	if q.head.next == q.tail {
		return 0, false
	}
	delta := q.head.next.expire - now
	if delta < 0 {
		delta = 0
	}
	return delta, true
}

// insert places node in expire-ascending order, walking back from the tail
// since new/repositioned timers typically expire near the current maximum.
func (q *TimerQueue) insert(node *timerNode) {
	cur := q.tail.prev
	for cur != q.head && cur.expire > node.expire {
		cur = cur.prev
	}
	node.prev = cur
	node.next = cur.next
	cur.next.prev = node
	cur.next = node
	q.byID[node.id] = node
}

func (q *TimerQueue) unlink(node *timerNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
	node.prev, node.next = nil, nil
}

// Len returns the number of active (non-pending) timers.
func (q *TimerQueue) Len() int { return len(q.byID) }

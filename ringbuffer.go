package reactorcore

import (
	"sync/atomic"
)

// Iovec is a zero-copy view into a RingBuffer's backing array, returned by
// Fetch/FetchAll/FetchNext. It is valid only until the next CommitRead.
type Iovec struct {
	Bytes []byte
}

// ringHeader holds the buffer's bookkeeping: ownership flag, capacity,
// mask, the write and read cursors, and the wasted-tail count. It has no
// buffer pointer or separate commit cursor, and it lives in Go memory even
// when the data bytes are caller-supplied (NewRingBufferOver); only the
// data region is placed in that memory.
type ringHeader struct {
	owns     bool
	capacity uint64
	mask     uint64
	write    atomic.Uint64
	read     atomic.Uint64
	wasted   atomic.Uint64
}

// RingBuffer is the single-producer/single-consumer byte stream of section
// 4.B: wrap+split write policy, zero-copy scatter/gather fetch, acquire/
// release ordering on its two cursors. Exactly one writer and one reader may
// use an instance; behaviour with more is undefined, by contract only (no
// runtime check), matching the source.
type RingBuffer struct {
	h   ringHeader
	buf []byte
}

// NewRingBuffer allocates an owned ring buffer. capacity must be a power of
// two.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("reactorcore: ring buffer capacity must be a positive power of two")
	}
	rb := &RingBuffer{buf: make([]byte, capacity)}
	rb.h.owns = true
	rb.h.capacity = uint64(capacity)
	rb.h.mask = uint64(capacity - 1)
	return rb
}

// NewRingBufferOver places a ring buffer over caller-supplied, zero-filled
// memory for shared-memory placement (owns=false). len(buf) must be a power
// of two.
func NewRingBufferOver(buf []byte) *RingBuffer {
	n := len(buf)
	if n <= 0 || n&(n-1) != 0 {
		panic("reactorcore: ring buffer backing memory must be a positive power of two length")
	}
	rb := &RingBuffer{buf: buf}
	rb.h.capacity = uint64(n)
	rb.h.mask = uint64(n - 1)
	return rb
}

// Capacity returns the buffer's fixed capacity.
func (r *RingBuffer) Capacity() int { return int(r.h.capacity) }

// Size returns the distance between the write and read cursors: the unread
// bytes plus any tail bytes skipped by a no-split write that the reader has
// not yet crossed (see realAvail for the unread bytes alone).
func (r *RingBuffer) Size() int {
	write := r.h.write.Load()
	read := r.h.read.Load()
	return int(write - read)
}

// HasFreeSpace reports whether a subsequent Write of (nonSplit, total) bytes
// would succeed, per the same tail/head accounting Write itself uses.
func (r *RingBuffer) HasFreeSpace(nonSplit, total int) bool {
	free := int(r.h.capacity) - r.Size()
	if free < total {
		return false
	}
	wp := int(r.h.write.Load() & r.h.mask)
	tailFree := int(r.h.capacity) - wp
	if nonSplit <= tailFree {
		return true
	}
	rp := int(r.h.read.Load() & r.h.mask)
	return rp >= nonSplit
}

// Write copies n=len(data) bytes into the buffer. split controls the policy
// applied when the requested bytes don't fit in the tail segment: true
// splits the write across the physical wrap, false skips the tail entirely
// (recording the skipped bytes as "wasted") provided the head segment has
// room. Returns false if neither policy can accommodate the write.
func (r *RingBuffer) Write(data []byte, split bool) bool {
	n := len(data)
	free := int(r.h.capacity) - r.Size()
	if n > free {
		return false
	}

	wp := int(r.h.write.Load() & r.h.mask)
	tailFree := int(r.h.capacity) - wp

	switch {
	case n <= tailFree:
		copy(r.buf[wp:], data)

	case split:
		copy(r.buf[wp:], data[:tailFree])
		copy(r.buf[0:], data[tailFree:])
		r.h.wasted.Store(0)

	default:
		rp := int(r.h.read.Load() & r.h.mask)
		if rp < n {
			return false
		}
		copy(r.buf[0:], data)
		r.h.wasted.Store(uint64(tailFree))
		// the write cursor tracks physical distance travelled, not just
		// bytes copied: it must also cross the tail segment it skipped, or
		// wp := write&mask stops matching where the bytes actually landed
		// (source: RingBuffer.cpp:133, write_pos+len+wasted_space).
		r.h.write.Add(uint64(n + tailFree))
		return true
	}

	r.h.write.Add(uint64(n)) // release: publishes the bytes just copied
	return true
}

// realAvail returns the number of genuine unread bytes, excluding any
// outstanding wasted tail gap folded into Size() by a no-split write.
func (r *RingBuffer) realAvail() int {
	avail := r.Size() - int(r.h.wasted.Load())
	if avail < 0 {
		avail = 0
	}
	return avail
}

// FetchAll returns iovecs covering every unread byte, honouring the wasted
// tail gap. Equivalent to FetchNext(realAvail()).
func (r *RingBuffer) FetchAll() []Iovec {
	return r.fetch(r.realAvail())
}

// Fetch is an alias of FetchNext, present for contract-name symmetry with
// the spec (fetch(iov[2], n)).
func (r *RingBuffer) Fetch(n int) []Iovec { return r.FetchNext(n) }

// FetchNext returns up to two iovecs covering up to n unread bytes.
func (r *RingBuffer) FetchNext(n int) []Iovec {
	avail := r.realAvail()
	if n > avail {
		n = avail
	}
	return r.fetch(n)
}

func (r *RingBuffer) fetch(n int) []Iovec {
	if n <= 0 {
		return nil
	}
	write := r.h.write.Load() // acquire: pairs with Write's release store
	_ = write
	rp := int(r.h.read.Load() & r.h.mask)
	wasted := int(r.h.wasted.Load())

	tailLen := int(r.h.capacity) - rp
	if wasted > 0 && tailLen <= wasted {
		// the entire remaining tail segment was skipped by a no-split write;
		// everything unread lives at the head.
		hp := 0
		end := min(n, int(r.h.capacity)-hp)
		return []Iovec{{Bytes: r.buf[hp : hp+end]}}
	}

	firstLen := min(n, tailLen-wasted)
	if firstLen < 0 {
		firstLen = 0
	}
	out := []Iovec{{Bytes: r.buf[rp : rp+firstLen]}}
	remaining := n - firstLen
	if remaining > 0 {
		out = append(out, Iovec{Bytes: r.buf[0:remaining]})
	}
	return out
}

// CommitRead advances the read cursor by the bytes most recently returned
// from Fetch/FetchAll/FetchNext minus uncommitted (the count the caller has
// not yet consumed). If that span reaches past the real bytes remaining in
// the tail segment, the cursor also crosses any outstanding wasted-tail gap,
// matching RingBuffer.cpp's fetch_i: commit_pos_ only gains wasted_space_ in
// the branches that actually reach the head.
func (r *RingBuffer) CommitRead(fetched, uncommitted int) {
	consumed := fetched - uncommitted
	wasted := int(r.h.wasted.Load())
	advance := consumed
	if wasted > 0 {
		rp := int(r.h.read.Load() & r.h.mask)
		tailReal := int(r.h.capacity) - rp - wasted
		if tailReal < 0 {
			tailReal = 0
		}
		if consumed > tailReal {
			advance += wasted
			r.h.wasted.Store(0)
		}
	}
	r.h.read.Add(uint64(advance)) // release: frees the tail segment for Write
}

// Read performs a blocking-free copy of up to len(buf) unread bytes,
// advancing the cursor atomically on success. Returns the number of bytes
// copied.
func (r *RingBuffer) Read(buf []byte) int {
	iovs := r.FetchNext(len(buf))
	n := 0
	for _, iov := range iovs {
		n += copy(buf[n:], iov.Bytes)
	}
	r.CommitRead(n, 0)
	return n
}

package reactorcore

import (
	"fmt"
	"math/bits"
	"sync"
	"unsafe"
)

// allocHeaderMagic marks a slice as produced by an Allocator and not yet freed.
const allocHeaderMagic = uint16(0xA3C5)

// oversizeClass is the distinguished class index for allocations that bypass
// the slab pools and go straight to the host allocator.
const oversizeClass = ^uint16(0)

// maxClass bounds the number of slab pools kept per Allocator. Class c covers
// up to 8*2^c bytes, so class 20 alone already covers 8MiB; requests above
// that are served as oversize.
const maxClass = 20

// allocHeader precedes every slice returned by Allocate. Go has no pointer
// arithmetic to walk "before" a slice, so the header lives at a fixed offset
// (headerSize bytes) at the front of the backing slot, and Allocate returns
// the slot re-sliced past it.
type allocHeader struct {
	magic uint16
	class uint16
	_     uint32
}

const headerSize = 8 // bytes; matches the 64-bit word described in the spec

// classOf computes the size class for a requested allocation size, per
// c = nbytes<=8 ? 0 : floor(log2(nbytes-1))-2.
func classOf(nbytes int) int {
	if nbytes <= 8 {
		return 0
	}
	return bits.Len(uint(nbytes-1)) - 1 - 2
}

// classCapacity returns the maximum payload size (8*2^c) servable by class c.
func classCapacity(c int) int {
	return 8 << uint(c)
}

// PoolConfig configures the slot count per freshly grown slab.
type PoolConfig struct {
	SlotsPerSlab int
	Logger       Logger
}

func (c *PoolConfig) withDefaults() PoolConfig {
	out := PoolConfig{SlotsPerSlab: 256, Logger: ProcessDefaultLogger()}
	if c != nil {
		if c.SlotsPerSlab > 0 {
			out.SlotsPerSlab = c.SlotsPerSlab
		}
		if c.Logger != nil {
			out.Logger = c.Logger
		}
	}
	return out
}

// pool is one size class's slab set and LIFO free-list.
type pool struct {
	class        int
	slotSize     int // headerSize + payload capacity for this class
	slotsPerSlab int
	slabs        [][]byte
	cursor       int // index of next ungranted slot in the current (last) slab
	free         [][]byte
}

func newPool(class, slotsPerSlab int) *pool {
	return &pool{
		class:        class,
		slotSize:     headerSize + classCapacity(class),
		slotsPerSlab: slotsPerSlab,
	}
}

func (p *pool) growSlab() {
	slab := make([]byte, p.slotSize*p.slotsPerSlab)
	p.slabs = append(p.slabs, slab)
	p.cursor = 0
}

func (p *pool) take() []byte {
	if n := len(p.free); n > 0 {
		slot := p.free[n-1]
		p.free = p.free[:n-1]
		return slot
	}
	if len(p.slabs) == 0 || p.cursor >= p.slotsPerSlab {
		p.growSlab()
	}
	slab := p.slabs[len(p.slabs)-1]
	slot := slab[p.cursor*p.slotSize : (p.cursor+1)*p.slotSize]
	p.cursor++
	return slot
}

func (p *pool) put(slot []byte) {
	p.free = append(p.free, slot)
}

// Allocator is the non-concurrent slab-bin allocator described in section
// 4.A: fixed-size pools keyed by size class, each a LIFO free-list over
// lazily-grown slabs, with an oversize fallback to the host allocator.
//
// A single Allocator instance must be used from one goroutine at a time;
// see [ConcurrentAllocator] for a mutex-guarded variant.
type Allocator struct {
	cfg     PoolConfig
	pools   [maxClass + 1]*pool
	tracker *MemTracker
}

// NewAllocator constructs an Allocator. A nil cfg uses defaults. Allocation
// call sites are recorded in a MemTracker, a zero-cost no-op unless built
// with the memtrack tag.
func NewAllocator(cfg *PoolConfig) *Allocator {
	return &Allocator{cfg: cfg.withDefaults(), tracker: NewMemTracker()}
}

// Tracker returns the allocator's diagnostic tracker.
func (a *Allocator) Tracker() *MemTracker { return a.tracker }

func (a *Allocator) poolFor(class int) *pool {
	if a.pools[class] == nil {
		a.pools[class] = newPool(class, a.cfg.SlotsPerSlab)
	}
	return a.pools[class]
}

// Allocate returns a byte slice of at least nbytes capacity, tagged so a
// later Deallocate can recover its class without the caller remembering it.
func (a *Allocator) Allocate(nbytes int) []byte {
	if nbytes < 0 {
		panic("reactorcore: negative allocation size")
	}
	class := classOf(nbytes)
	if class > maxClass {
		return a.allocateOversize(nbytes)
	}
	slot := a.poolFor(class).take()
	writeHeader(slot, allocHeaderMagic, uint16(class))
	a.tracker.Track(unsafe.Pointer(unsafe.SliceData(slot)), len(slot))
	return slot[headerSize : headerSize+nbytes : len(slot)]
}

func (a *Allocator) allocateOversize(nbytes int) []byte {
	slot := make([]byte, headerSize+nbytes)
	writeHeader(slot, allocHeaderMagic, oversizeClass)
	a.tracker.Track(unsafe.Pointer(unsafe.SliceData(slot)), len(slot))
	return slot[headerSize : headerSize+nbytes : len(slot)]
}

// Deallocate returns p, previously produced by Allocate, to its pool. A
// corrupted or foreign pointer is a fatal contract violation: the magic
// check fails and Deallocate panics, after logging at Error level.
func (a *Allocator) Deallocate(p []byte) {
	slot := headerSlotOf(p)
	magic, class := readHeader(slot)
	if magic != allocHeaderMagic {
		a.cfg.Logger.Log(LogEntry{Level: LevelError, Component: "allocator",
			Message: "deallocate: bad free, header magic mismatch"})
		panic(fmt.Sprintf("reactorcore: bad free, header magic mismatch (got %#x want %#x)", magic, allocHeaderMagic))
	}
	clearMagic(slot)
	a.tracker.Untrack(unsafe.Pointer(unsafe.SliceData(slot)))
	if class == oversizeClass {
		return // let the GC reclaim the oversize backing array
	}
	a.poolFor(int(class)).put(slot)
}

// ClassOf recovers the size class a live pointer was allocated with.
func (a *Allocator) ClassOf(p []byte) int {
	_, class := readHeader(headerSlotOf(p))
	return int(class)
}

// headerSlotOf recovers the full slot (header + payload capacity) that
// backs a payload slice returned by Allocate. Allocate always re-slices a
// slot exactly headerSize bytes in, so walking back headerSize bytes from
// the payload's data pointer reaches the header, the same trick the
// original C++ allocator performs via raw pointer arithmetic.
func headerSlotOf(p []byte) []byte {
	if len(p) == 0 && cap(p) == 0 {
		panic("reactorcore: deallocate of nil/empty slice")
	}
	base := unsafe.Add(unsafe.Pointer(unsafe.SliceData(p)), -headerSize)
	return unsafe.Slice((*byte)(base), headerSize+cap(p))
}

func writeHeader(slot []byte, magic, class uint16) {
	slot[0], slot[1] = byte(magic), byte(magic>>8)
	slot[2], slot[3] = byte(class), byte(class>>8)
	slot[4], slot[5], slot[6], slot[7] = 0, 0, 0, 0
}

func readHeader(slot []byte) (magic, class uint16) {
	magic = uint16(slot[0]) | uint16(slot[1])<<8
	class = uint16(slot[2]) | uint16(slot[3])<<8
	return
}

func clearMagic(slot []byte) {
	slot[0], slot[1] = 0, 0
}

// ConcurrentAllocator wraps an Allocator with a mutex over a short critical
// section, per the spec's "parallel variant ... wraps allocate/free under a
// short critical section" — the only mutex a pool may carry; a given pool
// must be used in only one mode.
type ConcurrentAllocator struct {
	mu    sync.Mutex
	inner *Allocator
}

func NewConcurrentAllocator(cfg *PoolConfig) *ConcurrentAllocator {
	return &ConcurrentAllocator{inner: NewAllocator(cfg)}
}

func (a *ConcurrentAllocator) Allocate(nbytes int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inner.Allocate(nbytes)
}

func (a *ConcurrentAllocator) Deallocate(p []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inner.Deallocate(p)
}

func (a *ConcurrentAllocator) ClassOf(p []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inner.ClassOf(p)
}

// Tracker returns the wrapped allocator's diagnostic tracker.
func (a *ConcurrentAllocator) Tracker() *MemTracker { return a.inner.tracker }

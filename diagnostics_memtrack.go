//go:build memtrack

package reactorcore

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"unsafe"
)

// MemTracker records per-call-site allocation counters, mirroring the
// source's MemTracker (guarded by MEM_POOL_DEBUG there, by the memtrack
// build tag here). Compiles to true zero-cost no-ops in diagnostics_noop.go
// when the tag is absent.
type MemTracker struct {
	mu      sync.Mutex
	live    map[unsafe.Pointer]string
	callers map[string]*callSiteStats
}

type callSiteStats struct {
	liveCount  int64
	totalCount int64
	totalBytes int64
}

// NewMemTracker constructs an enabled tracker.
func NewMemTracker() *MemTracker {
	return &MemTracker{
		live:    make(map[unsafe.Pointer]string),
		callers: make(map[string]*callSiteStats),
	}
}

// Track records ptr as live, attributed to its caller's file:line (recovered
// via runtime.Caller(1) by the caller of Track, or explicitly via
// TrackAt).
func (t *MemTracker) Track(ptr unsafe.Pointer, size int) {
	_, file, line, ok := runtime.Caller(1)
	site := "unknown"
	if ok {
		site = fmt.Sprintf("%s:%d", file, line)
	}
	t.TrackAt(ptr, site, size)
}

// TrackAt records ptr as live at an explicit call site, for wrappers that
// already recovered their own caller.
func (t *MemTracker) TrackAt(ptr unsafe.Pointer, site string, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[ptr] = site
	s := t.callers[site]
	if s == nil {
		s = &callSiteStats{}
		t.callers[site] = s
	}
	s.liveCount++
	s.totalCount++
	s.totalBytes += int64(size)
}

// Untrack marks ptr as freed.
func (t *MemTracker) Untrack(ptr unsafe.Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	site, ok := t.live[ptr]
	if !ok {
		return
	}
	delete(t.live, ptr)
	if s := t.callers[site]; s != nil {
		s.liveCount--
	}
}

// TotalCount returns the number of currently live tracked allocations.
func (t *MemTracker) TotalCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// ReportMostUsed writes a human-readable ranking of call sites by live
// count into buf, returning the number of bytes written.
func (t *MemTracker) ReportMostUsed(buf []byte) int {
	t.mu.Lock()
	type row struct {
		site string
		s    callSiteStats
	}
	rows := make([]row, 0, len(t.callers))
	for site, s := range t.callers {
		rows = append(rows, row{site: site, s: *s})
	}
	t.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].s.liveCount > rows[j].s.liveCount })

	n := 0
	for _, r := range rows {
		line := fmt.Sprintf("%s live=%d total=%d bytes=%d\n", r.site, r.s.liveCount, r.s.totalCount, r.s.totalBytes)
		if n+len(line) > len(buf) {
			break
		}
		n += copy(buf[n:], line)
	}
	return n
}

//go:build !memtrack

package reactorcore

import "unsafe"

// MemTracker is a zero-cost no-op when built without the memtrack tag: every
// method is empty or returns a zero value, and the compiler should inline
// them away entirely.
type MemTracker struct{}

func NewMemTracker() *MemTracker { return &MemTracker{} }

func (t *MemTracker) Track(unsafe.Pointer, int)           {}
func (t *MemTracker) TrackAt(unsafe.Pointer, string, int) {}
func (t *MemTracker) Untrack(unsafe.Pointer)              {}
func (t *MemTracker) TotalCount() int                     { return 0 }
func (t *MemTracker) ReportMostUsed(buf []byte) int       { return 0 }

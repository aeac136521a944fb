//go:build memtrack

package reactorcore

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemTrackerTracksAndUntracksLiveCount(t *testing.T) {
	tr := NewMemTracker()
	var a, b byte
	tr.Track(unsafe.Pointer(&a), 16)
	tr.Track(unsafe.Pointer(&b), 32)
	assert.Equal(t, 2, tr.TotalCount())

	tr.Untrack(unsafe.Pointer(&a))
	assert.Equal(t, 1, tr.TotalCount())
}

func TestMemTrackerUntrackUnknownIsNoOp(t *testing.T) {
	tr := NewMemTracker()
	var a byte
	tr.Untrack(unsafe.Pointer(&a)) // never tracked: must not panic or go negative
	assert.Equal(t, 0, tr.TotalCount())
}

func TestMemTrackerReportMostUsedRanksByLiveCount(t *testing.T) {
	tr := NewMemTracker()
	var ptrs [5]byte
	for i := range ptrs {
		tr.TrackAt(unsafe.Pointer(&ptrs[i]), "siteA", 8)
	}
	var other byte
	tr.TrackAt(unsafe.Pointer(&other), "siteB", 8)

	buf := make([]byte, 4096)
	n := tr.ReportMostUsed(buf)
	require.Greater(t, n, 0)
	report := string(buf[:n])

	idxA := strings.Index(report, "siteA")
	idxB := strings.Index(report, "siteB")
	require.NotEqual(t, -1, idxA)
	require.NotEqual(t, -1, idxB)
	assert.Less(t, idxA, idxB, "the call site with more live allocations should rank first")
}

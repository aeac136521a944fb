//go:build !memtrack

package reactorcore

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestMemTrackerNoOpIsInert(t *testing.T) {
	tr := NewMemTracker()
	var x byte
	tr.Track(unsafe.Pointer(&x), 8)
	tr.TrackAt(unsafe.Pointer(&x), "site", 8)
	assert.Equal(t, 0, tr.TotalCount())
	tr.Untrack(unsafe.Pointer(&x))
	buf := make([]byte, 64)
	assert.Equal(t, 0, tr.ReportMostUsed(buf))
}

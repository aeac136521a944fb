package reactorcore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularQueueWriteRead(t *testing.T) {
	q := NewCircularQueue[int](4)

	seq := q.AcquireWrite()
	q.CommitWrite(seq, 42)

	v, ok := q.Read()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = q.Read()
	assert.False(t, ok)
}

func TestCircularQueuePanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewCircularQueue[int](3) })
}

func TestCircularQueueOverrunOnWrap(t *testing.T) {
	q := NewCircularQueue[int](2)

	for i := 0; i < 2; i++ {
		seq := q.AcquireWrite()
		q.CommitWrite(seq, i)
	}
	assert.Equal(t, uint64(0), q.Overrun())

	// neither slot has been read; a third write wraps and overwrites slot 0,
	// losing sequence 0. The overrun isn't counted until a reader actually
	// reaches for the lost generation.
	seq := q.AcquireWrite()
	q.CommitWrite(seq, 99)
	assert.Equal(t, uint64(0), q.Overrun())

	// the reader claims sequence 0 but finds sequence 2 there; it counts the
	// overrun and returns no value. The lost generation is skipped, so the
	// next read returns sequence 1.
	_, ok := q.Read()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), q.Overrun())

	v, ok := q.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, uint64(1), q.Overrun())

	v, ok = q.Read()
	require.True(t, ok)
	assert.Equal(t, 99, v)

	_, ok = q.Read()
	assert.False(t, ok)
}

func TestCircularQueueSize(t *testing.T) {
	q := NewCircularQueue[string](8)
	assert.Equal(t, 0, q.Size())

	for i := 0; i < 3; i++ {
		seq := q.AcquireWrite()
		q.CommitWrite(seq, "x")
	}
	assert.Equal(t, 3, q.Size())

	_, _ = q.Read()
	assert.Equal(t, 2, q.Size())
}

func TestCircularQueueConcurrentWriters(t *testing.T) {
	q := NewCircularQueue[int](1024)
	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				seq := q.AcquireWrite()
				q.CommitWrite(seq, w*perWriter+i)
			}
		}(w)
	}
	wg.Wait()

	count := 0
	for {
		_, ok := q.Read()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, writers*perWriter, count)
	assert.Equal(t, uint64(0), q.Overrun())
}

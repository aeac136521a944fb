package reactorcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMessageHandler struct {
	processed []any
}

func (h *recordingMessageHandler) Process(now Tick, msg any) {
	h.processed = append(h.processed, msg)
}

func TestMessagePollerDrainsInFIFOOrder(t *testing.T) {
	q := NewLinkedQueue(false)
	handler := &recordingMessageHandler{}
	p := NewQueueMsgPoller(q, handler, 10)

	p.Notify("a")
	p.Notify("b")
	p.Notify("c")

	n := p.Poll(0)
	assert.Equal(t, 3, n)
	assert.Equal(t, []any{"a", "b", "c"}, handler.processed)
}

func TestMessagePollerRespectsMaxPollNum(t *testing.T) {
	q := NewLinkedQueue(false)
	handler := &recordingMessageHandler{}
	p := NewQueueMsgPoller(q, handler, 2)

	p.Notify(1)
	p.Notify(2)
	p.Notify(3)

	n := p.Poll(0)
	require.Equal(t, 2, n)

	n = p.Poll(0)
	assert.Equal(t, 1, n)
}

func TestPooledQueueMsgPollerProcessesAll(t *testing.T) {
	q := NewLinkedQueue(false)
	handler := &recordingMessageHandler{}
	p := NewPooledQueueMsgPoller(q, handler, 10)

	for i := 0; i < 50; i++ {
		p.Notify(i)
	}
	n := p.Poll(0)
	assert.Equal(t, 50, n)
	assert.Len(t, handler.processed, 50)
}

func TestMessagePollerEmptyQueue(t *testing.T) {
	q := NewLinkedQueue(false)
	handler := &recordingMessageHandler{}
	p := NewQueueMsgPoller(q, handler, 10)

	assert.Equal(t, 0, p.Poll(0))
}

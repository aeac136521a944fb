//go:build linux

package reactorcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type countingHandler struct {
	fd     int
	events chan EventSet
}

func (h *countingHandler) FD() int { return h.fd }

func (h *countingHandler) OnEvent(now Tick, events EventSet) EventSet {
	h.events <- events
	return 0
}

func TestEpollPollerBookAndPoll(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	require.NoError(t, unix.SetNonblock(fds[1], true))

	poller, err := newPlatformEventPoller(false)
	require.NoError(t, err)
	defer poller.Close()

	handler := &countingHandler{fd: fds[1], events: make(chan EventSet, 4)}
	require.NoError(t, poller.Book(handler, EventRead))

	_, err = unix.Write(fds[0], []byte("x"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- poller.Poll(0, Tick(time.Second)) }()

	select {
	case events := <-handler.events:
		assert.NotZero(t, events&EventRead)
	case <-time.After(2 * time.Second):
		t.Fatal("poll never observed readability")
	}
	require.NoError(t, <-done)
}

func TestEpollPollerDoubleBookFails(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	poller, err := newPlatformEventPoller(false)
	require.NoError(t, err)
	defer poller.Close()

	handler := &countingHandler{fd: fds[1], events: make(chan EventSet, 1)}
	require.NoError(t, poller.Book(handler, EventRead))
	assert.ErrorIs(t, poller.Book(handler, EventRead), ErrFDAlreadyRegistered)
}

func TestEpollPollerRemoveUnknownFails(t *testing.T) {
	poller, err := newPlatformEventPoller(false)
	require.NoError(t, err)
	defer poller.Close()

	handler := &countingHandler{fd: 9999, events: make(chan EventSet, 1)}
	assert.ErrorIs(t, poller.Remove(handler), ErrFDNotRegistered)
}

func TestEpollPollerClosedRejectsPoll(t *testing.T) {
	poller, err := newPlatformEventPoller(false)
	require.NoError(t, err)
	require.NoError(t, poller.Close())

	assert.ErrorIs(t, poller.Poll(0, Tick(time.Millisecond)), ErrPollerClosed)
}

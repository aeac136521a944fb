//go:build linux || darwin

package reactorcore

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// StreamListener receives data arriving on a Connection's receive buffer.
// OnStreamData is called once per readable event with the shared RingBuffer;
// bytes the listener leaves unconsumed (Fetch + CommitRead, or Read) stay
// in the buffer, and a later receive that no longer fits is dropped.
type StreamListener interface {
	OnStreamData(data *RingBuffer)
}

// Dialer opens an outbound connection, returning a non-blocking socket fd.
// Kept as a behavioural interface rather than a concrete net.Dial wrapper so
// DNS resolution and socket options stay out of this package, per the
// package's boundary policy.
type Dialer interface {
	Dial(address string) (fd int, err error)
}

// Connection adapts a single socket fd to the EventPoller/RingBuffer
// contract: it owns a send and a receive RingBuffer, and is itself the
// EventHandler the reactor's event poller drives. Grounded on the
// StreamConnection boundary adapter: Send either writes to the OS directly
// or buffers for a later writable event; Receive fills the recv buffer from
// the OS and publishes it to the listener.
type Connection struct {
	listener  StreamListener
	sendBuf   *RingBuffer
	recvBuf   *RingBuffer
	poller    EventPoller
	fdVal     int
	connected atomic.Bool
	scratch   []byte
}

// NewConnection constructs a Connection with no underlying fd yet; call
// Connect before Send/receive are meaningful.
func NewConnection(listener StreamListener, sendBufSize, recvBufSize int, poller EventPoller) *Connection {
	return &Connection{
		listener: listener,
		sendBuf:  NewRingBuffer(sendBufSize),
		recvBuf:  NewRingBuffer(recvBufSize),
		poller:   poller,
		fdVal:    -1,
		scratch:  make([]byte, recvBufSize),
	}
}

// NewConnectionFD constructs a Connection over an already-connected,
// non-blocking fd (e.g. one accepted by a listening socket), booking it
// with poller immediately.
func NewConnectionFD(fd int, listener StreamListener, sendBufSize, recvBufSize int, poller EventPoller) (*Connection, error) {
	c := NewConnection(listener, sendBufSize, recvBufSize, poller)
	c.fdVal = fd
	if err := poller.Book(c, EventRead|EventWrite); err != nil {
		return nil, err
	}
	c.connected.Store(true)
	return c, nil
}

// FD implements EventHandler.
func (c *Connection) FD() int { return c.fdVal }

// Connect dials address via dialer and books the resulting fd with the
// connection's event poller.
func (c *Connection) Connect(dialer Dialer, address string) error {
	if c.connected.Load() {
		return errors.New("reactorcore: connection already connected")
	}
	fd, err := dialer.Dial(address)
	if err != nil {
		return err
	}
	c.fdVal = fd
	if err := c.poller.Book(c, EventRead|EventWrite); err != nil {
		_ = closeFD(fd)
		return err
	}
	c.connected.Store(true)
	return nil
}

// Disconnect unregisters and closes the underlying fd. Safe to call more
// than once.
func (c *Connection) Disconnect() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}
	_ = c.poller.Remove(c)
	return closeFD(c.fdVal)
}

// Send transmits data: directly to the OS if the send buffer is currently
// empty, buffering any unsent remainder (and whatever didn't fit directly)
// for flush on the next writable event.
func (c *Connection) Send(data []byte) error {
	if c.sendBuf.Size() == 0 {
		return c.sendDirect(data)
	}
	c.flushSendBuffer()
	if c.sendBuf.Size() == 0 {
		return c.sendDirect(data)
	}
	return c.bufferSendData(data)
}

func (c *Connection) sendDirect(data []byte) error {
	n, err := writeFD(c.fdVal, data)
	if err != nil {
		if isWouldBlock(err) {
			return c.bufferSendData(data)
		}
		return err
	}
	if n < len(data) {
		return c.bufferSendData(data[n:])
	}
	return nil
}

func (c *Connection) bufferSendData(data []byte) error {
	if !c.sendBuf.Write(data, true) {
		return ErrCapacityExceeded
	}
	return nil
}

func (c *Connection) flushSendBuffer() {
	iovs := c.sendBuf.FetchAll()
	sent := 0
	for _, iov := range iovs {
		n, err := writeFD(c.fdVal, iov.Bytes)
		sent += n
		if err != nil && !isWouldBlock(err) {
			break
		}
		if n < len(iov.Bytes) {
			break
		}
	}
	c.sendBuf.CommitRead(sent, 0)
}

func (c *Connection) receive(now Tick) {
	for {
		n, err := readFD(c.fdVal, c.scratch)
		if n <= 0 {
			return
		}
		c.recvBuf.Write(c.scratch[:n], true)
		c.listener.OnStreamData(c.recvBuf)
		if err != nil {
			return
		}
	}
}

// OnEvent implements EventHandler: EventWrite flushes the send buffer (a
// no-op when it is empty); EventRead pulls from the OS into the receive
// buffer and notifies the listener. It always returns an empty doneSet, so
// both interests stay booked for the connection's lifetime.
func (c *Connection) OnEvent(now Tick, events EventSet) EventSet {
	var done EventSet
	if events&EventWrite != 0 {
		c.flushSendBuffer()
	}
	if events&EventRead != 0 {
		c.receive(now)
	}
	return done
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

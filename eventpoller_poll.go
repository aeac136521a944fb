//go:build !linux && !darwin && (unix || aix || solaris)

package reactorcore

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type pollFdSlot struct {
	handler EventHandler
	events  EventSet
}

// pollPoller is the portable EventPoller backend for unix platforms without
// a dedicated readiness-set syscall, built directly on poll(2).
type pollPoller struct {
	mu     sync.RWMutex
	slots  map[int]pollFdSlot
	closed atomic.Bool
	busy   bool
}

func newPollPoller(busy bool) (*pollPoller, error) {
	return &pollPoller{slots: make(map[int]pollFdSlot), busy: busy}, nil
}

func eventsToPoll(events EventSet) int16 {
	var e int16
	if events&EventRead != 0 {
		e |= unix.POLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.POLLOUT
	}
	return e
}

func pollToEvents(e int16) EventSet {
	var events EventSet
	if e&unix.POLLIN != 0 {
		events |= EventRead
	}
	if e&unix.POLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.POLLERR != 0 {
		events |= EventError
	}
	if e&(unix.POLLHUP|unix.POLLNVAL) != 0 {
		events |= EventHangup
	}
	return events
}

func (p *pollPoller) Book(handler EventHandler, interests EventSet) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	fd := handler.FD()
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.slots[fd]; ok {
		return ErrFDAlreadyRegistered
	}
	p.slots[fd] = pollFdSlot{handler: handler, events: interests}
	return nil
}

func (p *pollPoller) Remove(handler EventHandler) error {
	fd := handler.FD()
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.slots[fd]; !ok {
		return ErrFDNotRegistered
	}
	delete(p.slots, fd)
	return nil
}

func (p *pollPoller) Poll(now Tick, timeout Tick) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if timeout < Tick(time.Millisecond) {
		return busyWaitSubMilli(timeout, p.busy, func() (int, error) { return p.pollOnce(now, 0) })
	}
	_, err := p.pollOnce(now, int(timeout/Tick(time.Millisecond)))
	return err
}

func (p *pollPoller) pollOnce(now Tick, timeoutMs int) (int, error) {
	p.mu.RLock()
	fds := make([]unix.PollFd, 0, len(p.slots))
	handlers := make([]EventHandler, 0, len(p.slots))
	for fd, s := range p.slots {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: eventsToPoll(s.events)})
		handlers = append(handlers, s.handler)
	}
	p.mu.RUnlock()

	if len(fds) == 0 {
		if timeoutMs > 0 {
			time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
		}
		return 0, nil
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	fired := 0
	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		fired++
		events := pollToEvents(pfd.Revents)
		if done := handlers[i].OnEvent(now, events); done != 0 {
			_ = p.Remove(handlers[i])
		}
	}
	return fired, nil
}

func (p *pollPoller) Close() error {
	p.closed.Store(true)
	return nil
}

// newPlatformEventPoller constructs this platform's EventPoller backend.
func newPlatformEventPoller(busy bool) (EventPoller, error) {
	return newPollPoller(busy)
}

//go:build linux

package reactorcore

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// maxFDs bounds direct-indexed storage; fds beyond this fall back to a map.
const maxFDs = 65536

type fdSlot struct {
	handler EventHandler
	events  EventSet
	active  bool
}

// epollPoller is the linux EventPoller backend, grounded on the teacher's
// FastPoller: direct-indexed array for low fds, with dispatch skipped for a
// wait during which the registrations changed (version counter) and each
// slot read under a read lock.
type epollPoller struct {
	epfd     int
	version  atomic.Uint64
	eventBuf [256]unix.EpollEvent
	fds      [maxFDs]fdSlot
	overflow map[int]*fdSlot
	mu       sync.RWMutex
	closed   atomic.Bool
	busy     bool
}

func newEpollPoller(busy bool) (*epollPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd, overflow: make(map[int]*fdSlot), busy: busy}, nil
}

func (p *epollPoller) slot(fd int) *fdSlot {
	if fd >= 0 && fd < maxFDs {
		return &p.fds[fd]
	}
	s, ok := p.overflow[fd]
	if !ok {
		s = &fdSlot{}
		p.overflow[fd] = s
	}
	return s
}

func eventsToEpoll(events EventSet) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) EventSet {
	var events EventSet
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}

func (p *epollPoller) Book(handler EventHandler, interests EventSet) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	fd := handler.FD()

	p.mu.Lock()
	s := p.slot(fd)
	if s.active {
		p.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	s.handler, s.events, s.active = handler, interests, true
	p.version.Add(1)
	p.mu.Unlock()

	ev := &unix.EpollEvent{Events: eventsToEpoll(interests), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		p.mu.Lock()
		*s = fdSlot{}
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *epollPoller) Remove(handler EventHandler) error {
	fd := handler.FD()
	p.mu.Lock()
	s := p.slot(fd)
	if !s.active {
		p.mu.Unlock()
		return ErrFDNotRegistered
	}
	*s = fdSlot{}
	p.version.Add(1)
	p.mu.Unlock()
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Poll(now Tick, timeout Tick) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if timeout < Tick(time.Millisecond) {
		return busyWaitSubMilli(timeout, p.busy, func() (int, error) { return p.pollOnce(now, 0) })
	}
	_, err := p.pollOnce(now, int(timeout/Tick(time.Millisecond)))
	return err
}

func (p *epollPoller) pollOnce(now Tick, timeoutMs int) (int, error) {
	v := p.version.Load()
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if p.version.Load() != v {
		return 0, nil // registrations changed mid-syscall; caller's next Poll picks up the new state
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		p.mu.RLock()
		s := *p.slot(fd)
		p.mu.RUnlock()
		if !s.active || s.handler == nil {
			continue
		}
		events := epollToEvents(p.eventBuf[i].Events)
		if done := s.handler.OnEvent(now, events); done != 0 {
			_ = p.Remove(s.handler)
		}
	}
	return n, nil
}

func (p *epollPoller) Close() error {
	p.closed.Store(true)
	return unix.Close(p.epfd)
}

// newPlatformEventPoller constructs this platform's EventPoller backend.
func newPlatformEventPoller(busy bool) (EventPoller, error) {
	return newEpollPoller(busy)
}

//go:build darwin

package reactorcore

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type kqFdSlot struct {
	handler EventHandler
	events  EventSet
	active  bool
}

// kqueuePoller is the darwin EventPoller backend, grounded on the teacher's
// kqueue FastPoller: a dynamically-grown slice keyed directly by fd.
type kqueuePoller struct {
	kq       int
	eventBuf [256]unix.Kevent_t
	fds      []kqFdSlot
	mu       sync.RWMutex
	closed   atomic.Bool
	busy     bool
}

func newKqueuePoller(busy bool) (*kqueuePoller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{kq: kq, fds: make([]kqFdSlot, 1024), busy: busy}, nil
}

func (p *kqueuePoller) ensure(fd int) *kqFdSlot {
	if fd >= len(p.fds) {
		grown := make([]kqFdSlot, fd*2+1)
		copy(grown, p.fds)
		p.fds = grown
	}
	return &p.fds[fd]
}

func eventsToKevents(fd int, events EventSet, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if events&EventRead != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}

func keventToEvents(kev *unix.Kevent_t) EventSet {
	var events EventSet
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}

func (p *kqueuePoller) Book(handler EventHandler, interests EventSet) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	fd := handler.FD()

	p.mu.Lock()
	s := p.ensure(fd)
	if s.active {
		p.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	s.handler, s.events, s.active = handler, interests, true
	p.mu.Unlock()

	kevs := eventsToKevents(fd, interests, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevs) > 0 {
		if _, err := unix.Kevent(p.kq, kevs, nil, nil); err != nil {
			p.mu.Lock()
			*s = kqFdSlot{}
			p.mu.Unlock()
			return err
		}
	}
	return nil
}

func (p *kqueuePoller) Remove(handler EventHandler) error {
	fd := handler.FD()
	p.mu.Lock()
	if fd >= len(p.fds) || !p.fds[fd].active {
		p.mu.Unlock()
		return ErrFDNotRegistered
	}
	events := p.fds[fd].events
	p.fds[fd] = kqFdSlot{}
	p.mu.Unlock()

	kevs := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevs) > 0 {
		_, _ = unix.Kevent(p.kq, kevs, nil, nil)
	}
	return nil
}

func (p *kqueuePoller) Poll(now Tick, timeout Tick) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if timeout < Tick(time.Millisecond) {
		return busyWaitSubMilli(timeout, p.busy, func() (int, error) { return p.pollOnce(now, &unix.Timespec{}) })
	}
	ts := unix.NsecToTimespec(int64(timeout))
	_, err := p.pollOnce(now, &ts)
	return err
}

func (p *kqueuePoller) pollOnce(now Tick, ts *unix.Timespec) (int, error) {
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		p.mu.RLock()
		var s kqFdSlot
		if fd < len(p.fds) {
			s = p.fds[fd]
		}
		p.mu.RUnlock()
		if !s.active || s.handler == nil {
			continue
		}
		events := keventToEvents(&p.eventBuf[i])
		if done := s.handler.OnEvent(now, events); done != 0 {
			_ = p.Remove(s.handler)
		}
	}
	return n, nil
}

func (p *kqueuePoller) Close() error {
	p.closed.Store(true)
	return unix.Close(p.kq)
}

// newPlatformEventPoller constructs this platform's EventPoller backend.
func newPlatformEventPoller(busy bool) (EventPoller, error) {
	return newKqueuePoller(busy)
}

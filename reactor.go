package reactorcore

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// ReactorOwner receives the reactor's stop notification. OnStop runs on the
// reactor's own goroutine, after the tick loop has observed stopFlag but
// before Run returns.
type ReactorOwner interface {
	OnStop()
}

// Reactor drives one Clock, TimerQueue, set of MessagePollers, and
// EventPoller on a single goroutine, per section 4.H: every tick samples
// the clock, fires due timers, drains message pollers in registration
// order, then polls for I/O with a timeout computed from the nearest
// timer deadline.
type Reactor struct {
	cfg         *Config
	owner       ReactorOwner
	state       *reactorState
	clock       *Clock
	timerQueue  *TimerQueue
	msgPollers  []*MessagePoller
	eventPoller EventPoller

	stopFlag atomic.Bool
	runnerID atomic.Uint64
	stopOnce sync.Once
	loopDone chan struct{}

	wakeFd, wakeWriteFd int
	wakeHandler         *wakeHandler
}

// NewReactor constructs a Reactor. The caller attaches components (timer
// queue, message pollers, event poller) before calling Run; per the
// package's thread-affinity rule, attach before Run, not concurrently
// with it.
func NewReactor(owner ReactorOwner, opts ...Option) *Reactor {
	cfg := resolveConfig(opts)
	return &Reactor{
		cfg:      cfg,
		owner:    owner,
		state:    newReactorState(),
		clock:    cfg.clock,
		loopDone: make(chan struct{}),
		wakeFd:   -1,
	}
}

// SetTimerQueue attaches the timer queue this reactor ticks every
// iteration. Optional; a nil timer queue simply contributes no timeout
// extension and fires nothing.
func (r *Reactor) SetTimerQueue(tq *TimerQueue) { r.timerQueue = tq }

// TimerQueue returns the attached timer queue, or nil.
func (r *Reactor) TimerQueue() *TimerQueue { return r.timerQueue }

// AddMessagePoller registers a message poller, polled in registration
// order every tick, before the event poller.
func (r *Reactor) AddMessagePoller(p *MessagePoller) { r.msgPollers = append(r.msgPollers, p) }

// NewMessagePoller builds and registers a MessagePoller backed by queue,
// honoring Config.ThreadMsgPollerUsesPool for its allocation strategy.
func (r *Reactor) NewMessagePoller(queue *LinkedQueue, handler MessageHandler, maxPollNum int) *MessagePoller {
	var p *MessagePoller
	if r.cfg.ThreadMsgPollerUsesPool {
		p = NewPooledQueueMsgPoller(queue, handler, maxPollNum)
	} else {
		p = NewQueueMsgPoller(queue, handler, maxPollNum)
	}
	r.AddMessagePoller(p)
	return p
}

// SetEventPoller attaches an already-constructed EventPoller. Most callers
// should use UsePlatformEventPoller instead.
func (r *Reactor) SetEventPoller(p EventPoller) { r.eventPoller = p }

// EventPoller returns the attached event poller, or nil.
func (r *Reactor) EventPoller() EventPoller { return r.eventPoller }

// UsePlatformEventPoller attaches this platform's EventPoller backend
// (epoll on Linux, kqueue on Darwin, poll(2) elsewhere).
func (r *Reactor) UsePlatformEventPoller() error {
	p, err := newPlatformEventPoller(r.cfg.BusyPoller)
	if err != nil {
		return err
	}
	r.eventPoller = p
	return nil
}

// RegisterFD books handler with the attached event poller.
func (r *Reactor) RegisterFD(handler EventHandler, interests EventSet) error {
	return r.eventPoller.Book(handler, interests)
}

// UnregisterFD removes handler from the attached event poller.
func (r *Reactor) UnregisterFD(handler EventHandler) error {
	return r.eventPoller.Remove(handler)
}

// State returns the reactor's current lifecycle state.
func (r *Reactor) State() ReactorState { return r.state.Load() }

// Running reports whether the tick loop is currently executing.
func (r *Reactor) Running() bool { return r.state.IsRunning() }

// Stopped reports whether the tick loop has fully terminated.
func (r *Reactor) Stopped() bool { return r.state.IsTerminal() }

// Run drives the tick loop on the calling goroutine until Stop is called
// or ctx is cancelled. It is an error to call Run from within the
// reactor's own tick loop, or to call Run more than once concurrently.
func (r *Reactor) Run(ctx context.Context) error {
	if r.isReactorThread() {
		return ErrReentrantRun
	}
	if !r.state.TryTransition(StateAwake, StateRunning) {
		if r.state.Load() == StateTerminated {
			return ErrReactorStopped
		}
		return ErrReactorAlreadyRunning
	}
	defer close(r.loopDone)

	if err := r.initWake(); err != nil {
		r.state.Store(StateTerminated)
		return err
	}
	defer r.closeWake()

	r.runnerID.Store(goroutineID())
	defer r.runnerID.Store(0)

	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		if r.stopFlag.Load() {
			r.owner.OnStop()
			r.state.Store(StateTerminated)
			return ctx.Err()
		}
		r.tick()
	}
}

// Stop requests termination of the tick loop. Safe to call from any
// goroutine, any number of times; only the first call has effect. If the
// loop is currently blocked in EventPoller.Poll, Stop interrupts it via
// the owner-wake file descriptor rather than waiting out MaxPollTimeout.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() {
		r.stopFlag.Store(true)
		r.wake()
	})
}

// tick runs one iteration of the section 4.H loop body: sample the
// clock, fire due timers, drain message pollers in order, then poll for
// I/O with a timeout extended toward the next timer deadline.
func (r *Reactor) tick() {
	now := r.clock.Now()

	if r.timerQueue != nil {
		r.timerQueue.MergePending(now.Raw)
		r.timerQueue.Tick(now.Raw)
	}

	for _, p := range r.msgPollers {
		p.Poll(now.SinceEpoch)
	}

	if r.eventPoller == nil {
		return
	}

	timeout := r.cfg.pollIntervalTicks()
	if !r.cfg.BusyPoller {
		needsExtension := r.cfg.PowerSaving || len(r.msgPollers) == 0
		if needsExtension && r.timerQueue != nil {
			if next, ok := r.timerQueue.NextTimeout(now.Raw); ok && next > 0 {
				if next > timeout {
					timeout = next
				}
				if ceiling := r.cfg.maxPollTimeoutTicks(); timeout > ceiling {
					timeout = ceiling
				}
			}
		}
	}

	if err := r.eventPoller.Poll(now.SinceEpoch, timeout); err != nil {
		r.cfg.logger.Log(LogEntry{Level: LevelError, Component: "reactor", Message: "event poller failed", Err: err})
	}
}

// wakeHandler books the owner-wake fd with the event poller purely to
// interrupt a blocked Poll; OnEvent just drains the fd and asks to keep
// listening.
type wakeHandler struct {
	fd int
}

func (h *wakeHandler) FD() int { return h.fd }

func (h *wakeHandler) OnEvent(now Tick, events EventSet) EventSet {
	drainWakeFd(h.fd)
	return 0
}

func (r *Reactor) initWake() error {
	fd, writeFd, err := createWakeFd()
	if err != nil {
		return err
	}
	r.wakeFd, r.wakeWriteFd = fd, writeFd
	if r.eventPoller != nil {
		r.wakeHandler = &wakeHandler{fd: fd}
		if err := r.eventPoller.Book(r.wakeHandler, EventRead); err != nil {
			closeWakeFd(fd, writeFd)
			r.wakeFd, r.wakeWriteFd = -1, -1
			return err
		}
	}
	return nil
}

func (r *Reactor) closeWake() {
	if r.wakeFd < 0 {
		return
	}
	if r.wakeHandler != nil && r.eventPoller != nil {
		_ = r.eventPoller.Remove(r.wakeHandler)
	}
	closeWakeFd(r.wakeFd, r.wakeWriteFd)
	r.wakeFd, r.wakeWriteFd = -1, -1
}

func (r *Reactor) wake() {
	if r.wakeWriteFd >= 0 {
		var buf [8]byte
		buf[0] = 1
		_, _ = writeFD(r.wakeWriteFd, buf[:])
	}
}

func (r *Reactor) isReactorThread() bool {
	id := r.runnerID.Load()
	return id != 0 && id == goroutineID()
}

func (c *Config) pollIntervalTicks() Tick   { return Tick(c.PollInterval) }
func (c *Config) maxPollTimeoutTicks() Tick { return Tick(c.MaxPollTimeout) }

// goroutineID recovers the calling goroutine's runtime ID by parsing its
// stack trace header, the same trick runtime debugging tools use when no
// public API exposes it.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

//go:build linux || darwin

package msgloop

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-msgloop/internal/threadlocal"
	"github.com/joeycumines/logiface"
)

// loopTestHooks provides injection points for deterministic race testing.
type loopTestHooks struct {
	WakeDrained func() // Called in onWake, between draining and clearing pending
}

// Loop is a single-goroutine reactor: it drains an intrusive message queue,
// waits for descriptor readiness, dispatches the ready events, and repeats
// until told to quit.
//
// Messages and events run serially on the goroutine that called Run. The
// MessageQueue has no locking, so Scheduler.PostMessage and
// Scheduler.PostMessageAfter must only be used from that goroutine (or while
// the loop is not running). Quit, Wake, Post, Metrics and the descriptor
// registry methods are safe from any goroutine.
type Loop struct {
	// Prevent copying
	_ [0]func()

	logger       *logiface.Logger[logiface.Event]
	panicLimiter *catrate.Limiter
	metrics      *loopMetrics
	local        *Local
	registry     *registry
	testHooks    *loopTestHooks

	// ready is the per-wait notification buffer, len == max events
	ready []readiness

	ingress ingress
	queue   MessageQueue
	poller  fastPoller

	// Wake-up mechanism
	wake        wakeFD
	wakeMu      sync.RWMutex
	wakePending atomic.Uint32

	running       atomic.Bool
	quitRequested atomic.Bool
	quitsObserved atomic.Uint64

	loopGoroutineID atomic.Uint64
	ownerID         uint64
	id              uint64
	timeout         int
	state           fastState
}

var loopIDCounter atomic.Uint64

// New creates a loop that is not bound to any goroutine. Most callers want
// Create, which also registers the loop as the calling goroutine's loop.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	wake, err := newWakeFD()
	if err != nil {
		return nil, fmt.Errorf("msgloop: create wake fd: %w", err)
	}

	l := &Loop{
		id:           loopIDCounter.Add(1),
		logger:       cfg.logger,
		panicLimiter: cfg.panicLimiter,
		ready:        make([]readiness, cfg.maxEvents),
		timeout:      timeoutMillis(cfg.pollTimeout),
		wake:         wake,
	}
	if cfg.metricsEnabled {
		l.metrics = new(loopMetrics)
	}

	if err := l.poller.init(cfg.maxEvents); err != nil {
		_ = wake.close()
		return nil, fmt.Errorf("msgloop: create poller: %w", err)
	}
	l.registry = newRegistry(&l.poller)

	if err := l.registry.add(wake.r, EventFunc(l.onWake), EventRead, false, true); err != nil {
		_ = l.poller.close()
		_ = wake.close()
		return nil, fmt.Errorf("msgloop: register wake fd: %w", err)
	}

	return l, nil
}

// ID returns the loop's process-unique id.
func (l *Loop) ID() uint64 { return l.id }

// State returns the current loop state.
func (l *Loop) State() LoopState { return l.state.Load() }

// Running reports the running flag. It is set when Run starts and cleared
// on the loop goroutine once a quit is observed.
func (l *Loop) Running() bool { return l.running.Load() }

// Pending returns the number of messages in the queue. Loop goroutine only.
func (l *Loop) Pending() int { return l.queue.Len() }

// Scheduler returns a scheduler bound to this loop.
func (l *Loop) Scheduler() *Scheduler { return &Scheduler{loop: l} }

// Run runs the loop on the calling goroutine until Quit is observed, ctx is
// cancelled, or waiting fails. It returns nil after Quit and ctx.Err() on
// cancellation. A loop may be run again after Run returns.
//
// Each iteration drains every queued message, then (unless a quit was
// observed) waits for readiness and dispatches the ready events. Messages
// posted by an event run in the next iteration's drain.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopGoroutine() {
		return ErrReentrantRun
	}
	if l.ownerID != 0 && l.ownerID != threadlocal.GoroutineID() {
		return ErrNotOwner
	}
	for {
		s := l.state.Load()
		if s == StateClosed {
			return ErrLoopClosed
		}
		if s.active() {
			return ErrLoopAlreadyRunning
		}
		if l.state.TryTransition(s, StateRunning) {
			break
		}
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGoroutineID.Store(threadlocal.GoroutineID())
	l.running.Store(true)
	defer func() {
		l.running.Store(false)
		l.loopGoroutineID.Store(0)
		l.state.Store(StateStopped)
	}()

	// wake the loop on cancellation
	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				_ = l.Wake()
			case <-stop:
			}
		}()
	}

	l.logger.Debug().
		Str("category", "lifecycle").
		Uint64("loop_id", l.id).
		Log("loop running")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.tick(ctx); err != nil {
			return err
		}
		if !l.running.Load() {
			l.logger.Debug().
				Str("category", "lifecycle").
				Uint64("loop_id", l.id).
				Int("pending", l.queue.Len()).
				Log("loop stopped")
			return nil
		}
	}
}

// tick is a single iteration of the loop.
func (l *Loop) tick(ctx context.Context) error {
	if m := l.metrics; m != nil {
		m.iterations.Add(1)
	}

	l.drain()

	if l.quitRequested.Swap(false) {
		l.observeQuit()
	}
	if !l.running.Load() || ctx.Err() != nil {
		return nil
	}

	n, err := l.wait()
	if err != nil {
		l.logger.Err().
			Str("category", "poll").
			Uint64("loop_id", l.id).
			Err(err).
			Log("wait failed, stopping loop")
		return fmt.Errorf("msgloop: wait: %w", err)
	}

	l.dispatch(n)

	if l.quitRequested.Swap(false) {
		l.observeQuit()
	}
	return nil
}

// drain moves posted messages into the queue, then executes until empty,
// including messages queued by the messages themselves.
func (l *Loop) drain() {
	l.ingress.drainInto(&l.queue)
	for {
		msg := l.queue.PopFront()
		if msg == nil {
			return
		}
		l.execute(msg)
	}
}

// wait blocks on the poller. The state moves to StateSleeping first, so a
// Post racing with the pending checks below is guaranteed to wake it.
func (l *Loop) wait() (int, error) {
	timeout := l.timeout
	if !l.state.TryTransition(StateRunning, StateSleeping) {
		timeout = 0
	}
	if timeout != 0 && (!l.queue.Empty() || l.ingress.len() > 0 || l.quitRequested.Load()) {
		timeout = 0
	}

	n, err := l.poller.wait(l.ready, timeout)

	l.state.TryTransition(StateSleeping, StateRunning)
	return n, err
}

// dispatch runs the events for the first n notifications. Once the running
// flag is cleared the rest of the batch is skipped, except for the loop's
// own registrations, which still consume their wake ticks.
func (l *Loop) dispatch(n int) {
	for i := 0; i < n; i++ {
		r := l.ready[i]
		w := l.registry.lookup(r.fd, r.gen)
		if w == nil {
			if m := l.metrics; m != nil {
				m.staleEvents.Add(1)
			}
			continue
		}
		if !w.internal && !l.running.Load() {
			continue
		}
		if m := l.metrics; m != nil {
			m.eventsDispatched.Add(1)
		}
		l.runEvent(w, r)
		if w.oneShot {
			l.registry.release(r.fd, w)
		}
	}
}

// execute runs a message with panic recovery.
func (l *Loop) execute(msg Message) {
	if m := l.metrics; m != nil {
		m.messagesExecuted.Add(1)
	}
	defer func() {
		if r := recover(); r != nil {
			if m := l.metrics; m != nil {
				m.panics.Add(1)
			}
			l.logPanic("message", -1, r)
		}
	}()
	msg.Execute()
}

// runEvent runs an event with panic recovery.
func (l *Loop) runEvent(w *watch, r readiness) {
	defer func() {
		if p := recover(); p != nil {
			if m := l.metrics; m != nil {
				m.panics.Add(1)
			}
			l.logPanic("event", r.fd, p)
		}
	}()
	w.event.Run(r.events)
}

func (l *Loop) observeQuit() {
	l.quitsObserved.Add(1)
	l.running.Store(false)
}

// Quit asks the loop to stop. It never clears the running flag itself: it
// registers a one-shot quit event and signals it, and the flag is cleared on
// the loop goroutine when that event is dispatched, after which Run returns.
// Safe to call from any goroutine, and before Run (the next Run then stops
// after its first drain).
func (l *Loop) Quit() {
	q, err := newQuitEvent(l)
	if err == nil {
		err = l.registry.add(q.wake.r, q, quitInterest, true, true)
		if err == nil {
			if err = q.wake.signal(); err == nil {
				return
			}
		} else {
			_ = q.Close()
		}
	}
	// no quit event, fall back to a flag checked by the loop itself
	l.logger.Debug().
		Str("category", "quit").
		Uint64("loop_id", l.id).
		Err(err).
		Log("quit event unavailable, using wake")
	l.quitRequested.Store(true)
	_ = l.Wake()
}

// Wake interrupts a blocked wait. Signals are deduplicated until the loop
// consumes the pending one. Safe to call from any goroutine.
func (l *Loop) Wake() error {
	l.wakeMu.RLock()
	defer l.wakeMu.RUnlock()
	if l.state.Load() == StateClosed {
		return ErrLoopClosed
	}
	if !l.wakePending.CompareAndSwap(0, 1) {
		return nil
	}
	if err := l.wake.signal(); err != nil {
		l.wakePending.Store(0)
		return err
	}
	if m := l.metrics; m != nil {
		m.wakeups.Add(1)
	}
	return nil
}

// onWake handles readiness of the loop's wake fd. The fd is drained before
// the pending flag is cleared: a Wake landing in between is deduplicated
// against a loop that is already awake, and a Wake after the clear writes a
// tick that survives to the next wait.
func (l *Loop) onWake(IOEvents) {
	l.wake.drain()
	if l.testHooks != nil && l.testHooks.WakeDrained != nil {
		l.testHooks.WakeDrained()
	}
	l.wakePending.Store(0)
}

// Post enqueues msg from any goroutine. The message is moved to the tail of
// the queue at the start of the next drain, waking the loop if it is
// blocked. It fails if msg is already queued or the loop is closed.
func (l *Loop) Post(msg Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	l.ingress.mu.Lock()
	if l.state.Load() == StateClosed {
		l.ingress.mu.Unlock()
		return ErrLoopClosed
	}
	n := msg.messageLink()
	if n.queue != nil {
		l.ingress.mu.Unlock()
		return ErrMessageLinked
	}
	n.queue = postedQueue
	l.ingress.push(msg)
	l.ingress.mu.Unlock()

	if m := l.metrics; m != nil {
		m.messagesPosted.Add(1)
	}
	if l.state.Load() == StateSleeping {
		_ = l.Wake()
	}
	return nil
}

// Watch registers fd for readiness with the given interest (DefaultInterest
// if zero). ev.Run is called on the loop goroutine with the observed bits.
func (l *Loop) Watch(fd int, ev Event, interest IOEvents) error {
	if err := l.registry.add(fd, ev, interest, false, false); err != nil {
		return &WatchError{Op: "watch", FD: fd, Err: err}
	}
	return nil
}

// Modify changes the interest (and, if ev is not nil, the event) of a
// watched fd.
func (l *Loop) Modify(fd int, ev Event, interest IOEvents) error {
	if err := l.registry.modify(fd, ev, interest); err != nil {
		return &WatchError{Op: "modify", FD: fd, Err: err}
	}
	return nil
}

// Unwatch removes the registration for fd. Unwatch must precede closing fd.
func (l *Loop) Unwatch(fd int) error {
	if _, err := l.registry.remove(fd); err != nil {
		return &WatchError{Op: "unwatch", FD: fd, Err: err}
	}
	return nil
}

// Watched reports whether fd is registered.
func (l *Loop) Watched(fd int) bool {
	return l.registry.watched(fd)
}

// WatchFileDescriptor is Watch reporting success as a bool. Failures (bad fd,
// duplicate registration, closed loop) are logged at debug level.
func (l *Loop) WatchFileDescriptor(fd int, ev Event, interest IOEvents) bool {
	if err := l.Watch(fd, ev, interest); err != nil {
		l.logWatchFailure(err)
		return false
	}
	return true
}

// ModifyWatchedFileDescriptor is Modify reporting success as a bool.
func (l *Loop) ModifyWatchedFileDescriptor(fd int, ev Event, interest IOEvents) bool {
	if err := l.Modify(fd, ev, interest); err != nil {
		l.logWatchFailure(err)
		return false
	}
	return true
}

// UnwatchFileDescriptor is Unwatch reporting success as a bool. It returns
// false for an fd that was never watched.
func (l *Loop) UnwatchFileDescriptor(fd int) bool {
	if err := l.Unwatch(fd); err != nil {
		l.logWatchFailure(err)
		return false
	}
	return true
}

// Close releases the poller and wake fds, drops the goroutine binding made by
// Create, and abandons (without executing) any messages still queued,
// logging how many. It fails with ErrLoopAlreadyRunning while Run is in
// progress; quit first. When called by the owning goroutine it also undoes
// the OS thread lock taken by Create.
func (l *Loop) Close() error {
	for {
		s := l.state.Load()
		if s == StateClosed {
			return ErrLoopClosed
		}
		if s.active() {
			return ErrLoopAlreadyRunning
		}
		if l.state.TryTransition(s, StateClosed) {
			break
		}
	}

	var abandoned int
	for l.queue.PopFront() != nil {
		abandoned++
	}
	abandoned += l.ingress.discard()

	dropped, err := l.registry.close()

	l.wakeMu.Lock()
	if e := l.wake.close(); err == nil {
		err = e
	}
	l.wakeMu.Unlock()

	if l.local != nil {
		l.local.slot.CompareAndDelete(l.ownerID, l)
		if l.ownerID == threadlocal.GoroutineID() {
			runtime.UnlockOSThread()
		}
	}

	if abandoned > 0 || dropped > 0 {
		l.logger.Warning().
			Str("category", "lifecycle").
			Uint64("loop_id", l.id).
			Int("abandoned_messages", abandoned).
			Int("dropped_watches", dropped).
			Log("loop closed with outstanding work")
	}

	return err
}

// isLoopGoroutine checks if we're on the goroutine currently running the loop.
func (l *Loop) isLoopGoroutine() bool {
	id := l.loopGoroutineID.Load()
	if id == 0 {
		return false
	}
	return threadlocal.GoroutineID() == id
}

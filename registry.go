//go:build linux || darwin

package msgloop

import (
	"io"
	"sync"
)

// watch is one descriptor registration.
type watch struct {
	event    Event
	interest IOEvents
	gen      uint32
	oneShot  bool // removed (and closed, if an io.Closer) after one dispatch
	internal bool // owned by the loop, not counted as a user registration
}

// registry maps descriptors to their registrations and keeps the poller in
// step with the map. mu is held across the kernel call so the two never
// disagree; it is a mutex (not loop-goroutine-only state) because Quit
// registers from foreign goroutines.
type registry struct {
	watches map[int]*watch
	poller  *fastPoller
	mu      sync.RWMutex
	nextGen uint32
	closed  bool
}

func newRegistry(p *fastPoller) *registry {
	return &registry{
		watches: make(map[int]*watch),
		poller:  p,
	}
}

func (r *registry) generation() uint32 {
	r.nextGen++
	if r.nextGen == 0 {
		r.nextGen = 1
	}
	return r.nextGen
}

func (r *registry) add(fd int, ev Event, interest IOEvents, oneShot, internal bool) error {
	if fd < 0 || fd >= MaxFDLimit {
		return ErrFDOutOfRange
	}
	if ev == nil {
		return ErrNilEvent
	}
	if interest == 0 {
		interest = DefaultInterest
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrPollerClosed
	}
	if _, ok := r.watches[fd]; ok {
		return ErrFDAlreadyRegistered
	}
	w := &watch{
		event:    ev,
		interest: interest,
		gen:      r.generation(),
		oneShot:  oneShot,
		internal: internal,
	}
	if err := r.poller.add(fd, interest, w.gen); err != nil {
		return err
	}
	r.watches[fd] = w
	return nil
}

// modify replaces the event and interest of an existing user registration.
// A nil event keeps the current one.
func (r *registry) modify(fd int, ev Event, interest IOEvents) error {
	if fd < 0 || fd >= MaxFDLimit {
		return ErrFDOutOfRange
	}
	if interest == 0 {
		interest = DefaultInterest
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrPollerClosed
	}
	w, ok := r.watches[fd]
	if !ok || w.internal {
		return ErrFDNotRegistered
	}
	if err := r.poller.modify(fd, w.interest, interest, w.gen); err != nil {
		return err
	}
	w.interest = interest
	if ev != nil {
		w.event = ev
	}
	return nil
}

// remove deletes the user registration for fd. The map entry is dropped even
// if the kernel call fails, since the usual cause is an fd closed underneath.
func (r *registry) remove(fd int) (*watch, error) {
	if fd < 0 || fd >= MaxFDLimit {
		return nil, ErrFDOutOfRange
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrPollerClosed
	}
	w, ok := r.watches[fd]
	if !ok || w.internal {
		return nil, ErrFDNotRegistered
	}
	delete(r.watches, fd)
	return w, r.poller.remove(fd, w.interest)
}

// release removes fd only while it still maps to w, used to retire one-shot
// registrations after dispatch.
func (r *registry) release(fd int, w *watch) {
	r.mu.Lock()
	if cur, ok := r.watches[fd]; ok && cur == w && !r.closed {
		delete(r.watches, fd)
		_ = r.poller.remove(fd, w.interest)
	}
	r.mu.Unlock()
	if c, ok := w.event.(io.Closer); ok {
		_ = c.Close()
	}
}

// lookup resolves a notification to its live registration. A generation
// mismatch means the notification belongs to an earlier registration of a
// reused fd, and nil is returned.
func (r *registry) lookup(fd int, gen uint32) *watch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.watches[fd]
	if !ok || (gen != 0 && w.gen != gen) {
		return nil
	}
	return w
}

// watched reports whether fd has a user registration.
func (r *registry) watched(fd int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.watches[fd]
	return ok && !w.internal
}

// count returns the number of user registrations.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int
	for _, w := range r.watches {
		if !w.internal {
			n++
		}
	}
	return n
}

// close closes the poller and drops every registration, closing one-shot
// events the loop owns. It returns the number of user registrations dropped.
func (r *registry) close() (dropped int, err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrPollerClosed
	}
	r.closed = true
	watches := r.watches
	r.watches = nil
	err = r.poller.close()
	r.mu.Unlock()

	for _, w := range watches {
		if !w.internal {
			dropped++
		}
		if w.oneShot {
			if c, ok := w.event.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}
	return dropped, err
}

//go:build linux || darwin

package msgloop

import (
	"fmt"
	"runtime"

	"github.com/joeycumines/go-msgloop/internal/threadlocal"
)

// Local binds at most one Loop to each goroutine. A package-level Local
// backs Create, Current and CurrentScheduler; separate instances are mainly
// useful for isolating tests.
type Local struct {
	slot *threadlocal.Slot[*Loop]
}

var defaultLocal = NewLocal()

// NewLocal returns an empty binding table.
func NewLocal() *Local {
	return &Local{slot: threadlocal.NewSlot[*Loop](nil)}
}

// Create builds a loop with factory (New with no options, if nil) and binds
// it to the calling goroutine, which it also locks to its OS thread until
// the loop is closed. It panics, wrapping ErrLoopExists, if the goroutine
// already has a loop; and wrapping the cause if the factory fails. Only the
// goroutine that created a loop may Run it.
func (x *Local) Create(factory func() (*Loop, error)) *Loop {
	if existing, ok := x.slot.Get(); ok && existing != nil {
		panic(fmt.Errorf("%w: goroutine %d, loop %d", ErrLoopExists, x.slot.ID(), existing.id))
	}
	if factory == nil {
		factory = func() (*Loop, error) { return New() }
	}
	l, err := factory()
	if err != nil {
		panic(fmt.Errorf("msgloop: create loop: %w", err))
	}
	if l == nil {
		panic(fmt.Errorf("msgloop: create loop: %w", ErrNoLoop))
	}
	if l.local != nil {
		panic(ErrLoopBound)
	}
	runtime.LockOSThread()
	l.local = x
	l.ownerID = x.slot.ID()
	x.slot.Set(l)
	return l
}

// Current returns the calling goroutine's loop, or nil.
func (x *Local) Current() *Loop {
	l, _ := x.slot.Get()
	return l
}

// Scheduler returns a scheduler for the calling goroutine's loop, panicking
// with ErrNoLoop if there is none.
func (x *Local) Scheduler() *Scheduler {
	l := x.Current()
	if l == nil {
		panic(ErrNoLoop)
	}
	return l.Scheduler()
}

// Len returns the number of bound loops.
func (x *Local) Len() int { return x.slot.Len() }

// Reset forgets every binding without closing the loops.
func (x *Local) Reset() { x.slot.Reset() }

// Create creates a loop for the calling goroutine using the package-level
// binding table. See Local.Create.
func Create(opts ...LoopOption) *Loop {
	return defaultLocal.Create(func() (*Loop, error) { return New(opts...) })
}

// Current returns the calling goroutine's loop, or nil if Create has not
// been called on it.
func Current() *Loop { return defaultLocal.Current() }

// CurrentScheduler returns a scheduler for the calling goroutine's loop. It
// panics with ErrNoLoop if the goroutine has none.
func CurrentScheduler() *Scheduler { return defaultLocal.Scheduler() }

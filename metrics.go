//go:build linux || darwin

package msgloop

import (
	"sync/atomic"
)

// Metrics is a snapshot of a loop's runtime counters. All counters are
// cumulative since the loop was created and zero unless the loop was built
// with WithMetrics(true).
type Metrics struct {
	// Iterations counts drain-wait-dispatch cycles.
	Iterations uint64
	// MessagesExecuted counts messages popped and executed.
	MessagesExecuted uint64
	// MessagesPosted counts messages accepted by Loop.Post.
	MessagesPosted uint64
	// EventsDispatched counts Event.Run invocations, including the loop's
	// own wake and quit events.
	EventsDispatched uint64
	// StaleEvents counts notifications dropped because their registration
	// had been removed or replaced.
	StaleEvents uint64
	// Wakeups counts wake primitive signals that were written.
	Wakeups uint64
	// Panics counts recovered panics.
	Panics uint64
	// Watches is the current number of user descriptor registrations.
	Watches int
	// Enabled reports whether counters are being collected.
	Enabled bool
}

// loopMetrics holds the live counters. Written from the loop goroutine (and
// Post/Wake callers), read from anywhere.
type loopMetrics struct {
	iterations       atomic.Uint64
	messagesExecuted atomic.Uint64
	messagesPosted   atomic.Uint64
	eventsDispatched atomic.Uint64
	staleEvents      atomic.Uint64
	wakeups          atomic.Uint64
	panics           atomic.Uint64
}

// Metrics returns a snapshot of the loop's counters. Safe to call from any
// goroutine.
func (l *Loop) Metrics() Metrics {
	m := l.metrics
	if m == nil {
		return Metrics{}
	}
	return Metrics{
		Iterations:       m.iterations.Load(),
		MessagesExecuted: m.messagesExecuted.Load(),
		MessagesPosted:   m.messagesPosted.Load(),
		EventsDispatched: m.eventsDispatched.Load(),
		StaleEvents:      m.staleEvents.Load(),
		Wakeups:          m.wakeups.Load(),
		Panics:           m.panics.Load(),
		Watches:          l.registry.count(),
		Enabled:          true,
	}
}

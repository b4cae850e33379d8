//go:build linux || darwin

package msgloop

import (
	"strings"
)

// IOEvents is a bitmask of readiness conditions, mirroring the native
// multiplexer bits so callers need not depend on OS headers.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
	// EventPriority indicates urgent (out-of-band) data is available.
	EventPriority
	// EventEdgeTriggered requests edge-triggered delivery. It is only
	// meaningful in an interest mask and is never reported as observed.
	EventEdgeTriggered
	// EventPeerShutdown indicates the peer shut down its writing half.
	EventPeerShutdown
)

// DefaultInterest is used when a watch is registered with a zero interest
// mask.
const DefaultInterest = EventRead | EventWrite | EventError

var ioEventNames = [...]struct {
	name string
	bit  IOEvents
}{
	{"read", EventRead},
	{"write", EventWrite},
	{"error", EventError},
	{"hangup", EventHangup},
	{"priority", EventPriority},
	{"edge", EventEdgeTriggered},
	{"rdhup", EventPeerShutdown},
}

// String renders the set bits joined by "|", e.g. "read|write".
func (e IOEvents) String() string {
	if e == 0 {
		return "none"
	}
	var b strings.Builder
	for _, n := range ioEventNames {
		if e&n.bit == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(n.name)
		e &^= n.bit
	}
	if e != 0 {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString("unknown")
	}
	return b.String()
}

// Event is a readiness callback registered against one file descriptor.
//
// Run is invoked on the loop goroutine with the readiness bits observed for
// the descriptor, which may differ from the registered interest. An Event
// must be unwatched before whatever it references is released; the loop only
// holds it for the lifetime of the watch.
type Event interface {
	Run(events IOEvents)
}

// EventFunc adapts a function to the Event interface.
type EventFunc func(events IOEvents)

// Run calls f(events).
func (f EventFunc) Run(events IOEvents) { f(events) }

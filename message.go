//go:build linux || darwin

package msgloop

// Message is a deferred unit of work, executed on the loop goroutine.
//
// Implementations embed [MessageLink], which carries the intrusive queue
// links, so enqueueing never allocates:
//
//	type redraw struct {
//	    msgloop.MessageLink
//	    surface *Surface
//	}
//
//	func (x *redraw) Execute() { x.surface.Paint() }
//
// A message sits in at most one queue at a time. The loop never retains a
// message after executing it, so the caller decides whether to reuse it.
type Message interface {
	Execute()
	messageLink() *MessageLink
}

// MessageLink is the node handle embedded in every [Message]. The zero value
// is an unlinked node.
type MessageLink struct {
	prev  Message
	next  Message
	queue *MessageQueue
}

// postedQueue marks a message handed to Loop.Post that has not yet been
// moved into the loop's queue.
var postedQueue = new(MessageQueue)

func (x *MessageLink) messageLink() *MessageLink { return x }

// Linked reports whether the message is currently queued (including having
// been accepted by Loop.Post but not yet executed).
func (x *MessageLink) Linked() bool {
	return x != nil && x.queue != nil
}

func (x *MessageLink) reset() {
	x.prev = nil
	x.next = nil
	x.queue = nil
}

// MessageFunc is a Message that calls a function.
type MessageFunc struct {
	MessageLink
	fn func()
}

// NewMessage returns a message that calls fn when executed.
func NewMessage(fn func()) *MessageFunc {
	return &MessageFunc{fn: fn}
}

// Execute calls the wrapped function, if any.
func (x *MessageFunc) Execute() {
	if x.fn != nil {
		x.fn()
	}
}

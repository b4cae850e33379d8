//go:build linux || darwin

package msgloop

// Scheduler posts messages to a loop's queue. It is a thin handle; any
// number may refer to the same loop.
//
// The queue is not synchronized: PostMessage and PostMessageAfter are for
// the loop goroutine (typically from inside a message or event), or for
// setup before Run. Other goroutines use Loop.Post.
type Scheduler struct {
	loop *Loop
}

// NewScheduler returns a scheduler for loop. It panics with ErrNoLoop if
// loop is nil.
func NewScheduler(loop *Loop) *Scheduler {
	if loop == nil {
		panic(ErrNoLoop)
	}
	return &Scheduler{loop: loop}
}

// Loop returns the target loop.
func (s *Scheduler) Loop() *Loop { return s.loop }

// PostMessage appends msg to the tail of the queue. It panics if msg is nil
// or already queued.
func (s *Scheduler) PostMessage(msg Message) {
	s.loop.queue.PushBack(msg)
}

// PostMessageAfter inserts msg immediately after mark. If mark is not
// currently queued on this loop nothing happens and msg is left unqueued.
func (s *Scheduler) PostMessageAfter(mark, msg Message) {
	s.loop.queue.InsertAfter(mark, msg)
}

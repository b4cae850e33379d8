// Package msgloop provides a single-goroutine cooperative event loop: an
// intrusive message queue drained to empty on every iteration, plus
// readiness-based descriptor multiplexing.
//
// # Architecture
//
// A [Loop] repeats three steps until it is told to quit:
//  1. Drain: every queued [Message] is popped and executed in FIFO order,
//     including messages queued by the messages themselves.
//  2. Wait: the loop blocks on the poller for descriptor readiness.
//  3. Dispatch: each ready registration's [Event] runs with the observed
//     [IOEvents]. Messages queued here run in the next drain.
//
// Messages embed [MessageLink], so queueing never allocates and a message
// can sit in at most one queue at a time.
//
// # Per-goroutine loops
//
// [Create] binds a new loop to the calling goroutine and locks that
// goroutine to its OS thread, mirroring one loop per thread. [Current] and
// [CurrentScheduler] find it again. A second Create on the same goroutine
// panics with [ErrLoopExists].
//
// # Platform Support
//
// I/O polling is implemented using platform-native mechanisms:
//   - Linux: epoll, with an eventfd wake primitive
//   - macOS: kqueue, with a self-pipe wake primitive
//
// Windows is not supported.
//
// # Thread Safety
//
//   - [Loop.Quit], [Loop.Wake] and [Loop.Post] are safe from any goroutine
//   - Descriptor registration ([Loop.Watch] and friends) is thread-safe
//   - [Scheduler.PostMessage] and [Scheduler.PostMessageAfter] touch the
//     unsynchronized queue, and belong on the loop goroutine
//
// # Usage
//
//	loop := msgloop.Create()
//	defer loop.Close()
//
//	sched := msgloop.CurrentScheduler()
//	sched.PostMessage(msgloop.NewMessage(func() {
//	    fmt.Println("hello")
//	    loop.Quit()
//	}))
//
//	if err := loop.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package msgloop

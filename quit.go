//go:build linux || darwin

package msgloop

// quitEvent is the one-shot event behind Loop.Quit. It owns a wake primitive
// of its own, so requesting a quit from any goroutine only touches the
// registry and the primitive; the running flag is cleared on the loop
// goroutine when the event is dispatched. The loop releases and closes it
// after that single dispatch.
type quitEvent struct {
	loop *Loop
	wake wakeFD
	seq  uint64 // quits observed when this one was requested
}

func newQuitEvent(l *Loop) (*quitEvent, error) {
	w, err := newWakeFD()
	if err != nil {
		return nil, err
	}
	return &quitEvent{
		loop: l,
		wake: w,
		seq:  l.quitsObserved.Load(),
	}, nil
}

// Run drains the pending tick and stops the loop, unless a quit was already
// observed after this one was requested (e.g. Quit called twice before the
// loop noticed), in which case it is spent without effect.
func (x *quitEvent) Run(events IOEvents) {
	if events&(EventRead|EventWrite) != 0 {
		x.wake.drain()
	}
	if x.seq < x.loop.quitsObserved.Load() {
		return
	}
	x.loop.observeQuit()
	x.loop.logger.Debug().
		Str("category", "quit").
		Uint64("loop_id", x.loop.id).
		Log("quit observed")
}

// Close releases the wake primitive.
func (x *quitEvent) Close() error {
	return x.wake.close()
}

//go:build darwin

package msgloop

import (
	"golang.org/x/sys/unix"
)

// fastPoller manages readiness registration using kqueue.
//
// kqueue reports each filter as its own kevent, so a descriptor that is both
// readable and writable produces two notifications. Priority and peer
// shutdown interest have no kqueue filter and are ignored; EV_EOF is
// reported as EventHangup. Generations are not echoed (gen is always 0).
type fastPoller struct {
	events []unix.Kevent_t
	kq     int
}

// init creates the kqueue instance and its event buffer.
func (p *fastPoller) init(maxEvents int) error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	p.events = make([]unix.Kevent_t, maxEvents)
	return nil
}

// close closes the kqueue instance.
func (p *fastPoller) close() error {
	if p.kq <= 0 {
		return nil
	}
	err := unix.Close(p.kq)
	p.kq = -1
	return err
}

func (p *fastPoller) add(fd int, interest IOEvents, _ uint32) error {
	kevents := eventsToKevents(fd, interest, unix.EV_ADD|unix.EV_ENABLE|clearFlag(interest))
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, kevents, nil, nil)
	return err
}

func (p *fastPoller) modify(fd int, old, interest IOEvents, _ uint32) error {
	if removed := old &^ interest; removed&(EventRead|EventWrite) != 0 {
		// filters may already be gone (fd closed), nothing to roll back
		_, _ = unix.Kevent(p.kq, eventsToKevents(fd, removed, unix.EV_DELETE), nil, nil)
	}
	kevents := eventsToKevents(fd, interest, unix.EV_ADD|unix.EV_ENABLE|clearFlag(interest))
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, kevents, nil, nil)
	return err
}

func (p *fastPoller) remove(fd int, old IOEvents) error {
	kevents := eventsToKevents(fd, old, unix.EV_DELETE)
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, kevents, nil, nil)
	return err
}

// wait blocks for up to timeoutMs (negative blocks indefinitely) and copies
// at most len(out) notifications into out. EINTR is reported as zero events.
func (p *fastPoller) wait(out []readiness, timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}
	buf := p.events
	if len(out) < len(buf) {
		buf = buf[:len(out)]
	}
	n, err := unix.Kevent(p.kq, nil, buf, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		out[i] = readiness{
			fd:     int(buf[i].Ident),
			events: keventToEvents(&buf[i]),
		}
	}
	return n, nil
}

func clearFlag(interest IOEvents) uint16 {
	if interest&EventEdgeTriggered != 0 {
		return unix.EV_CLEAR
	}
	return 0
}

// eventsToKevents converts IOEvents to kevent changes.
func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return kevents
}

// keventToEvents converts a kevent to IOEvents.
func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}

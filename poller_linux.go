//go:build linux

package msgloop

import (
	"golang.org/x/sys/unix"
)

// fastPoller manages readiness registration using epoll.
//
// The registration generation rides in the epoll data word next to the fd,
// so a notification for an fd that was unwatched and re-watched between
// wait and dispatch can be told apart from the live registration.
type fastPoller struct {
	events []unix.EpollEvent
	epfd   int
}

// init creates the epoll instance and its event buffer.
func (p *fastPoller) init(maxEvents int) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = epfd
	p.events = make([]unix.EpollEvent, maxEvents)
	return nil
}

// close closes the epoll instance.
func (p *fastPoller) close() error {
	if p.epfd <= 0 {
		return nil
	}
	err := unix.Close(p.epfd)
	p.epfd = -1
	return err
}

func (p *fastPoller) add(fd int, interest IOEvents, gen uint32) error {
	ev := unix.EpollEvent{
		Events: eventsToEpoll(interest),
		Fd:     int32(fd),
		Pad:    int32(gen),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *fastPoller) modify(fd int, _, interest IOEvents, gen uint32) error {
	ev := unix.EpollEvent{
		Events: eventsToEpoll(interest),
		Fd:     int32(fd),
		Pad:    int32(gen),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *fastPoller) remove(fd int, _ IOEvents) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks for up to timeoutMs (negative blocks indefinitely) and copies
// at most len(out) notifications into out. EINTR is reported as zero events.
func (p *fastPoller) wait(out []readiness, timeoutMs int) (int, error) {
	buf := p.events
	if len(out) < len(buf) {
		buf = buf[:len(out)]
	}
	n, err := unix.EpollWait(p.epfd, buf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		out[i] = readiness{
			fd:     int(buf[i].Fd),
			gen:    uint32(buf[i].Pad),
			events: epollToEvents(buf[i].Events),
		}
	}
	return n, nil
}

// eventsToEpoll converts IOEvents to epoll event flags.
func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	if events&EventError != 0 {
		e |= unix.EPOLLERR
	}
	if events&EventHangup != 0 {
		e |= unix.EPOLLHUP
	}
	if events&EventPriority != 0 {
		e |= unix.EPOLLPRI
	}
	if events&EventPeerShutdown != 0 {
		e |= unix.EPOLLRDHUP
	}
	if events&EventEdgeTriggered != 0 {
		e |= unix.EPOLLET
	}
	return e
}

// epollToEvents converts epoll event flags to IOEvents.
func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	if e&unix.EPOLLPRI != 0 {
		events |= EventPriority
	}
	if e&unix.EPOLLRDHUP != 0 {
		events |= EventPeerShutdown
	}
	return events
}

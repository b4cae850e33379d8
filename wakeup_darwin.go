//go:build darwin

package msgloop

import (
	"golang.org/x/sys/unix"
)

// quitInterest is the interest the quit event registers for. The read end of
// a pipe has no meaningful write filter on kqueue.
const quitInterest = EventRead

// newWakeFD creates a non-blocking, close-on-exec self-pipe.
func newWakeFD() (wakeFD, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return wakeFD{r: -1, w: -1}, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return wakeFD{r: -1, w: -1}, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return wakeFD{r: -1, w: -1}, err
	}
	return wakeFD{r: fds[0], w: fds[1]}, nil
}

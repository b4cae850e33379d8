//go:build linux

package msgloop

import (
	"golang.org/x/sys/unix"
)

// quitInterest is the interest the quit event registers for. An eventfd is
// writable whenever its counter is below the maximum, so write readiness
// alone is enough to deliver it.
const quitInterest = EventRead | EventWrite | EventError | EventHangup

// newWakeFD creates an eventfd, used as both read and write end.
func newWakeFD() (wakeFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return wakeFD{r: -1, w: -1}, err
	}
	return wakeFD{r: fd, w: fd}, nil
}

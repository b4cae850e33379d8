//go:build linux || darwin

package msgloop

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// wakeFD is a signalable descriptor pair: an eventfd (r == w) on Linux, a
// self-pipe on Darwin. signal is safe from any goroutine.
type wakeFD struct {
	r int
	w int
}

// signal adds one tick. EAGAIN means the primitive is already saturated,
// which still guarantees readiness, so it is not an error.
func (x wakeFD) signal() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(x.w, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drain reads until the primitive would block.
func (x wakeFD) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(x.r, buf[:])
		if err != nil || n <= 0 {
			return
		}
		if x.r == x.w {
			// eventfd reads reset the whole counter
			return
		}
	}
}

// close closes both ends.
func (x wakeFD) close() error {
	var err error
	if x.r >= 0 {
		err = unix.Close(x.r)
	}
	if x.w >= 0 && x.w != x.r {
		if e := unix.Close(x.w); err == nil {
			err = e
		}
	}
	return err
}

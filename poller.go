//go:build linux || darwin

package msgloop

import (
	"errors"
)

// Readiness multiplexing is implemented per platform:
//   - poller_linux.go: epoll
//   - poller_darwin.go: kqueue
//
// A poller only moves bits between the kernel and the loop. Which Event a
// notification belongs to is resolved through the loop's registry using the
// fd and the registration generation echoed back by the kernel.

// MaxFDLimit is the largest file descriptor accepted for registration.
const MaxFDLimit = 100000000

// Standard errors.
var (
	ErrFDOutOfRange        = errors.New("msgloop: fd out of range (max 100000000)")
	ErrFDAlreadyRegistered = errors.New("msgloop: fd already registered")
	ErrFDNotRegistered     = errors.New("msgloop: fd not registered")
	ErrPollerClosed        = errors.New("msgloop: poller closed")
)

// readiness is one notification returned by a poller wait.
type readiness struct {
	fd     int
	gen    uint32 // 0 when the platform cannot echo a generation
	events IOEvents
}

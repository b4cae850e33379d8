//go:build linux || darwin

package msgloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopExists is the panic value (wrapped) when Create is called on a
	// goroutine that already owns a loop.
	ErrLoopExists = errors.New("msgloop: loop already exists for this goroutine")

	// ErrLoopBound is the panic value (wrapped) when a factory passed to
	// Create returns a loop already owned by some goroutine.
	ErrLoopBound = errors.New("msgloop: loop is already bound to a goroutine")

	// ErrNoLoop is the panic value when a Scheduler cannot find a loop.
	ErrNoLoop = errors.New("msgloop: no loop for this goroutine")

	// ErrLoopAlreadyRunning is returned when Run (or Close) is called on a
	// loop that is running.
	ErrLoopAlreadyRunning = errors.New("msgloop: loop is already running")

	// ErrLoopClosed is returned when operations are attempted on a closed loop.
	ErrLoopClosed = errors.New("msgloop: loop has been closed")

	// ErrReentrantRun is returned when Run is called from within the loop itself.
	ErrReentrantRun = errors.New("msgloop: cannot call Run from within the loop")

	// ErrNotOwner is returned when Run is called on a loop created by Create
	// from a goroutine other than the one that created it.
	ErrNotOwner = errors.New("msgloop: loop is owned by another goroutine")

	// ErrMessageLinked indicates a message that is already queued.
	ErrMessageLinked = errors.New("msgloop: message is already queued")

	// ErrNilMessage indicates a nil message.
	ErrNilMessage = errors.New("msgloop: nil message")

	// ErrNilEvent indicates a nil event passed to a watch operation.
	ErrNilEvent = errors.New("msgloop: nil event")
)

// PanicError wraps a value recovered from a panicking Message or Event.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("msgloop: recovered panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WatchError describes a failed descriptor registry operation.
type WatchError struct {
	Err error
	Op  string // "watch", "modify" or "unwatch"
	FD  int
}

// Error implements the error interface.
func (e *WatchError) Error() string {
	return fmt.Sprintf("msgloop: %s fd %d: %v", e.Op, e.FD, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WatchError) Unwrap() error {
	return e.Err
}

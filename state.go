//go:build linux || darwin

package msgloop

import (
	"sync/atomic"
)

// LoopState represents the current state of a loop.
//
// State machine:
//
//	StateAwake    → StateRunning   [Run]
//	StateRunning  → StateSleeping  [blocking wait, CAS]
//	StateSleeping → StateRunning   [wait returned, CAS]
//	StateRunning  → StateStopped   [Run returned]
//	StateStopped  → StateRunning   [Run again]
//	StateAwake    → StateClosed    [Close]
//	StateStopped  → StateClosed    [Close]
//	StateClosed   → (terminal)
type LoopState uint32

const (
	// StateAwake indicates the loop has been created but never run.
	StateAwake LoopState = iota
	// StateRunning indicates the loop is draining messages or dispatching events.
	StateRunning
	// StateSleeping indicates the loop is blocked waiting for readiness.
	StateSleeping
	// StateStopped indicates Run has returned; the loop may be run again.
	StateStopped
	// StateClosed indicates the loop released its resources.
	StateClosed
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateStopped:
		return "Stopped"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// active reports whether Run is in progress.
func (s LoopState) active() bool {
	return s == StateRunning || s == StateSleeping
}

// fastState is a lock-free state cell.
type fastState struct {
	v atomic.Uint32
}

// Load returns the current state atomically.
func (s *fastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store sets the state unconditionally. Only use for irreversible
// transitions.
func (s *fastState) Store(state LoopState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to move from one state to another via CAS.
func (s *fastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

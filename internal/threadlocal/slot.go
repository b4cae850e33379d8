// Package threadlocal implements a storage slot holding one value per
// goroutine.
//
// Go has no thread-local storage. A goroutine pinned with
// [runtime.LockOSThread] is the closest analogue of an OS thread, so a Slot is
// keyed by goroutine id. Entries are not cleared when a goroutine exits; the
// owner of a value must [Slot.Delete] it (or use [Slot.CompareAndDelete] from
// elsewhere) before the goroutine returns.
package threadlocal

import (
	"runtime"
	"sync"
)

// Slot maps goroutine ids to values. The zero value is not usable, see
// [NewSlot].
type Slot[T comparable] struct {
	values map[uint64]T
	id     func() uint64
	mu     sync.RWMutex
}

// NewSlot returns an empty slot. If id is nil, [GoroutineID] identifies the
// calling goroutine; tests may supply their own.
func NewSlot[T comparable](id func() uint64) *Slot[T] {
	if id == nil {
		id = GoroutineID
	}
	return &Slot[T]{
		values: make(map[uint64]T),
		id:     id,
	}
}

// ID returns the key used for the calling goroutine.
func (s *Slot[T]) ID() uint64 {
	return s.id()
}

// Get returns the calling goroutine's value.
func (s *Slot[T]) Get() (T, bool) {
	return s.Lookup(s.id())
}

// Lookup returns the value stored for the given goroutine id.
func (s *Slot[T]) Lookup(id uint64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[id]
	return v, ok
}

// Set stores v for the calling goroutine, replacing any existing value.
func (s *Slot[T]) Set(v T) {
	id := s.id()
	s.mu.Lock()
	s.values[id] = v
	s.mu.Unlock()
}

// SetIfAbsent stores v for the calling goroutine unless a value is already
// present, in which case the existing value is returned with ok false.
func (s *Slot[T]) SetIfAbsent(v T) (existing T, ok bool) {
	id := s.id()
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, found := s.values[id]; found {
		return existing, false
	}
	s.values[id] = v
	return v, true
}

// Delete removes the calling goroutine's value.
func (s *Slot[T]) Delete() {
	id := s.id()
	s.mu.Lock()
	delete(s.values, id)
	s.mu.Unlock()
}

// CompareAndDelete removes the entry for id only if it currently holds v.
func (s *Slot[T]) CompareAndDelete(id uint64, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.values[id]; !ok || cur != v {
		return false
	}
	delete(s.values, id)
	return true
}

// Len returns the number of goroutines holding a value.
func (s *Slot[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Reset removes every entry.
func (s *Slot[T]) Reset() {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
}

// GoroutineID returns the current goroutine's id, parsed from the header
// line of [runtime.Stack] ("goroutine 123 [running]:").
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// Package sync provides thread-safe synchronization primitives.
package sync

import (
	"sync"
)

// Slot is a single-value holder guarded by a generation counter.
//
// Reset empties the slot and advances the generation. Store only succeeds
// when the caller's generation is still current, so a value computed from
// state read before a Reset can never be published after it.
//
// Slot is safe for concurrent use. The zero value is an empty slot at
// generation 0.
//
// Example usage:
//
//	var slot Slot[Result]
//
//	v, gen, ok := slot.Load()
//	if !ok {
//	    v = compute()
//	    slot.Store(gen, v) // no-op if Reset ran meanwhile
//	}
type Slot[T any] struct {
	mu    sync.RWMutex
	gen   uint64
	value T
	full  bool
}

// Load returns the held value and the current generation. ok is false when
// the slot is empty.
func (s *Slot[T]) Load() (value T, gen uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.gen, s.full
}

// Store publishes v if gen is still the current generation. It returns
// whether the value was stored.
func (s *Slot[T]) Store(gen uint64, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	s.value = v
	s.full = true
	return true
}

// Reset empties the slot and returns the new generation.
//
// After Reset returns, Load reports empty until a Store under the new
// generation succeeds.
func (s *Slot[T]) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.value = zero
	s.full = false
	s.gen++
	return s.gen
}

// Generation returns the current generation.
func (s *Slot[T]) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Populated returns true if the slot holds a value.
func (s *Slot[T]) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.full
}

// Package store holds the in-memory key space: 256 slots addressed directly
// by the key byte, each one an insertion-ordered list of uint32 values behind
// its own lock.
package store

import "sync"

// NumKeys is the size of the key space. Keys are single bytes, so slots are
// indexed directly without hashing.
const NumKeys = 256

type slot struct {
	mu     sync.RWMutex
	values []uint32
}

// Store maps 8-bit keys to ordered collections of uint32 values. Duplicates
// are kept. Every key has its own lock, so operations on distinct keys never
// contend. A collection is never empty: a key either holds at least one value
// or is absent.
type Store struct {
	slots [NumKeys]slot
}

func NewStore() *Store {
	return &Store{}
}

// Set appends value to the collection under key, creating the collection when
// the key is absent.
func (s *Store) Set(key uint8, value uint32) {
	sl := &s.slots[key]
	sl.mu.Lock()
	sl.values = append(sl.values, value)
	sl.mu.Unlock()
}

// Get returns a copy of the collection under key in insertion order, or nil
// when the key is absent. The copy is independent of later writes.
func (s *Store) Get(key uint8) []uint32 {
	sl := &s.slots[key]
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if len(sl.values) == 0 {
		return nil
	}
	out := make([]uint32, len(sl.values))
	copy(out, sl.values)
	return out
}

// Delete removes the collection under key and reports whether the key was
// present.
func (s *Store) Delete(key uint8) bool {
	sl := &s.slots[key]
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if len(sl.values) == 0 {
		return false
	}
	sl.values = nil
	return true
}

// Len returns the number of values stored under key.
func (s *Store) Len(key uint8) int {
	sl := &s.slots[key]
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return len(sl.values)
}

// Keys returns the keys that currently hold values, in ascending order. Each
// slot is inspected under its own lock in turn, so the result is not a
// point-in-time snapshot of the whole key space.
func (s *Store) Keys() []uint8 {
	keys := make([]uint8, 0, NumKeys)
	for i := range s.slots {
		sl := &s.slots[i]
		sl.mu.RLock()
		n := len(sl.values)
		sl.mu.RUnlock()
		if n > 0 {
			keys = append(keys, uint8(i))
		}
	}
	return keys
}

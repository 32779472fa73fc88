// Package storage deduplicates immutable values, such as resource states and
// rendered sounds, so that many holders of byte-identical data share one
// copy.
//
// A Set hands out reference counted Refs. The set itself holds one
// reference to every entry; Trim evicts the entries nobody else holds.
package storage

import (
	"sync"
)

type (
	// Set is a set of reference counted values keyed by structural
	// equality. It is safe for concurrent use.
	Set[T any] struct {
		mu      sync.Mutex
		key     func(T) string
		entries map[string]*Ref[T]
	}

	// Ref is a shared reference to a value of a Set.
	Ref[T any] struct {
		set   *Set[T]
		key   string
		value T
		count int // guarded by set.mu
	}
)

// New returns an empty set. key must return equal strings for equal values.
func New[T any](key func(T) string) *Set[T] {
	return &Set[T]{key: key, entries: map[string]*Ref[T]{}}
}

// Wrap returns the entry equal to v, or inserts v if there is none. The
// returned reference is owned by the caller and should be released when no
// longer needed.
func (s *Set[T]) Wrap(v T) *Ref[T] {
	k := s.key(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.entries[k]; ok {
		r.count++
		return r
	}
	r := &Ref[T]{set: s, key: k, value: v, count: 2}
	s.entries[k] = r
	return r
}

// Trim evicts the entries that are held only by the set and returns the
// number of evicted entries.
func (s *Set[T]) Trim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, r := range s.entries {
		if r.count == 1 {
			r.count = 0
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries in the set.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Value returns the shared value. It must not be modified.
func (r *Ref[T]) Value() T {
	return r.value
}

// Retain adds a reference for a new holder. If Trim has already evicted r,
// its value is wrapped again and the returned reference is the entry now in
// the set, which need not be r.
func (r *Ref[T]) Retain() *Ref[T] {
	s := r.set
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.count > 0 {
		r.count++
		return r
	}
	if e, ok := s.entries[r.key]; ok {
		e.count++
		return e
	}
	r.count = 2
	s.entries[r.key] = r
	return r
}

// Release drops a reference. The value stays in the set until the next Trim.
func (r *Ref[T]) Release() {
	r.set.mu.Lock()
	if r.count > 1 {
		r.count--
	}
	r.set.mu.Unlock()
}

// Count returns the number of holders, including the set.
func (r *Ref[T]) Count() int {
	r.set.mu.Lock()
	defer r.set.mu.Unlock()
	return r.count
}

// Package stream provides the two publish primitives the core hands to its
// consumers: a typed notification Stream and a boolean Flag that only
// publishes on change.
package stream

import "sync"

// Stream fans a value out to every current subscriber. Callbacks run
// synchronously in the publishing goroutine, outside the internal lock, so
// a subscriber may unsubscribe from within its own callback.
type Stream[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
}

// Subscribe registers fn and returns a function that removes it.
// The returned cancel function is idempotent.
func (s *Stream[T]) Subscribe(fn func(T)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs == nil {
		s.subs = make(map[uint64]func(T))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Publish delivers v to all subscribers.
func (s *Stream[T]) Publish(v T) {
	for _, fn := range s.snapshot() {
		fn(v)
	}
}

// Len returns the number of active subscribers.
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Stream[T]) snapshot() []func(T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

// Flag is a boolean value that notifies subscribers when it changes.
// The zero value is a false flag with no subscribers.
type Flag struct {
	mu      sync.Mutex
	value   bool
	changes Stream[bool]
}

// Get returns the current value.
func (f *Flag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set stores v and publishes it if it differs from the previous value.
// It reports whether the value changed.
func (f *Flag) Set(v bool) bool {
	f.mu.Lock()
	if f.value == v {
		f.mu.Unlock()
		return false
	}
	f.value = v
	f.mu.Unlock()

	f.changes.Publish(v)
	return true
}

// Subscribe registers fn for future changes.
func (f *Flag) Subscribe(fn func(bool)) (cancel func()) {
	return f.changes.Subscribe(fn)
}

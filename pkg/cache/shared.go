package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Producer computes a value. It receives a context that is not tied to any
// single caller, since its result is shared.
type Producer[T any] func(ctx context.Context) (T, error)

// Shared shares one in-flight computation among concurrent callers and keeps
// its settled result for a cooldown window.
type Shared[T any] struct {
	mu       sync.Mutex
	clock    clock.Clock
	cooldown time.Duration

	// cur is the cycle new callers join; nil when cold.
	cur *cycle[T]
}

// cycle is one run of the producer and the callers waiting on it.
type cycle[T any] struct {
	done  chan struct{}
	value T
	err   error

	settled bool
	timer   *clock.Timer
}

// NewShared creates a Shared cache with the given cooldown. A cooldown of
// zero shares only in-flight computations. A nil clock uses the wall clock.
func NewShared[T any](cooldown time.Duration, clk clock.Clock) *Shared[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &Shared[T]{clock: clk, cooldown: cooldown}
}

// Do returns the result of the current cycle, starting a new one with fn if
// the cache is cold. ctx only bounds how long this caller waits.
func (s *Shared[T]) Do(ctx context.Context, fn Producer[T]) (T, error) {
	s.mu.Lock()
	c := s.cur
	if c == nil {
		c = s.startLocked(fn)
	}
	s.mu.Unlock()

	return c.wait(ctx)
}

// Refresh always starts a new cycle with fn, replacing the current one.
// Callers already waiting on the replaced cycle still receive its result.
func (s *Shared[T]) Refresh(ctx context.Context, fn Producer[T]) (T, error) {
	s.mu.Lock()
	c := s.startLocked(fn)
	s.mu.Unlock()

	return c.wait(ctx)
}

// Invalidate drops the current cycle so the next Do starts a new one.
func (s *Shared[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

// Warm reports whether a settled result is being served from cooldown.
func (s *Shared[T]) Warm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil && s.cur.settled
}

// InFlight reports whether a computation is running for the current cycle.
func (s *Shared[T]) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil && !s.cur.settled
}

func (s *Shared[T]) startLocked(fn Producer[T]) *cycle[T] {
	s.dropLocked()

	c := &cycle[T]{done: make(chan struct{})}
	s.cur = c
	go s.run(c, fn)
	return c
}

func (s *Shared[T]) dropLocked() {
	if s.cur != nil && s.cur.timer != nil {
		s.cur.timer.Stop()
	}
	s.cur = nil
}

func (s *Shared[T]) run(c *cycle[T], fn Producer[T]) {
	v, err := fn(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	c.value, c.err = v, err
	c.settled = true
	close(c.done)

	// A replaced cycle settles for its own waiters only.
	if s.cur != c {
		return
	}
	if err != nil || s.cooldown <= 0 {
		s.cur = nil
		return
	}
	c.timer = s.clock.AfterFunc(s.cooldown, func() { s.expire(c) })
}

func (s *Shared[T]) expire(c *cycle[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == c {
		s.cur = nil
	}
}

func (c *cycle[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

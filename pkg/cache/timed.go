package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timed memoizes one value for a fixed timeout after the time it was stored.
type Timed[T any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	timeout time.Duration

	value  T
	at     time.Time
	stored bool
}

// NewTimed creates a Timed cache. A nil clock uses the wall clock.
func NewTimed[T any](timeout time.Duration, clk clock.Clock) *Timed[T] {
	if clk == nil {
		clk = clock.New()
	}
	return &Timed[T]{clock: clk, timeout: timeout}
}

// Store records v as produced at time at.
func (c *Timed[T]) Store(v T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.at = at
	c.stored = true
}

// Hit reports whether a stored value is still fresh.
func (c *Timed[T]) Hit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitLocked()
}

// Value returns the stored value if it is still fresh.
func (c *Timed[T]) Value() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hitLocked() {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Reset forgets the stored value.
func (c *Timed[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.stored = false
}

func (c *Timed[T]) hitLocked() bool {
	return c.stored && c.clock.Now().Sub(c.at) < c.timeout
}

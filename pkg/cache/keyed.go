package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultKeyedSize bounds the number of distinct keys a Keyed cache tracks.
const DefaultKeyedSize = 64

// Keyed holds one Shared cache per key, evicting least recently used keys
// once size is reached.
type Keyed[T any] struct {
	mu       sync.Mutex
	clock    clock.Clock
	cooldown time.Duration
	entries  *lru.Cache[string, *Shared[T]]
}

// NewKeyed creates a Keyed cache. A size <= 0 uses DefaultKeyedSize.
func NewKeyed[T any](size int, cooldown time.Duration, clk clock.Clock) *Keyed[T] {
	if size <= 0 {
		size = DefaultKeyedSize
	}
	if clk == nil {
		clk = clock.New()
	}
	entries, err := lru.New[string, *Shared[T]](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Keyed[T]{clock: clk, cooldown: cooldown, entries: entries}
}

// Do runs fn through the Shared cache for key.
func (k *Keyed[T]) Do(ctx context.Context, key string, fn Producer[T]) (T, error) {
	return k.get(key).Do(ctx, fn)
}

// Invalidate drops the cached result for key.
func (k *Keyed[T]) Invalidate(key string) {
	k.mu.Lock()
	s, ok := k.entries.Peek(key)
	k.mu.Unlock()
	if ok {
		s.Invalidate()
	}
}

// Purge drops every cached result.
func (k *Keyed[T]) Purge() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, s := range k.entries.Values() {
		s.Invalidate()
	}
	k.entries.Purge()
}

// Len returns the number of tracked keys.
func (k *Keyed[T]) Len() int {
	return k.entries.Len()
}

func (k *Keyed[T]) get(key string) *Shared[T] {
	k.mu.Lock()
	defer k.mu.Unlock()

	if s, ok := k.entries.Get(key); ok {
		return s
	}
	s := NewShared[T](k.cooldown, k.clock)
	k.entries.Add(key, s)
	return s
}

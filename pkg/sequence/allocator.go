package sequence

import (
	"errors"
	"sync"
)

// Allocator errors.
var (
	ErrInvalidRange = errors.New("invalid sequence range")
	ErrAllReserved  = errors.New("every value in range is reserved")
)

// Allocator is a cyclic counter over [min, max] that never yields a reserved
// value. It is safe for concurrent use.
type Allocator struct {
	mu sync.Mutex

	min, max int
	next     int
	reserved map[int]struct{}
}

// New creates an allocator over the inclusive range [min, max].
// Reserved values outside the range are ignored.
func New(min, max int, reserved ...int) (*Allocator, error) {
	if min > max {
		return nil, ErrInvalidRange
	}

	a := &Allocator{
		min:      min,
		max:      max,
		next:     min,
		reserved: make(map[int]struct{}, len(reserved)),
	}
	for _, r := range reserved {
		if r >= min && r <= max {
			a.reserved[r] = struct{}{}
		}
	}
	if len(a.reserved) == a.Span() {
		return nil, ErrAllReserved
	}
	return a, nil
}

// MustNew is like New but panics on error. Intended for package-level
// allocators with constant bounds.
func MustNew(min, max int, reserved ...int) *Allocator {
	a, err := New(min, max, reserved...)
	if err != nil {
		panic(err)
	}
	return a
}

// Span returns the number of values in the range, reserved ones included.
func (a *Allocator) Span() int {
	return a.max - a.min + 1
}

// Min returns the lower bound of the range.
func (a *Allocator) Min() int { return a.min }

// Max returns the upper bound of the range.
func (a *Allocator) Max() int { return a.max }

// Next returns the next non-reserved value and advances the cursor.
func (a *Allocator) Next() int {
	v, _ := a.NextFree(nil)
	return v
}

// NextFree returns the next value that is neither reserved nor reported as
// taken by inUse. It returns false, leaving the cursor untouched, when every
// value is unavailable. A nil inUse behaves like Next.
func (a *Allocator) NextFree(inUse func(int) bool) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.next
	for i := 0; i < a.Span(); i++ {
		v := cur
		cur = a.step(cur)

		if _, ok := a.reserved[v]; ok {
			continue
		}
		if inUse != nil && inUse(v) {
			continue
		}
		a.next = cur
		return v, true
	}
	return 0, false
}

// Reset moves the cursor back to the start of the range.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = a.min
}

func (a *Allocator) step(v int) int {
	if v >= a.max {
		return a.min
	}
	return v + 1
}

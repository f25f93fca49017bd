package transport

import "sync"

// DefaultResyncAfter is the number of consecutive rejections after which a
// SequenceFilter accepts the next number unconditionally. An endpoint that
// rebooted restarts its counter at an arbitrary value.
const DefaultResyncAfter = 16

// SequenceFilter accepts one-byte rolling sequence numbers that move
// forward modulo 256. A number is fresh when (seq - last) mod 256 lies in
// 1..127; equal numbers are duplicates and anything else is stale.
type SequenceFilter struct {
	mu          sync.Mutex
	last        uint8
	primed      bool
	rejects     int
	resyncAfter int
}

// NewSequenceFilter creates a filter. resyncAfter <= 0 uses
// DefaultResyncAfter.
func NewSequenceFilter(resyncAfter int) *SequenceFilter {
	if resyncAfter <= 0 {
		resyncAfter = DefaultResyncAfter
	}
	return &SequenceFilter{resyncAfter: resyncAfter}
}

// Accept reports whether seq is fresh and, if so, records it.
func (f *SequenceFilter) Accept(seq uint8) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.primed {
		f.primed = true
		f.last = seq
		return true
	}

	if d := seq - f.last; d >= 1 && d <= 127 {
		f.last = seq
		f.rejects = 0
		return true
	}

	f.rejects++
	if f.rejects >= f.resyncAfter {
		f.last = seq
		f.rejects = 0
		return true
	}
	return false
}

// Last returns the most recently accepted number.
func (f *SequenceFilter) Last() (uint8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.primed
}

// Reset forgets the last accepted number.
func (f *SequenceFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primed = false
	f.rejects = 0
}

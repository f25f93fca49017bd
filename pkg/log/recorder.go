package log

import "sync"

// Recorder keeps captured events in memory. Useful for tests and for the
// console's recent-traffic view.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewRecorder creates a Recorder holding at most limit events (0 = unbounded).
// Older events are discarded first.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Log stores the event.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append(r.events[:0:0], r.events[len(r.events)-r.limit:]...)
	}
}

// Events returns a copy of the stored events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByCategory returns stored events of one category.
func (r *Recorder) ByCategory(c Category) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, e := range r.events {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)

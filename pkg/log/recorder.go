package log

import "sync"

// Recorder keeps events in memory. Used by tests and the interactive console.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Log appends the event.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many recorded events match category.
func (r *Recorder) Count(category Category) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Category == category {
			n++
		}
	}
	return n
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)

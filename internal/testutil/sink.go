package testutil

import (
	"sync"

	"github.com/roach88/reach/internal/engine"
)

// RecordingSink collects engine notifications for assertions.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingSink struct {
	mu     sync.Mutex
	events []engine.Event
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Notify implements engine.Sink.
func (s *RecordingSink) Notify(ev engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything recorded so far.
func (s *RecordingSink) Events() []engine.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Names returns the Name of every event of the given kind, in order.
func (s *RecordingSink) Names(kind engine.EventKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev.Name)
		}
	}
	return out
}

// Reset forgets every recorded event.
//
// Used for test reuse between steps.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

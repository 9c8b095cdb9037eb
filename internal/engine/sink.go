package engine

// EventKind names a fact reported to the notification sink.
type EventKind string

const (
	EventRegionDiscovered   EventKind = "region_discovered"
	EventExitDiscovered     EventKind = "exit_discovered"
	EventLocationAccessible EventKind = "location_accessible"
	EventItemCollected      EventKind = "item_collected"
	EventComputeFinished    EventKind = "compute_finished"
)

// Event is one notification. Discovery events are relative to the
// previous result; after a reload or on the first compute everything
// reached counts as discovered.
type Event struct {
	// Seq increases by one per event over the engine's lifetime.
	Seq int64 `json:"seq"`

	Kind EventKind `json:"kind"`

	// Name is the region, exit, location or item the event is about.
	// Empty for compute_finished.
	Name string `json:"name,omitempty"`

	// Region is the owning region for exits and locations, and the region
	// of the source location for collected items.
	Region string `json:"region,omitempty"`

	// Location is the source location of a collected item.
	Location string `json:"location,omitempty"`

	// Generation is the compute that produced the event.
	Generation int64 `json:"generation"`
}

// Sink receives notifications after a compute finishes, never during one.
// A sink may query the engine; the result is already cached.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Notify calls f(ev).
func (f SinkFunc) Notify(ev Event) {
	f(ev)
}

// MultiSink fans events out to every sink in order.
type MultiSink []Sink

// Notify forwards ev to each sink.
func (m MultiSink) Notify(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(ev)
		}
	}
}

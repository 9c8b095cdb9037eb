package store

import "errors"

// Source records who added an item to a session.
type Source string

const (
	// SourceUser marks an item the player collected.
	SourceUser Source = "user"

	// SourceEvent marks an item the solver collected from an event location.
	SourceEvent Source = "event"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// Session is one tracked play-through.
type Session struct {
	ID          string
	Game        string
	RuleSetHash string
	RuleSetPath string
	Seq         int64 // Store-wide creation order
}

// ItemEntry is one item_log row.
type ItemEntry struct {
	SessionID string
	Seq       int64
	Item      string
	Source    Source
	Location  string // Event location; empty for user items
}

// Checkpoint is one stored reachable set. Seq is the item seq the
// checkpoint was taken at.
type Checkpoint struct {
	SessionID string
	Seq       int64
	Reachable []string
	Hash      string
	Passes    int
	Converged bool
}

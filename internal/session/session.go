// Package session binds a reachability engine to a persistent item log.
//
// A session records every item the player collects and every item the
// solver collects from event locations. Reopening a session replays the
// log into a fresh engine inside one batch, so the restored engine
// computes once.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/store"
)

// ErrRuleSetMismatch is returned when a session is reopened against a
// rule-set whose hash differs from the one it was created with.
var ErrRuleSetMismatch = errors.New("rule-set does not match session")

// IDGenerator produces session ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session is one tracked play-through.
//
// Thread-safety: NOT safe for concurrent use, like the engine it wraps.
type Session struct {
	row    store.Session
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger

	// Event items seen by the sink and not yet written.
	pending []engine.Event

	ids        IDGenerator
	sink       engine.Sink
	engineOpts []engine.Option
}

// Option configures a Session.
type Option func(*Session)

// WithIDGenerator sets the id source for new sessions.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) {
		s.ids = g
	}
}

// WithSink forwards engine notifications to sink after the session has
// recorded them.
func WithSink(sink engine.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithEngineOptions passes options through to engine.New.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Session) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

func newSession(st *store.Store, opts []Option) *Session {
	s := &Session{store: st, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Session) bind(rs *ir.RuleSet) {
	sinks := engine.MultiSink{engine.SinkFunc(s.record)}
	if s.sink != nil {
		sinks = append(sinks, s.sink)
	}
	opts := append([]engine.Option{engine.WithLogger(s.logger)}, s.engineOpts...)
	opts = append(opts, engine.WithSink(sinks))
	s.engine = engine.New(rs, opts...)
}

// Create starts a new session for rs. path is stored so the CLI can
// reload the rule-set later; it may be empty.
func Create(ctx context.Context, st *store.Store, rs *ir.RuleSet, path string, opts ...Option) (*Session, error) {
	s := newSession(st, opts)

	hash, err := ir.RuleSetHash(rs)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	row, err := st.CreateSession(ctx, store.Session{
		ID:          s.ids.Generate(),
		Game:        rs.Game,
		RuleSetHash: hash,
		RuleSetPath: path,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.row = row
	s.bind(rs)

	s.logger.Info("session created", "session", row.ID, "game", row.Game)
	return s, nil
}

// Open reopens session id against rs and restores its item log.
// Returns ErrRuleSetMismatch if rs is not the rule-set the session was
// created with.
func Open(ctx context.Context, st *store.Store, id string, rs *ir.RuleSet, opts ...Option) (*Session, error) {
	s := newSession(st, opts)

	row, err := st.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	hash, err := ir.RuleSetHash(rs)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	if hash != row.RuleSetHash {
		return nil, fmt.Errorf("open session %q: %w", id, ErrRuleSetMismatch)
	}
	s.row = row
	s.bind(rs)

	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.row.ID
}

// Info returns the stored session row.
func (s *Session) Info() store.Session {
	return s.row
}

// Engine returns the engine bound to this session.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

// Restore replays the stored item log into the engine inside one batch.
// Event items are replayed too, so the next compute does not collect
// them again.
func (s *Session) Restore(ctx context.Context) error {
	items, err := s.store.ReadItems(ctx, s.row.ID)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.engine.BeginBatch()
	for _, entry := range items {
		s.engine.AddItem(entry.Item)
	}
	if err := s.engine.Commit(); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	s.logger.Info("session restored", "session", s.row.ID, "items", len(items))
	return nil
}

// Collect logs a player-collected item and adds it to the inventory.
// Event items collected since the last write are logged first.
func (s *Session) Collect(ctx context.Context, item string) (store.ItemEntry, error) {
	if err := s.Flush(ctx); err != nil {
		return store.ItemEntry{}, err
	}
	entry, err := s.store.AppendItem(ctx, s.row.ID, item, store.SourceUser, "")
	if err != nil {
		return store.ItemEntry{}, fmt.Errorf("collect %q: %w", item, err)
	}
	s.engine.AddItem(item)
	s.logger.Debug("item collected", "session", s.row.ID, "item", item, "seq", entry.Seq)
	return entry, nil
}

// Flush writes event items the engine collected since the last write.
func (s *Session) Flush(ctx context.Context) error {
	for len(s.pending) > 0 {
		ev := s.pending[0]
		if _, err := s.store.AppendItem(ctx, s.row.ID, ev.Name, store.SourceEvent, ev.Location); err != nil {
			return fmt.Errorf("flush event %q: %w", ev.Name, err)
		}
		s.pending = s.pending[1:]
	}
	return nil
}

// Checkpoint solves, logs any collected event items and stores the
// reachable set at the current item seq.
func (s *Session) Checkpoint(ctx context.Context) (store.Checkpoint, error) {
	r := s.engine.Result()
	if err := s.Flush(ctx); err != nil {
		return store.Checkpoint{}, err
	}

	seq, err := s.store.LastItemSeq(ctx, s.row.ID)
	if err != nil {
		return store.Checkpoint{}, fmt.Errorf("checkpoint: %w", err)
	}
	hash, err := r.Hash()
	if err != nil {
		return store.Checkpoint{}, fmt.Errorf("checkpoint: %w", err)
	}

	cp := store.Checkpoint{
		SessionID: s.row.ID,
		Seq:       seq,
		Reachable: r.Reachable,
		Hash:      hash,
		Passes:    r.Passes,
		Converged: r.Converged,
	}
	if err := s.store.WriteCheckpoint(ctx, cp); err != nil {
		return store.Checkpoint{}, err
	}
	return cp, nil
}

// record is the session's engine sink. Writes happen on the next Flush
// because sinks cannot fail.
func (s *Session) record(ev engine.Event) {
	if ev.Kind == engine.EventItemCollected {
		s.pending = append(s.pending, ev)
	}
}

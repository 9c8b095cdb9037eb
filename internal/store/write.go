package store

import (
	"context"
	"fmt"
)

// CreateSession inserts a session row and assigns its store-wide seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - creating the same id
// twice returns the existing row.
func (s *Store) CreateSession(ctx context.Context, sess Session) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("create session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_seq), 0) + 1 FROM sessions`,
	).Scan(&next); err != nil {
		return Session{}, fmt.Errorf("create session: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, game, ruleset_hash, ruleset_path, created_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Game,
		sess.RuleSetHash,
		sess.RuleSetPath,
		next,
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("create session: commit: %w", err)
	}

	return s.GetSession(ctx, sess.ID)
}

// AppendItem adds an item to a session's log with the next per-session
// seq. The session must exist (foreign key constraint).
func (s *Store) AppendItem(ctx context.Context, sessionID, item string, source Source, location string) (ItemEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ItemEntry{}, fmt.Errorf("append item: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM item_log WHERE session_id = ?`,
		sessionID,
	).Scan(&seq); err != nil {
		return ItemEntry{}, fmt.Errorf("append item: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO item_log (session_id, seq, item, source, location)
		VALUES (?, ?, ?, ?, ?)
	`,
		sessionID,
		seq,
		item,
		string(source),
		location,
	)
	if err != nil {
		return ItemEntry{}, fmt.Errorf("append item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ItemEntry{}, fmt.Errorf("append item: commit: %w", err)
	}

	return ItemEntry{
		SessionID: sessionID,
		Seq:       seq,
		Item:      item,
		Source:    source,
		Location:  location,
	}, nil
}

// WriteCheckpoint stores a reachable-set checkpoint.
// Uses ON CONFLICT(session_id, seq) DO NOTHING: the first checkpoint at a
// given item seq wins, since the same log always yields the same set.
func (s *Store) WriteCheckpoint(ctx context.Context, cp Checkpoint) error {
	reachable, err := marshalRegions(cp.Reachable)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (session_id, seq, reachable, result_hash, passes, converged)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		cp.SessionID,
		cp.Seq,
		reachable,
		cp.Hash,
		cp.Passes,
		boolToInt(cp.Converged),
	)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	return nil
}

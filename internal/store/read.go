package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSession returns one session by id.
// Returns an error wrapping ErrSessionNotFound if the id has no row.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game, ruleset_hash, ruleset_path, created_seq
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Game, &sess.RuleSetHash, &sess.RuleSetPath, &sess.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %q: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %q: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session in creation order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game, ruleset_hash, ruleset_path, created_seq
		FROM sessions
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Game, &sess.RuleSetHash, &sess.RuleSetPath, &sess.Seq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadItems returns a session's item log in seq order.
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) ReadItems(ctx context.Context, sessionID string) ([]ItemEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, item, source, location
		FROM item_log
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []ItemEntry{}
	for rows.Next() {
		var (
			entry  ItemEntry
			source string
		)
		if err := rows.Scan(&entry.SessionID, &entry.Seq, &entry.Item, &source, &entry.Location); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		entry.Source = Source(source)
		items = append(items, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return items, nil
}

// LastItemSeq returns the highest item seq of a session, or 0.
func (s *Store) LastItemSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM item_log WHERE session_id = ?`,
		sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last item seq: %w", err)
	}
	return seq, nil
}

// HasItem reports whether the session's log contains item.
func (s *Store) HasItem(ctx context.Context, sessionID, item string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_log WHERE session_id = ? AND item = ?`,
		sessionID, item,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has item: %w", err)
	}
	return n > 0, nil
}

// ReadCheckpoints returns a session's checkpoints in seq order.
func (s *Store) ReadCheckpoints(ctx context.Context, sessionID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, reachable, result_hash, passes, converged
		FROM results
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	return checkpoints, nil
}

// LatestCheckpoint returns the checkpoint with the highest seq.
// The bool is false if the session has none.
func (s *Store) LatestCheckpoint(ctx context.Context, sessionID string) (Checkpoint, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, seq, reachable, result_hash, passes, converged
		FROM results
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, sessionID)
	cp, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner) (Checkpoint, error) {
	var (
		cp        Checkpoint
		reachable string
		converged int
	)
	if err := row.Scan(&cp.SessionID, &cp.Seq, &reachable, &cp.Hash, &cp.Passes, &converged); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Checkpoint{}, err
		}
		return Checkpoint{}, fmt.Errorf("scan checkpoint: %w", err)
	}
	regions, err := unmarshalRegions(reachable)
	if err != nil {
		return Checkpoint{}, err
	}
	cp.Reachable = regions
	cp.Converged = converged != 0
	return cp, nil
}

// Package store provides SQLite-backed durable storage for solver sessions.
//
// The store is an append-only log with:
//   - Sessions: one row per tracked play-through, bound to a rule-set hash
//   - Item log: every item added to a session, by the user or by an event
//   - Results: checkpoints of the reachable set
//
// # Ordering
//
// All ordering uses seq INTEGER columns, never timestamps. Item and result
// seqs are per session and start at 1; session creation uses a store-wide
// seq. Queries order by seq ASC with id COLLATE BINARY as the tie-breaker,
// so restores are deterministic.
//
// # Schema version
//
// Open stamps PRAGMA user_version with SchemaVersion on a fresh file and
// refuses files stamped with any other version.
//
// Reachable sets are stored as canonical JSON from internal/ir.
package store

// Package engine implements the reachability fixpoint solver.
//
// The engine owns an inventory and a rule evaluator for one loaded
// rule-set and answers "which regions and locations can be reached with
// the items held right now".
//
// ARCHITECTURE:
//
// Phases:
// The engine is always in exactly one Phase. Idle means no valid result is
// cached; Computing means a fixpoint is in flight; Done carries the result.
// A query that arrives while Computing (a rule asking can_reach mid-solve)
// is answered from the in-flight working set and never starts a second
// computation.
//
// Fixpoint:
//  1. Seed the start regions and queue their exits as blocked connections
//  2. Drain the queue in rounds until a round discovers no region; an exit
//     that fails its rule stays blocked for the next round
//  3. Re-queue exits registered in the indirect index under every newly
//     reached region, if their own source region is already reached
//  4. Auto-collect event locations; repeat from 2 while anything changed
//
// Outer passes are bounded by MaxPasses. Exceeding the bound reports a
// NON_CONVERGENCE diagnostic and returns the partial result.
//
// Cache:
// A result stays valid until the inventory version moves, a flag changes,
// the rule-set is reloaded or InvalidateCache is called. Inside a batch,
// queries keep returning the last stable result and the outermost Commit
// invalidates once.
//
// Thread-safety: NOT safe for concurrent use. Callers serialize access.
package engine

// Package helpers holds the pluggable helper-function tables that rules
// dispatch into by name.
//
// Different games register different helper sets. A Registry maps a game
// identifier to its Table; the built-in state methods (has, count,
// can_reach, ...) live in StateMethods and are shared by every game.
package helpers

import (
	"maps"
	"slices"

	"github.com/roach88/reach/internal/ir"
)

// Context is the collection state a helper reads. The rule evaluator
// implements it.
type Context interface {
	Has(item string) bool
	Count(item string) int
	CountGroup(group string) int
	GroupMembers(group string) []string
	Flag(name string) bool
	Setting(name string) (ir.Value, bool)
	CanReachRegion(name string) bool
	CanReachLocation(name string) bool
	CanReachEntrance(name string) bool
	Player() int64
}

// Func is a helper implementation. Arguments arrive already evaluated.
// A returned error is reported as a diagnostic and the call counts as false.
type Func func(ctx Context, args []ir.Value) (ir.Value, error)

// Table is a named set of helper functions for one game.
type Table struct {
	game  string
	funcs map[string]Func
}

// NewTable creates an empty table for game.
func NewTable(game string) *Table {
	return &Table{game: game, funcs: make(map[string]Func)}
}

// Game returns the game identifier the table serves.
func (t *Table) Game() string {
	if t == nil {
		return ""
	}
	return t.game
}

// Register adds or replaces a helper. It returns t for chaining.
func (t *Table) Register(name string, fn Func) *Table {
	t.funcs[name] = fn
	return t
}

// Lookup finds a helper by name. A nil table has no helpers.
func (t *Table) Lookup(name string) (Func, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.funcs[name]
	return fn, ok
}

// Names returns registered helper names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.funcs))
}

// Len returns the number of registered helpers.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.funcs)
}

// Merge copies every helper from other into t, replacing on conflict.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	maps.Copy(t.funcs, other.funcs)
}

// Registry maps game identifiers to helper tables.
type Registry struct {
	tables map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register adds t under its game. Registering a second table for the same
// game merges into the first.
func (r *Registry) Register(t *Table) {
	if existing, ok := r.tables[t.game]; ok {
		existing.Merge(t)
		return
	}
	r.tables[t.game] = t
}

// For returns the table registered for game, or an empty table.
func (r *Registry) For(game string) *Table {
	if r != nil {
		if t, ok := r.tables[game]; ok {
			return t
		}
	}
	return NewTable(game)
}

// Games returns registered game identifiers in sorted order.
func (r *Registry) Games() []string {
	return slices.Sorted(maps.Keys(r.tables))
}

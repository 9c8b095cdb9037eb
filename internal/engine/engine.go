package engine

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/inventory"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
)

// Engine is the reachability solver for one loaded rule-set.
//
// INVARIANTS:
//   - The rule-set is read-only; only Reload replaces it
//   - The inventory only grows; the engine itself adds event items only
//   - At most one compute is in flight; nested queries never recurse
type Engine struct {
	rs    *ir.RuleSet
	inv   *inventory.Inventory
	table *helpers.Table
	mode  compiler.IndirectMode
	index *compiler.IndirectIndex
	eval  *rules.Evaluator
	diag  *rules.Diagnostics

	flags   map[string]bool
	checked map[string]bool

	phase Phase
	last  *Result // Last stable result; survives invalidation
	batch int

	// evaluating guards location and entrance rules against asking
	// about themselves.
	evaluating map[string]bool

	sink       Sink
	metrics    *Metrics
	maxPasses  int
	logger     *slog.Logger
	seq        int64
	generation int64
}

var _ rules.Reachability = (*Engine)(nil)

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithInventory uses inv instead of a fresh inventory built from the
// rule-set.
func WithInventory(inv *inventory.Inventory) Option {
	return func(e *Engine) {
		e.inv = inv
	}
}

// WithHelpers sets the game helper table.
func WithHelpers(t *helpers.Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// WithIndirectMode selects strict or broad indirect-dependency scanning.
//
// Default: compiler.IndirectStrict
func WithIndirectMode(mode compiler.IndirectMode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithMaxPasses bounds outer event-convergence passes per compute.
//
// Default: 1000 passes (DefaultMaxPasses)
// Use WithMaxPasses(1) for testing non-convergence handling.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		e.maxPasses = n
	}
}

// WithSink sets the notification sink.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithMetrics records compute statistics to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine over rs. The rule-set must be normalized.
func New(rs *ir.RuleSet, opts ...Option) *Engine {
	e := &Engine{
		maxPasses: DefaultMaxPasses,
		phase:     Idle{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxPasses <= 0 {
		e.maxPasses = DefaultMaxPasses
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.inv == nil {
		e.inv = inventory.FromRuleSet(rs)
	}
	e.load(rs)
	return e
}

// load binds rs and rebuilds every rule-set derived structure.
func (e *Engine) load(rs *ir.RuleSet) {
	e.rs = rs
	e.index = compiler.BuildIndirectIndex(rs, e.mode)
	e.diag = rules.NewDiagnostics(e.logger)
	e.flags = maps.Clone(rs.Flags)
	if e.flags == nil {
		e.flags = make(map[string]bool)
	}
	e.checked = make(map[string]bool)
	e.evaluating = make(map[string]bool)
	e.eval = rules.New(rs, e.inv,
		rules.WithReachability(e),
		rules.WithHelpers(e.table),
		rules.WithFlags(e.Flag),
		rules.WithDiagnostics(e.diag),
		rules.WithLogger(e.logger),
	)
	e.phase = Idle{}
	e.last = nil

	e.logger.Debug("rule-set bound",
		"game", rs.Game,
		"regions", len(rs.Regions),
		"indirect_mode", e.mode.String(),
		"indirect_connections", e.index.Len(),
	)
}

// Reload swaps in a new rule-set, keeping the held item counts. Progressive
// tiers and groups come from the new rule-set. Checked event locations
// and the cached result are discarded.
func (e *Engine) Reload(rs *ir.RuleSet) {
	held := e.inv.Snapshot()
	inv := inventory.FromRuleSet(rs)
	for _, item := range slices.Sorted(maps.Keys(held)) {
		inv.AddN(item, held[item])
	}
	e.inv = inv
	e.load(rs)
	e.logger.Info("rule-set reloaded", "game", rs.Game, "regions", len(rs.Regions), "items", len(held))
}

// RuleSet returns the bound rule-set.
func (e *Engine) RuleSet() *ir.RuleSet {
	return e.rs
}

// Inventory returns the live inventory.
func (e *Engine) Inventory() *inventory.Inventory {
	return e.inv
}

// Index returns the indirect-connection index built for the rule-set.
func (e *Engine) Index() *compiler.IndirectIndex {
	return e.index
}

// Diagnostics returns the diagnostics sink shared with the evaluator.
func (e *Engine) Diagnostics() *rules.Diagnostics {
	return e.diag
}

// Evaluator returns the rule evaluator bound to this engine.
func (e *Engine) Evaluator() *rules.Evaluator {
	return e.eval
}

// Phase returns the current solve phase. A Done phase whose inventory
// version has moved reads as Idle.
func (e *Engine) Phase() Phase {
	if d, ok := e.phase.(Done); ok && d.Result.version != e.inv.Version() {
		e.phase = Idle{}
	}
	return e.phase
}

// AddItem adds one copy of item to the inventory. The cached result goes
// stale through the inventory version.
func (e *Engine) AddItem(item string) {
	e.inv.Add(item)
	e.logger.Debug("item added", "item", item, "count", e.inv.Count(item))
}

// Flag reads an auxiliary state flag.
func (e *Engine) Flag(name string) bool {
	return e.flags[name]
}

// SetFlag sets an auxiliary state flag and invalidates on change.
func (e *Engine) SetFlag(name string, v bool) {
	if old, ok := e.flags[name]; ok && old == v {
		return
	}
	e.flags[name] = v
	e.InvalidateCache()
}

// InvalidateCache drops the cached result so the next query recomputes.
// The last stable result is kept for batch and re-entrant reads. Ignored
// while a compute is in flight.
func (e *Engine) InvalidateCache() {
	if _, computing := e.phase.(Computing); computing {
		e.logger.Debug("invalidate ignored during compute")
		return
	}
	e.phase = Idle{}
}

// BeginBatch defers recomputation until the matching Commit. Batches nest.
func (e *Engine) BeginBatch() {
	e.batch++
}

// Commit closes one batch level. The outermost Commit invalidates.
func (e *Engine) Commit() error {
	if e.batch == 0 {
		return &RuntimeError{Code: ErrCodeBatchState, Message: "commit without begin"}
	}
	e.batch--
	if e.batch == 0 {
		e.InvalidateCache()
	}
	return nil
}

// InBatch reports whether a batch is open.
func (e *Engine) InBatch() bool {
	return e.batch > 0
}

// Result returns the current result, computing if needed. During a
// compute it returns the last stable result, which may be nil.
func (e *Engine) Result() *Result {
	if _, computing := e.phase.(Computing); computing {
		e.metrics.reentrant()
		return e.last
	}
	return e.current()
}

// current returns the result queries should read: the cached result if
// still valid, the last stable one inside a batch, else a fresh compute.
func (e *Engine) current() *Result {
	if d, ok := e.phase.(Done); ok && d.Result.version == e.inv.Version() {
		e.metrics.cacheHit()
		return d.Result
	}
	if e.batch > 0 && e.last != nil {
		return e.last
	}
	return e.compute()
}

// ComputeReachableRegions returns the reachable region names, sorted.
func (e *Engine) ComputeReachableRegions() []string {
	if c, computing := e.phase.(Computing); computing {
		e.metrics.reentrant()
		return c.work.sortedReachable()
	}
	return slices.Clone(e.current().Reachable)
}

// IsRegionReachable reports whether the named region can be reached.
// Undefined regions are unreachable and reported.
func (e *Engine) IsRegionReachable(name string) bool {
	if _, ok := e.rs.Region(name); !ok {
		e.diag.Report(rules.CodeMissingEntity, "region:"+name, "region %q is not defined", name)
		return false
	}
	if c, computing := e.phase.(Computing); computing {
		e.metrics.reentrant()
		return c.work.reachable.Has(name)
	}
	return e.current().IsReachable(name)
}

// IsLocationAccessible reports whether the location's region is reachable
// and its rule holds.
func (e *Engine) IsLocationAccessible(name string) bool {
	loc, ok := e.rs.Location(name)
	if !ok {
		e.diag.Report(rules.CodeMissingEntity, "location:"+name, "location %q is not defined", name)
		return false
	}
	if c, computing := e.phase.(Computing); computing {
		e.metrics.reentrant()
		return c.work.reachable.Has(loc.Region) && e.locationOpen(loc)
	}
	return e.current().IsAccessible(name)
}

// IsEntranceReachable reports whether the exit's source region is
// reachable and the exit can be taken.
func (e *Engine) IsEntranceReachable(name string) bool {
	exit, ok := e.rs.Entrance(name)
	if !ok {
		e.diag.Report(rules.CodeMissingEntity, "entrance:"+name, "entrance %q is not defined", name)
		return false
	}
	if c, computing := e.phase.(Computing); computing {
		e.metrics.reentrant()
		return c.work.reachable.Has(exit.From) && e.exitOpen(exit)
	}
	return e.current().IsTraversable(name)
}

// RegionReachable implements rules.Reachability.
func (e *Engine) RegionReachable(name string) bool { return e.IsRegionReachable(name) }

// LocationAccessible implements rules.Reachability.
func (e *Engine) LocationAccessible(name string) bool { return e.IsLocationAccessible(name) }

// EntranceReachable implements rules.Reachability.
func (e *Engine) EntranceReachable(name string) bool { return e.IsEntranceReachable(name) }

// GetPathToRegion returns one witnessing path from a start region, as
// ordered hops. A start region has an empty path.
func (e *Engine) GetPathToRegion(name string) ([]Hop, error) {
	if _, ok := e.rs.Region(name); !ok {
		return nil, NewMissingEntityError("region", name)
	}
	if c, computing := e.phase.(Computing); computing {
		e.metrics.reentrant()
		if !c.work.reachable.Has(name) {
			return nil, NewUnreachableError(name)
		}
		return walkPath(c.work.paths, name), nil
	}
	hops, ok := e.current().Path(name)
	if !ok {
		return nil, NewUnreachableError(name)
	}
	return hops, nil
}

// AccessibleLocations returns every accessible location in region order.
func (e *Engine) AccessibleLocations() []string {
	return slices.Clone(e.Result().Accessible)
}

// CheckedLocations returns the event locations collected so far, sorted.
func (e *Engine) CheckedLocations() []string {
	return slices.Sorted(maps.Keys(e.checked))
}

// exitOpen evaluates an exit's rule and the region rules of its target.
func (e *Engine) exitOpen(exit *ir.Exit) bool {
	key := "entrance:" + exit.Name
	if e.evaluating[key] {
		return false
	}
	e.evaluating[key] = true
	defer delete(e.evaluating, key)

	if !e.eval.Test(exit.Rule) {
		return false
	}
	if exit.ConnectedRegion == "" {
		return true
	}
	target, ok := e.rs.Region(exit.ConnectedRegion)
	if !ok {
		return false
	}
	return e.eval.TestAll(target.RegionRules)
}

// locationOpen evaluates a location's rule.
func (e *Engine) locationOpen(loc *ir.Location) bool {
	key := "location:" + loc.Name
	if e.evaluating[key] {
		return false
	}
	e.evaluating[key] = true
	defer delete(e.evaluating, key)

	return e.eval.Test(loc.Rule)
}

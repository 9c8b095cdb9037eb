// Package rules interprets rule expression trees.
//
// An Evaluator reads an inventory, auxiliary flags, rule-set settings and a
// reachability view, and reduces a rule to an ir.Value. Evaluation never
// panics on a well-formed tree: malformed nodes, missing entities and
// missing helpers evaluate to false and are reported to a Diagnostics sink,
// and evaluation of sibling nodes continues.
package rules

import (
	"fmt"
	"log/slog"

	"github.com/zyedidia/generic/mapset"

	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/inventory"
	"github.com/roach88/reach/internal/ir"
)

// Reachability is the engine's view of the graph, queried by can_reach and
// the region-lookup call shape.
type Reachability interface {
	RegionReachable(name string) bool
	LocationAccessible(name string) bool
	EntranceReachable(name string) bool
}

// Evaluator reduces rules to values.
//
// Thread-safety: NOT safe for concurrent use.
type Evaluator struct {
	rs      *ir.RuleSet
	inv     *inventory.Inventory
	reach   Reachability
	game    *helpers.Table
	methods *helpers.Table
	flag    func(string) bool
	diag    *Diagnostics
	logger  *slog.Logger

	knownItems mapset.Set[string]
	itemsBuilt bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithReachability sets the graph view used by can_reach.
func WithReachability(r Reachability) Option {
	return func(e *Evaluator) {
		e.reach = r
	}
}

// WithHelpers sets the game helper table.
func WithHelpers(t *helpers.Table) Option {
	return func(e *Evaluator) {
		e.game = t
	}
}

// WithFlags sets the state_flag source.
func WithFlags(flag func(string) bool) Option {
	return func(e *Evaluator) {
		e.flag = flag
	}
}

// WithDiagnostics sets the diagnostics sink.
func WithDiagnostics(d *Diagnostics) Option {
	return func(e *Evaluator) {
		e.diag = d
	}
}

// WithLogger sets the logger for per-rule debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// New creates an evaluator over rs and inv.
func New(rs *ir.RuleSet, inv *inventory.Inventory, opts ...Option) *Evaluator {
	e := &Evaluator{
		rs:      rs,
		inv:     inv,
		methods: helpers.StateMethods(),
		flag:    func(name string) bool { return rs.Flags[name] },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.diag == nil {
		e.diag = NewDiagnostics(e.logger)
	}
	return e
}

// Diagnostics returns the sink the evaluator reports to.
func (e *Evaluator) Diagnostics() *Diagnostics {
	return e.diag
}

// Test evaluates r for gating. A nil rule is vacuously true.
func (e *Evaluator) Test(r ir.Rule) bool {
	if r == nil {
		return true
	}
	return ir.Truthy(e.Evaluate(r))
}

// TestAll reports whether every rule holds, short-circuiting left to right.
func (e *Evaluator) TestAll(rules []ir.Rule) bool {
	for _, r := range rules {
		if !e.Test(r) {
			return false
		}
	}
	return true
}

// Evaluate reduces r to a value. A nil rule evaluates to true.
func (e *Evaluator) Evaluate(r ir.Rule) ir.Value {
	switch n := r.(type) {
	case nil:
		return ir.True

	case ir.Constant:
		if n.Value == nil {
			return ir.Nothing{}
		}
		return n.Value

	case ir.And:
		for _, c := range n.Conditions {
			if !e.Test(c) {
				return ir.False
			}
		}
		return ir.True

	case ir.Or:
		for _, c := range n.Conditions {
			if e.Test(c) {
				return ir.True
			}
		}
		return ir.False

	case ir.ItemCheck:
		item, ok := e.evalString(n.Item, "item_check")
		if !ok {
			return ir.False
		}
		e.checkItem(item)
		return ir.Bool(e.inv.Has(item))

	case ir.CountCheck:
		item, ok := e.evalString(n.Item, "count_check")
		if !ok {
			return ir.False
		}
		need, ok := e.evalCount(n.Count, "count_check")
		if !ok {
			return ir.False
		}
		e.checkItem(item)
		return ir.Bool(int64(e.inv.Count(item)) >= need)

	case ir.GroupCheck:
		group, ok := e.evalString(n.Group, "group_check")
		if !ok {
			return ir.False
		}
		need, ok := e.evalCount(n.Count, "group_check")
		if !ok {
			return ir.False
		}
		if !e.inv.GroupKnown(group) {
			e.diag.Report(CodeMissingEntity, "group:"+group, "item group %q is not defined", group)
		}
		return ir.Bool(int64(e.inv.CountGroup(group)) >= need)

	case ir.StateFlag:
		return ir.Bool(e.flag(n.Flag))

	case ir.Helper:
		return e.dispatch(n.Name, helperArgs(n.Args), e.game, e.methods)

	case ir.StateMethod:
		return e.dispatch(n.Method, helperArgs(n.Args), e.methods, e.game)

	case ir.Attribute:
		return e.attribute(e.Evaluate(n.Object), n.Attr)

	case ir.Subscript:
		return e.subscript(e.Evaluate(n.Value), e.Evaluate(n.Index))

	case ir.FunctionCall:
		return e.call(n)

	case ir.Comparison:
		return e.compare(n)

	case ir.Name:
		return e.name(n.Identifier)

	case ir.ListExpr:
		out := make(ir.List, len(n.Elements))
		for i, elem := range n.Elements {
			out[i] = e.Evaluate(elem)
		}
		return out

	case ir.Invalid:
		subject := n.Type
		if subject == "" {
			subject = string(ir.KindInvalid)
		}
		e.diag.Report(CodeMalformedRule, subject, "%s", n.Reason)
		return ir.False

	default:
		e.diag.Report(CodeMalformedRule, fmt.Sprintf("%T", r), "unsupported rule node")
		return ir.False
	}
}

func (e *Evaluator) evalString(r ir.Rule, context string) (string, bool) {
	v := e.Evaluate(r)
	s, ok := ir.AsString(v)
	if !ok {
		e.diag.Report(CodeTypeMismatch, context+":"+ir.Format(v), "expected string operand, got %s", ir.Format(v))
	}
	return s, ok
}

// evalCount evaluates a count operand. A nil operand means 1.
func (e *Evaluator) evalCount(r ir.Rule, context string) (int64, bool) {
	if r == nil {
		return 1, true
	}
	v := e.Evaluate(r)
	n, ok := ir.AsNumber(v)
	if !ok {
		e.diag.Report(CodeTypeMismatch, context+":"+ir.Format(v), "expected number operand, got %s", ir.Format(v))
	}
	return n, ok
}

// dispatch calls name from the first table that has it.
func (e *Evaluator) dispatch(name string, argRules []ir.Rule, tables ...*helpers.Table) ir.Value {
	var fn helpers.Func
	for _, t := range tables {
		if f, ok := t.Lookup(name); ok {
			fn = f
			break
		}
	}
	if fn == nil {
		e.diag.Report(CodeMissingHelper, name, "no helper or state method named %q for game %q", name, e.rs.Game)
		return ir.False
	}

	args := make([]ir.Value, len(argRules))
	for i, a := range argRules {
		args[i] = e.Evaluate(a)
	}

	v, err := fn(e, args)
	if err != nil {
		e.diag.Report(CodeHelperError, name, "%v", err)
		return ir.False
	}
	if v == nil {
		return ir.Nothing{}
	}
	e.logger.Debug("helper call", "name", name, "result", ir.Format(v))
	return v
}

func (e *Evaluator) call(fc ir.FunctionCall) ir.Value {
	shape := Classify(fc)
	switch shape.Kind {
	case ShapeReachLookup:
		target, ok := e.evalString(shape.Target, "can_reach")
		if !ok {
			return ir.False
		}
		v, err := helpers.CanReach(e, target, shape.TargetKind)
		if err != nil {
			e.diag.Report(CodeMalformedRule, "can_reach:"+target, "%v", err)
			return ir.False
		}
		return v

	case ShapeBossDefeat:
		return ir.True

	case ShapeStateMethod:
		return e.dispatch(shape.Name, helperArgs(fc.Args), e.methods, e.game)

	case ShapeHelper:
		return e.dispatch(shape.Name, helperArgs(fc.Args), e.game, e.methods)

	default:
		subject := "nil"
		if fc.Function != nil {
			subject = string(fc.Function.Kind())
		}
		e.diag.Report(CodeUnknownShape, subject, "function_call shape is not recognised")
		return ir.False
	}
}

func (e *Evaluator) attribute(base ir.Value, attr string) ir.Value {
	if obj, ok := base.(ir.Object); ok {
		if v, ok := obj[attr]; ok {
			return v
		}
	}
	e.diag.Report(CodeMissingEntity, "attribute:"+attr, "attribute %q not found on %s", attr, ir.Format(base))
	return ir.Nothing{}
}

func (e *Evaluator) subscript(base, index ir.Value) ir.Value {
	switch b := base.(type) {
	case ir.List:
		i, ok := index.(ir.Number)
		if !ok {
			break
		}
		idx := int(i)
		if idx < 0 {
			idx += len(b)
		}
		if idx >= 0 && idx < len(b) {
			return b[idx]
		}
	case ir.Object:
		if k, ok := ir.AsString(index); ok {
			if v, ok := b[k]; ok {
				return v
			}
		}
	}
	e.diag.Report(CodeMissingEntity, "subscript:"+ir.Format(index), "index %s not found in %s", ir.Format(index), ir.Format(base))
	return ir.Nothing{}
}

func (e *Evaluator) compare(c ir.Comparison) ir.Value {
	left := e.Evaluate(c.Left)
	right := e.Evaluate(c.Right)

	switch c.Op {
	case "==":
		return ir.Bool(ir.Equal(left, right))
	case "!=":
		return ir.Bool(!ir.Equal(left, right))
	case "in":
		return ir.Bool(ir.Contains(right, left))
	case "not in":
		return ir.Bool(!ir.Contains(right, left))
	case "<", "<=", ">", ">=":
		cmp, ok := order(left, right)
		if !ok {
			e.diag.Report(CodeTypeMismatch, "comparison:"+c.Op, "cannot order %s and %s", ir.Format(left), ir.Format(right))
			return ir.False
		}
		switch c.Op {
		case "<":
			return ir.Bool(cmp < 0)
		case "<=":
			return ir.Bool(cmp <= 0)
		case ">":
			return ir.Bool(cmp > 0)
		default:
			return ir.Bool(cmp >= 0)
		}
	default:
		e.diag.Report(CodeMalformedRule, "comparison:"+c.Op, "unknown comparison operator %q", c.Op)
		return ir.False
	}
}

// order compares two numbers or two strings.
func order(a, b ir.Value) (int, bool) {
	if as, ok := a.(ir.String); ok {
		bs, ok := b.(ir.String)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	an, ok := ir.AsNumber(a)
	if !ok {
		return 0, false
	}
	bn, ok := ir.AsNumber(b)
	if !ok {
		return 0, false
	}
	switch {
	case an < bn:
		return -1, true
	case an > bn:
		return 1, true
	default:
		return 0, true
	}
}

// name resolves a bare identifier: settings first, then literals and the
// world object that exposes settings as options.
func (e *Evaluator) name(id string) ir.Value {
	if v, ok := e.rs.Settings[id]; ok {
		return v
	}
	switch id {
	case "True", "true":
		return ir.True
	case "False", "false":
		return ir.False
	case "None", "null":
		return ir.Nothing{}
	case "player":
		return ir.Number(e.rs.Player)
	case "options":
		return e.rs.Settings
	case "world", "self", "multiworld":
		world := make(ir.Object, len(e.rs.Settings)+2)
		for k, v := range e.rs.Settings {
			world[k] = v
		}
		world["options"] = e.rs.Settings
		world["player"] = ir.Number(e.rs.Player)
		return world
	}
	e.diag.Report(CodeMissingEntity, "name:"+id, "name %q is not defined", id)
	return ir.Nothing{}
}

// checkItem reports item references the rule-set does not know. Rule-sets
// without an items table skip the check.
func (e *Evaluator) checkItem(item string) {
	if len(e.rs.Items) == 0 {
		return
	}
	if !e.itemsBuilt {
		e.knownItems = knownItems(e.rs)
		e.itemsBuilt = true
	}
	if !e.knownItems.Has(item) {
		e.diag.Report(CodeMissingEntity, "item:"+item, "item %q is not defined", item)
	}
}

func knownItems(rs *ir.RuleSet) mapset.Set[string] {
	known := mapset.New[string]()
	for name := range rs.Items {
		known.Put(name)
	}
	for base, tiers := range rs.ProgressiveItems {
		known.Put(base)
		for _, tier := range tiers {
			for _, alias := range tier.Items {
				known.Put(alias)
			}
		}
	}
	for _, members := range rs.ItemGroups {
		for _, m := range members {
			known.Put(m)
		}
	}
	for _, loc := range rs.Locations() {
		if loc.Item != nil {
			known.Put(loc.Item.Name)
		}
	}
	return known
}

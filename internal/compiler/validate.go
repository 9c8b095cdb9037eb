package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrNilRuleSet = "E100" // no rule-set to validate

	// World structure errors (E101-E109)
	ErrNoStartRegion        = "E101" // start_regions is empty
	ErrUndefinedStartRegion = "E102" // start region is not a defined region
	ErrUndefinedTarget      = "E103" // exit connects to an undefined region
	ErrDuplicateExit        = "E104" // exit name used more than once
	ErrDuplicateLocation    = "E105" // location name used more than once
	ErrEmptyName            = "E106" // exit or location without a name

	// Rule errors (E110-E119)
	ErrMalformedRule    = "E110" // rule contains an invalid node
	ErrUndefinedReach   = "E111" // literal can_reach target is not defined
	ErrUndefinedHelper  = "E112" // helper not present in any loaded table
	ErrUnknownCallShape = "E113" // function_call matches no known shape
	ErrUndefinedGroup   = "E114" // group_check names an unknown group

	// Item errors (E120-E129)
	ErrEventWithoutItem = "E120" // event location carries no item
	ErrProgressiveTiers = "E121" // tier counts are not strictly increasing
	ErrProgressiveAlias = "E122" // tier without any alias
)

// ValidationError represents a rule-set validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateRuleSet checks a normalized rule-set for structural problems.
// Returns all errors found (does not fail-fast), in region order.
//
// Helper references are only checked when at least one helper table is
// given; the built-in state methods are always known.
func ValidateRuleSet(rs *ir.RuleSet, tables ...*helpers.Table) []ValidationError {
	if rs == nil {
		return []ValidationError{{Field: "ruleset", Message: "rule-set is nil", Code: ErrNilRuleSet}}
	}

	v := &validator{rs: rs, tables: tables, methods: helpers.StateMethods(), groups: rs.Groups()}
	v.startRegions()
	for _, name := range rs.RegionNames() {
		v.region(rs.Regions[name])
	}
	v.progressive()
	return v.errs
}

type validator struct {
	rs      *ir.RuleSet
	tables  []*helpers.Table
	methods *helpers.Table
	groups  map[string][]string
	errs    []ValidationError

	// Name to the region that first declared it. Exit and location names
	// are global: entrance and location lookups are keyed by name alone.
	exitNames     map[string]string
	locationNames map[string]string
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *validator) startRegions() {
	if len(v.rs.StartRegions) == 0 {
		v.add(ErrNoStartRegion, "start_regions", "at least one start region is required")
		return
	}
	for i, name := range v.rs.StartRegions {
		if _, ok := v.rs.Region(name); !ok {
			v.add(ErrUndefinedStartRegion, fmt.Sprintf("start_regions[%d]", i), "undefined region %q", name)
		}
	}
}

func (v *validator) region(r *ir.Region) {
	if v.exitNames == nil {
		v.exitNames = make(map[string]string)
		v.locationNames = make(map[string]string)
	}

	for i, rule := range r.RegionRules {
		v.rule(fmt.Sprintf("regions.%s.region_rules[%d]", r.Name, i), rule)
	}

	for i, exit := range r.Exits {
		field := fmt.Sprintf("regions.%s.exits[%d]", r.Name, i)
		if exit.Name == "" {
			v.add(ErrEmptyName, field+".name", "exit name is required")
		} else if first, dup := v.exitNames[exit.Name]; dup {
			v.add(ErrDuplicateExit, field+".name", "duplicate exit name: %q (first declared in region %q)", exit.Name, first)
		} else {
			v.exitNames[exit.Name] = r.Name
		}

		if exit.ConnectedRegion != "" {
			if _, ok := v.rs.Region(exit.ConnectedRegion); !ok {
				v.add(ErrUndefinedTarget, field+".connected_region", "undefined region %q", exit.ConnectedRegion)
			}
		}
		v.rule(field+".rule", exit.Rule)
	}

	for i, loc := range r.Locations {
		field := fmt.Sprintf("regions.%s.locations[%d]", r.Name, i)
		if loc.Name == "" {
			v.add(ErrEmptyName, field+".name", "location name is required")
		} else if first, dup := v.locationNames[loc.Name]; dup {
			v.add(ErrDuplicateLocation, field+".name", "duplicate location name: %q (first declared in region %q)", loc.Name, first)
		} else {
			v.locationNames[loc.Name] = r.Name
		}

		if loc.Event && loc.Item == nil {
			v.add(ErrEventWithoutItem, field+".item", "event location %q has no item", loc.Name)
		}
		v.rule(field+".rule", loc.Rule)
	}
}

// rule reports every invalid node, unresolvable literal reference and
// unknown helper inside one rule tree.
func (v *validator) rule(field string, r ir.Rule) {
	ir.Walk(r, func(n ir.Rule) bool {
		switch node := n.(type) {
		case ir.Invalid:
			v.add(ErrMalformedRule, field, "invalid %q node: %s", node.Type, node.Reason)
		case ir.StateMethod:
			v.stateMethod(field, node)
		case ir.Helper:
			v.helper(field, node.Name)
		case ir.GroupCheck:
			if c, ok := node.Group.(ir.Constant); ok {
				if g, ok := ir.AsString(c.Value); ok {
					if _, known := v.groups[g]; !known {
						v.add(ErrUndefinedGroup, field, "undefined item group %q", g)
					}
				}
			}
		case ir.FunctionCall:
			v.call(field, node)
		}
		return true
	})
}

func (v *validator) stateMethod(field string, sm ir.StateMethod) {
	kind := ""
	switch sm.Method {
	case "can_reach":
		kind = helpers.KindRegion
		if len(sm.Args) > 1 {
			if k, ok := literalString(sm.Args[1]); ok {
				kind = k
			}
		}
	case "can_reach_region":
		kind = helpers.KindRegion
	case "can_reach_location":
		kind = helpers.KindLocation
	case "can_reach_entrance":
		kind = helpers.KindEntrance
	default:
		v.helper(field, sm.Method)
		return
	}
	if len(sm.Args) == 0 {
		return
	}
	if target, ok := literalString(sm.Args[0]); ok {
		v.reachTarget(field, target, kind)
	}
}

func (v *validator) call(field string, fc ir.FunctionCall) {
	shape := rules.Classify(fc)
	switch shape.Kind {
	case rules.ShapeUnknown:
		v.add(ErrUnknownCallShape, field, "function call matches no known shape")
	case rules.ShapeReachLookup:
		if target, ok := shape.LiteralTarget(); ok {
			v.reachTarget(field, target, shape.TargetKind)
		}
	case rules.ShapeHelper, rules.ShapeStateMethod:
		v.helper(field, shape.Name)
	}
}

func (v *validator) reachTarget(field, target, kind string) {
	var ok bool
	switch kind {
	case helpers.KindRegion:
		_, ok = v.rs.Region(target)
	case helpers.KindLocation:
		_, ok = v.rs.Location(target)
	case helpers.KindEntrance:
		_, ok = v.rs.Entrance(target)
	default:
		v.add(ErrUndefinedReach, field, "unknown reachability kind %q", kind)
		return
	}
	if !ok {
		v.add(ErrUndefinedReach, field, "undefined %s %q", kind, target)
	}
}

func (v *validator) helper(field, name string) {
	if len(v.tables) == 0 {
		return
	}
	if _, ok := v.methods.Lookup(name); ok {
		return
	}
	for _, t := range v.tables {
		if _, ok := t.Lookup(name); ok {
			return
		}
	}
	v.add(ErrUndefinedHelper, field, "undefined helper %q", name)
}

func (v *validator) progressive() {
	bases := make([]string, 0, len(v.rs.ProgressiveItems))
	for base := range v.rs.ProgressiveItems {
		bases = append(bases, base)
	}
	slices.Sort(bases)

	for _, base := range bases {
		prev := 0
		for i, tier := range v.rs.ProgressiveItems[base] {
			field := fmt.Sprintf("progressive_items.%s[%d]", base, i)
			if len(tier.Items) == 0 {
				v.add(ErrProgressiveAlias, field, "tier has no items")
			}
			if tier.Count <= prev {
				v.add(ErrProgressiveTiers, field, "tier count %d must exceed %d", tier.Count, prev)
			}
			prev = tier.Count
		}
	}
}

func literalString(r ir.Rule) (string, bool) {
	c, ok := r.(ir.Constant)
	if !ok {
		return "", false
	}
	return ir.AsString(c.Value)
}

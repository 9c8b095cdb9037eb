package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
)

// IndirectMode selects how exit rules are scanned for region dependencies.
type IndirectMode int

const (
	// IndirectStrict registers only state_method can_reach nodes with a
	// literal region argument, reached through and/or.
	IndirectStrict IndirectMode = iota

	// IndirectBroad descends into every node kind and also recognises
	// region lookups, can_reach_region methods and region rules.
	IndirectBroad
)

func (m IndirectMode) String() string {
	if m == IndirectBroad {
		return "broad"
	}
	return "strict"
}

// ParseIndirectMode parses "strict" or "broad". Empty means strict.
func ParseIndirectMode(s string) (IndirectMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return IndirectStrict, nil
	case "broad":
		return IndirectBroad, nil
	default:
		return IndirectStrict, fmt.Errorf("unknown indirect mode %q (want strict or broad)", s)
	}
}

// IndirectConnection is an exit whose rule depends on the reachability of
// some other region.
type IndirectConnection struct {
	FromRegion string
	Exit       *ir.Exit
}

// IndirectIndex maps a region to the exits that must be re-tested when it
// becomes reachable. Built once per rule-set load; read-only afterwards.
type IndirectIndex struct {
	mode IndirectMode
	deps map[string][]IndirectConnection
}

// BuildIndirectIndex scans every exit rule of rs. Dependents are listed in
// region order, then exit declaration order, without duplicates.
func BuildIndirectIndex(rs *ir.RuleSet, mode IndirectMode) *IndirectIndex {
	idx := &IndirectIndex{mode: mode, deps: make(map[string][]IndirectConnection)}
	if rs == nil {
		return idx
	}

	for _, name := range rs.RegionNames() {
		region := rs.Regions[name]
		for _, exit := range region.Exits {
			for _, target := range regionDependencies(exit.Rule, mode) {
				idx.add(target, IndirectConnection{FromRegion: name, Exit: exit})
			}
		}
	}

	if mode == IndirectBroad {
		idx.addRegionRuleDependencies(rs)
	}
	return idx
}

// addRegionRuleDependencies registers every exit entering a region whose
// region_rules depend on other regions.
func (x *IndirectIndex) addRegionRuleDependencies(rs *ir.RuleSet) {
	entering := make(map[string][]IndirectConnection)
	for _, name := range rs.RegionNames() {
		for _, exit := range rs.Regions[name].Exits {
			if exit.ConnectedRegion != "" {
				entering[exit.ConnectedRegion] = append(entering[exit.ConnectedRegion], IndirectConnection{FromRegion: name, Exit: exit})
			}
		}
	}

	for _, name := range rs.RegionNames() {
		for _, rule := range rs.Regions[name].RegionRules {
			for _, target := range regionDependencies(rule, IndirectBroad) {
				for _, conn := range entering[name] {
					x.add(target, conn)
				}
			}
		}
	}
}

func (x *IndirectIndex) add(region string, conn IndirectConnection) {
	for _, existing := range x.deps[region] {
		if existing.Exit == conn.Exit {
			return
		}
	}
	x.deps[region] = append(x.deps[region], conn)
}

// Mode returns the scan mode the index was built with.
func (x *IndirectIndex) Mode() IndirectMode {
	return x.mode
}

// Dependents returns the exits to re-test once region becomes reachable.
func (x *IndirectIndex) Dependents(region string) []IndirectConnection {
	if x == nil {
		return nil
	}
	return x.deps[region]
}

// Regions returns every region something depends on, sorted.
func (x *IndirectIndex) Regions() []string {
	if x == nil {
		return nil
	}
	out := make([]string, 0, len(x.deps))
	for r := range x.deps {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of (region, exit) registrations.
func (x *IndirectIndex) Len() int {
	if x == nil {
		return 0
	}
	n := 0
	for _, conns := range x.deps {
		n += len(conns)
	}
	return n
}

// regionDependencies returns the literal regions r's truth depends on.
func regionDependencies(r ir.Rule, mode IndirectMode) []string {
	var out []string
	if mode == IndirectStrict {
		strictScan(r, &out)
		return out
	}

	ir.Walk(r, func(n ir.Rule) bool {
		switch node := n.(type) {
		case ir.StateMethod:
			if target, ok := methodRegion(node.Method, node.Args); ok {
				out = append(out, target)
			}
		case ir.Helper:
			if target, ok := methodRegion(node.Name, node.Args); ok {
				out = append(out, target)
			}
		case ir.FunctionCall:
			shape := rules.Classify(node)
			switch shape.Kind {
			case rules.ShapeReachLookup:
				if shape.TargetKind == helpers.KindRegion {
					if target, ok := shape.LiteralTarget(); ok {
						out = append(out, target)
					}
				}
			case rules.ShapeStateMethod, rules.ShapeHelper:
				if target, ok := methodRegion(shape.Name, node.Args); ok {
					out = append(out, target)
				}
			}
		}
		return true
	})
	return out
}

// strictScan follows and/or only, matching state_method can_reach with a
// literal first argument and a kind that is absent or Region.
func strictScan(r ir.Rule, out *[]string) {
	switch node := r.(type) {
	case ir.And:
		for _, c := range node.Conditions {
			strictScan(c, out)
		}
	case ir.Or:
		for _, c := range node.Conditions {
			strictScan(c, out)
		}
	case ir.StateMethod:
		if node.Method != "can_reach" {
			return
		}
		if target, ok := methodRegion(node.Method, node.Args); ok {
			*out = append(*out, target)
		}
	}
}

// methodRegion recognises can_reach(region[, "Region"]) and
// can_reach_region(region) argument lists.
func methodRegion(method string, args []ir.Rule) (string, bool) {
	args = withoutContext(args)
	if len(args) == 0 {
		return "", false
	}
	switch method {
	case "can_reach":
		if len(args) > 1 {
			kind, ok := literalString(args[1])
			if !ok || kind != helpers.KindRegion {
				return "", false
			}
		}
	case "can_reach_region":
	default:
		return "", false
	}
	return literalString(args[0])
}

// withoutContext drops passed-through state/player names.
func withoutContext(args []ir.Rule) []ir.Rule {
	out := args[:0:0]
	for _, a := range args {
		if n, ok := a.(ir.Name); ok {
			switch n.Identifier {
			case "state", "player", "self", "world", "multiworld":
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

package rules

import (
	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
)

// ShapeKind is the closed set of recognised function_call shapes.
type ShapeKind int

const (
	// ShapeUnknown matches nothing; the call evaluates to false.
	ShapeUnknown ShapeKind = iota

	// ShapeReachLookup is get_region|get_location|get_entrance(name).can_reach(...).
	ShapeReachLookup

	// ShapeBossDefeat is any chain through can_defeat or defeat_rule.
	ShapeBossDefeat

	// ShapeStateMethod is state.<method>(...).
	ShapeStateMethod

	// ShapeHelper is any other call, dispatched to the helper table by its
	// terminal name.
	ShapeHelper
)

var shapeNames = [...]string{"unknown", "reach_lookup", "boss_defeat", "state_method", "helper"}

func (k ShapeKind) String() string {
	if int(k) < len(shapeNames) {
		return shapeNames[k]
	}
	return "unknown"
}

// Shape is the classification of one function_call node.
type Shape struct {
	Kind ShapeKind

	// Name is the method or helper name for ShapeStateMethod and ShapeHelper.
	Name string

	// Target is the lookup argument node and TargetKind its reachability
	// kind (Region, Location or Entrance) for ShapeReachLookup.
	Target     ir.Rule
	TargetKind string
}

// LiteralTarget returns the lookup target when it is a string constant.
func (s Shape) LiteralTarget() (string, bool) {
	c, ok := s.Target.(ir.Constant)
	if !ok {
		return "", false
	}
	return ir.AsString(c.Value)
}

var lookupKinds = map[string]string{
	"get_region":   helpers.KindRegion,
	"get_location": helpers.KindLocation,
	"get_entrance": helpers.KindEntrance,
}

// stateReceivers are the names that denote the collection state as a call
// receiver or as a passed-through argument.
var stateReceivers = map[string]bool{"state": true}

// contextNames are passed-through arguments helpers never see.
var contextNames = map[string]bool{
	"state":      true,
	"player":     true,
	"self":       true,
	"world":      true,
	"multiworld": true,
}

// Classify maps a function_call onto its shape. Classification is purely
// syntactic; no operand is evaluated.
func Classify(fc ir.FunctionCall) Shape {
	if touchesBossDefeat(fc.Function) {
		return Shape{Kind: ShapeBossDefeat}
	}

	switch fn := fc.Function.(type) {
	case ir.Attribute:
		if fn.Attr == "can_reach" {
			if inner, ok := fn.Object.(ir.FunctionCall); ok {
				if getter, ok := terminalName(inner.Function); ok {
					if kind, ok := lookupKinds[getter]; ok && len(inner.Args) > 0 {
						return Shape{Kind: ShapeReachLookup, Target: inner.Args[0], TargetKind: kind}
					}
				}
			}
		}
		if recv, ok := fn.Object.(ir.Name); ok && stateReceivers[recv.Identifier] {
			return Shape{Kind: ShapeStateMethod, Name: fn.Attr}
		}
		return Shape{Kind: ShapeHelper, Name: fn.Attr}

	case ir.Name:
		return Shape{Kind: ShapeHelper, Name: fn.Identifier}

	default:
		return Shape{Kind: ShapeUnknown}
	}
}

// terminalName returns the last identifier of an attribute chain or name.
func terminalName(r ir.Rule) (string, bool) {
	switch n := r.(type) {
	case ir.Name:
		return n.Identifier, true
	case ir.Attribute:
		return n.Attr, true
	default:
		return "", false
	}
}

// touchesBossDefeat walks the callee chain through attributes, calls and
// subscripts looking for a boss-defeat accessor.
func touchesBossDefeat(r ir.Rule) bool {
	for r != nil {
		switch n := r.(type) {
		case ir.Attribute:
			if isBossDefeat(n.Attr) {
				return true
			}
			r = n.Object
		case ir.Name:
			return isBossDefeat(n.Identifier)
		case ir.FunctionCall:
			r = n.Function
		case ir.Subscript:
			r = n.Value
		default:
			return false
		}
	}
	return false
}

func isBossDefeat(name string) bool {
	return name == "can_defeat" || name == "defeat_rule"
}

// helperArgs drops passed-through context names (state, player, world) so
// helpers receive only their own arguments.
func helperArgs(args []ir.Rule) []ir.Rule {
	out := make([]ir.Rule, 0, len(args))
	for _, a := range args {
		if n, ok := a.(ir.Name); ok && contextNames[n.Identifier] {
			continue
		}
		out = append(out, a)
	}
	return out
}

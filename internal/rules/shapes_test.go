package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
)

func attr(obj ir.Rule, name string) ir.Rule {
	return ir.Attribute{Object: obj, Attr: name}
}

func name(id string) ir.Rule {
	return ir.Name{Identifier: id}
}

func callOf(fn ir.Rule, args ...ir.Rule) ir.FunctionCall {
	return ir.FunctionCall{Function: fn, Args: args}
}

// regionLookup builds multiworld.get_region(target, player).can_reach(state).
func regionLookup(getter, target string) ir.FunctionCall {
	lookup := callOf(attr(name("multiworld"), getter), ir.Str(target), name("player"))
	return callOf(attr(lookup, "can_reach"), name("state"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		call ir.FunctionCall
		kind ShapeKind
		want string
	}{
		{"region lookup", regionLookup("get_region", "Tower"), ShapeReachLookup, ""},
		{"boss defeat", callOf(attr(attr(attr(name("self"), "dungeon"), "boss"), "can_defeat"), name("state")), ShapeBossDefeat, ""},
		{"defeat rule subscript", callOf(ir.Subscript{Value: attr(name("world"), "defeat_rule"), Index: ir.Num(0)}), ShapeBossDefeat, ""},
		{"state method", callOf(attr(name("state"), "has"), ir.Str("Bow"), name("player")), ShapeStateMethod, "has"},
		{"helper by name", callOf(name("can_lift"), name("state"), ir.Num(2)), ShapeHelper, "can_lift"},
		{"helper by attribute", callOf(attr(attr(name("self"), "logic"), "can_swim"), name("state")), ShapeHelper, "can_swim"},
		{"unknown", callOf(ir.Str("not a callee")), ShapeUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := Classify(tt.call)
			assert.Equal(t, tt.kind, shape.Kind, "got %s", shape.Kind)
			assert.Equal(t, tt.want, shape.Name)
		})
	}
}

func TestClassifyLookupTarget(t *testing.T) {
	shape := Classify(regionLookup("get_location", "Chest"))
	require.Equal(t, ShapeReachLookup, shape.Kind)
	assert.Equal(t, helpers.KindLocation, shape.TargetKind)

	target, ok := shape.LiteralTarget()
	assert.True(t, ok)
	assert.Equal(t, "Chest", target)

	dynamic := callOf(attr(callOf(attr(name("world"), "get_region"), name("goal")), "can_reach"), name("state"))
	shape = Classify(dynamic)
	require.Equal(t, ShapeReachLookup, shape.Kind)
	_, ok = shape.LiteralTarget()
	assert.False(t, ok)
}

func TestEvaluateCallShapes(t *testing.T) {
	reach := fakeReach{
		regions:   map[string]bool{"Tower": true},
		entrances: map[string]bool{"Menu -> Tower": true},
	}
	lifts := helpers.NewTable("Sample").Register("can_lift", func(ctx helpers.Context, args []ir.Value) (ir.Value, error) {
		level, err := helpers.IntArg(args, 0, 1)
		if err != nil {
			return nil, err
		}
		return ir.Bool(int64(ctx.Count("Progressive Glove")) >= level), nil
	})
	e, inv := newTestEvaluator(t, WithReachability(reach), WithHelpers(lifts))

	assert.True(t, e.Test(regionLookup("get_region", "Tower")))
	assert.False(t, e.Test(regionLookup("get_region", "Menu")))
	assert.True(t, e.Test(regionLookup("get_entrance", "Menu -> Tower")))

	boss := callOf(attr(attr(name("self"), "boss"), "can_defeat"), name("state"))
	assert.True(t, e.Test(boss), "boss defeat is unconditionally true")

	lift := callOf(name("can_lift"), name("state"), ir.Num(1))
	assert.False(t, e.Test(lift))
	inv.Add("Progressive Glove")
	assert.True(t, e.Test(lift), "state argument is dropped before dispatch")

	inv.Add("Bow")
	assert.True(t, e.Test(callOf(attr(name("state"), "has"), ir.Str("Bow"), name("player"))))

	assert.False(t, e.Test(callOf(ir.Num(3))))
	assert.True(t, e.Diagnostics().Has(CodeUnknownShape))

	assert.False(t, e.Test(callOf(name("can_fly"), name("state"))))
	assert.True(t, e.Diagnostics().Has(CodeMissingHelper))
}

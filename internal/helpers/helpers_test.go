package helpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/ir"
)

// fakeContext is a map-backed Context for helper tests.
type fakeContext struct {
	items     map[string]int
	groups    map[string]int
	members   map[string][]string
	flags     map[string]bool
	settings  ir.Object
	regions   map[string]bool
	locations map[string]bool
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		items:     map[string]int{},
		groups:    map[string]int{},
		members:   map[string][]string{},
		flags:     map[string]bool{},
		settings:  ir.Object{},
		regions:   map[string]bool{},
		locations: map[string]bool{},
	}
}

func (f *fakeContext) Has(item string) bool          { return f.items[item] > 0 }
func (f *fakeContext) Count(item string) int         { return f.items[item] }
func (f *fakeContext) CountGroup(group string) int   { return f.groups[group] }
func (f *fakeContext) GroupMembers(g string) []string { return f.members[g] }
func (f *fakeContext) Flag(name string) bool         { return f.flags[name] }
func (f *fakeContext) CanReachRegion(n string) bool  { return f.regions[n] }
func (f *fakeContext) CanReachLocation(string) bool  { return false }
func (f *fakeContext) CanReachEntrance(string) bool  { return false }
func (f *fakeContext) Player() int64                 { return 1 }
func (f *fakeContext) Setting(name string) (ir.Value, bool) {
	v, ok := f.settings[name]
	return v, ok
}

func call(t *testing.T, table *Table, name string, ctx Context, args ...ir.Value) ir.Value {
	t.Helper()
	fn, ok := table.Lookup(name)
	require.True(t, ok, "helper %s not registered", name)
	v, err := fn(ctx, args)
	require.NoError(t, err)
	return v
}

func TestStateMethodsHas(t *testing.T) {
	ctx := newFakeContext()
	ctx.items["Arrow"] = 3
	sm := StateMethods()

	assert.Equal(t, ir.True, call(t, sm, "has", ctx, ir.String("Arrow")))
	assert.Equal(t, ir.False, call(t, sm, "has", ctx, ir.String("Bomb")))
	assert.Equal(t, ir.True, call(t, sm, "has", ctx, ir.String("Arrow"), ir.Number(3)), "threshold is inclusive")
	assert.Equal(t, ir.False, call(t, sm, "has", ctx, ir.String("Arrow"), ir.Number(4)))
	assert.Equal(t, ir.True, call(t, sm, "has", ctx, ir.String("Arrow"), ir.Number(1), ir.Number(2)), "player then count")
	assert.Equal(t, ir.True, call(t, sm, "has", ctx, ir.String("Bomb"), ir.Number(0)))
}

func TestStateMethodsLists(t *testing.T) {
	ctx := newFakeContext()
	ctx.items["A"] = 1
	ctx.items["B"] = 2
	sm := StateMethods()

	both := ir.List{ir.String("A"), ir.String("B")}
	withC := ir.List{ir.String("A"), ir.String("C")}

	assert.Equal(t, ir.True, call(t, sm, "has_all", ctx, both))
	assert.Equal(t, ir.False, call(t, sm, "has_all", ctx, withC))
	assert.Equal(t, ir.True, call(t, sm, "has_any", ctx, withC))
	assert.Equal(t, ir.False, call(t, sm, "has_any", ctx, ir.List{ir.String("C")}))
	assert.Equal(t, ir.True, call(t, sm, "has_all", ctx, ir.List{}), "empty list is vacuously held")

	assert.Equal(t, ir.True, call(t, sm, "has_from_list", ctx, both, ir.Number(3)))
	assert.Equal(t, ir.False, call(t, sm, "has_from_list", ctx, both, ir.Number(4)))

	assert.Equal(t, ir.True, call(t, sm, "has_all_counts", ctx, ir.Object{"A": ir.Number(1), "B": ir.Number(2)}))
	assert.Equal(t, ir.False, call(t, sm, "has_all_counts", ctx, ir.Object{"A": ir.Number(2)}))
	assert.Equal(t, ir.True, call(t, sm, "has_any_count", ctx, ir.Object{"A": ir.Number(2), "B": ir.Number(2)}))
}

func TestStateMethodsGroupsAndCounts(t *testing.T) {
	ctx := newFakeContext()
	ctx.items["Heart"] = 4
	ctx.groups["Swords"] = 2
	sm := StateMethods()

	assert.Equal(t, ir.Number(4), call(t, sm, "count", ctx, ir.String("Heart")))
	assert.Equal(t, ir.Number(2), call(t, sm, "count_group", ctx, ir.String("Swords")))
	assert.Equal(t, ir.True, call(t, sm, "has_group", ctx, ir.String("Swords"), ir.Number(2)))
	assert.Equal(t, ir.False, call(t, sm, "has_group", ctx, ir.String("Swords"), ir.Number(3)))
}

func TestStateMethodsHasGroupUnique(t *testing.T) {
	ctx := newFakeContext()
	ctx.items["Heart"] = 4
	ctx.items["Bow"] = 1
	ctx.members["Gear"] = []string{"Bow", "Heart", "Shield"}
	sm := StateMethods()

	assert.Equal(t, ir.True, call(t, sm, "has_group_unique", ctx, ir.String("Gear"), ir.Number(2)))
	assert.Equal(t, ir.False, call(t, sm, "has_group_unique", ctx, ir.String("Gear"), ir.Number(3)), "four hearts count once")
	assert.Equal(t, ir.True, call(t, sm, "has_group_unique", ctx, ir.String("Gear")), "count defaults to 1")
	assert.Equal(t, ir.False, call(t, sm, "has_group_unique", ctx, ir.String("Unknown")))

	fn, ok := sm.Lookup("has_group_unique")
	require.True(t, ok)
	_, err := fn(ctx, []ir.Value{ir.List{ir.String("Bow")}})
	assert.Error(t, err, "the group is named, not listed")
}

func TestStateMethodsCanReach(t *testing.T) {
	ctx := newFakeContext()
	ctx.regions["Tower"] = true
	sm := StateMethods()

	assert.Equal(t, ir.True, call(t, sm, "can_reach", ctx, ir.String("Tower")), "kind defaults to Region")
	assert.Equal(t, ir.True, call(t, sm, "can_reach", ctx, ir.String("Tower"), ir.String("Region")))
	assert.Equal(t, ir.False, call(t, sm, "can_reach", ctx, ir.String("Tower"), ir.String("Location")))
	assert.Equal(t, ir.True, call(t, sm, "can_reach_region", ctx, ir.String("Tower")))

	fn, _ := sm.Lookup("can_reach")
	_, err := fn(ctx, []ir.Value{ir.String("Tower"), ir.String("Galaxy")})
	assert.Error(t, err)
}

func TestStateMethodsArgErrors(t *testing.T) {
	ctx := newFakeContext()
	sm := StateMethods()

	fn, _ := sm.Lookup("has")
	_, err := fn(ctx, nil)
	assert.Error(t, err)

	_, err = fn(ctx, []ir.Value{ir.Number(3)})
	assert.Error(t, err)

	fn, _ = sm.Lookup("has_all_counts")
	_, err = fn(ctx, []ir.Value{ir.Object{"A": ir.String("x")}})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewTable("Zelda").Register("a", stateCount))
	reg.Register(NewTable("Zelda").Register("b", stateCount))
	reg.Register(NewTable("Metroid"))

	assert.Equal(t, []string{"Metroid", "Zelda"}, reg.Games())
	assert.Equal(t, []string{"a", "b"}, reg.For("Zelda").Names(), "same game tables merge")
	assert.Equal(t, 0, reg.For("Unknown").Len())

	var nilTable *Table
	_, ok := nilTable.Lookup("a")
	assert.False(t, ok)
}

const liftScript = `
game = "Sample"
helpers = {}

function helpers.can_lift(state, level)
  return state.count("Progressive Glove") >= level
end

function helpers.tower_open(state)
  return state.can_reach("Tower") and state.flag("open")
end

function helpers.goal(state)
  return state.setting("goal")
end

function helpers.costs(state)
  return {3, 5}
end

function helpers.broken(state)
  error("boom")
end
`

func TestLoadLua(t *testing.T) {
	table, err := LoadLua("sample.lua", liftScript)
	require.NoError(t, err)
	assert.Equal(t, "Sample", table.Game())
	assert.Equal(t, []string{"broken", "can_lift", "costs", "goal", "tower_open"}, table.Names())

	ctx := newFakeContext()
	ctx.items["Progressive Glove"] = 1
	ctx.settings["goal"] = ir.String("ganon")

	assert.Equal(t, ir.True, call(t, table, "can_lift", ctx, ir.Number(1)))
	assert.Equal(t, ir.False, call(t, table, "can_lift", ctx, ir.Number(2)))
	assert.Equal(t, ir.False, call(t, table, "tower_open", ctx))

	ctx.regions["Tower"] = true
	ctx.flags["open"] = true
	assert.Equal(t, ir.True, call(t, table, "tower_open", ctx))

	assert.Equal(t, ir.String("ganon"), call(t, table, "goal", ctx))
	assert.Equal(t, ir.List{ir.Number(3), ir.Number(5)}, call(t, table, "costs", ctx))

	fn, _ := table.Lookup("broken")
	_, err = fn(ctx, nil)
	assert.Error(t, err)
}

func TestLoadLuaRequiresGame(t *testing.T) {
	_, err := LoadLua("bad.lua", `helpers = {}`)
	assert.Error(t, err)

	_, err = LoadLua("bad.lua", `game = "X"`)
	assert.Error(t, err)

	_, err = LoadLua("bad.lua", `game = `)
	assert.Error(t, err)
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.lua"), []byte(liftScript), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg := NewRegistry()
	require.NoError(t, reg.LoadDir(dir))
	assert.Equal(t, []string{"Sample"}, reg.Games())

	require.NoError(t, NewRegistry().LoadDir(filepath.Join(dir, "missing")))
}

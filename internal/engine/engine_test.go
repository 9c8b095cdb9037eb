package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/inventory"
	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
)

const sampleWorld = `{
  "game": "Sample",
  "player": 1,
  "start_regions": ["Menu"],
  "regions": {
    "Menu": {
      "exits": [{"name": "Menu -> Field", "connected_region": "Field"}],
      "locations": [{"name": "Starting Chest", "item": "Sword"}]
    },
    "Field": {
      "exits": [{"name": "Field -> Castle", "connected_region": "Castle",
                 "rule": {"type": "item_check", "item": "Sword"}}]
    },
    "Castle": {
      "locations": [{"name": "Defeat Boss", "event": true, "item": "Victory",
                     "rule": {"type": "count_check", "item": "Heart", "count": 3}}]
    }
  },
  "items": {"Sword": {"progression": true}, "Heart": {}, "Victory": {}}
}`

// A -> B -> C where B -> C needs D, and D is reached through E.
const indirectWorld = `{
  "game": "Indirect",
  "start_regions": ["A"],
  "regions": {
    "A": {"exits": [{"name": "A -> B", "connected_region": "B"},
                    {"name": "A -> E", "connected_region": "E"}]},
    "B": {"exits": [{"name": "B -> C", "connected_region": "C",
                     "rule": %s}]},
    "C": {},
    "D": {},
    "E": {"exits": [{"name": "E -> D", "connected_region": "D"}]}
  }
}`

// The gate opens only after an event in the start region fires.
const eventWorld = `{
  "game": "Events",
  "player": 1,
  "start_regions": ["Menu"],
  "regions": {
    "Menu": {
      "exits": [{"name": "Menu -> Gate", "connected_region": "Gate",
                 "rule": {"type": "item_check", "item": "Lever Pulled"}}],
      "locations": [{"name": "Pull Lever", "event": true, "item": "Lever Pulled"}]
    },
    "Gate": {
      "locations": [{"name": "Defeat Boss", "event": true, "item": "Victory"}]
    }
  },
  "items": {"Lever Pulled": {}, "Victory": {}}
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func decode(t *testing.T, src string) *ir.RuleSet {
	t.Helper()
	rs, err := ir.DecodeRuleSet([]byte(src))
	require.NoError(t, err)
	return rs
}

func newTestEngine(t *testing.T, src string, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(decode(t, src), opts...)
}

func indirectSrc(rule string) string {
	return fmt.Sprintf(indirectWorld, rule)
}

func TestEngine_New(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	assert.NotNil(t, e.RuleSet())
	assert.NotNil(t, e.Inventory())
	assert.NotNil(t, e.Evaluator())
	assert.Equal(t, "idle", e.Phase().String())
	assert.Equal(t, DefaultMaxPasses, e.maxPasses)
	assert.False(t, e.InBatch())
}

func TestEngine_SampleWorld(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	assert.Equal(t, []string{"Field", "Menu"}, e.ComputeReachableRegions())
	assert.True(t, e.IsRegionReachable("Field"))
	assert.False(t, e.IsRegionReachable("Castle"))
	assert.True(t, e.IsLocationAccessible("Starting Chest"))
	assert.False(t, e.IsLocationAccessible("Defeat Boss"))
	assert.True(t, e.IsEntranceReachable("Menu -> Field"))
	assert.False(t, e.IsEntranceReachable("Field -> Castle"))

	e.AddItem("Sword")
	assert.Equal(t, []string{"Castle", "Field", "Menu"}, e.ComputeReachableRegions())
	assert.True(t, e.IsEntranceReachable("Field -> Castle"))
	assert.False(t, e.IsLocationAccessible("Defeat Boss"), "boss needs three hearts")

	e.AddItem("Heart")
	e.AddItem("Heart")
	e.AddItem("Heart")
	r := e.Result()
	assert.True(t, r.IsAccessible("Defeat Boss"))
	assert.Equal(t, []string{"Victory"}, r.Collected)
	assert.True(t, e.Inventory().Has("Victory"))
	assert.Equal(t, []string{"Defeat Boss"}, e.CheckedLocations())
}

func TestEngine_Monotonicity(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	var prev []string
	for _, item := range []string{"", "Heart", "Sword", "Heart", "Heart"} {
		if item != "" {
			e.AddItem(item)
		}
		got := e.ComputeReachableRegions()
		assert.Subset(t, got, prev, "adding %q must not shrink the reachable set", item)
		prev = got
	}
}

func TestEngine_Idempotence(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	first := e.Result()
	second := e.Result()
	assert.Same(t, first, second, "unchanged inventory reuses the cached result")
	assert.Equal(t, int64(1), second.Generation)
	assert.Equal(t, "done", e.Phase().String())

	e.InvalidateCache()
	third := e.Result()
	assert.Equal(t, first.Reachable, third.Reachable)
	assert.Equal(t, int64(2), third.Generation)

	h1, err := first.Hash()
	require.NoError(t, err)
	h3, err := third.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
}

func TestEngine_StalePhaseReadsIdle(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	e.Result()
	assert.IsType(t, Done{}, e.Phase())
	e.AddItem("Heart")
	assert.IsType(t, Idle{}, e.Phase())
}

func TestEngine_VacuousTruth(t *testing.T) {
	e := newTestEngine(t, `{
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [
	      {"name": "open", "connected_region": "Open"},
	      {"name": "all", "connected_region": "All", "rule": {"type": "and", "conditions": []}},
	      {"name": "any", "connected_region": "Any", "rule": {"type": "or", "conditions": []}}
	    ]},
	    "Open": {}, "All": {}, "Any": {}
	  }
	}`)

	assert.Equal(t, []string{"All", "Menu", "Open"}, e.ComputeReachableRegions())
	assert.Equal(t, []string{"Any"}, e.Result().Unreachable)
}

func TestEngine_ProgressiveTiers(t *testing.T) {
	e := newTestEngine(t, `{
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [{"name": "Menu -> Tower", "connected_region": "Tower",
	                        "rule": {"type": "item_check", "item": "Master Sword"}}]},
	    "Tower": {}
	  },
	  "progressive_items": {"Progressive Sword": ["Fighter Sword", "Master Sword"]}
	}`)

	e.AddItem("Progressive Sword")
	assert.False(t, e.IsRegionReachable("Tower"), "first tier only")

	e.AddItem("Progressive Sword")
	assert.True(t, e.IsRegionReachable("Tower"))
}

func TestEngine_RegionRules(t *testing.T) {
	e := newTestEngine(t, `{
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [{"name": "Menu -> Vault", "connected_region": "Vault"}]},
	    "Vault": {"region_rules": [{"type": "item_check", "item": "Key"}]}
	  }
	}`)

	assert.False(t, e.IsRegionReachable("Vault"), "region rules gate every entrance")
	assert.False(t, e.IsEntranceReachable("Menu -> Vault"))

	e.AddItem("Key")
	assert.True(t, e.IsRegionReachable("Vault"))
	assert.True(t, e.IsEntranceReachable("Menu -> Vault"))
}

func TestEngine_ShortCircuit(t *testing.T) {
	calls := 0
	table := helpers.NewTable("Counting").Register("count_me", func(helpers.Context, []ir.Value) (ir.Value, error) {
		calls++
		return ir.True, nil
	})
	e := newTestEngine(t, `{
	  "game": "Counting",
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [
	      {"name": "or", "connected_region": "X", "rule": {"type": "or", "conditions": [
	        {"type": "constant", "value": true}, {"type": "helper", "name": "count_me"}]}},
	      {"name": "and", "connected_region": "Y", "rule": {"type": "and", "conditions": [
	        {"type": "constant", "value": false}, {"type": "helper", "name": "count_me"}]}}
	    ]},
	    "X": {}, "Y": {}
	  }
	}`, WithHelpers(table))

	assert.True(t, e.IsRegionReachable("X"))
	assert.False(t, e.IsRegionReachable("Y"))
	assert.Zero(t, calls, "short-circuited operands are never evaluated")
}

func TestEngine_IndirectDependency(t *testing.T) {
	tracked := `{"type": "state_method", "method": "can_reach", "args": ["D", "Region", {"type": "name", "name": "player"}]}`
	untracked := `{"type": "helper", "name": "can_reach_region", "args": ["D"]}`

	tests := []struct {
		name   string
		rule   string
		mode   compiler.IndirectMode
		passes int
	}{
		{"tracked strict", tracked, compiler.IndirectStrict, 2},
		{"tracked broad", tracked, compiler.IndirectBroad, 2},
		{"untracked strict", untracked, compiler.IndirectStrict, 3},
		{"untracked broad", untracked, compiler.IndirectBroad, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, indirectSrc(tt.rule), WithIndirectMode(tt.mode))

			r := e.Result()
			assert.Equal(t, []string{"A", "B", "C", "D", "E"}, r.Reachable)
			assert.Empty(t, r.Unreachable)
			assert.True(t, r.Converged)
			assert.Equal(t, tt.passes, r.Passes)

			hops, err := e.GetPathToRegion("C")
			require.NoError(t, err)
			assert.Equal(t, []Hop{
				{From: "A", Entrance: "A -> B", To: "B"},
				{From: "B", Entrance: "B -> C", To: "C"},
			}, hops)
		})
	}
}

func TestEngine_IndirectIndexBuilt(t *testing.T) {
	tracked := `{"type": "state_method", "method": "can_reach", "args": ["D"]}`
	e := newTestEngine(t, indirectSrc(tracked))

	deps := e.Index().Dependents("D")
	require.Len(t, deps, 1)
	assert.Equal(t, "B", deps[0].FromRegion)
	assert.Equal(t, "B -> C", deps[0].Exit.Name)
}

func TestEngine_EventConvergence(t *testing.T) {
	e := newTestEngine(t, eventWorld)

	r := e.Result()
	assert.True(t, r.Converged)
	assert.Equal(t, 3, r.Passes)
	assert.Equal(t, []string{"Gate", "Menu"}, r.Reachable)
	assert.Equal(t, []string{"Lever Pulled", "Victory"}, r.Collected)
	assert.Equal(t, []string{"Defeat Boss", "Pull Lever"}, e.CheckedLocations())
	assert.Equal(t, 1, e.Inventory().Count("Lever Pulled"), "events are collected once")
	assert.NoError(t, r.Err())
}

func TestEngine_EventsSkipHeldAndForeignItems(t *testing.T) {
	e := newTestEngine(t, `{
	  "player": 1,
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"locations": [
	      {"name": "Mine", "event": true, "item": "Relic"},
	      {"name": "Theirs", "event": true, "item": {"name": "Trophy", "player": 2}},
	      {"name": "Empty", "event": true}
	    ]}
	  }
	}`)
	e.AddItem("Relic")

	r := e.Result()
	assert.Empty(t, r.Collected)
	assert.Equal(t, 1, e.Inventory().Count("Relic"))
	assert.False(t, e.Inventory().Has("Trophy"))
	assert.Equal(t, []string{"Empty", "Mine", "Theirs"}, e.CheckedLocations())
}

func TestEngine_NonConvergence(t *testing.T) {
	e := newTestEngine(t, eventWorld, WithMaxPasses(1))

	r := e.Result()
	assert.False(t, r.Converged)
	assert.Equal(t, 1, r.Passes)
	assert.Equal(t, []string{"Menu"}, r.Reachable)

	err := r.Err()
	require.Error(t, err)
	assert.True(t, IsNonConvergenceError(err))
	assert.Contains(t, err.Error(), "limit 1")
	assert.True(t, e.Diagnostics().Has(rules.CodeNonConvergence))
}

func TestEngine_UndefinedStartRegion(t *testing.T) {
	e := newTestEngine(t, `{
	  "start_regions": ["Menu", "Nowhere"],
	  "regions": {"Menu": {}}
	}`)

	r := e.Result()
	assert.Equal(t, []string{"Menu"}, r.Reachable)
	require.NotEmpty(t, r.Diagnostics)
	assert.Equal(t, rules.CodeMissingEntity, r.Diagnostics[0].Code)
	assert.Equal(t, "region:Nowhere", r.Diagnostics[0].Subject)
}

func TestEngine_UndefinedQueries(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	assert.False(t, e.IsRegionReachable("Moon"))
	assert.False(t, e.IsLocationAccessible("Moon Chest"))
	assert.False(t, e.IsEntranceReachable("Moon Gate"))
	assert.True(t, e.Diagnostics().Has(rules.CodeMissingEntity))
}

func TestEngine_GetPathToRegion(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	t.Run("start region", func(t *testing.T) {
		hops, err := e.GetPathToRegion("Menu")
		require.NoError(t, err)
		assert.Empty(t, hops)
		assert.NotNil(t, hops)
	})

	t.Run("unreached", func(t *testing.T) {
		_, err := e.GetPathToRegion("Castle")
		require.Error(t, err)
		assert.True(t, IsUnreachableError(err))
	})

	t.Run("undefined", func(t *testing.T) {
		_, err := e.GetPathToRegion("Moon")
		require.Error(t, err)
		assert.True(t, IsMissingEntityError(err))
	})

	t.Run("witness", func(t *testing.T) {
		e.AddItem("Sword")
		hops, err := e.GetPathToRegion("Castle")
		require.NoError(t, err)
		assert.Equal(t, []Hop{
			{From: "Menu", Entrance: "Menu -> Field", To: "Field"},
			{From: "Field", Entrance: "Field -> Castle", To: "Castle"},
		}, hops)
	})
}

func TestEngine_Flags(t *testing.T) {
	e := newTestEngine(t, `{
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [{"name": "Menu -> Dock", "connected_region": "Dock",
	                        "rule": {"type": "state_flag", "flag": "ferry"}}]},
	    "Dock": {}
	  },
	  "flags": {"ferry": false}
	}`)

	assert.False(t, e.IsRegionReachable("Dock"))
	gen := e.Result().Generation

	e.SetFlag("ferry", false)
	assert.Equal(t, gen, e.Result().Generation, "unchanged flag keeps the cache")

	e.SetFlag("ferry", true)
	assert.True(t, e.IsRegionReachable("Dock"))
	assert.Equal(t, gen+1, e.Result().Generation)
}

func TestEngine_Batch(t *testing.T) {
	e := newTestEngine(t, sampleWorld)
	before := e.Result()

	e.BeginBatch()
	e.BeginBatch()
	e.AddItem("Sword")
	assert.Same(t, before, e.Result(), "batched queries read the last stable result")
	assert.False(t, e.IsRegionReachable("Castle"))

	require.NoError(t, e.Commit())
	assert.True(t, e.InBatch())
	assert.False(t, e.IsRegionReachable("Castle"), "inner commit does not recompute")

	require.NoError(t, e.Commit())
	assert.False(t, e.InBatch())
	assert.True(t, e.IsRegionReachable("Castle"))
	assert.Equal(t, before.Generation+1, e.Result().Generation)
}

func TestEngine_CommitWithoutBegin(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	err := e.Commit()
	require.Error(t, err)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeBatchState, re.Code)
}

func TestEngine_BatchWithoutPriorResultComputes(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	e.BeginBatch()
	assert.True(t, e.IsRegionReachable("Field"))
	require.NoError(t, e.Commit())
}

func TestEngine_ReentrantQueries(t *testing.T) {
	var (
		e        *Engine
		seen     [][]string
		inflight []*Result
	)
	table := helpers.NewTable("Peek").Register("peek", func(helpers.Context, []ir.Value) (ir.Value, error) {
		seen = append(seen, e.ComputeReachableRegions())
		inflight = append(inflight, e.Result())
		assert.Equal(t, "computing", e.Phase().String())
		return ir.True, nil
	})
	e = newTestEngine(t, `{
	  "game": "Peek",
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [{"name": "Menu -> Hall", "connected_region": "Hall",
	                        "rule": {"type": "helper", "name": "peek"}}]},
	    "Hall": {}
	  }
	}`, WithHelpers(table))

	r := e.Result()
	assert.Equal(t, []string{"Hall", "Menu"}, r.Reachable)
	require.NotEmpty(t, seen)
	assert.Equal(t, []string{"Menu"}, seen[0], "nested queries read the working set")
	assert.Nil(t, inflight[0], "no stable result exists during the first compute")
	assert.Equal(t, int64(1), r.Generation, "nested queries never start a compute")
}

func TestEngine_LuaHelperReentersItself(t *testing.T) {
	table, err := helpers.LoadLua("nested.lua", `
game = "Nested"
helpers = {}
function helpers.gate(state, x)
  if x == 1 then
    return state.can_reach("Chest", "Location") and state.has("Key")
  end
  return true
end
`)
	require.NoError(t, err)

	e := newTestEngine(t, `{
	  "game": "Nested",
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {
	      "exits": [{"name": "Menu -> Far", "connected_region": "Far",
	                 "rule": {"type": "helper", "name": "gate", "args": [1]}}],
	      "locations": [{"name": "Chest", "rule": {"type": "helper", "name": "gate", "args": [2]}}]
	    },
	    "Far": {}
	  },
	  "items": {"Key": {}}
	}`, WithHelpers(table))
	e.AddItem("Key")

	r := e.Result()
	assert.Equal(t, []string{"Far", "Menu"}, r.Reachable, "the outer call keeps its state after the nested call returns")
	assert.Empty(t, r.Diagnostics)
}

func TestEngine_SelfReferenceTerminates(t *testing.T) {
	e := newTestEngine(t, `{
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {
	      "exits": [{"name": "loop", "connected_region": "Far",
	                 "rule": {"type": "state_method", "method": "can_reach", "args": ["loop", "Entrance"]}}],
	      "locations": [{"name": "Mirror",
	                     "rule": {"type": "state_method", "method": "can_reach", "args": ["Mirror", "Location"]}}]
	    },
	    "Far": {}
	  }
	}`)

	r := e.Result()
	assert.Equal(t, []string{"Menu"}, r.Reachable)
	assert.False(t, r.IsAccessible("Mirror"))
}

func TestEngine_SinkEvents(t *testing.T) {
	var events []Event
	e := newTestEngine(t, sampleWorld, WithSink(SinkFunc(func(ev Event) {
		events = append(events, ev)
	})))

	e.Result()
	require.Len(t, events, 5)
	assert.Equal(t, Event{Seq: 1, Kind: EventRegionDiscovered, Name: "Field", Region: "Field", Generation: 1}, events[0])
	assert.Equal(t, Event{Seq: 2, Kind: EventRegionDiscovered, Name: "Menu", Region: "Menu", Generation: 1}, events[1])
	assert.Equal(t, Event{Seq: 3, Kind: EventExitDiscovered, Name: "Menu -> Field", Region: "Menu", Generation: 1}, events[2])
	assert.Equal(t, Event{Seq: 4, Kind: EventLocationAccessible, Name: "Starting Chest", Region: "Menu", Generation: 1}, events[3])
	assert.Equal(t, EventComputeFinished, events[4].Kind)

	events = nil
	e.AddItem("Sword")
	e.AddItem("Heart")
	e.AddItem("Heart")
	e.AddItem("Heart")
	e.Result()

	var kinds []EventKind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{
		EventRegionDiscovered,
		EventExitDiscovered,
		EventLocationAccessible,
		EventItemCollected,
		EventComputeFinished,
	}, kinds, "only new facts are reported")
	assert.Equal(t, "Victory", events[3].Name)
	assert.Equal(t, "Castle", events[3].Region)
	assert.Equal(t, "Defeat Boss", events[3].Location)
	assert.Equal(t, int64(6), events[0].Seq)
}

func TestEngine_SinkMayQuery(t *testing.T) {
	var e *Engine
	var answers []bool
	e = newTestEngine(t, sampleWorld, WithSink(SinkFunc(func(ev Event) {
		if ev.Kind == EventComputeFinished {
			answers = append(answers, e.IsRegionReachable("Field"))
		}
	})))

	e.Result()
	assert.Equal(t, []bool{true}, answers)
	assert.Equal(t, int64(1), e.Result().Generation)
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := newTestEngine(t, eventWorld, WithMetrics(m))

	e.Result()
	e.Result()
	e.IsRegionReachable("Gate")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComputesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReachableRegions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsCollectedTotal))
	assert.Zero(t, testutil.ToFloat64(m.NonConvergenceTotal))
}

func TestEngine_MetricsNonConvergence(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := newTestEngine(t, eventWorld, WithMetrics(m), WithMaxPasses(1))

	e.Result()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NonConvergenceTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues(string(rules.CodeNonConvergence))))
}

func TestEngine_InjectedInventory(t *testing.T) {
	rs := decode(t, sampleWorld)
	inv := inventory.FromRuleSet(rs)
	inv.Add("Sword")

	e := New(rs, WithInventory(inv), WithLogger(quietLogger()))
	assert.True(t, e.IsRegionReachable("Castle"))
	assert.Same(t, inv, e.Inventory())
}

func TestEngine_Reload(t *testing.T) {
	e := newTestEngine(t, eventWorld)
	e.AddItem("Heart")
	e.AddItem("Heart")
	e.Result()
	require.NotEmpty(t, e.CheckedLocations())

	e.Reload(decode(t, sampleWorld))

	assert.IsType(t, Idle{}, e.Phase())
	assert.Empty(t, e.CheckedLocations())
	assert.Equal(t, 2, e.Inventory().Count("Heart"), "held counts survive a reload")
	assert.True(t, e.Inventory().Has("Lever Pulled"))
	assert.Equal(t, []string{"Field", "Menu"}, e.ComputeReachableRegions())
	assert.Equal(t, "Sample", e.RuleSet().Game)
}

func TestEngine_AccessibleLocations(t *testing.T) {
	e := newTestEngine(t, sampleWorld)

	assert.Equal(t, []string{"Starting Chest"}, e.AccessibleLocations())

	e.AddItem("Sword")
	for range 3 {
		e.AddItem("Heart")
	}
	assert.Equal(t, []string{"Defeat Boss", "Starting Chest"}, e.AccessibleLocations(), "region order")
}

func TestEngine_InvalidateIgnoredDuringCompute(t *testing.T) {
	var e *Engine
	table := helpers.NewTable("Poke").Register("poke", func(helpers.Context, []ir.Value) (ir.Value, error) {
		e.InvalidateCache()
		return ir.True, nil
	})
	e = newTestEngine(t, `{
	  "game": "Poke",
	  "start_regions": ["Menu"],
	  "regions": {
	    "Menu": {"exits": [{"name": "Menu -> Hall", "connected_region": "Hall",
	                        "rule": {"type": "helper", "name": "poke"}}]},
	    "Hall": {}
	  }
	}`, WithHelpers(table))

	r := e.Result()
	assert.IsType(t, Done{}, e.Phase())
	assert.Same(t, r, e.Result())
}

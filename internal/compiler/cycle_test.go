package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reach/internal/ir"
)

func buildIndex(t *testing.T, src string) *IndirectIndex {
	t.Helper()
	rs, err := ir.DecodeRuleSet([]byte(src))
	require.NoError(t, err)
	return BuildIndirectIndex(rs, IndirectStrict)
}

// TestAnalyzeIndirectCycles_Empty tests that no dependencies produce no warnings.
func TestAnalyzeIndirectCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeIndirectCycles(nil))
	idx := buildIndex(t, `{"start_regions": ["A"], "regions": {"A": {"exits": [{"name": "a", "connected_region": "B"}]}, "B": {}}}`)
	assert.Empty(t, AnalyzeIndirectCycles(idx))
}

// TestAnalyzeIndirectCycles_DAG tests that a chain of dependencies is not a cycle.
func TestAnalyzeIndirectCycles_DAG(t *testing.T) {
	idx := buildIndex(t, `{
	  "start_regions": ["A"],
	  "regions": {
	    "A": {"exits": [
	      {"name": "A -> B", "connected_region": "B", "rule": {"type": "state_method", "method": "can_reach", "args": ["C"]}},
	      {"name": "A -> C", "connected_region": "C", "rule": {"type": "state_method", "method": "can_reach", "args": ["D"]}}
	    ]},
	    "B": {}, "C": {}, "D": {}
	  }
	}`)
	assert.Empty(t, AnalyzeIndirectCycles(idx))
}

// TestAnalyzeIndirectCycles_Mutual tests two regions that each open the other.
func TestAnalyzeIndirectCycles_Mutual(t *testing.T) {
	idx := buildIndex(t, `{
	  "start_regions": ["Hub"],
	  "regions": {
	    "Hub": {"exits": [
	      {"name": "Hub -> North", "connected_region": "North", "rule": {"type": "state_method", "method": "can_reach", "args": ["South"]}},
	      {"name": "Hub -> South", "connected_region": "South", "rule": {"type": "state_method", "method": "can_reach", "args": ["North"]}}
	    ]},
	    "North": {}, "South": {}
	  }
	}`)

	warnings := AnalyzeIndirectCycles(idx)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"North", "South", "North"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, "Indirect dependency cycle: North → South → North", warnings[0].Message)
}

// TestAnalyzeIndirectCycles_SelfLoop tests an exit gated on its own target.
func TestAnalyzeIndirectCycles_SelfLoop(t *testing.T) {
	idx := buildIndex(t, `{
	  "start_regions": ["A"],
	  "regions": {
	    "A": {"exits": [{"name": "A -> B", "connected_region": "B", "rule": {"type": "state_method", "method": "can_reach", "args": ["B"]}}]},
	    "B": {}
	  }
	}`)

	warnings := AnalyzeIndirectCycles(idx)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"B", "B"}, warnings[0].Path)
}

// TestAnalyzeIndirectCycles_Deterministic tests that repeated runs agree.
func TestAnalyzeIndirectCycles_Deterministic(t *testing.T) {
	src := `{
	  "start_regions": ["Z"],
	  "regions": {
	    "Z": {"exits": [
	      {"name": "1", "connected_region": "B", "rule": {"type": "state_method", "method": "can_reach", "args": ["A"]}},
	      {"name": "2", "connected_region": "A", "rule": {"type": "state_method", "method": "can_reach", "args": ["B"]}},
	      {"name": "3", "connected_region": "D", "rule": {"type": "state_method", "method": "can_reach", "args": ["C"]}},
	      {"name": "4", "connected_region": "C", "rule": {"type": "state_method", "method": "can_reach", "args": ["D"]}}
	    ]},
	    "A": {}, "B": {}, "C": {}, "D": {}
	  }
	}`
	first := AnalyzeIndirectCycles(buildIndex(t, src))
	require.Len(t, first, 2)
	assert.Equal(t, "A", first[0].Path[0])
	assert.Equal(t, "C", first[1].Path[0])

	for range 10 {
		assert.Equal(t, first, AnalyzeIndirectCycles(buildIndex(t, src)))
	}
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_NilSafe(t *testing.T) {
	var r *Result

	assert.False(t, r.IsReachable("Menu"))
	assert.False(t, r.IsAccessible("Chest"))
	assert.False(t, r.IsTraversable("Menu -> Field"))
	assert.NoError(t, r.Err())

	_, ok := r.Path("Menu")
	assert.False(t, ok)
}

func TestResult_HashIgnoresOrder(t *testing.T) {
	a := &Result{Reachable: []string{"Field", "Menu"}}
	b := &Result{Reachable: []string{"Menu", "Field"}}
	c := &Result{Reachable: []string{"Menu"}}

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	hc, err := c.Hash()
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
}

func TestWalkPath_BreaksCycles(t *testing.T) {
	paths := map[string]Hop{
		"B": {From: "A", Entrance: "A -> B", To: "B"},
		"A": {From: "B", Entrance: "B -> A", To: "A"},
	}

	hops := walkPath(paths, "B")
	assert.Len(t, hops, 2)
}

func TestResult_ToValue(t *testing.T) {
	e := newTestEngine(t, sampleWorld)
	e.AddItem("Sword")

	v := e.Result().ToValue()
	assert.Contains(t, v, "reachable")
	assert.Contains(t, v, "paths")
	assert.Contains(t, v, "converged")
	assert.Len(t, v["paths"], 2)
}

func TestPassQuota(t *testing.T) {
	q := NewPassQuota(2)
	require.NoError(t, q.Check())
	require.NoError(t, q.Check())

	err := q.Check()
	require.Error(t, err)
	assert.True(t, IsPassesExceededError(err))
	assert.True(t, IsNonConvergenceError(err))
	assert.Equal(t, 3, q.Current())

	assert.Equal(t, DefaultMaxPasses, NewPassQuota(0).MaxPasses())
}

func TestRuntimeError_Format(t *testing.T) {
	err := NewMissingEntityError("region", "Moon")
	assert.Equal(t, "MISSING_ENTITY: region is not defined (Moon)", err.Error())

	err = NewNonConvergenceError(5, 5)
	assert.Equal(t, "NON_CONVERGENCE: event loop did not converge after 5 passes (limit 5)", err.Error())
	assert.Equal(t, "5", err.Details["max_passes"])
}

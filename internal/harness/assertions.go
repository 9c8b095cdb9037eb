package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/reach/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		if ev.Action != "" {
			fmt.Fprintf(&buf, "  [%d] step %d: %s %s\n", i+1, ev.Step, ev.Action, ev.Item+ev.Flag)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] step %d: %s %s\n", i+1, ev.Step, ev.Kind, ev.Name)
	}

	return buf.String()
}

// evaluateAssertion dispatches to the appropriate assertion checker.
func evaluateAssertion(eng *engine.Engine, a Assertion, trace []TraceEvent) error {
	switch a.Type {
	case AssertReachable:
		return assertRegions(eng, a, trace, true)
	case AssertUnreachable:
		return assertRegions(eng, a, trace, false)
	case AssertHasItem:
		return assertHasItem(eng, a, trace)
	case AssertPath:
		return assertPath(eng, a, trace)
	case AssertAccessible:
		return assertAccessible(eng, a, trace)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertRegions(eng *engine.Engine, a Assertion, trace []TraceEvent, want bool) error {
	var wrong []string
	for _, region := range a.Regions {
		if eng.IsRegionReachable(region) != want {
			wrong = append(wrong, region)
		}
	}
	if len(wrong) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %v", a.Type, a.Regions),
		Actual:   fmt.Sprintf("not %s: %v (reachable: %v)", a.Type, wrong, eng.ComputeReachableRegions()),
		Trace:    trace,
	}
}

func assertAccessible(eng *engine.Engine, a Assertion, trace []TraceEvent) error {
	var missing []string
	for _, loc := range a.Locations {
		if !eng.IsLocationAccessible(loc) {
			missing = append(missing, loc)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("accessible %v", a.Locations),
		Actual:   fmt.Sprintf("not accessible: %v (accessible: %v)", missing, eng.AccessibleLocations()),
		Trace:    trace,
	}
}

func assertHasItem(eng *engine.Engine, a Assertion, trace []TraceEvent) error {
	want := max(a.Count, 1)
	// Solve first so event items are in the inventory.
	eng.Result()
	got := eng.Inventory().Count(a.Item)
	if got >= want {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d x %s", want, a.Item),
		Actual:   fmt.Sprintf("%d x %s", got, a.Item),
		Trace:    trace,
	}
}

func assertPath(eng *engine.Engine, a Assertion, trace []TraceEvent) error {
	hops, err := eng.GetPathToRegion(a.Region)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("path to %s via %v", a.Region, a.Entrances),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}

	got := make([]string, len(hops))
	for i, hop := range hops {
		got[i] = hop.Entrance
	}
	want := a.Entrances
	if want == nil {
		want = []string{}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("path to %s via %v", a.Region, want),
		Actual:   fmt.Sprintf("path to %s via %v", a.Region, got),
		Trace:    trace,
	}
}

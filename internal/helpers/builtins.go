package helpers

import (
	"fmt"

	"github.com/roach88/reach/internal/ir"
)

// Reachability kinds accepted by can_reach.
const (
	KindRegion   = "Region"
	KindLocation = "Location"
	KindEntrance = "Entrance"
)

// StateMethods returns the built-in collection-state methods shared by
// every game.
//
// Trailing numeric arguments follow the collection-state convention:
// has(item, count) and has(item, player, count) are both accepted, and a
// lone player argument to list methods is ignored.
func StateMethods() *Table {
	t := NewTable("")
	t.Register("has", stateHas)
	t.Register("has_all", stateHasAll)
	t.Register("has_any", stateHasAny)
	t.Register("count", stateCount)
	t.Register("has_group", stateHasGroup)
	t.Register("has_group_unique", stateHasGroupUnique)
	t.Register("count_group", stateCountGroup)
	t.Register("has_from_list", stateHasFromList)
	t.Register("has_all_counts", stateHasAllCounts)
	t.Register("has_any_count", stateHasAnyCount)
	t.Register("can_reach", stateCanReach)
	t.Register("can_reach_region", reachOf(KindRegion))
	t.Register("can_reach_location", reachOf(KindLocation))
	t.Register("can_reach_entrance", reachOf(KindEntrance))
	return t
}

func stateHas(ctx Context, args []ir.Value) (ir.Value, error) {
	item, err := StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	need, err := trailingCount(args, 1)
	if err != nil {
		return nil, err
	}
	switch {
	case need <= 0:
		return ir.True, nil
	case need == 1:
		return ir.Bool(ctx.Has(item)), nil
	}
	return ir.Bool(int64(ctx.Count(item)) >= need), nil
}

func stateHasAll(ctx Context, args []ir.Value) (ir.Value, error) {
	items, err := StringsArg(args, 0)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !ctx.Has(item) {
			return ir.False, nil
		}
	}
	return ir.True, nil
}

func stateHasAny(ctx Context, args []ir.Value) (ir.Value, error) {
	items, err := StringsArg(args, 0)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if ctx.Has(item) {
			return ir.True, nil
		}
	}
	return ir.False, nil
}

func stateCount(ctx Context, args []ir.Value) (ir.Value, error) {
	item, err := StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	return ir.Number(ctx.Count(item)), nil
}

func stateHasGroup(ctx Context, args []ir.Value) (ir.Value, error) {
	group, err := StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	need, err := trailingCount(args, 1)
	if err != nil {
		return nil, err
	}
	return ir.Bool(int64(ctx.CountGroup(group)) >= need), nil
}

// stateHasGroupUnique counts each member of group at most once:
// has_group_unique(group, count).
func stateHasGroupUnique(ctx Context, args []ir.Value) (ir.Value, error) {
	group, err := StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	items := ctx.GroupMembers(group)
	need, err := trailingCount(args, 1)
	if err != nil {
		return nil, err
	}
	var held int64
	for _, item := range items {
		if ctx.Has(item) {
			held++
		}
	}
	return ir.Bool(held >= need), nil
}

func stateCountGroup(ctx Context, args []ir.Value) (ir.Value, error) {
	group, err := StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	return ir.Number(ctx.CountGroup(group)), nil
}

func stateHasFromList(ctx Context, args []ir.Value) (ir.Value, error) {
	items, err := StringsArg(args, 0)
	if err != nil {
		return nil, err
	}
	need, err := trailingCount(args, 1)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, item := range items {
		total += int64(ctx.Count(item))
		if total >= need {
			return ir.True, nil
		}
	}
	return ir.Bool(total >= need), nil
}

func stateHasAllCounts(ctx Context, args []ir.Value) (ir.Value, error) {
	counts, err := countsArg(args, 0)
	if err != nil {
		return nil, err
	}
	for _, item := range counts.SortedKeys() {
		need, _ := ir.AsNumber(counts[item])
		if int64(ctx.Count(item)) < need {
			return ir.False, nil
		}
	}
	return ir.True, nil
}

func stateHasAnyCount(ctx Context, args []ir.Value) (ir.Value, error) {
	counts, err := countsArg(args, 0)
	if err != nil {
		return nil, err
	}
	for _, item := range counts.SortedKeys() {
		need, _ := ir.AsNumber(counts[item])
		if int64(ctx.Count(item)) >= need {
			return ir.True, nil
		}
	}
	return ir.False, nil
}

func stateCanReach(ctx Context, args []ir.Value) (ir.Value, error) {
	name, err := StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	kind := KindRegion
	if len(args) > 1 {
		if k, ok := ir.AsString(args[1]); ok {
			kind = k
		}
	}
	return CanReach(ctx, name, kind)
}

func reachOf(kind string) Func {
	return func(ctx Context, args []ir.Value) (ir.Value, error) {
		name, err := StringArg(args, 0)
		if err != nil {
			return nil, err
		}
		return CanReach(ctx, name, kind)
	}
}

// CanReach resolves a reachability query of the given kind.
func CanReach(ctx Context, name, kind string) (ir.Value, error) {
	switch kind {
	case KindRegion:
		return ir.Bool(ctx.CanReachRegion(name)), nil
	case KindLocation:
		return ir.Bool(ctx.CanReachLocation(name)), nil
	case KindEntrance:
		return ir.Bool(ctx.CanReachEntrance(name)), nil
	default:
		return nil, fmt.Errorf("can_reach: unknown kind %q", kind)
	}
}

// StringArg returns args[i] as a string.
func StringArg(args []ir.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	s, ok := ir.AsString(args[i])
	if !ok {
		return "", fmt.Errorf("argument %d: expected string, got %s", i, ir.Format(args[i]))
	}
	return s, nil
}

// StringsArg returns args[i] as a list of strings. A single string is
// treated as a one-element list.
func StringsArg(args []ir.Value, i int) ([]string, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	switch v := args[i].(type) {
	case ir.String:
		return []string{string(v)}, nil
	case ir.List:
		out := make([]string, 0, len(v))
		for j, elem := range v {
			s, ok := ir.AsString(elem)
			if !ok {
				return nil, fmt.Errorf("argument %d[%d]: expected string, got %s", i, j, ir.Format(elem))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %d: expected list, got %s", i, ir.Format(args[i]))
	}
}

// IntArg returns args[i] as a number, or def when absent.
func IntArg(args []ir.Value, i int, def int64) (int64, error) {
	if i >= len(args) {
		return def, nil
	}
	if _, ok := args[i].(ir.Nothing); ok {
		return def, nil
	}
	n, ok := ir.AsNumber(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d: expected number, got %s", i, ir.Format(args[i]))
	}
	return n, nil
}

// trailingCount reads the required count starting at position from. With
// two trailing numbers the first is a player id and the second the count.
// The default is 1.
func trailingCount(args []ir.Value, from int) (int64, error) {
	switch len(args) - from {
	case 0:
		return 1, nil
	case 1:
		return IntArg(args, from, 1)
	default:
		return IntArg(args, from+1, 1)
	}
}

func countsArg(args []ir.Value, i int) (ir.Object, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing argument %d", i)
	}
	obj, ok := args[i].(ir.Object)
	if !ok {
		return nil, fmt.Errorf("argument %d: expected object of counts, got %s", i, ir.Format(args[i]))
	}
	for _, k := range obj.SortedKeys() {
		if _, ok := ir.AsNumber(obj[k]); !ok {
			return nil, fmt.Errorf("argument %d[%q]: expected number", i, k)
		}
	}
	return obj, nil
}

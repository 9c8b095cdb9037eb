package engine

import (
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
)

// Hop is one traversal step of a path witness.
type Hop struct {
	From     string `json:"from"`
	Entrance string `json:"entrance"`
	To       string `json:"to"`
}

// Result is one converged (or bounded) reachability computation. It is a
// derived view and is never mutated after the compute that built it.
type Result struct {
	// Reachable and Unreachable partition every defined region, sorted.
	Reachable   []string `json:"reachable"`
	Unreachable []string `json:"unreachable"`

	// Paths holds one witnessing hop per reached non-start region.
	Paths map[string]Hop `json:"paths"`

	// Entrances lists exits whose source region is reached and whose
	// rule holds, sorted.
	Entrances []string `json:"entrances"`

	// Accessible lists locations whose region is reached and whose rule
	// holds, in region order.
	Accessible []string `json:"accessible"`

	// Collected lists event items added to the inventory by this compute,
	// in collection order.
	Collected []string `json:"collected"`

	Passes      int                `json:"passes"`
	Converged   bool               `json:"converged"`
	Generation  int64              `json:"generation"`
	Diagnostics []rules.Diagnostic `json:"diagnostics,omitempty"`

	regions    mapset.Set[string]
	entrances  mapset.Set[string]
	accessible mapset.Set[string]
	version    uint64
	limit      int
}

// IsReachable reports whether region was reached.
func (r *Result) IsReachable(region string) bool {
	return r != nil && r.regions.Has(region)
}

// IsAccessible reports whether location was accessible.
func (r *Result) IsAccessible(location string) bool {
	return r != nil && r.accessible.Has(location)
}

// IsTraversable reports whether the named exit could be taken.
func (r *Result) IsTraversable(entrance string) bool {
	return r != nil && r.entrances.Has(entrance)
}

// Hash returns the domain-separated hash of the reachable set.
func (r *Result) Hash() (string, error) {
	if r == nil {
		return ir.ResultHash(nil)
	}
	return ir.ResultHash(slices.Sorted(slices.Values(r.Reachable)))
}

// Err returns a NON_CONVERGENCE error for a bounded result, nil otherwise.
func (r *Result) Err() error {
	if r == nil || r.Converged {
		return nil
	}
	return NewNonConvergenceError(r.Passes, r.limit)
}

// Path walks the witness map back from region to a start region and
// returns the hops in travel order. A start region has an empty path.
func (r *Result) Path(region string) ([]Hop, bool) {
	if !r.IsReachable(region) {
		return nil, false
	}
	return walkPath(r.Paths, region), true
}

func walkPath(paths map[string]Hop, region string) []Hop {
	hops := []Hop{}
	seen := make(map[string]bool)
	for {
		hop, ok := paths[region]
		if !ok || seen[region] {
			break
		}
		seen[region] = true
		hops = append(hops, hop)
		region = hop.From
	}
	slices.Reverse(hops)
	return hops
}

// ToValue renders the result as an ir.Object for canonical output.
func (r *Result) ToValue() ir.Object {
	paths := ir.Object{}
	for region, hop := range r.Paths {
		paths[region] = ir.Object{
			"from":     ir.String(hop.From),
			"entrance": ir.String(hop.Entrance),
			"to":       ir.String(hop.To),
		}
	}
	return ir.Object{
		"reachable":   names(r.Reachable),
		"unreachable": names(r.Unreachable),
		"paths":       paths,
		"entrances":   names(r.Entrances),
		"accessible":  names(r.Accessible),
		"collected":   names(r.Collected),
		"passes":      ir.Number(int64(r.Passes)),
		"converged":   ir.Bool(r.Converged),
	}
}

func names(ss []string) ir.List {
	out := make(ir.List, len(ss))
	for i, s := range ss {
		out[i] = ir.String(s)
	}
	return out
}

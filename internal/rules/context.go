package rules

import (
	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
)

var _ helpers.Context = (*Evaluator)(nil)

// Has reports whether item is held.
func (e *Evaluator) Has(item string) bool {
	return e.inv.Has(item)
}

// Count returns the held count of item.
func (e *Evaluator) Count(item string) int {
	return e.inv.Count(item)
}

// CountGroup returns the summed count of group.
func (e *Evaluator) CountGroup(group string) int {
	return e.inv.CountGroup(group)
}

// GroupMembers returns the items registered under group.
func (e *Evaluator) GroupMembers(group string) []string {
	return e.inv.GroupMembers(group)
}

// Flag reads an auxiliary state flag.
func (e *Evaluator) Flag(name string) bool {
	return e.flag(name)
}

// Setting reads a rule-set setting.
func (e *Evaluator) Setting(name string) (ir.Value, bool) {
	v, ok := e.rs.Settings[name]
	return v, ok
}

// Player returns the player id the rule-set belongs to.
func (e *Evaluator) Player() int64 {
	return e.rs.Player
}

// CanReachRegion asks the reachability view about a region. Unknown
// regions are unreachable and reported.
func (e *Evaluator) CanReachRegion(name string) bool {
	if _, ok := e.rs.Region(name); !ok {
		e.diag.Report(CodeMissingEntity, "region:"+name, "region %q is not defined", name)
		return false
	}
	return e.reach != nil && e.reach.RegionReachable(name)
}

// CanReachLocation asks the reachability view about a location.
func (e *Evaluator) CanReachLocation(name string) bool {
	if _, ok := e.rs.Location(name); !ok {
		e.diag.Report(CodeMissingEntity, "location:"+name, "location %q is not defined", name)
		return false
	}
	return e.reach != nil && e.reach.LocationAccessible(name)
}

// CanReachEntrance asks the reachability view about an entrance.
func (e *Evaluator) CanReachEntrance(name string) bool {
	if _, ok := e.rs.Entrance(name); !ok {
		e.diag.Report(CodeMissingEntity, "entrance:"+name, "entrance %q is not defined", name)
		return false
	}
	return e.reach != nil && e.reach.EntranceReachable(name)
}

// Package inventory tracks collected item counts for one session.
//
// Counts only grow: the engine never removes items, and Reset starts a new
// session. Every mutation bumps Version so derived caches can detect change.
package inventory

import (
	"maps"
	"slices"

	"github.com/roach88/reach/internal/ir"
)

// Inventory maps item names to counts and resolves progressive tiers and
// item groups.
//
// Thread-safety: NOT safe for concurrent use. The engine serializes access.
type Inventory struct {
	counts      map[string]int
	progressive map[string]ir.Progression
	groups      map[string][]string
	version     uint64
}

// New creates an empty inventory with the given progressive tier mapping
// and item groups. Either may be nil.
func New(progressive map[string]ir.Progression, groups map[string][]string) *Inventory {
	if progressive == nil {
		progressive = map[string]ir.Progression{}
	}
	if groups == nil {
		groups = map[string][]string{}
	}
	return &Inventory{
		counts:      make(map[string]int),
		progressive: progressive,
		groups:      groups,
	}
}

// FromRuleSet creates an empty inventory wired to the rule-set's
// progressive items and merged item groups.
func FromRuleSet(rs *ir.RuleSet) *Inventory {
	return New(rs.ProgressiveItems, rs.Groups())
}

// Has reports whether item is held directly or unlocked through a
// progressive base item.
func (inv *Inventory) Has(item string) bool {
	if inv.counts[item] > 0 {
		return true
	}
	return inv.tierOwned(item)
}

// Count returns the direct count of item. A progressive tier alias counts
// as 1 while its base item has reached the tier's unlock count; tiers do
// not stack.
func (inv *Inventory) Count(item string) int {
	n := inv.counts[item]
	if n == 0 && inv.tierOwned(item) {
		return 1
	}
	return n
}

// tierOwned scans every progressive base for a tier listing item.
func (inv *Inventory) tierOwned(item string) bool {
	for base, tiers := range inv.progressive {
		have := inv.counts[base]
		if have == 0 {
			continue
		}
		for _, tier := range tiers {
			if have >= tier.Count && slices.Contains(tier.Items, item) {
				return true
			}
		}
	}
	return false
}

// CountGroup sums Count over every item registered under group.
// An unknown group counts 0.
func (inv *Inventory) CountGroup(group string) int {
	total := 0
	for _, item := range inv.groups[group] {
		total += inv.Count(item)
	}
	return total
}

// HasGroup reports whether any member of group is held.
func (inv *Inventory) HasGroup(group string) bool {
	return inv.CountGroup(group) > 0
}

// GroupMembers returns the distinct items registered under group, sorted.
func (inv *Inventory) GroupMembers(group string) []string {
	return slices.Compact(slices.Sorted(slices.Values(inv.groups[group])))
}

// GroupKnown reports whether group is registered.
func (inv *Inventory) GroupKnown(group string) bool {
	_, ok := inv.groups[group]
	return ok
}

// Add increments the count of item by one.
func (inv *Inventory) Add(item string) {
	inv.AddN(item, 1)
}

// AddN increments the count of item by n. Non-positive n is a no-op so
// counts never decrease.
func (inv *Inventory) AddN(item string, n int) {
	if n <= 0 || item == "" {
		return
	}
	inv.counts[item] += n
	inv.version++
}

// Version returns a counter that changes on every mutation.
func (inv *Inventory) Version() uint64 {
	return inv.version
}

// Snapshot returns a copy of the direct counts.
func (inv *Inventory) Snapshot() map[string]int {
	return maps.Clone(inv.counts)
}

// Items returns held item names in sorted order.
func (inv *Inventory) Items() []string {
	return slices.Sorted(maps.Keys(inv.counts))
}

// Reset clears all counts, starting a new session.
func (inv *Inventory) Reset() {
	clear(inv.counts)
	inv.version++
}

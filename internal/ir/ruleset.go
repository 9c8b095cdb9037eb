package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// RuleSet is a loaded game world: regions, exits, locations and item data.
// It is read-only once Normalize has run.
type RuleSet struct {
	Game             string                 `json:"game"`
	Player           int64                  `json:"player"`
	StartRegions     []string               `json:"start_regions"`
	Regions          map[string]*Region     `json:"regions"`
	Items            map[string]ItemDef     `json:"items"`
	ItemGroups       map[string][]string    `json:"item_groups"`
	ProgressiveItems map[string]Progression `json:"progressive_items"`
	Flags            map[string]bool        `json:"flags"`
	Settings         Object                 `json:"settings"`

	locations map[string]*Location
	entrances map[string]*Exit
	order     []string
}

// Region is a named node in the traversal graph.
type Region struct {
	Name        string
	Exits       []*Exit
	Locations   []*Location
	RegionRules []Rule
}

// Exit is a directed edge from its owning region. An empty ConnectedRegion
// is a dead end. A nil Rule is always traversable.
type Exit struct {
	Name            string
	From            string
	ConnectedRegion string
	Rule            Rule
}

// Location is a checkable point in a region. Event locations are
// auto-collected by the engine once accessible.
type Location struct {
	Name   string
	Region string
	Rule   Rule
	Item   *ItemRef
	Event  bool
}

// ItemRef is the item placed at a location.
type ItemRef struct {
	Name   string `json:"name"`
	Player int64  `json:"player,omitempty"`
}

// ItemDef describes an item known to the rule-set.
type ItemDef struct {
	Groups      []string `json:"groups,omitempty"`
	Progression bool     `json:"progression,omitempty"`
}

// ProgressiveTier is one tier of a progressive item. Owning Count copies
// of the base item unlocks every alias in Items.
type ProgressiveTier struct {
	Items []string `json:"items"`
	Count int      `json:"count,omitempty"`
}

// Progression is the ordered tier list of one progressive base item.
type Progression []ProgressiveTier

// UnmarshalJSON accepts three tier encodings:
//
//	["Sword", "Master Sword"]                 one alias per tier
//	[["Sword", "Fighter Sword"], ["Master"]]  alias lists per tier
//	[{"items": ["Sword"], "count": 2}]        explicit unlock counts
//
// Missing counts default to the tier's 1-based position.
func (p *Progression) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("progressive tiers must be an array: %w", err)
	}

	tiers := make(Progression, 0, len(raw))
	for i, elem := range raw {
		elem = bytes.TrimSpace(elem)
		var tier ProgressiveTier
		switch {
		case len(elem) > 0 && elem[0] == '"':
			var name string
			if err := json.Unmarshal(elem, &name); err != nil {
				return fmt.Errorf("tier %d: %w", i, err)
			}
			tier.Items = []string{name}
		case len(elem) > 0 && elem[0] == '[':
			if err := json.Unmarshal(elem, &tier.Items); err != nil {
				return fmt.Errorf("tier %d: %w", i, err)
			}
		default:
			if err := json.Unmarshal(elem, &tier); err != nil {
				return fmt.Errorf("tier %d: %w", i, err)
			}
		}
		if tier.Count <= 0 {
			tier.Count = i + 1
		}
		tiers = append(tiers, tier)
	}
	*p = tiers
	return nil
}

type regionJSON struct {
	Exits       []exitJSON        `json:"exits"`
	Locations   []locationJSON    `json:"locations"`
	RegionRules []json.RawMessage `json:"region_rules"`
}

type exitJSON struct {
	Name            string          `json:"name"`
	ConnectedRegion *string         `json:"connected_region"`
	Rule            json.RawMessage `json:"rule"`
}

type locationJSON struct {
	Name  string          `json:"name"`
	Rule  json.RawMessage `json:"rule"`
	Item  json.RawMessage `json:"item"`
	Event bool            `json:"event"`
}

// UnmarshalJSON decodes a region body. The region name is the map key and
// is filled in by Normalize.
func (r *Region) UnmarshalJSON(data []byte) error {
	var raw regionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for i, e := range raw.Exits {
		rule, err := ParseRule(e.Rule)
		if err != nil {
			return fmt.Errorf("exit %d (%s): %w", i, e.Name, err)
		}
		exit := &Exit{Name: e.Name, Rule: rule}
		if e.ConnectedRegion != nil {
			exit.ConnectedRegion = *e.ConnectedRegion
		}
		r.Exits = append(r.Exits, exit)
	}

	for i, l := range raw.Locations {
		rule, err := ParseRule(l.Rule)
		if err != nil {
			return fmt.Errorf("location %d (%s): %w", i, l.Name, err)
		}
		item, err := decodeItemRef(l.Item)
		if err != nil {
			return fmt.Errorf("location %d (%s): %w", i, l.Name, err)
		}
		r.Locations = append(r.Locations, &Location{Name: l.Name, Rule: rule, Item: item, Event: l.Event})
	}

	for i, rr := range raw.RegionRules {
		rule, err := ParseRule(rr)
		if err != nil {
			return fmt.Errorf("region rule %d: %w", i, err)
		}
		r.RegionRules = append(r.RegionRules, rule)
	}
	return nil
}

// decodeItemRef accepts either {"name": ..., "player": ...} or a bare item name.
func decodeItemRef(data json.RawMessage) (*ItemRef, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return nil, err
		}
		return &ItemRef{Name: name}, nil
	}
	var ref ItemRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	if ref.Name == "" {
		return nil, nil
	}
	return &ref, nil
}

// DecodeRuleSet parses rule-set JSON and normalizes it.
func DecodeRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, err
	}
	rs.Normalize()
	return &rs, nil
}

// Normalize fills region names and owners, builds lookup indexes and
// defaults empty maps. It is idempotent.
func (rs *RuleSet) Normalize() {
	if rs.Regions == nil {
		rs.Regions = map[string]*Region{}
	}
	if rs.Items == nil {
		rs.Items = map[string]ItemDef{}
	}
	if rs.ItemGroups == nil {
		rs.ItemGroups = map[string][]string{}
	}
	if rs.ProgressiveItems == nil {
		rs.ProgressiveItems = map[string]Progression{}
	}
	if rs.Settings == nil {
		rs.Settings = Object{}
	}

	rs.locations = make(map[string]*Location)
	rs.entrances = make(map[string]*Exit)
	rs.order = make([]string, 0, len(rs.Regions))

	for name, region := range rs.Regions {
		if region == nil {
			region = &Region{}
			rs.Regions[name] = region
		}
		region.Name = name
		rs.order = append(rs.order, name)
		for _, exit := range region.Exits {
			exit.From = name
			if _, dup := rs.entrances[exit.Name]; !dup {
				rs.entrances[exit.Name] = exit
			}
		}
		for _, loc := range region.Locations {
			loc.Region = name
			if _, dup := rs.locations[loc.Name]; !dup {
				rs.locations[loc.Name] = loc
			}
		}
	}
	slices.Sort(rs.order)
}

// RegionNames returns every region name in sorted order.
func (rs *RuleSet) RegionNames() []string {
	return rs.order
}

// Region looks up a region by name.
func (rs *RuleSet) Region(name string) (*Region, bool) {
	r, ok := rs.Regions[name]
	return r, ok
}

// Location looks up a location by name.
func (rs *RuleSet) Location(name string) (*Location, bool) {
	l, ok := rs.locations[name]
	return l, ok
}

// Entrance looks up an exit by name.
func (rs *RuleSet) Entrance(name string) (*Exit, bool) {
	e, ok := rs.entrances[name]
	return e, ok
}

// Locations returns every location, ordered by region then declaration.
func (rs *RuleSet) Locations() []*Location {
	var out []*Location
	for _, name := range rs.order {
		out = append(out, rs.Regions[name].Locations...)
	}
	return out
}

// EventLocations returns the event-tagged locations in region order.
func (rs *RuleSet) EventLocations() []*Location {
	var out []*Location
	for _, loc := range rs.Locations() {
		if loc.Event {
			out = append(out, loc)
		}
	}
	return out
}

// Groups merges explicit item_groups with the groups named on item
// definitions. Member lists are sorted and deduplicated.
func (rs *RuleSet) Groups() map[string][]string {
	out := make(map[string][]string, len(rs.ItemGroups))
	for group, members := range rs.ItemGroups {
		out[group] = append(out[group], members...)
	}
	for item, def := range rs.Items {
		for _, group := range def.Groups {
			out[group] = append(out[group], item)
		}
	}
	for group, members := range out {
		slices.Sort(members)
		out[group] = slices.Compact(members)
	}
	return out
}

// ToValue renders the normalized rule-set as a Value tree. Region, exit and
// location order is preserved so the canonical form is stable.
func (rs *RuleSet) ToValue() Object {
	regions := make(Object, len(rs.Regions))
	for _, name := range rs.order {
		region := rs.Regions[name]

		exits := make(List, 0, len(region.Exits))
		for _, e := range region.Exits {
			exit := Object{"name": String(e.Name), "rule": RuleToValue(e.Rule)}
			if e.ConnectedRegion != "" {
				exit["connected_region"] = String(e.ConnectedRegion)
			} else {
				exit["connected_region"] = Nothing{}
			}
			exits = append(exits, exit)
		}

		locs := make(List, 0, len(region.Locations))
		for _, l := range region.Locations {
			loc := Object{"name": String(l.Name), "rule": RuleToValue(l.Rule), "event": Bool(l.Event)}
			if l.Item != nil {
				loc["item"] = Object{"name": String(l.Item.Name), "player": Number(l.Item.Player)}
			}
			locs = append(locs, loc)
		}

		body := Object{"exits": exits, "locations": locs}
		if len(region.RegionRules) > 0 {
			body["region_rules"] = rulesToList(region.RegionRules)
		}
		regions[name] = body
	}

	items := make(Object, len(rs.Items))
	for name, def := range rs.Items {
		items[name] = Object{
			"groups":      stringList(def.Groups),
			"progression": Bool(def.Progression),
		}
	}

	groups := make(Object, len(rs.ItemGroups))
	for name, members := range rs.ItemGroups {
		groups[name] = stringList(members)
	}

	progressive := make(Object, len(rs.ProgressiveItems))
	for base, tiers := range rs.ProgressiveItems {
		list := make(List, len(tiers))
		for i, t := range tiers {
			list[i] = Object{"items": stringList(t.Items), "count": Number(t.Count)}
		}
		progressive[base] = list
	}

	flags := make(Object, len(rs.Flags))
	for name, on := range rs.Flags {
		flags[name] = Bool(on)
	}

	return Object{
		"game":              String(rs.Game),
		"player":            Number(rs.Player),
		"start_regions":     stringList(rs.StartRegions),
		"regions":           regions,
		"items":             items,
		"item_groups":       groups,
		"progressive_items": progressive,
		"flags":             flags,
		"settings":          rs.Settings,
	}
}

func stringList(ss []string) List {
	out := make(List, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}
	return out
}

package engine

import (
	"slices"
	"time"

	"github.com/zyedidia/generic/mapset"

	"github.com/roach88/reach/internal/ir"
	"github.com/roach88/reach/internal/rules"
)

// working is the in-flight state of one compute.
type working struct {
	reachable mapset.Set[string]
	paths     map[string]Hop
	queue     *connectionQueue
	collected []collectedItem
}

type collectedItem struct {
	item     string
	location *ir.Location
}

func newWorking() *working {
	return &working{
		reachable: mapset.New[string](),
		paths:     make(map[string]Hop),
		queue:     newConnectionQueue(),
	}
}

func (w *working) sortedReachable() []string {
	out := make([]string, 0, w.reachable.Size())
	w.reachable.Each(func(name string) {
		out = append(out, name)
	})
	slices.Sort(out)
	return out
}

// compute runs the fixpoint and caches the result.
func (e *Engine) compute() *Result {
	started := time.Now()
	e.generation++
	prev := e.last

	w := newWorking()
	e.phase = Computing{work: w}
	e.diag.Reset()

	e.logger.Debug("compute starting",
		"generation", e.generation,
		"start_regions", e.rs.StartRegions,
		"inventory_version", e.inv.Version(),
	)

	for _, name := range e.rs.StartRegions {
		region, ok := e.rs.Region(name)
		if !ok {
			e.diag.Report(rules.CodeMissingEntity, "region:"+name, "start region %q is not defined", name)
			continue
		}
		if w.reachable.Has(name) {
			continue
		}
		w.reachable.Put(name)
		w.queue.PushExits(region)
	}

	quota := NewPassQuota(e.maxPasses)
	converged := true
	for {
		if err := quota.Check(); err != nil {
			converged = false
			e.diag.Report(rules.CodeNonConvergence, "compute", "%v", err)
			break
		}
		found := e.explore(w)
		collected := e.collectEvents(w)
		e.logger.Debug("pass finished",
			"pass", quota.Current(),
			"regions_found", found,
			"events_collected", collected,
			"parked", w.queue.Parked(),
		)
		if found == 0 && collected == 0 {
			break
		}
	}

	result := e.finish(w, min(quota.Current(), quota.MaxPasses()), converged)
	e.phase = Done{Result: result}
	e.last = result

	elapsed := time.Since(started)
	e.metrics.observeCompute(result, elapsed.Seconds())
	if converged {
		e.logger.Info("compute finished",
			"generation", result.Generation,
			"reachable", len(result.Reachable),
			"passes", result.Passes,
			"collected", len(result.Collected),
			"duration", elapsed,
		)
	} else {
		e.logger.Warn("compute did not converge",
			"generation", result.Generation,
			"reachable", len(result.Reachable),
			"max_passes", quota.MaxPasses(),
		)
	}

	e.notify(prev, result, w.collected)
	return result
}

// explore drains the connection queue in rounds until it is empty. A
// connection that fails is parked; reaching a region queues its exits and
// wakes the exits registered under it in the indirect index. Returns the
// number of regions reached.
func (e *Engine) explore(w *working) int {
	w.queue.WakeAll()
	found := 0
	for w.queue.Len() > 0 {
		for _, c := range w.queue.TakeAll() {
			target := c.Exit.ConnectedRegion
			if target == "" || w.reachable.Has(target) {
				continue
			}
			region, ok := e.rs.Region(target)
			if !ok {
				e.diag.Report(rules.CodeMissingEntity, "region:"+target,
					"exit %q leads to undefined region %q", c.Exit.Name, target)
				continue
			}
			if !e.exitOpen(c.Exit) {
				w.queue.Park(c)
				continue
			}

			w.reachable.Put(target)
			w.paths[target] = Hop{From: c.FromRegion, Entrance: c.Exit.Name, To: target}
			w.queue.PushExits(region)
			for _, dep := range e.index.Dependents(target) {
				if w.reachable.Has(dep.FromRegion) {
					w.queue.Wake(dep)
				}
			}
			found++
		}
	}
	return found
}

// collectEvents checks every accessible event location. Its item is added
// unless already held or owned by another player. Returns the number of
// items added.
func (e *Engine) collectEvents(w *working) int {
	added := 0
	for _, loc := range e.rs.EventLocations() {
		if !w.reachable.Has(loc.Region) || !e.locationOpen(loc) {
			continue
		}
		e.checked[loc.Name] = true
		if loc.Item == nil {
			continue
		}
		if loc.Item.Player != 0 && loc.Item.Player != e.rs.Player {
			continue
		}
		if e.inv.Has(loc.Item.Name) {
			continue
		}
		e.inv.Add(loc.Item.Name)
		w.collected = append(w.collected, collectedItem{item: loc.Item.Name, location: loc})
		added++
		e.logger.Debug("event collected", "location", loc.Name, "item", loc.Item.Name)
	}
	return added
}

// finish builds the result. It runs before the phase leaves Computing, so
// rules evaluated here see the final working set.
func (e *Engine) finish(w *working, passes int, converged bool) *Result {
	r := &Result{
		Reachable:   []string{},
		Unreachable: []string{},
		Paths:       w.paths,
		Entrances:   []string{},
		Accessible:  []string{},
		Collected:   []string{},
		Passes:      passes,
		Converged:   converged,
		Generation:  e.generation,
		regions:     w.reachable,
		entrances:   mapset.New[string](),
		accessible:  mapset.New[string](),
		limit:       e.maxPasses,
	}

	for _, name := range e.rs.RegionNames() {
		if w.reachable.Has(name) {
			r.Reachable = append(r.Reachable, name)
		} else {
			r.Unreachable = append(r.Unreachable, name)
		}
	}

	for _, name := range r.Reachable {
		for _, exit := range e.rs.Regions[name].Exits {
			if e.exitOpen(exit) {
				r.entrances.Put(exit.Name)
				r.Entrances = append(r.Entrances, exit.Name)
			}
		}
		for _, loc := range e.rs.Regions[name].Locations {
			if e.locationOpen(loc) {
				r.accessible.Put(loc.Name)
				r.Accessible = append(r.Accessible, loc.Name)
			}
		}
	}
	slices.Sort(r.Entrances)
	r.Entrances = slices.Compact(r.Entrances)

	for _, c := range w.collected {
		r.Collected = append(r.Collected, c.item)
	}
	r.Diagnostics = e.diag.All()
	r.version = e.inv.Version()
	return r
}

// notify reports what changed since prev. Runs after the phase is Done.
func (e *Engine) notify(prev, r *Result, collected []collectedItem) {
	if e.sink == nil {
		return
	}
	emit := func(ev Event) {
		e.seq++
		ev.Seq = e.seq
		ev.Generation = r.Generation
		e.sink.Notify(ev)
	}

	for _, region := range r.Reachable {
		if !prev.IsReachable(region) {
			emit(Event{Kind: EventRegionDiscovered, Name: region, Region: region})
		}
	}
	for _, name := range r.Entrances {
		if !prev.IsTraversable(name) {
			from := ""
			if exit, ok := e.rs.Entrance(name); ok {
				from = exit.From
			}
			emit(Event{Kind: EventExitDiscovered, Name: name, Region: from})
		}
	}
	for _, name := range r.Accessible {
		if !prev.IsAccessible(name) {
			region := ""
			if loc, ok := e.rs.Location(name); ok {
				region = loc.Region
			}
			emit(Event{Kind: EventLocationAccessible, Name: name, Region: region})
		}
	}
	for _, c := range collected {
		emit(Event{Kind: EventItemCollected, Name: c.item, Region: c.location.Region, Location: c.location.Name})
	}
	emit(Event{Kind: EventComputeFinished})
}

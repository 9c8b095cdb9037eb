package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning represents a cycle of indirect region dependencies.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - Mutually gated areas that open from either side
//   - Shortcuts whose rule names the region they lead to
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeIndirectCycles performs static cycle analysis on the indirect
// dependency graph recorded in idx.
//
// The algorithm:
//  1. Add an edge D → T for every exit into T whose rule depends on D
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// Regions in such a cycle can only open each other once one of them is
// reached some other way. Output is sorted by the first region of each path.
func AnalyzeIndirectCycles(idx *IndirectIndex) []CycleWarning {
	if idx == nil || idx.Len() == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(idx)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// dependencyGraph maps region → regions whose entrances it may open.
// Adjacency lists are sorted and deduplicated.
type dependencyGraph map[string][]string

func buildDependencyGraph(idx *IndirectIndex) dependencyGraph {
	graph := make(dependencyGraph)
	for _, dep := range idx.Regions() {
		if graph[dep] == nil {
			graph[dep] = []string{}
		}
		for _, conn := range idx.Dependents(dep) {
			target := conn.Exit.ConnectedRegion
			if target == "" {
				continue
			}
			graph[dep] = append(graph[dep], target)
			if graph[target] == nil {
				graph[target] = []string{}
			}
		}
	}
	for node, edges := range graph {
		slices.Sort(edges)
		graph[node] = slices.Compact(edges)
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the result is deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the stack into one SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		region := scc[0]
		return CycleWarning{
			Path:    []string{region, region},
			Message: fmt.Sprintf("Region gates its own entrance: %s → %s", region, region),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Indirect dependency cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks the SCC from its smallest member, following
// the first in-SCC edge at each step until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}

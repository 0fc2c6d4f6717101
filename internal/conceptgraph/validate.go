package conceptgraph

import (
	"sort"
	"strings"
)

// Validate re-runs the structural checks on the graph. Graphs returned by
// Build and Upsert always pass; this exists for graphs loaded from storage.
func (g *Graph) Validate() error {
	return g.validate(&ValidationError{})
}

// validate adds cycle and self-loop checks to the problems gathered during build.
func (g *Graph) validate(verr *ValidationError) error {
	for i, ps := range g.prereqs {
		for _, p := range ps {
			if p == i {
				verr.addf("concept %q lists itself as a prerequisite", g.concepts[i].ID)
			}
		}
	}

	if g.topoOrder == nil {
		verr.Cycle = g.unresolved()
		verr.addf("cycle detected involving concepts: %s", strings.Join(verr.Cycle, ", "))
	}

	if verr.empty() {
		return nil
	}
	return verr
}

// unresolved returns the concepts that Kahn's algorithm could not order:
// members of a cycle and everything they depend on.
func (g *Graph) unresolved() []string {
	members := make(map[int]bool, len(g.concepts))
	for i := range g.concepts {
		members[i] = true
	}
	return g.cycleAmong(members)
}

// cycleAmong runs Kahn's algorithm over the subgraph induced by members and
// returns the sorted IDs of nodes left with unresolved edges. An empty result
// means the subgraph is acyclic.
func (g *Graph) cycleAmong(members map[int]bool) []string {
	inDegree := make(map[int]int, len(members))
	for n := range members {
		inDegree[n] += 0
		for _, p := range g.prereqs[n] {
			if members[p] {
				inDegree[p]++
			}
		}
	}

	var queue []int
	for n, d := range inDegree {
		if d == 0 {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, p := range g.prereqs[n] {
			if !members[p] {
				continue
			}
			inDegree[p]--
			if inDegree[p] == 0 {
				queue = append(queue, p)
			}
		}
	}

	var stuck []string
	for n, d := range inDegree {
		if d > 0 {
			stuck = append(stuck, g.concepts[n].ID)
		}
	}
	sort.Strings(stuck)
	return stuck
}

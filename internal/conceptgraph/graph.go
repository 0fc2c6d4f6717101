package conceptgraph

import (
	"fmt"
	"slices"
	"sort"
)

// Graph holds the concept DAG as an arena of concepts addressed by index.
// Adjacency is stored by index rather than inside Concept values so that
// validation and traversal are whole-graph operations. A Graph is never
// mutated after construction; Upsert returns a new one.
type Graph struct {
	concepts   []Concept
	index      map[string]int
	prereqs    [][]int
	dependents [][]int
	topoOrder  []int // nil when the graph contains a cycle
}

// Build constructs a validated graph. Duplicate edges are collapsed.
// Returns a *ValidationError describing every problem if the input is
// malformed or cyclic.
func Build(concepts []Concept, edges []Edge) (*Graph, error) {
	g, verr := build(concepts, edges)
	if err := g.validate(verr); err != nil {
		return nil, err
	}
	return g, nil
}

// build assembles a graph without rejecting cycles. Structural problems
// other than cycles are returned for the caller to report.
func build(concepts []Concept, edges []Edge) (*Graph, *ValidationError) {
	verr := &ValidationError{}
	g := &Graph{
		concepts: make([]Concept, 0, len(concepts)),
		index:    make(map[string]int, len(concepts)),
	}

	for _, c := range concepts {
		if c.ID == "" {
			verr.addf("concept with empty ID (name %q)", c.Name)
			continue
		}
		if _, dup := g.index[c.ID]; dup {
			verr.addf("duplicate concept ID: %q", c.ID)
			continue
		}
		g.index[c.ID] = len(g.concepts)
		g.concepts = append(g.concepts, c)
	}

	g.prereqs = make([][]int, len(g.concepts))
	g.dependents = make([][]int, len(g.concepts))

	unknown := make(map[string]bool)
	for _, e := range edges {
		from, okFrom := g.index[e.ConceptID]
		to, okTo := g.index[e.PrereqID]
		if !okFrom {
			unknown[e.ConceptID] = true
			verr.addf("edge references unknown concept %q", e.ConceptID)
		}
		if !okTo {
			unknown[e.PrereqID] = true
			verr.addf("concept %q references unknown prerequisite %q", e.ConceptID, e.PrereqID)
		}
		if !okFrom || !okTo {
			continue
		}
		if slices.Contains(g.prereqs[from], to) {
			continue
		}
		g.prereqs[from] = append(g.prereqs[from], to)
		g.dependents[to] = append(g.dependents[to], from)
	}
	for id := range unknown {
		verr.Unknown = append(verr.Unknown, id)
	}
	sort.Strings(verr.Unknown)

	g.topoOrder = g.topoSort()
	return g, verr
}

// topoSort orders concepts so that every prerequisite precedes its dependents
// (Kahn's algorithm, ties broken by ID). Returns nil if a cycle exists.
func (g *Graph) topoSort() []int {
	inDegree := make([]int, len(g.concepts))
	for i := range g.concepts {
		inDegree[i] = len(g.prereqs[i])
	}

	var queue []int
	for i, d := range inDegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	g.sortByID(queue)

	order := make([]int, 0, len(g.concepts))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var ready []int
		for _, dep := range g.dependents[n] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		g.sortByID(ready)
		queue = append(queue, ready...)
	}

	if len(order) < len(g.concepts) {
		return nil
	}
	return order
}

func (g *Graph) sortByID(idx []int) {
	sort.Slice(idx, func(i, j int) bool {
		return g.concepts[idx[i]].ID < g.concepts[idx[j]].ID
	})
}

// Len returns the number of concepts in the graph.
func (g *Graph) Len() int {
	return len(g.concepts)
}

// Has reports whether the concept exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Concept returns a concept by ID.
func (g *Graph) Concept(id string) (Concept, error) {
	i, ok := g.index[id]
	if !ok {
		return Concept{}, unknownConcept(id)
	}
	return g.concepts[i], nil
}

// Concepts returns all concepts in insertion order.
func (g *Graph) Concepts() []Concept {
	return slices.Clone(g.concepts)
}

// Prerequisites returns the direct prerequisite IDs of a concept in declared order.
func (g *Graph) Prerequisites(id string) ([]string, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, unknownConcept(id)
	}
	return g.ids(g.prereqs[i]), nil
}

// Dependents returns the IDs of concepts that list id as a direct prerequisite.
func (g *Graph) Dependents(id string) ([]string, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, unknownConcept(id)
	}
	out := g.ids(g.dependents[i])
	sort.Strings(out)
	return out, nil
}

// Edges returns every prerequisite edge, grouped by concept in insertion order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for i, ps := range g.prereqs {
		for _, p := range ps {
			out = append(out, Edge{ConceptID: g.concepts[i].ID, PrereqID: g.concepts[p].ID})
		}
	}
	return out
}

// Roots returns concepts with no prerequisites, sorted by ID.
func (g *Graph) Roots() []Concept {
	var out []Concept
	for i, ps := range g.prereqs {
		if len(ps) == 0 {
			out = append(out, g.concepts[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TopologicalOrder returns concepts with prerequisites first.
// Returns nil for a cyclic graph.
func (g *Graph) TopologicalOrder() []Concept {
	if g.topoOrder == nil {
		return nil
	}
	out := make([]Concept, len(g.topoOrder))
	for i, n := range g.topoOrder {
		out[i] = g.concepts[n]
	}
	return out
}

// Acyclic reports whether the graph has a valid topological order.
func (g *Graph) Acyclic() bool {
	return g.topoOrder != nil
}

// Upsert returns a new graph with the given concepts merged in and the
// prerequisite lists of every concept named in edges replaced. The receiver is
// left unchanged; the result is fully re-validated.
func (g *Graph) Upsert(concepts []Concept, edges []Edge) (*Graph, error) {
	merged := g.Concepts()
	for _, c := range concepts {
		if i, ok := g.index[c.ID]; ok {
			merged[i] = c
			continue
		}
		merged = append(merged, c)
	}

	replaced := make(map[string]bool)
	for _, e := range edges {
		replaced[e.ConceptID] = true
	}

	var all []Edge
	for _, e := range g.Edges() {
		if !replaced[e.ConceptID] {
			all = append(all, e)
		}
	}
	all = append(all, edges...)

	next, err := Build(merged, all)
	if err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}
	return next, nil
}

func (g *Graph) ids(idx []int) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.concepts[n].ID
	}
	return out
}

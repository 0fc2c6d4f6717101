package conceptgraph

import (
	"context"
	"fmt"
)

// DefaultMaxDepth bounds how far WeakestPrerequisite walks the prerequisite closure.
const DefaultMaxDepth = 3

// RatingLookup returns the current rating of a concept for one learner.
type RatingLookup interface {
	Rating(ctx context.Context, conceptID string) (float64, error)
}

// RatingLookupFunc adapts a function to RatingLookup.
type RatingLookupFunc func(ctx context.Context, conceptID string) (float64, error)

func (f RatingLookupFunc) Rating(ctx context.Context, conceptID string) (float64, error) {
	return f(ctx, conceptID)
}

// Criteria configures a weakest-prerequisite search.
type Criteria struct {
	// Cutoff is the rating below which a prerequisite counts as weak.
	Cutoff float64

	// MaxDepth limits the walk; zero means DefaultMaxDepth.
	MaxDepth int
}

// Weakness is a prerequisite found below the cutoff.
type Weakness struct {
	ConceptID string
	Rating    float64
	Depth     int // 1 = direct prerequisite
}

// WeakestPrerequisite walks the transitive prerequisites of conceptID
// breadth-first up to the configured depth and returns the lowest-rated one
// strictly below the cutoff. Ties prefer the shallower concept, then the
// lexicographically smaller ID. Returns nil when the concept has no
// prerequisites or none are weak.
//
// Every concept is visited at most once. If the explored region contains a
// cycle the walk still completes and the result is an error matching ErrCycle.
func (g *Graph) WeakestPrerequisite(ctx context.Context, conceptID string, lookup RatingLookup, c Criteria) (*Weakness, error) {
	root, ok := g.index[conceptID]
	if !ok {
		return nil, unknownConcept(conceptID)
	}
	maxDepth := c.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	depth := map[int]int{root: 0}
	queue := []int{root}
	var best *Weakness

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := queue[0]
		queue = queue[1:]
		if depth[n] >= maxDepth {
			continue
		}

		for _, p := range g.prereqs[n] {
			if _, seen := depth[p]; seen {
				continue
			}
			depth[p] = depth[n] + 1
			queue = append(queue, p)

			id := g.concepts[p].ID
			rating, err := lookup.Rating(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("rating for %q: %w", id, err)
			}
			if rating >= c.Cutoff {
				continue
			}
			cand := Weakness{ConceptID: id, Rating: rating, Depth: depth[p]}
			if best == nil || weaker(cand, *best) {
				best = &cand
			}
		}
	}

	visited := make(map[int]bool, len(depth))
	for n := range depth {
		visited[n] = true
	}
	if stuck := g.cycleAmong(visited); len(stuck) > 0 {
		verr := &ValidationError{Cycle: stuck}
		verr.addf("cycle reachable from %q involving concepts: %v", conceptID, stuck)
		return nil, verr
	}

	return best, nil
}

func weaker(a, b Weakness) bool {
	if a.Rating != b.Rating {
		return a.Rating < b.Rating
	}
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.ConceptID < b.ConceptID
}

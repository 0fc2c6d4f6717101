package diagnosis

import (
	"context"
	"fmt"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/mastery"
)

// GraphSource returns the current concept graph.
type GraphSource interface {
	Load() *conceptgraph.Graph
}

// RatingReader reads skill ratings. mastery.Ledger satisfies it.
type RatingReader interface {
	Get(ctx context.Context, learnerID, conceptID string) (mastery.Rating, error)
}

// Diagnoser locates the weakest prerequisite behind a struggle. It reads
// ratings at call time, so callers that hold the rating lock see their own
// post-update values.
type Diagnoser struct {
	graphs  GraphSource
	ratings RatingReader
	cfg     Config
}

func NewDiagnoser(graphs GraphSource, ratings RatingReader, cfg Config) *Diagnoser {
	return &Diagnoser{graphs: graphs, ratings: ratings, cfg: cfg}
}

// Config returns the thresholds the diagnoser was built with.
func (d *Diagnoser) Config() Config { return d.cfg }

// Diagnose returns the weakest prerequisite of conceptID for the learner, or
// nil when no prerequisite is below the weak cutoff.
func (d *Diagnoser) Diagnose(ctx context.Context, learnerID, conceptID string) (*Diagnosis, error) {
	g := d.graphs.Load()
	if g == nil {
		return nil, fmt.Errorf("diagnose %q: no concept graph loaded", conceptID)
	}

	lookup := conceptgraph.RatingLookupFunc(func(ctx context.Context, id string) (float64, error) {
		r, err := d.ratings.Get(ctx, learnerID, id)
		if err != nil {
			return 0, err
		}
		return r.Rating, nil
	})

	cutoff := d.cfg.WeakCutoff()
	weak, err := g.WeakestPrerequisite(ctx, conceptID, lookup, conceptgraph.Criteria{
		Cutoff:   cutoff,
		MaxDepth: d.cfg.MaxDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("diagnose %q: %w", conceptID, err)
	}
	if weak == nil {
		return nil, nil
	}

	return &Diagnosis{
		LearnerID:        learnerID,
		TriggerConceptID: conceptID,
		WeakConceptID:    weak.ConceptID,
		WeakRating:       weak.Rating,
		Depth:            weak.Depth,
		Cutoff:           cutoff,
	}, nil
}

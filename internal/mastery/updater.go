package mastery

import (
	"context"
	"fmt"
	"time"
)

// RatingChange describes one applied rating update.
type RatingChange struct {
	ConceptID string  `json:"concept_id"`
	Old       float64 `json:"old_rating"`
	New       float64 `json:"new_rating"`
	Delta     float64 `json:"delta"`
}

// Updater applies rating updates through a Ledger. Callers serialize
// concurrent updates for the same (learner, concept) pair.
type Updater struct {
	ledger Ledger
	now    func() time.Time
}

func NewUpdater(ledger Ledger) *Updater {
	return &Updater{ledger: ledger, now: time.Now}
}

// Apply reads the current rating, computes the update and writes it back.
func (u *Updater) Apply(ctx context.Context, learnerID, conceptID string, composite float64, tier int) (RatingChange, error) {
	cur, err := u.ledger.Get(ctx, learnerID, conceptID)
	if err != nil {
		return RatingChange{}, fmt.Errorf("get rating: %w", err)
	}

	next, err := Update(cur.Rating, composite, tier)
	if err != nil {
		return RatingChange{}, err
	}

	err = u.ledger.Put(ctx, Rating{
		LearnerID: learnerID,
		ConceptID: conceptID,
		Rating:    next,
		UpdatedAt: u.now().UTC(),
	})
	if err != nil {
		return RatingChange{}, fmt.Errorf("put rating: %w", err)
	}

	return RatingChange{
		ConceptID: conceptID,
		Old:       cur.Rating,
		New:       next,
		Delta:     next - cur.Rating,
	}, nil
}

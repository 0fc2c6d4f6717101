package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abhisek/cognify/internal/mastery"
)

// SkillRepo is the sqlite mastery.Ledger.
type SkillRepo struct {
	db *sql.DB
}

var _ mastery.Ledger = (*SkillRepo)(nil)

// Get returns the stored rating, or mastery.DefaultRating for an unseen
// pair. Nothing is written for an unseen pair.
func (r *SkillRepo) Get(ctx context.Context, learnerID, conceptID string) (mastery.Rating, error) {
	out := mastery.Rating{LearnerID: learnerID, ConceptID: conceptID}
	var updated string
	err := r.db.QueryRowContext(ctx,
		`SELECT rating, updated_at FROM skill_ratings WHERE learner_id = ? AND concept_id = ?`,
		learnerID, conceptID,
	).Scan(&out.Rating, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		out.Rating = mastery.DefaultRating
		return out, nil
	}
	if err != nil {
		return mastery.Rating{}, fmt.Errorf("query skill rating: %w", err)
	}
	if out.UpdatedAt, err = parseTime(updated); err != nil {
		return mastery.Rating{}, err
	}
	return out, nil
}

// Put upserts a rating.
func (r *SkillRepo) Put(ctx context.Context, rt mastery.Rating) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO skill_ratings (learner_id, concept_id, rating, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (learner_id, concept_id) DO UPDATE SET
			rating = excluded.rating,
			updated_at = excluded.updated_at`,
		rt.LearnerID, rt.ConceptID, rt.Rating, formatTime(rt.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert skill rating: %w", err)
	}
	return nil
}

// List returns every stored rating of the learner, weakest first.
func (r *SkillRepo) List(ctx context.Context, learnerID string) ([]mastery.Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT concept_id, rating, updated_at FROM skill_ratings
		WHERE learner_id = ?
		ORDER BY rating ASC, concept_id ASC`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("query skill ratings: %w", err)
	}
	defer rows.Close()

	var out []mastery.Rating
	for rows.Next() {
		rt := mastery.Rating{LearnerID: learnerID}
		var updated string
		if err := rows.Scan(&rt.ConceptID, &rt.Rating, &updated); err != nil {
			return nil, fmt.Errorf("scan skill rating: %w", err)
		}
		if rt.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

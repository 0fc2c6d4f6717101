package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendDiagnosis records the outcome of a diagnosis run.
func (r *EventRepo) AppendDiagnosis(ctx context.Context, data DiagnosisEventData) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		var rating sql.NullFloat64
		if data.WeakConceptID != "" {
			rating = sql.NullFloat64{Float64: data.WeakRating, Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO diagnosis_events (sequence, attempt_id, learner_id, trigger_concept_id,
				weak_concept_id, weak_rating, depth, error_category, classifier, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seq, data.AttemptID, data.LearnerID, data.TriggerConceptID, data.WeakConceptID, rating,
			data.Depth, data.ErrorCategory, data.ClassifierName, formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("save diagnosis event: %w", err)
		}
		return nil
	})
}

// CountDiagnoses returns how many diagnoses named conceptID as the weak
// prerequisite for the learner.
func (r *EventRepo) CountDiagnoses(ctx context.Context, learnerID, conceptID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM diagnosis_events WHERE learner_id = ? AND weak_concept_id = ?`,
		learnerID, conceptID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count diagnoses: %w", err)
	}
	return n, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// AttemptRepo persists practice attempts.
type AttemptRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Insert stores a new attempt and assigns its sequence number.
func (r *AttemptRepo) Insert(ctx context.Context, a *AttemptRecord) error {
	concepts, err := json.Marshal(a.ConceptIDs)
	if err != nil {
		return fmt.Errorf("marshal concept ids: %w", err)
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (id, sequence, learner_id, session_id, question_id, concept_id,
				concept_ids, correct, time_taken_secs, retries, hint_used, confidence,
				difficulty_tier, composite, error_category, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, seq, a.LearnerID, a.SessionID, a.QuestionID, a.PrimaryConcept(), string(concepts),
			boolInt(a.Correct), a.TimeTakenSecs, a.Retries, boolInt(a.HintUsed), a.Confidence,
			a.DifficultyTier, a.Composite, a.ErrorCategory, formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		a.Sequence = seq
		return nil
	})
}

// AvgTimeForTier returns the learner's mean time taken on attempts whose
// primary concept is conceptID at the tier, and how many attempts
// contributed.
func (r *AttemptRepo) AvgTimeForTier(ctx context.Context, learnerID, conceptID string, tier int) (float64, int, error) {
	var avg sql.NullFloat64
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(time_taken_secs), COUNT(*) FROM attempts
		WHERE learner_id = ? AND concept_id = ? AND difficulty_tier = ?`,
		learnerID, conceptID, tier,
	).Scan(&avg, &n)
	if err != nil {
		return 0, 0, fmt.Errorf("query average time: %w", err)
	}
	return avg.Float64, n, nil
}

// Recent returns the learner's latest attempts, newest first.
func (r *AttemptRepo) Recent(ctx context.Context, learnerID string, limit int) ([]AttemptRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sequence, learner_id, session_id, question_id, concept_ids, correct,
			time_taken_secs, retries, hint_used, confidence, difficulty_tier, composite,
			error_category, created_at
		FROM attempts WHERE learner_id = ?
		ORDER BY sequence DESC LIMIT ?`, learnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Readiness is the mean composite of the learner's last n attempts, and the
// number of attempts it was computed from.
func (r *AttemptRepo) Readiness(ctx context.Context, learnerID string, n int) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(composite), COUNT(*) FROM (
			SELECT composite FROM attempts WHERE learner_id = ?
			ORDER BY sequence DESC LIMIT ?
		)`, learnerID, n,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query readiness: %w", err)
	}
	return avg.Float64, count, nil
}

func scanAttempt(rows *sql.Rows) (AttemptRecord, error) {
	var (
		a                 AttemptRecord
		concepts, created string
		correct, hintUsed int
	)
	err := rows.Scan(&a.ID, &a.Sequence, &a.LearnerID, &a.SessionID, &a.QuestionID, &concepts,
		&correct, &a.TimeTakenSecs, &a.Retries, &hintUsed, &a.Confidence, &a.DifficultyTier,
		&a.Composite, &a.ErrorCategory, &created)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("scan attempt: %w", err)
	}
	if err := json.Unmarshal([]byte(concepts), &a.ConceptIDs); err != nil {
		return AttemptRecord{}, fmt.Errorf("unmarshal concept ids: %w", err)
	}
	a.Correct = correct != 0
	a.HintUsed = hintUsed != 0
	if a.CreatedAt, err = parseTime(created); err != nil {
		return AttemptRecord{}, err
	}
	return a, nil
}

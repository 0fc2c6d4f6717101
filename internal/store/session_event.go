package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendSessionEvent records a session start or end.
func (r *EventRepo) AppendSessionEvent(ctx context.Context, data SessionEventData) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_events (sequence, session_id, learner_id, action, total_attempts,
				total_correct, duration_secs, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			seq, data.SessionID, data.LearnerID, data.Action, data.TotalAttempts, data.TotalCorrect,
			int64(data.Duration/time.Second), formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("save session event: %w", err)
		}
		return nil
	})
}

// SessionCount returns how many sessions the learner has finished.
func (r *EventRepo) SessionCount(ctx context.Context, learnerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_events WHERE learner_id = ? AND action = ?`,
		learnerID, SessionEnd).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

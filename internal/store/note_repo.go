package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/abhisek/cognify/internal/memory"
)

// NoteRepo is the sqlite memory.NoteStore.
type NoteRepo struct {
	db *sql.DB
}

var _ memory.NoteStore = (*NoteRepo)(nil)

func (r *NoteRepo) AppendNote(ctx context.Context, n memory.Note) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learner_notes (learner_id, concept_id, text, correct, composite, time_ratio, hint_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.LearnerID, n.ConceptID, n.Text, boolInt(n.Correct), n.Composite, n.TimeRatio,
		boolInt(n.HintUsed), formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// RecentNotes returns up to limit of the learner's latest notes, oldest first.
func (r *NoteRepo) RecentNotes(ctx context.Context, learnerID string, limit int) ([]memory.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT concept_id, text, correct, composite, time_ratio, hint_used, created_at FROM (
			SELECT * FROM learner_notes WHERE learner_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, learnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var out []memory.Note
	for rows.Next() {
		n := memory.Note{LearnerID: learnerID}
		var correct, hint int
		var created string
		if err := rows.Scan(&n.ConceptID, &n.Text, &correct, &n.Composite, &n.TimeRatio, &hint, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.Correct, n.HintUsed = correct != 0, hint != 0
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

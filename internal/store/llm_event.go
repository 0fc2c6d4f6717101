package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/cognify/internal/llm"
)

var _ llm.RequestRecorder = (*EventRepo)(nil)

// RecordLLMRequest appends an LLM request event.
func (r *EventRepo) RecordLLMRequest(ctx context.Context, ev llm.RequestEvent) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO llm_request_events (sequence, provider, model, purpose, learner_id,
				input_tokens, output_tokens, latency_ms, success, error_message,
				request_body, response_body, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seq, ev.Provider, ev.Model, ev.Purpose, ev.LearnerID, ev.InputTokens, ev.OutputTokens,
			ev.LatencyMs, boolInt(ev.Success), ev.ErrorMessage, ev.RequestBody, ev.ResponseBody,
			formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("save LLM request event: %w", err)
		}
		return nil
	})
}

const llmEventColumns = `sequence, created_at, provider, model, purpose, learner_id, input_tokens,
	output_tokens, latency_ms, success, error_message, request_body, response_body`

// QueryLLMEvents lists LLM events newest first.
func (r *EventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	var (
		where []string
		args  []any
	)
	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.Before > 0 {
		where = append(where, "sequence < ?")
		args = append(args, opts.Before)
	}
	if opts.LearnerID != "" {
		where = append(where, "learner_id = ?")
		args = append(args, opts.LearnerID)
	}
	if opts.Purpose != "" {
		where = append(where, "purpose = ?")
		args = append(args, opts.Purpose)
	}

	q := `SELECT ` + llmEventColumns + ` FROM llm_request_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetLLMEvent returns one event by ID, or nil if it does not exist.
func (r *EventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+llmEventColumns+` FROM llm_request_events WHERE sequence = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query LLM event: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanLLMEvent(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LLMUsageByPurpose aggregates token usage per purpose.
func (r *EventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.llmUsage(ctx, "purpose")
}

// LLMUsageByModel aggregates token usage per model.
func (r *EventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.llmUsage(ctx, "model")
}

func (r *EventRepo) llmUsage(ctx context.Context, column string) ([]LLMUsage, error) {
	if column != "purpose" && column != "model" {
		return nil, errors.New("unsupported usage grouping: " + column)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
			CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)
		FROM llm_request_events GROUP BY `+column+` ORDER BY COUNT(*) DESC, `+column)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var u LLMUsage
		if err := rows.Scan(&u.Key, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LLMUsageByLearner aggregates token usage per learner, purpose and model.
// Calls made without a learner (startup checks) are excluded. An empty
// learnerID returns every learner.
func (r *EventRepo) LLMUsageByLearner(ctx context.Context, learnerID string) ([]LearnerLessonUsage, error) {
	q := `
		SELECT learner_id, purpose, model, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
			COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM llm_request_events WHERE learner_id != ''`
	var args []any
	if learnerID != "" {
		q += ` AND learner_id = ?`
		args = append(args, learnerID)
	}
	q += ` GROUP BY learner_id, purpose, model ORDER BY learner_id, purpose, model`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query learner LLM usage: %w", err)
	}
	defer rows.Close()

	var out []LearnerLessonUsage
	for rows.Next() {
		var u LearnerLessonUsage
		if err := rows.Scan(&u.LearnerID, &u.Purpose, &u.Model, &u.Calls, &u.Failed,
			&u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan learner LLM usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanLLMEvent(rows *sql.Rows) (LLMEvent, error) {
	var (
		e       LLMEvent
		created string
		success int
	)
	err := rows.Scan(&e.ID, &created, &e.Provider, &e.Model, &e.Purpose, &e.LearnerID, &e.InputTokens,
		&e.OutputTokens, &e.LatencyMs, &success, &e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	if err != nil {
		return LLMEvent{}, fmt.Errorf("scan LLM event: %w", err)
	}
	e.Success = success != 0
	if e.Timestamp, err = parseTime(created); err != nil {
		return LLMEvent{}, err
	}
	return e, nil
}

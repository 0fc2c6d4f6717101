package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/remediation"
)

// EpisodeRepo is the sqlite remediation.EpisodeStore.
type EpisodeRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var _ remediation.EpisodeStore = (*EpisodeRepo)(nil)

const episodeColumns = `id, learner_id, weak_concept_id, trigger_concept_id, session_id, status,
	guided_attempts, lesson, reason, resolved_rating, opened_at, updated_at, closed_at`

func (r *EpisodeRepo) LatestEpisode(ctx context.Context, learnerID, conceptID string) (*remediation.Episode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM remediation_episodes
		WHERE learner_id = ? AND weak_concept_id = ?
		ORDER BY opened_at DESC, rowid DESC LIMIT 1`, learnerID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("query latest episode: %w", err)
	}
	eps, err := scanEpisodes(rows)
	if err != nil {
		return nil, err
	}
	if len(eps) == 0 {
		return nil, nil
	}
	return &eps[0], nil
}

func (r *EpisodeRepo) OpenEpisodes(ctx context.Context, learnerID string) ([]remediation.Episode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM remediation_episodes
		WHERE learner_id = ? AND closed_at IS NULL AND status IN (?, ?)
		ORDER BY opened_at ASC`,
		learnerID, string(remediation.StatusTriggered), string(remediation.StatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("query open episodes: %w", err)
	}
	return scanEpisodes(rows)
}

// History lists the learner's episodes, newest first.
func (r *EpisodeRepo) History(ctx context.Context, learnerID string, limit int) ([]remediation.Episode, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM remediation_episodes
		WHERE learner_id = ? ORDER BY opened_at DESC LIMIT ?`, learnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	return scanEpisodes(rows)
}

func (r *EpisodeRepo) SaveEpisode(ctx context.Context, ep *remediation.Episode) error {
	var lesson sql.NullString
	if ep.Lesson != nil {
		b, err := json.Marshal(ep.Lesson)
		if err != nil {
			return fmt.Errorf("marshal lesson: %w", err)
		}
		lesson = sql.NullString{String: string(b), Valid: true}
	}
	var resolved sql.NullFloat64
	if ep.ResolvedRating != nil {
		resolved = sql.NullFloat64{Float64: *ep.ResolvedRating, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO remediation_episodes (`+episodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			guided_attempts = excluded.guided_attempts,
			lesson = excluded.lesson,
			reason = excluded.reason,
			resolved_rating = excluded.resolved_rating,
			updated_at = excluded.updated_at,
			closed_at = excluded.closed_at`,
		ep.ID, ep.LearnerID, ep.WeakConceptID, ep.TriggerConceptID, ep.SessionID, string(ep.Status), ep.GuidedAttempts,
		lesson, ep.Reason, resolved, formatTime(ep.OpenedAt), formatTime(ep.UpdatedAt), nullTime(ep.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("save episode: %w", err)
	}
	return nil
}

func (r *EpisodeRepo) RecordTransition(ctx context.Context, t remediation.Transition) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := r.seq.Next(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO remediation_transitions
				(sequence, episode_id, learner_id, concept_id, from_status, to_status, cause, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			seq, t.EpisodeID, t.LearnerID, t.ConceptID, string(t.From), string(t.To), t.Trigger, formatTime(t.At))
		if err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
		return nil
	})
}

// Transitions returns the recorded transitions of an episode in order.
func (r *EpisodeRepo) Transitions(ctx context.Context, episodeID string) ([]remediation.Transition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT episode_id, learner_id, concept_id, from_status, to_status, cause, created_at
		FROM remediation_transitions WHERE episode_id = ? ORDER BY sequence`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []remediation.Transition
	for rows.Next() {
		var (
			t            remediation.Transition
			from, to, at string
		)
		if err := rows.Scan(&t.EpisodeID, &t.LearnerID, &t.ConceptID, &from, &to, &t.Trigger, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.From, t.To = remediation.Status(from), remediation.Status(to)
		if t.At, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanEpisodes(rows *sql.Rows) ([]remediation.Episode, error) {
	defer rows.Close()
	var out []remediation.Episode
	for rows.Next() {
		var (
			ep                      remediation.Episode
			status, opened, updated string
			lesson, closed          sql.NullString
			resolved                sql.NullFloat64
		)
		err := rows.Scan(&ep.ID, &ep.LearnerID, &ep.WeakConceptID, &ep.TriggerConceptID, &ep.SessionID, &status,
			&ep.GuidedAttempts, &lesson, &ep.Reason, &resolved, &opened, &updated, &closed)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.Status = remediation.Status(status)
		if lesson.Valid {
			ep.Lesson = &lessons.Lesson{}
			if err := json.Unmarshal([]byte(lesson.String), ep.Lesson); err != nil {
				return nil, fmt.Errorf("episode %s: unmarshal lesson: %w", ep.ID, err)
			}
		}
		if resolved.Valid {
			v := resolved.Float64
			ep.ResolvedRating = &v
		}
		if ep.OpenedAt, err = parseTime(opened); err != nil {
			return nil, err
		}
		if ep.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		if closed.Valid {
			t, err := parseTime(closed.String)
			if err != nil {
				return nil, err
			}
			ep.ClosedAt = &t
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

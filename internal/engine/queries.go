package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/mastery"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/session"
	"github.com/abhisek/cognify/internal/store"
)

// defaultReadiness is reported for a learner with no attempts.
const defaultReadiness = 0.5

// Skills returns the learner's stored ratings, weakest first.
func (e *Engine) Skills(ctx context.Context, learnerID string) ([]mastery.Rating, error) {
	rs, err := e.deps.Ledger.List(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return rs, nil
}

// Dashboard summarizes a learner's standing.
type Dashboard struct {
	LearnerID      string                `json:"learner_id"`
	Skills         []mastery.Rating      `json:"skills"`
	Weak           []mastery.Rating      `json:"weak"`
	Strong         []mastery.Rating      `json:"strong"`
	RecentAttempts []store.AttemptRecord `json:"recent_attempts"`
	Readiness      float64               `json:"readiness"`
	Remediation    []remediation.Episode `json:"active_remediation"`
}

// Dashboard returns the learner's skill vector, weak and strong concepts,
// recent attempts and readiness (mean composite of recent attempts).
func (e *Engine) Dashboard(ctx context.Context, learnerID string) (*Dashboard, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Dashboard")
	defer span.End()

	skills, err := e.Skills(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		LearnerID: learnerID,
		Skills:    skills,
		Weak:      []mastery.Rating{},
		Strong:    []mastery.Rating{},
		Readiness: defaultReadiness,
	}
	cutoff := e.cfg.WeakCutoff()
	for _, r := range skills {
		switch {
		case r.Rating < cutoff:
			d.Weak = append(d.Weak, r)
		case r.Rating > e.cfg.StrongRating:
			d.Strong = append(d.Strong, r)
		}
	}

	if d.RecentAttempts, err = e.deps.Attempts.Recent(ctx, learnerID, e.cfg.RecentAttempts); err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	readiness, n, err := e.deps.Attempts.Readiness(ctx, learnerID, e.cfg.RecentAttempts)
	if err != nil {
		return nil, fmt.Errorf("readiness: %w", err)
	}
	if n > 0 {
		d.Readiness = readiness
	}

	if e.deps.Remediation != nil {
		if d.Remediation, err = e.deps.Remediation.Active(ctx, learnerID); err != nil {
			return nil, fmt.Errorf("active remediation: %w", err)
		}
	}
	return d, nil
}

// Graph returns the current concept graph.
func (e *Engine) Graph() *conceptgraph.Graph {
	return e.deps.Graphs.Load()
}

// LoadGraph upserts concepts and prerequisite edges into the current graph,
// re-validates it, persists it and makes it current. On any failure the
// current graph is left unchanged.
func (e *Engine) LoadGraph(ctx context.Context, concepts []conceptgraph.Concept, edges []conceptgraph.Edge) (*conceptgraph.Graph, error) {
	ctx, span := e.tracer.Start(ctx, "engine.LoadGraph")
	defer span.End()

	e.graphMu.Lock()
	defer e.graphMu.Unlock()

	var (
		next *conceptgraph.Graph
		err  error
	)
	if cur := e.deps.Graphs.Load(); cur != nil {
		next, err = cur.Upsert(concepts, edges)
	} else {
		next, err = conceptgraph.Build(concepts, edges)
	}
	if err != nil {
		return nil, err
	}

	if e.deps.GraphStore != nil {
		if err := e.deps.GraphStore.Save(ctx, next); err != nil {
			return nil, fmt.Errorf("persist graph: %w", err)
		}
	}
	e.deps.Graphs.Store(next)
	e.log.Info("concept graph loaded",
		zap.Int("concepts", next.Len()),
		zap.Int("upserted", len(concepts)),
		zap.Int("edges", len(edges)))
	return next, nil
}

// SessionEnd is the result of ending a learner's session.
type SessionEnd struct {
	Summary  *session.Summary      `json:"summary,omitempty"`
	Archived []remediation.Episode `json:"archived_remediation"`
}

// EndSession closes the learner's session and archives any open
// remediation episodes.
func (e *Engine) EndSession(ctx context.Context, learnerID string) (*SessionEnd, error) {
	if learnerID == "" {
		return nil, invalid(&mastery.FieldError{Field: "learner_id", Value: learnerID, Reason: "must not be empty"})
	}
	out := &SessionEnd{Summary: e.sessions.End(learnerID), Archived: []remediation.Episode{}}

	if e.deps.Remediation != nil {
		archived, err := e.deps.Remediation.Abandon(ctx, learnerID)
		if err != nil {
			return nil, fmt.Errorf("archive remediation: %w", err)
		}
		if archived != nil {
			out.Archived = archived
		}
	}

	if out.Summary != nil {
		e.recordSessionEnd(ctx, out.Summary)
	}
	return out, nil
}

// IsInvalidAttempt reports whether err rejects the attempt's input.
func IsInvalidAttempt(err error) bool {
	return errors.Is(err, ErrInvalidAttempt)
}

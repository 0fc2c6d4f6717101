// Package engine runs the attempt pipeline: score the attempt, update the
// learner's rating, diagnose struggles against the concept graph and hand
// weak prerequisites to remediation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/diagnosis"
	"github.com/abhisek/cognify/internal/mastery"
	"github.com/abhisek/cognify/internal/memory"
	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/remediation"
	"github.com/abhisek/cognify/internal/session"
	"github.com/abhisek/cognify/internal/store"
)

const tracerName = "github.com/abhisek/cognify/internal/engine"

// TimeAggregate reports a learner's historical average time on a concept
// at a difficulty tier.
type TimeAggregate interface {
	AvgTimeForTier(ctx context.Context, learnerID, conceptID string, tier int) (avg float64, samples int, err error)
}

// AttemptStore persists attempts. store.AttemptRepo satisfies it.
type AttemptStore interface {
	Insert(ctx context.Context, a *store.AttemptRecord) error
	Recent(ctx context.Context, learnerID string, limit int) ([]store.AttemptRecord, error)
	Readiness(ctx context.Context, learnerID string, n int) (float64, int, error)
}

// GraphStore persists the concept graph.
type GraphStore interface {
	Save(ctx context.Context, g *conceptgraph.Graph) error
}

// EventLog receives audit events. store.EventRepo satisfies it.
type EventLog interface {
	AppendDiagnosis(ctx context.Context, data store.DiagnosisEventData) error
	AppendSessionEvent(ctx context.Context, data store.SessionEventData) error
}

// Remediator runs remediation episodes. remediation.Orchestrator satisfies it.
type Remediator interface {
	Evaluate(ctx context.Context, req remediation.Request) (*remediation.Directive, error)
	RecordGuidedAttempt(ctx context.Context, learnerID, conceptID string, newRating float64) (*remediation.Episode, error)
	Abandon(ctx context.Context, learnerID string) ([]remediation.Episode, error)
	ArchiveStale(ctx context.Context, learnerID, sessionID string, since time.Time) ([]remediation.Episode, error)
	Active(ctx context.Context, learnerID string) ([]remediation.Episode, error)
}

// Deps are the engine's collaborators. Graphs, Ledger and Attempts are
// required; the rest may be nil.
type Deps struct {
	Graphs      *conceptgraph.Holder
	Ledger      mastery.Ledger
	Attempts    AttemptStore
	Times       TimeAggregate
	GraphStore  GraphStore
	Events      EventLog
	Remediation Remediator
	Memory      memory.LearnerMemory
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	Logger      *zap.Logger
}

// Engine processes attempts. Safe for concurrent use.
type Engine struct {
	deps        Deps
	cfg         Config
	updater     *mastery.Updater
	diagnoser   *diagnosis.Diagnoser
	classifiers []diagnosis.Classifier
	sessions    *session.Tracker
	locks       *keyedMutex
	graphMu     sync.Mutex
	log         *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

func New(deps Deps, cfg Config) (*Engine, error) {
	switch {
	case deps.Graphs == nil:
		return nil, errors.New("engine: graph holder is required")
	case deps.Ledger == nil:
		return nil, errors.New("engine: skill ledger is required")
	case deps.Attempts == nil:
		return nil, errors.New("engine: attempt store is required")
	}
	if deps.Memory == nil {
		deps.Memory = memory.Nop{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	if cfg.DefaultAvgTimeSecs <= 0 {
		cfg.DefaultAvgTimeSecs = DefaultAvgTimeSecs
	}
	if cfg.RecentAttempts <= 0 {
		cfg.RecentAttempts = 10
	}

	return &Engine{
		deps:        deps,
		cfg:         cfg,
		updater:     mastery.NewUpdater(deps.Ledger),
		diagnoser:   diagnosis.NewDiagnoser(deps.Graphs, deps.Ledger, cfg.Diagnosis()),
		classifiers: diagnosis.DefaultClassifiers(),
		sessions:    session.NewTracker(cfg.SessionIdle),
		locks:       newKeyedMutex(),
		log:         log,
		tracer:      tracer,
		now:         time.Now,
	}, nil
}

// AttemptInput is a submitted practice attempt. Retries arrive already
// resolved by the client.
type AttemptInput struct {
	LearnerID      string   `json:"learner_id"`
	SessionID      string   `json:"session_id,omitempty"`
	QuestionID     string   `json:"question_id,omitempty"`
	ConceptIDs     []string `json:"concept_ids"`
	Correct        bool     `json:"correct"`
	TimeTakenSecs  float64  `json:"time_taken_secs"`
	Retries        int      `json:"retries"`
	HintUsed       bool     `json:"hint_used"`
	Confidence     int      `json:"confidence"`
	DifficultyTier int      `json:"difficulty_tier"`
}

func (in AttemptInput) signals() mastery.Signals {
	return mastery.Signals{
		Correct:       in.Correct,
		TimeTakenSecs: in.TimeTakenSecs,
		Retries:       in.Retries,
		HintUsed:      in.HintUsed,
		Confidence:    in.Confidence,
	}
}

// Result is the outcome of one attempt.
type Result struct {
	AttemptID     string                  `json:"attempt_id"`
	SessionID     string                  `json:"session_id"`
	ConceptID     string                  `json:"concept_id"`
	Composite     float64                 `json:"composite_score"`
	Breakdown     mastery.Breakdown       `json:"breakdown"`
	OldRating     float64                 `json:"old_rating"`
	NewRating     float64                 `json:"new_rating"`
	Delta         float64                 `json:"rating_delta"`
	ErrorCategory diagnosis.ErrorCategory `json:"error_category,omitempty"`
	Diagnosis     *diagnosis.Diagnosis    `json:"diagnosis,omitempty"`
	Remediation   *remediation.Directive  `json:"remediation,omitempty"`
	GuidedEpisode *remediation.Episode    `json:"guided_episode,omitempty"`
}

// Submit scores an attempt, persists it, updates the rating of its primary
// concept and, when the learner is struggling, diagnoses and remediates.
//
// The attempt is persisted before the rating update and is never removed by
// a later failure. Reads and writes of one (learner, concept) rating are
// serialized; content generation runs after the lock is released.
func (e *Engine) Submit(ctx context.Context, in AttemptInput) (*Result, error) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, "engine.Submit", trace.WithAttributes(
		attribute.String("learner.id", in.LearnerID),
		attribute.Int("attempt.tier", in.DifficultyTier),
	))
	defer span.End()

	res, err := e.submit(ctx, span, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	e.deps.Metrics.ObserveAttempt(in.Correct, res.Composite, res.Delta, e.now().Sub(start))
	return res, nil
}

func (e *Engine) submit(ctx context.Context, span trace.Span, in AttemptInput) (*Result, error) {
	if err := e.validate(in); err != nil {
		return nil, err
	}
	conceptID := in.ConceptIDs[0]
	span.SetAttributes(attribute.String("concept.id", conceptID))

	avg := e.avgTime(ctx, in.LearnerID, conceptID, in.DifficultyTier)
	breakdown, err := mastery.Components(in.signals(), avg)
	if err != nil {
		return nil, invalid(err)
	}
	composite := breakdown.Composite()

	attemptID := uuid.NewString()
	log := e.log.With(
		zap.String("learner", in.LearnerID),
		zap.String("concept", conceptID),
		zap.String("attempt", attemptID),
	)

	sess := e.beginSession(ctx, log, in.LearnerID, in.SessionID)

	res, diag, err := e.applyLocked(ctx, log, in, sess.SessionID, attemptID, breakdown, avg)
	if err != nil {
		return nil, err
	}

	if diag != nil && e.deps.Remediation != nil {
		res.Remediation = e.remediate(ctx, log, sess.SessionID, diag)
	}

	e.remember(ctx, log, in, res, avg)

	log.Debug("attempt processed",
		zap.Float64("composite", composite),
		zap.Float64("old_rating", res.OldRating),
		zap.Float64("new_rating", res.NewRating))
	return res, nil
}

// beginSession resolves the learner's session for an attempt. When a new
// session opens, the one it replaces is logged as ended and remediation
// episodes left open by earlier sessions are archived.
func (e *Engine) beginSession(ctx context.Context, log *zap.Logger, learnerID, sessionID string) session.Outcome {
	sess := e.sessions.Begin(learnerID, sessionID)
	if !sess.Started {
		return sess
	}

	// Without an ended session in this process, a known session ID may be
	// one continued from an earlier process, so its episodes stay.
	var since time.Time
	if sess.Ended != nil {
		e.recordSessionEnd(ctx, sess.Ended)
		since = sess.StartedAt
	}
	if e.deps.Remediation != nil {
		archived, err := e.deps.Remediation.ArchiveStale(ctx, learnerID, sess.SessionID, since)
		if err != nil {
			log.Warn("failed to archive stale remediation", zap.Error(err))
		} else if len(archived) > 0 {
			log.Info("archived remediation from earlier session", zap.Int("episodes", len(archived)))
		}
	}
	if e.deps.Events != nil {
		if err := e.deps.Events.AppendSessionEvent(ctx, store.SessionEventData{
			SessionID: sess.SessionID,
			LearnerID: learnerID,
			Action:    store.SessionStart,
		}); err != nil {
			log.Warn("failed to record session start", zap.Error(err))
		}
	}
	return sess
}

func (e *Engine) recordSessionEnd(ctx context.Context, sum *session.Summary) {
	if e.deps.Events == nil {
		return
	}
	err := e.deps.Events.AppendSessionEvent(ctx, store.SessionEventData{
		SessionID:     sum.SessionID,
		LearnerID:     sum.LearnerID,
		Action:        store.SessionEnd,
		TotalAttempts: sum.TotalAttempts,
		TotalCorrect:  sum.TotalCorrect,
		Duration:      sum.Duration,
	})
	if err != nil {
		e.log.Warn("failed to record session end", zap.String("learner", sum.LearnerID), zap.Error(err))
	}
}

// applyLocked runs the read-modify-write part of Submit under the rating
// lock of the attempt's primary concept.
func (e *Engine) applyLocked(ctx context.Context, log *zap.Logger, in AttemptInput, sessionID, attemptID string, b mastery.Breakdown, avg float64) (*Result, *diagnosis.Diagnosis, error) {
	conceptID := in.ConceptIDs[0]
	composite := b.Composite()

	unlock := e.locks.Lock(ratingKey(in.LearnerID, conceptID))
	defer unlock()

	current, err := e.deps.Ledger.Get(ctx, in.LearnerID, conceptID)
	if err != nil {
		return nil, nil, fmt.Errorf("read rating: %w", err)
	}

	var class *diagnosis.Classification
	if !in.Correct {
		c := diagnosis.Classify(e.classifiers, &diagnosis.ClassifyInput{
			TimeTakenSecs: in.TimeTakenSecs,
			AvgTimeSecs:   avg,
			Rating:        current.Rating,
		})
		class = &c
	}

	rec := &store.AttemptRecord{
		ID:             attemptID,
		LearnerID:      in.LearnerID,
		SessionID:      sessionID,
		QuestionID:     in.QuestionID,
		ConceptIDs:     in.ConceptIDs,
		Correct:        in.Correct,
		TimeTakenSecs:  in.TimeTakenSecs,
		Retries:        in.Retries,
		HintUsed:       in.HintUsed,
		Confidence:     in.Confidence,
		DifficultyTier: in.DifficultyTier,
		Composite:      composite,
		CreatedAt:      e.now().UTC(),
	}
	if class != nil {
		rec.ErrorCategory = string(class.Category)
	}
	if err := e.deps.Attempts.Insert(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("persist attempt: %w", err)
	}
	sess := e.sessions.Record(in.LearnerID, sessionID, conceptID, in.Correct)

	change, err := e.updater.Apply(ctx, in.LearnerID, conceptID, composite, in.DifficultyTier)
	if err != nil {
		return nil, nil, fmt.Errorf("update rating: %w", err)
	}

	res := &Result{
		AttemptID: attemptID,
		SessionID: sessionID,
		ConceptID: conceptID,
		Composite: composite,
		Breakdown: b,
		OldRating: change.Old,
		NewRating: change.New,
		Delta:     change.Delta,
	}
	if class != nil {
		res.ErrorCategory = class.Category
	}

	if e.deps.Remediation != nil {
		ep, err := e.deps.Remediation.RecordGuidedAttempt(ctx, in.LearnerID, conceptID, change.New)
		if err != nil {
			log.Warn("failed to record guided attempt", zap.Error(err))
		}
		res.GuidedEpisode = ep
	}

	if !diagnosis.ShouldDiagnose(composite, sess.IncorrectStreak, e.diagnoser.Config()) {
		return res, nil, nil
	}

	diag, err := e.diagnoser.Diagnose(ctx, in.LearnerID, conceptID)
	if err != nil {
		// Diagnosis is advisory; the attempt and rating are already stored.
		log.Warn("diagnosis failed", zap.Error(err))
		e.deps.Metrics.ObserveDiagnosis(metrics.OutcomeError)
		return res, nil, nil
	}
	if diag == nil {
		e.deps.Metrics.ObserveDiagnosis(metrics.OutcomeNoneFound)
	} else {
		e.deps.Metrics.ObserveDiagnosis(metrics.OutcomeWeakFound)
		log.Info("weak prerequisite found",
			zap.String("weak_concept", diag.WeakConceptID),
			zap.Float64("weak_rating", diag.WeakRating),
			zap.Int("depth", diag.Depth))
	}
	res.Diagnosis = diag
	e.recordDiagnosis(ctx, log, attemptID, conceptID, in.LearnerID, diag, class)
	return res, diag, nil
}

func (e *Engine) recordDiagnosis(ctx context.Context, log *zap.Logger, attemptID, conceptID, learnerID string, diag *diagnosis.Diagnosis, class *diagnosis.Classification) {
	if e.deps.Events == nil {
		return
	}
	data := store.DiagnosisEventData{
		AttemptID:        attemptID,
		LearnerID:        learnerID,
		TriggerConceptID: conceptID,
	}
	if diag != nil {
		data.WeakConceptID = diag.WeakConceptID
		data.WeakRating = diag.WeakRating
		data.Depth = diag.Depth
	}
	if class != nil {
		data.ErrorCategory = string(class.Category)
		data.ClassifierName = class.ClassifierName
	}
	if err := e.deps.Events.AppendDiagnosis(ctx, data); err != nil {
		log.Warn("failed to record diagnosis", zap.Error(err))
	}
}

func (e *Engine) remediate(ctx context.Context, log *zap.Logger, sessionID string, diag *diagnosis.Diagnosis) *remediation.Directive {
	ctx, span := e.tracer.Start(ctx, "engine.Remediate", trace.WithAttributes(
		attribute.String("weak_concept.id", diag.WeakConceptID),
	))
	defer span.End()

	g := e.deps.Graphs.Load()
	weak, err := g.Concept(diag.WeakConceptID)
	if err != nil {
		log.Warn("weak concept vanished from graph", zap.Error(err))
		return nil
	}
	trigger, err := g.Concept(diag.TriggerConceptID)
	if err != nil {
		log.Warn("trigger concept vanished from graph", zap.Error(err))
		return nil
	}

	d, err := e.deps.Remediation.Evaluate(ctx, remediation.Request{
		LearnerID:      diag.LearnerID,
		SessionID:      sessionID,
		TriggerConcept: trigger,
		WeakConcept:    weak,
		WeakRating:     diag.WeakRating,
	})
	if err != nil {
		span.RecordError(err)
		log.Warn("remediation failed", zap.Error(err))
		return nil
	}
	return d
}

// remember writes the behavioral note for the attempt. Failures are logged.
func (e *Engine) remember(ctx context.Context, log *zap.Logger, in AttemptInput, res *Result, avg float64) {
	text := memory.AttemptNote(res.ConceptID, in.DifficultyTier, in.Correct, res.Composite,
		res.OldRating, res.NewRating)
	note := memory.Note{
		LearnerID: in.LearnerID,
		ConceptID: res.ConceptID,
		Text:      text,
		Correct:   in.Correct,
		Composite: res.Composite,
		TimeRatio: in.TimeTakenSecs / avg,
		HintUsed:  in.HintUsed,
		CreatedAt: e.now().UTC(),
	}
	if err := e.deps.Memory.Record(ctx, note); err != nil {
		log.Warn("failed to record learner note", zap.Error(err))
	}
}

func (e *Engine) validate(in AttemptInput) error {
	if in.LearnerID == "" {
		return invalid(&mastery.FieldError{Field: "learner_id", Value: in.LearnerID, Reason: "must not be empty"})
	}
	if len(in.ConceptIDs) == 0 {
		return invalid(&mastery.FieldError{Field: "concept_ids", Value: in.ConceptIDs, Reason: "must name at least one concept"})
	}
	if err := in.signals().Validate(); err != nil {
		return invalid(err)
	}
	if err := mastery.ValidateTier(in.DifficultyTier); err != nil {
		return invalid(err)
	}

	g := e.deps.Graphs.Load()
	if g == nil {
		return errors.New("no concept graph loaded")
	}
	for _, id := range in.ConceptIDs {
		if _, err := g.Concept(id); err != nil {
			return err
		}
	}
	return nil
}

// avgTime returns the learner's historical average on the concept at the
// tier, or the configured default when there is no history or the lookup
// fails.
func (e *Engine) avgTime(ctx context.Context, learnerID, conceptID string, tier int) float64 {
	if e.deps.Times == nil {
		return e.cfg.DefaultAvgTimeSecs
	}
	avg, n, err := e.deps.Times.AvgTimeForTier(ctx, learnerID, conceptID, tier)
	if err != nil {
		e.log.Warn("average time lookup failed, using default",
			zap.String("learner", learnerID), zap.String("concept", conceptID),
			zap.Int("tier", tier), zap.Float64("default", e.cfg.DefaultAvgTimeSecs), zap.Error(err))
		return e.cfg.DefaultAvgTimeSecs
	}
	if n == 0 || avg <= 0 {
		return e.cfg.DefaultAvgTimeSecs
	}
	return avg
}

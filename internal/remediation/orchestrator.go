package remediation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/memory"
)

// ContentGenerator writes remediation lessons. lessons.Generator satisfies it.
type ContentGenerator interface {
	Generate(ctx context.Context, req lessons.Request) (*lessons.Lesson, error)
}

// Config holds orchestration limits.
type Config struct {
	// ContentTimeout bounds one content generation call.
	ContentTimeout time.Duration `mapstructure:"content_timeout"`

	// MaxGuidedAttempts resolves an episode after this many guided attempts.
	MaxGuidedAttempts int `mapstructure:"max_guided_attempts"`

	// WeakCutoff is the rating a weak concept must reach to resolve early.
	// Set from the engine thresholds, not read from config.
	WeakCutoff float64 `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		ContentTimeout:    45 * time.Second,
		MaxGuidedAttempts: 2,
		WeakCutoff:        1000,
	}
}

// Request asks the orchestrator to remediate a diagnosed weak prerequisite.
type Request struct {
	LearnerID      string
	SessionID      string
	TriggerConcept conceptgraph.Concept
	WeakConcept    conceptgraph.Concept
	WeakRating     float64
}

// Directive is what the caller reports back to the learner.
type Directive struct {
	EpisodeID        string          `json:"episode_id,omitempty"`
	WeakConceptID    string          `json:"weak_prereq"`
	TriggerConceptID string          `json:"trigger_concept"`
	Status           Status          `json:"status"`
	Lesson           *lessons.Lesson `json:"lesson,omitempty"`
	Unavailable      bool            `json:"unavailable,omitempty"`
	Reason           string          `json:"reason,omitempty"`

	// Existing is set when an already open episode was returned unchanged.
	Existing bool `json:"existing,omitempty"`
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers a callback invoked after every recorded transition.
func WithObserver(fn func(Transition)) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator drives the remediation episode lifecycle:
// not_triggered -> triggered -> in_progress -> resolved.
type Orchestrator struct {
	store   EpisodeStore
	content ContentGenerator
	memory  memory.LearnerMemory
	cfg     Config
	log     *zap.Logger

	flights singleflight.Group
	observe func(Transition)
	now     func() time.Time
}

func NewOrchestrator(store EpisodeStore, content ContentGenerator, mem memory.LearnerMemory, cfg Config, log *zap.Logger, opts ...Option) *Orchestrator {
	if mem == nil {
		mem = memory.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxGuidedAttempts <= 0 {
		cfg.MaxGuidedAttempts = DefaultConfig().MaxGuidedAttempts
	}
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = DefaultConfig().ContentTimeout
	}
	o := &Orchestrator{
		store:   store,
		content: content,
		memory:  mem,
		cfg:     cfg,
		log:     log,
		observe: func(Transition) {},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Evaluate opens a remediation episode for a diagnosed weak prerequisite
// and requests its content. An in-progress episode for the same pair is
// returned unchanged. Concurrent calls for the same pair share one content
// request. Returns (nil, nil) when remediation is suppressed because the
// pair was resolved earlier in the same session and the rating has not
// regressed since.
//
// A content failure is not an error: the episode reverts to not_triggered
// and the directive is marked Unavailable.
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (*Directive, error) {
	key := req.LearnerID + "\x00" + req.WeakConcept.ID
	v, err, _ := o.flights.Do(key, func() (any, error) {
		return o.evaluate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	d, _ := v.(*Directive)
	if d == nil {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, req Request) (*Directive, error) {
	latest, err := o.store.LatestEpisode(ctx, req.LearnerID, req.WeakConcept.ID)
	if err != nil {
		return nil, fmt.Errorf("latest episode: %w", err)
	}

	if latest != nil {
		switch {
		case latest.Open() && latest.Status == StatusInProgress:
			return directiveFor(latest, true), nil
		case latest.Open() && o.now().Sub(latest.UpdatedAt) < 2*o.cfg.ContentTimeout:
			// Content is being generated elsewhere.
			return directiveFor(latest, true), nil
		case latest.Open():
			if err := o.transition(ctx, latest, StatusNotTriggered, TriggerStale); err != nil {
				return nil, err
			}
		case suppressed(latest, req):
			return nil, nil
		}
	}

	now := o.now().UTC()
	ep := &Episode{
		ID:               uuid.NewString(),
		LearnerID:        req.LearnerID,
		WeakConceptID:    req.WeakConcept.ID,
		TriggerConceptID: req.TriggerConcept.ID,
		SessionID:        req.SessionID,
		Status:           StatusNotTriggered,
		OpenedAt:         now,
		UpdatedAt:        now,
	}
	if err := o.transition(ctx, ep, StatusTriggered, TriggerDiagnosis); err != nil {
		return nil, err
	}

	lesson, genErr := o.generate(ctx, req)

	// The episode must not stay triggered because the caller went away.
	wctx := context.WithoutCancel(ctx)
	if genErr != nil {
		o.log.Warn("remediation content unavailable",
			zap.String("learner", req.LearnerID),
			zap.String("concept", req.WeakConcept.ID),
			zap.String("episode", ep.ID),
			zap.Error(genErr))
		ep.Reason = ReasonUnavailable
		if err := o.transition(wctx, ep, StatusNotTriggered, TriggerContentFailed); err != nil {
			return nil, err
		}
		d := directiveFor(ep, false)
		d.Unavailable = true
		d.Reason = ReasonUnavailable
		return d, nil
	}

	ep.Lesson = lesson
	if err := o.transition(wctx, ep, StatusInProgress, TriggerContentReady); err != nil {
		return nil, err
	}
	return directiveFor(ep, false), nil
}

func (o *Orchestrator) generate(ctx context.Context, req Request) (*lessons.Lesson, error) {
	if o.content == nil {
		return nil, lessons.ErrNoProvider
	}

	var learnerContext string
	if profile, err := o.memory.Profile(ctx, req.LearnerID); err != nil {
		o.log.Warn("learner memory unavailable", zap.String("learner", req.LearnerID), zap.Error(err))
	} else {
		learnerContext = profile.Context()
	}

	gctx, cancel := context.WithTimeout(ctx, o.cfg.ContentTimeout)
	defer cancel()
	lesson, err := o.content.Generate(gctx, lessons.Request{
		LearnerID:      req.LearnerID,
		WeakConcept:    req.WeakConcept,
		TriggerConcept: req.TriggerConcept,
		WeakRating:     req.WeakRating,
		LearnerContext: learnerContext,
	})
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, fmt.Errorf("content generator returned no lesson")
	}
	return lesson, nil
}

// RecordGuidedAttempt counts an attempt on conceptID against the learner's
// in-progress episode for it, resolving the episode when the rating clears
// the weak cutoff or the guided limit is reached. Returns the updated
// episode, or nil when no episode is in progress for the concept.
func (o *Orchestrator) RecordGuidedAttempt(ctx context.Context, learnerID, conceptID string, newRating float64) (*Episode, error) {
	ep, err := o.store.LatestEpisode(ctx, learnerID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("latest episode: %w", err)
	}
	if ep == nil || !ep.Open() || ep.Status != StatusInProgress {
		return nil, nil
	}

	ep.GuidedAttempts++
	trigger := ""
	switch {
	case newRating >= o.cfg.WeakCutoff:
		trigger = TriggerRatingCleared
	case ep.GuidedAttempts >= o.cfg.MaxGuidedAttempts:
		trigger = TriggerGuidedLimit
	}

	if trigger == "" {
		ep.UpdatedAt = o.now().UTC()
		if err := o.store.SaveEpisode(ctx, ep); err != nil {
			return nil, fmt.Errorf("save episode: %w", err)
		}
		return ep, nil
	}

	rating := newRating
	ep.ResolvedRating = &rating
	closed := o.now().UTC()
	ep.ClosedAt = &closed
	ep.Reason = trigger
	if err := o.transition(ctx, ep, StatusResolved, trigger); err != nil {
		return nil, err
	}
	return ep, nil
}

// suppressed reports whether a resolved episode still covers req: it was
// resolved in the requesting session and the weak rating has not dropped
// below the rating it resolved at.
func suppressed(latest *Episode, req Request) bool {
	return latest.Status == StatusResolved &&
		latest.ResolvedRating != nil &&
		latest.SessionID == req.SessionID &&
		req.WeakRating >= *latest.ResolvedRating
}

// Abandon archives every open episode of the learner. Status is preserved
// so history shows where each episode stopped.
func (o *Orchestrator) Abandon(ctx context.Context, learnerID string) ([]Episode, error) {
	open, err := o.store.OpenEpisodes(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("open episodes: %w", err)
	}
	return o.archive(ctx, open, TriggerSessionEnd)
}

// ArchiveStale archives the learner's open episodes that belong to an
// earlier session: those opened under a different session ID, or before
// since. A zero since keeps every episode of sessionID.
func (o *Orchestrator) ArchiveStale(ctx context.Context, learnerID, sessionID string, since time.Time) ([]Episode, error) {
	open, err := o.store.OpenEpisodes(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("open episodes: %w", err)
	}
	stale := open[:0]
	for _, ep := range open {
		if ep.SessionID != sessionID || ep.OpenedAt.Before(since) {
			stale = append(stale, ep)
		}
	}
	return o.archive(ctx, stale, TriggerSuperseded)
}

func (o *Orchestrator) archive(ctx context.Context, eps []Episode, trigger string) ([]Episode, error) {
	for i := range eps {
		ep := &eps[i]
		now := o.now().UTC()
		ep.ClosedAt = &now
		ep.UpdatedAt = now
		ep.Reason = trigger
		if err := o.store.SaveEpisode(ctx, ep); err != nil {
			return nil, fmt.Errorf("save episode: %w", err)
		}
		o.record(ctx, Transition{
			EpisodeID: ep.ID,
			LearnerID: ep.LearnerID,
			ConceptID: ep.WeakConceptID,
			From:      ep.Status,
			To:        ep.Status,
			Trigger:   trigger,
			At:        now,
		})
	}
	return eps, nil
}

// Active lists the learner's open episodes.
func (o *Orchestrator) Active(ctx context.Context, learnerID string) ([]Episode, error) {
	eps, err := o.store.OpenEpisodes(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("open episodes: %w", err)
	}
	return eps, nil
}

// transition validates, applies and persists a state change.
func (o *Orchestrator) transition(ctx context.Context, ep *Episode, to Status, trigger string) error {
	if !canTransition(ep.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ep.Status, to)
	}
	now := o.now().UTC()
	t := Transition{
		EpisodeID: ep.ID,
		LearnerID: ep.LearnerID,
		ConceptID: ep.WeakConceptID,
		From:      ep.Status,
		To:        to,
		Trigger:   trigger,
		At:        now,
	}
	ep.Status = to
	ep.UpdatedAt = now
	if to == StatusNotTriggered && ep.ClosedAt == nil {
		ep.ClosedAt = &now
	}
	if err := o.store.SaveEpisode(ctx, ep); err != nil {
		return fmt.Errorf("save episode: %w", err)
	}
	o.record(ctx, t)
	return nil
}

func (o *Orchestrator) record(ctx context.Context, t Transition) {
	if err := o.store.RecordTransition(ctx, t); err != nil {
		o.log.Warn("failed to record remediation transition",
			zap.String("episode", t.EpisodeID), zap.Stringer("transition", t), zap.Error(err))
	}
	o.log.Debug("remediation transition",
		zap.String("learner", t.LearnerID), zap.Stringer("transition", t))
	o.observe(t)
}

func directiveFor(ep *Episode, existing bool) *Directive {
	return &Directive{
		EpisodeID:        ep.ID,
		WeakConceptID:    ep.WeakConceptID,
		TriggerConceptID: ep.TriggerConceptID,
		Status:           ep.Status,
		Lesson:           ep.Lesson,
		Existing:         existing,
	}
}

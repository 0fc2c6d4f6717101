package remediation

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/cognify/internal/lessons"
)

// Status is the lifecycle state of a remediation episode.
type Status string

const (
	StatusNotTriggered Status = "not_triggered"
	StatusTriggered    Status = "triggered"
	StatusInProgress   Status = "in_progress"
	StatusResolved     Status = "resolved"
)

// Transition triggers.
const (
	TriggerDiagnosis     = "diagnosis"
	TriggerContentReady  = "content_ready"
	TriggerContentFailed = "content_failed"
	TriggerStale         = "stale"
	TriggerRatingCleared = "rating_cleared"
	TriggerGuidedLimit   = "guided_limit"
	TriggerSessionEnd    = "session_end"
	TriggerSuperseded    = "session_superseded"
)

// ReasonUnavailable is reported when remediation content could not be produced.
const ReasonUnavailable = "remediation unavailable"

// ErrInvalidTransition is returned for a state change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid remediation transition")

var validTransitions = map[Status][]Status{
	StatusNotTriggered: {StatusTriggered},
	StatusTriggered:    {StatusInProgress, StatusNotTriggered},
	StatusInProgress:   {StatusResolved},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Episode is one remediation cycle for a (learner, weak concept) pair.
type Episode struct {
	ID               string          `json:"id"`
	LearnerID        string          `json:"learner_id"`
	WeakConceptID    string          `json:"weak_concept_id"`
	TriggerConceptID string          `json:"trigger_concept_id"`
	SessionID        string          `json:"session_id,omitempty"`
	Status           Status          `json:"status"`
	GuidedAttempts   int             `json:"guided_attempts"`
	Lesson           *lessons.Lesson `json:"lesson,omitempty"`
	Reason           string          `json:"reason,omitempty"`

	// ResolvedRating is the weak-concept rating when the episode resolved.
	ResolvedRating *float64 `json:"resolved_rating,omitempty"`

	OpenedAt  time.Time  `json:"opened_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Open reports whether the episode is still live: triggered or in progress
// and not archived.
func (e *Episode) Open() bool {
	return e.ClosedAt == nil && (e.Status == StatusTriggered || e.Status == StatusInProgress)
}

// Transition records one state change.
type Transition struct {
	EpisodeID string    `json:"episode_id"`
	LearnerID string    `json:"learner_id"`
	ConceptID string    `json:"concept_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Trigger   string    `json:"trigger"`
	At        time.Time `json:"at"`
}

func (t Transition) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", t.ConceptID, t.From, t.To, t.Trigger)
}

// Package memory keeps a per-learner behavioral record built from practice
// attempts and condenses it into a profile used to personalize lessons.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Note is one behavioral observation about a learner.
type Note struct {
	LearnerID string    `json:"learner_id"`
	ConceptID string    `json:"concept_id"`
	Text      string    `json:"text"`
	Correct   bool      `json:"correct"`
	Composite float64   `json:"composite"`
	TimeRatio float64   `json:"time_ratio"` // time taken / historical average
	HintUsed  bool      `json:"hint_used"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the condensed behavioral state of a learner.
type Profile struct {
	LearnerID      string   `json:"learner_id"`
	Summary        string   `json:"summary"`
	WeakConcepts   []string `json:"weak_concepts"`
	SlowSolver     bool     `json:"slow_solver"`
	HintDependency float64  `json:"hint_dependency"`
	Observations   int      `json:"observations"`
}

// Context renders the profile as prompt context. Empty for a learner with
// no observations.
func (p Profile) Context() string {
	if p.Observations == 0 {
		return ""
	}
	var b strings.Builder
	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteString("\n")
	}
	if len(p.WeakConcepts) > 0 {
		fmt.Fprintf(&b, "Repeatedly missed: %s\n", strings.Join(p.WeakConcepts, ", "))
	}
	if p.SlowSolver {
		b.WriteString("Tends to take longer than usual.\n")
	}
	fmt.Fprintf(&b, "Hint use: %.0f%% of recent attempts.", p.HintDependency*100)
	return b.String()
}

// LearnerMemory stores behavioral notes and serves learner profiles.
type LearnerMemory interface {
	Profile(ctx context.Context, learnerID string) (Profile, error)
	Record(ctx context.Context, n Note) error
}

// Nop is a LearnerMemory that remembers nothing.
type Nop struct{}

func (Nop) Profile(_ context.Context, learnerID string) (Profile, error) {
	return Profile{LearnerID: learnerID}, nil
}

func (Nop) Record(context.Context, Note) error { return nil }

// AttemptNote formats the standard note written after an attempt.
func AttemptNote(conceptID string, tier int, correct bool, composite, oldRating, newRating float64) string {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	return fmt.Sprintf("Attempted %s (tier %d). Result: %s. Score: %.3f. Rating %.0f -> %.0f.",
		conceptID, tier, result, composite, oldRating, newRating)
}

package mastery

import (
	"errors"
	"fmt"
	"math"
)

// Composite score weights. They sum to exactly 1.0 so the blend of five
// terms each bounded to [0, 1] is itself bounded to [0, 1].
const (
	WeightAccuracy   = 0.45
	WeightTime       = 0.18
	WeightRetry      = 0.12
	WeightHint       = 0.15
	WeightConfidence = 0.10

	// timeBudgetFactor scales the historical average into the point where
	// the time component reaches zero.
	timeBudgetFactor = 1.6
)

const (
	MinConfidence = 1
	MaxConfidence = 5
)

// ErrInvalidAvgTime is returned when the historical average time is not positive.
var ErrInvalidAvgTime = errors.New("average time for tier must be positive")

// FieldError reports an attempt field outside its contract.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Signals are the raw per-attempt inputs to the composite score.
type Signals struct {
	Correct       bool
	TimeTakenSecs float64
	Retries       int
	HintUsed      bool
	Confidence    int // 1-5, self reported
}

// Validate rejects signals outside their contract. Values are never clamped.
func (s Signals) Validate() error {
	if math.IsNaN(s.TimeTakenSecs) || math.IsInf(s.TimeTakenSecs, 0) || s.TimeTakenSecs <= 0 {
		return &FieldError{Field: "time_taken", Value: s.TimeTakenSecs, Reason: "must be a positive number of seconds"}
	}
	if s.Retries < 0 {
		return &FieldError{Field: "retries", Value: s.Retries, Reason: "must be >= 0"}
	}
	if s.Confidence < MinConfidence || s.Confidence > MaxConfidence {
		return &FieldError{Field: "confidence", Value: s.Confidence, Reason: "must be between 1 and 5"}
	}
	return nil
}

// Breakdown holds the individual score components for display and audit.
type Breakdown struct {
	Accuracy   float64 `json:"accuracy"`
	Time       float64 `json:"time"`
	Retry      float64 `json:"retry"`
	Hint       float64 `json:"hint"`
	Confidence float64 `json:"confidence"`
}

// Composite returns the weighted blend of the components.
func (b Breakdown) Composite() float64 {
	return WeightAccuracy*b.Accuracy +
		WeightTime*b.Time +
		WeightRetry*b.Retry +
		WeightHint*b.Hint +
		WeightConfidence*b.Confidence
}

// Components computes the score components for validated signals.
func Components(s Signals, avgTimeForTier float64) (Breakdown, error) {
	if err := s.Validate(); err != nil {
		return Breakdown{}, err
	}
	if math.IsNaN(avgTimeForTier) || math.IsInf(avgTimeForTier, 0) || avgTimeForTier <= 0 {
		return Breakdown{}, fmt.Errorf("%w: got %v", ErrInvalidAvgTime, avgTimeForTier)
	}

	var b Breakdown
	if s.Correct {
		b.Accuracy = 1
	}
	b.Time = clamp(1-s.TimeTakenSecs/(timeBudgetFactor*avgTimeForTier), 0, 1)
	b.Retry = 1 / (1 + float64(s.Retries))
	if !s.HintUsed {
		b.Hint = 1
	}
	b.Confidence = float64(s.Confidence-MinConfidence) / float64(MaxConfidence-MinConfidence)
	return b, nil
}

// Score computes the composite mastery score in [0, 1] for one attempt.
// It is a pure function of its inputs.
func Score(s Signals, avgTimeForTier float64) (float64, error) {
	b, err := Components(s, avgTimeForTier)
	if err != nil {
		return 0, err
	}
	return b.Composite(), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package engine

import (
	"time"

	"github.com/abhisek/cognify/internal/diagnosis"
	"github.com/abhisek/cognify/internal/session"
)

// DefaultAvgTimeSecs is used when no attempt history exists for a tier.
const DefaultAvgTimeSecs = 90.0

// Config holds the attempt pipeline thresholds.
type Config struct {
	StruggleThreshold  float64       `mapstructure:"struggle_threshold"`
	MaxIncorrectStreak int           `mapstructure:"max_incorrect_streak"`
	WeakThreshold      float64       `mapstructure:"weak_threshold"`
	ReferenceTier      int           `mapstructure:"reference_tier"`
	MaxDepth           int           `mapstructure:"max_depth"`
	StrongRating       float64       `mapstructure:"strong_rating"`
	DefaultAvgTimeSecs float64       `mapstructure:"default_avg_time_secs"`
	RecentAttempts     int           `mapstructure:"recent_attempts"`
	SessionIdle        time.Duration `mapstructure:"session_idle"`
}

func DefaultConfig() Config {
	d := diagnosis.DefaultConfig()
	return Config{
		StruggleThreshold:  d.StruggleThreshold,
		MaxIncorrectStreak: d.MaxIncorrectStreak,
		WeakThreshold:      d.WeakThreshold,
		ReferenceTier:      d.ReferenceTier,
		MaxDepth:           d.MaxDepth,
		StrongRating:       diagnosis.CarelessRating,
		DefaultAvgTimeSecs: DefaultAvgTimeSecs,
		RecentAttempts:     10,
		SessionIdle:        session.DefaultIdleTimeout,
	}
}

// Diagnosis returns the diagnoser thresholds.
func (c Config) Diagnosis() diagnosis.Config {
	return diagnosis.Config{
		StruggleThreshold:  c.StruggleThreshold,
		MaxIncorrectStreak: c.MaxIncorrectStreak,
		WeakThreshold:      c.WeakThreshold,
		ReferenceTier:      c.ReferenceTier,
		MaxDepth:           c.MaxDepth,
	}
}

// WeakCutoff is the rating below which a concept counts as weak.
func (c Config) WeakCutoff() float64 {
	return c.Diagnosis().WeakCutoff()
}

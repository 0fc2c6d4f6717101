package diagnosis

import "github.com/abhisek/cognify/internal/mastery"

// Config holds the thresholds that decide when diagnosis runs and which
// prerequisites count as weak.
type Config struct {
	// StruggleThreshold is the composite below which an attempt triggers diagnosis.
	StruggleThreshold float64

	// MaxIncorrectStreak triggers diagnosis after this many consecutive
	// incorrect attempts in the active session.
	MaxIncorrectStreak int

	// WeakThreshold is the expected composite, against a ReferenceTier item,
	// below which a prerequisite is weak.
	WeakThreshold float64
	ReferenceTier int

	// MaxDepth bounds the prerequisite walk.
	MaxDepth int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		StruggleThreshold:  0.5,
		MaxIncorrectStreak: 2,
		WeakThreshold:      0.5,
		ReferenceTier:      1,
		MaxDepth:           3,
	}
}

// WeakCutoff returns the rating below which a concept counts as weak.
func (c Config) WeakCutoff() float64 {
	tier := c.ReferenceTier
	if tier < mastery.MinTier || tier > mastery.MaxTier {
		tier = mastery.MinTier
	}
	return mastery.ThresholdRating(c.WeakThreshold, tier)
}

// ShouldDiagnose reports whether an attempt warrants a root-cause diagnosis.
func ShouldDiagnose(composite float64, incorrectStreak int, cfg Config) bool {
	if composite < cfg.StruggleThreshold {
		return true
	}
	return cfg.MaxIncorrectStreak > 0 && incorrectStreak >= cfg.MaxIncorrectStreak
}

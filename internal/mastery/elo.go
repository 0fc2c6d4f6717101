package mastery

import (
	"fmt"
	"math"
)

const (
	// DefaultRating is the rating of a (learner, concept) pair on first access.
	DefaultRating = 1000.0

	// KFactor is the fixed learning rate of the rating update.
	KFactor = 20.0

	// baseItemRating is the item rating of difficulty tier 1.
	baseItemRating = 1000.0

	// tierStep is the item rating increase per difficulty tier.
	tierStep = 200.0

	// logisticScale is the rating difference at which expected odds are 10:1.
	logisticScale = 400.0
)

const (
	MinTier = 1
	MaxTier = 5
)

// ValidateTier rejects difficulty tiers outside 1-5.
func ValidateTier(tier int) error {
	if tier < MinTier || tier > MaxTier {
		return &FieldError{Field: "difficulty_tier", Value: tier, Reason: "must be between 1 and 5"}
	}
	return nil
}

// ItemRating maps a difficulty tier to its rating: 1 -> 1000 ... 5 -> 1800.
func ItemRating(tier int) float64 {
	return baseItemRating + float64(tier-1)*tierStep
}

// Expected returns the logistic expected composite for a learner at rating
// facing an item of the given tier.
func Expected(rating float64, tier int) float64 {
	return 1 / (1 + math.Pow(10, (ItemRating(tier)-rating)/logisticScale))
}

// Update returns the new rating after an attempt. The composite replaces the
// binary win/loss term, so partial credit moves the rating proportionally.
func Update(oldRating, composite float64, tier int) (float64, error) {
	if err := ValidateTier(tier); err != nil {
		return 0, err
	}
	if math.IsNaN(composite) || composite < 0 || composite > 1 {
		return 0, &FieldError{Field: "composite", Value: composite, Reason: "must be in [0, 1]"}
	}
	if math.IsNaN(oldRating) || math.IsInf(oldRating, 0) {
		return 0, fmt.Errorf("invalid rating %v", oldRating)
	}
	return oldRating + KFactor*(composite-Expected(oldRating, tier)), nil
}

// ThresholdRating converts an expected-composite threshold into the rating at
// which a learner's expected composite against a referenceTier item equals it.
// A threshold of 0.5 against tier 1 yields 1000.
func ThresholdRating(threshold float64, referenceTier int) float64 {
	threshold = clamp(threshold, 1e-9, 1-1e-9)
	return ItemRating(referenceTier) - logisticScale*math.Log10(1/threshold-1)
}

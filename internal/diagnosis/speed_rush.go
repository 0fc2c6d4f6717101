package diagnosis

// SpeedRushFraction is the share of the historical average time below
// which (exclusive) a wrong answer is classified as a speed-rush.
const SpeedRushFraction = 0.25

// SpeedRushClassifier flags answers submitted too quickly as speed-rush errors.
type SpeedRushClassifier struct{}

func (c *SpeedRushClassifier) Name() string { return "speed-rush" }

func (c *SpeedRushClassifier) Classify(input *ClassifyInput) (ErrorCategory, float64) {
	if input.AvgTimeSecs > 0 && input.TimeTakenSecs < SpeedRushFraction*input.AvgTimeSecs {
		return CategorySpeedRush, 0.9
	}
	return "", 0
}

package diagnosis

// CarelessRating is the minimum concept rating (inclusive) for a wrong
// answer to be classified as a careless error.
const CarelessRating = 1100.0

// CarelessClassifier flags wrong answers from strong learners as
// careless slips rather than knowledge gaps.
type CarelessClassifier struct{}

func (c *CarelessClassifier) Name() string { return "careless" }

func (c *CarelessClassifier) Classify(input *ClassifyInput) (ErrorCategory, float64) {
	if input.Rating >= CarelessRating {
		return CategoryCareless, 0.8
	}
	return "", 0
}

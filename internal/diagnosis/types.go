package diagnosis

// ErrorCategory classifies an incorrect attempt.
type ErrorCategory string

const (
	CategoryCareless     ErrorCategory = "careless"
	CategorySpeedRush    ErrorCategory = "speed-rush"
	CategoryKnowledgeGap ErrorCategory = "knowledge-gap"
)

// ClassifyInput holds the context for classifying one incorrect attempt.
type ClassifyInput struct {
	TimeTakenSecs float64
	AvgTimeSecs   float64 // historical average for the concept tier
	Rating        float64 // learner's rating on the concept before the attempt
}

// Classification is the output of classifying an incorrect attempt.
type Classification struct {
	Category       ErrorCategory `json:"category"`
	Confidence     float64       `json:"confidence"`
	ClassifierName string        `json:"classifier"`
}

// Diagnosis names the prerequisite most likely responsible for a struggle.
type Diagnosis struct {
	LearnerID        string  `json:"learner_id"`
	TriggerConceptID string  `json:"trigger_concept_id"`
	WeakConceptID    string  `json:"weak_concept_id"`
	WeakRating       float64 `json:"weak_rating"`
	Depth            int     `json:"depth"`
	Cutoff           float64 `json:"cutoff"`
}

package session

import "time"

// Summary describes a finished session.
type Summary struct {
	SessionID      string          `json:"session_id"`
	LearnerID      string          `json:"learner_id"`
	Duration       time.Duration   `json:"duration"`
	TotalAttempts  int             `json:"total_attempts"`
	TotalCorrect   int             `json:"total_correct"`
	Accuracy       float64         `json:"accuracy"`
	ConceptResults []ConceptResult `json:"concept_results"`
}

// BuildSummary creates a Summary from a session, listing concepts in the
// order they were first practiced.
func BuildSummary(s *Session, endedAt time.Time) *Summary {
	results := make([]ConceptResult, 0, len(s.conceptsInPlay))
	for _, id := range s.conceptsInPlay {
		if cr, ok := s.PerConcept[id]; ok {
			results = append(results, *cr)
		}
	}

	var accuracy float64
	if s.TotalAttempts > 0 {
		accuracy = float64(s.TotalCorrect) / float64(s.TotalAttempts)
	}

	return &Summary{
		SessionID:      s.ID,
		LearnerID:      s.LearnerID,
		Duration:       endedAt.Sub(s.StartedAt),
		TotalAttempts:  s.TotalAttempts,
		TotalCorrect:   s.TotalCorrect,
		Accuracy:       accuracy,
		ConceptResults: results,
	}
}

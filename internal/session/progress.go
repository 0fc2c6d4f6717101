package session

// ConceptResult tracks per-concept results within a session.
type ConceptResult struct {
	ConceptID       string  `json:"concept_id"`
	Attempted       int     `json:"attempted"`
	Correct         int     `json:"correct"`
	Accuracy        float64 `json:"accuracy"`
	IncorrectStreak int     `json:"incorrect_streak"`
}

// Record adds a new answer result.
func (cr *ConceptResult) Record(correct bool) {
	cr.Attempted++
	if correct {
		cr.Correct++
		cr.IncorrectStreak = 0
	} else {
		cr.IncorrectStreak++
	}
	cr.Accuracy = float64(cr.Correct) / float64(cr.Attempted)
}

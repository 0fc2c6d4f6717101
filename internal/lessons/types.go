package lessons

import "github.com/abhisek/cognify/internal/conceptgraph"

// Lesson is a generated micro-lesson on a weak prerequisite, followed by
// guided practice items.
type Lesson struct {
	ConceptID     string       `json:"concept_id"`
	Title         string       `json:"title"`
	Explanation   string       `json:"explanation"`
	WorkedExample string       `json:"worked_example"`
	GuidedItems   []GuidedItem `json:"guided_items"`
	Model         string       `json:"model,omitempty"`
}

// GuidedItem is one guided-practice question.
type GuidedItem struct {
	Prompt         string `json:"prompt"`
	Answer         string `json:"answer"`
	Hint           string `json:"hint"`
	DifficultyTier int    `json:"difficulty_tier"`
}

// Request holds the context needed to write a remediation lesson.
type Request struct {
	LearnerID      string
	WeakConcept    conceptgraph.Concept
	TriggerConcept conceptgraph.Concept
	WeakRating     float64

	// LearnerContext is the behavioral summary from learner memory. May be empty.
	LearnerContext string
}

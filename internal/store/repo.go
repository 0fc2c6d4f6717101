package store

import "time"

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int    // max results (0 = unlimited)
	After     int64  // sequence > After
	Before    int64  // sequence < Before
	LearnerID string // empty = all learners
	Purpose   string // LLM events only; empty = all
}

// AttemptRecord is one persisted practice attempt. It is immutable once
// inserted.
type AttemptRecord struct {
	ID             string    `json:"id"`
	Sequence       int64     `json:"sequence"`
	LearnerID      string    `json:"learner_id"`
	SessionID      string    `json:"session_id,omitempty"`
	QuestionID     string    `json:"question_id,omitempty"`
	ConceptIDs     []string  `json:"concept_ids"`
	Correct        bool      `json:"correct"`
	TimeTakenSecs  float64   `json:"time_taken_secs"`
	Retries        int       `json:"retries"`
	HintUsed       bool      `json:"hint_used"`
	Confidence     int       `json:"confidence"`
	DifficultyTier int       `json:"difficulty_tier"`
	Composite      float64   `json:"composite"`
	ErrorCategory  string    `json:"error_category,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PrimaryConcept is the concept an attempt is scored against.
func (a AttemptRecord) PrimaryConcept() string {
	if len(a.ConceptIDs) == 0 {
		return ""
	}
	return a.ConceptIDs[0]
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Purpose      string    `json:"purpose"`
	LearnerID    string    `json:"learner_id,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	LatencyMs    int64     `json:"latency_ms"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
}

// LLMUsage aggregates LLM calls by purpose or model.
type LLMUsage struct {
	Key          string `json:"key"`
	Calls        int    `json:"calls"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

// LearnerLessonUsage is the LLM spend attributed to one learner for one
// purpose and model. Failed counts calls that fell back to canned content.
type LearnerLessonUsage struct {
	LearnerID    string `json:"learner_id"`
	Purpose      string `json:"purpose"`
	Model        string `json:"model"`
	Calls        int    `json:"calls"`
	Failed       int    `json:"failed"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// DiagnosisEventData records the outcome of one root-cause diagnosis.
type DiagnosisEventData struct {
	AttemptID        string
	LearnerID        string
	TriggerConceptID string
	WeakConceptID    string // empty when no weak prerequisite was found
	WeakRating       float64
	Depth            int
	ErrorCategory    string
	ClassifierName   string
}

// Session event actions.
const (
	SessionStart = "start"
	SessionEnd   = "end"
)

// SessionEventData records a session boundary.
type SessionEventData struct {
	SessionID     string
	LearnerID     string
	Action        string
	TotalAttempts int
	TotalCorrect  int
	Duration      time.Duration
}

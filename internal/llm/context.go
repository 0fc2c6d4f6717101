package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	learnerKey contextKey = "llm_learner"
)

// WithPurpose attaches a purpose label to the context for the audit log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithLearner attaches the learner a request is made on behalf of.
func WithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerKey, learnerID)
}

// LearnerFrom returns the learner ID attached to ctx, or "".
func LearnerFrom(ctx context.Context) string {
	v, _ := ctx.Value(learnerKey).(string)
	return v
}

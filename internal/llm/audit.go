package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RequestEvent is the audit record of one provider call.
type RequestEvent struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Purpose      string `json:"purpose"`
	LearnerID    string `json:"learner_id,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	LatencyMs    int64  `json:"latency_ms"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	RequestBody  string `json:"request_body,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`
}

// RequestRecorder persists audit events.
type RequestRecorder interface {
	RecordLLMRequest(ctx context.Context, ev RequestEvent) error
}

// AuditProvider records every request it forwards.
type AuditProvider struct {
	inner    Provider
	provider string
	recorder RequestRecorder
	log      *zap.Logger
}

// WithAudit wraps p so each call is recorded. A failing recorder never fails
// the request; the error is logged instead.
func WithAudit(p Provider, providerName string, rec RequestRecorder, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditProvider{inner: p, provider: providerName, recorder: rec, log: log}
}

func (a *AuditProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := a.inner.Generate(ctx, req)

	ev := RequestEvent{
		Provider:    a.provider,
		Model:       a.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LearnerID:   LearnerFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	a.log.Debug("llm request",
		zap.String("purpose", ev.Purpose),
		zap.String("model", ev.Model),
		zap.Int64("latency_ms", ev.LatencyMs),
		zap.Bool("success", ev.Success))

	// The request context may already be cancelled; the audit write must still land.
	if rerr := a.recorder.RecordLLMRequest(context.WithoutCancel(ctx), ev); rerr != nil {
		a.log.Warn("failed to record llm request", zap.Error(rerr))
	}
	return resp, err
}

func (a *AuditProvider) ModelID() string { return a.inner.ModelID() }

func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}

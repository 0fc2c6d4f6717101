package lessons

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/cognify/internal/llm"
)

// Summarizer compresses learner notes into a short behavioral summary.
type Summarizer struct {
	provider llm.Provider
	cfg      SummarizerConfig
}

func NewSummarizer(provider llm.Provider, cfg SummarizerConfig) *Summarizer {
	return &Summarizer{provider: provider, cfg: cfg}
}

// Summarize returns the notes joined verbatim when they are short, and an
// LLM-written summary otherwise. Without a provider long notes are trimmed
// to the most recent ones that fit.
func (s *Summarizer) Summarize(ctx context.Context, learnerID string, notes []string) (string, error) {
	joined := strings.Join(notes, "\n")
	if len(joined) <= SummaryThreshold {
		return joined, nil
	}
	if s.provider == nil {
		return tail(notes, SummaryThreshold), nil
	}

	ctx = llm.WithLearner(llm.WithPurpose(ctx, "learner-summary"), learnerID)
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      summarySystemPrompt,
		Messages:    llm.UserMessage(buildSummaryUserMessage(notes)),
		Schema:      SummarySchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("learner summary: %w", err)
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("parse summary response: %w", err)
	}
	return out.Summary, nil
}

// tail keeps the newest notes whose joined length fits in limit.
func tail(notes []string, limit int) string {
	size := 0
	start := len(notes)
	for start > 0 {
		n := len(notes[start-1]) + 1
		if size+n > limit {
			break
		}
		size += n
		start--
	}
	return strings.Join(notes[start:], "\n")
}

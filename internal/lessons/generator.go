package lessons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/cognify/internal/llm"
)

// ErrNoProvider is returned when content generation is disabled.
var ErrNoProvider = errors.New("no LLM provider configured")

// Generator writes remediation lessons through an LLM provider.
type Generator struct {
	provider llm.Provider
	cfg      Config
}

// NewGenerator creates a lesson generator. A nil provider yields a generator
// whose every call fails with ErrNoProvider.
func NewGenerator(provider llm.Provider, cfg Config) *Generator {
	if cfg.GuidedItems <= 0 {
		cfg.GuidedItems = DefaultConfig().GuidedItems
	}
	return &Generator{provider: provider, cfg: cfg}
}

type lessonOutput struct {
	Title         string       `json:"title"`
	Explanation   string       `json:"explanation"`
	WorkedExample string       `json:"worked_example"`
	GuidedItems   []GuidedItem `json:"guided_items"`
}

// Generate returns a lesson on req.WeakConcept with exactly cfg.GuidedItems
// guided items.
func (g *Generator) Generate(ctx context.Context, req Request) (*Lesson, error) {
	if g.provider == nil {
		return nil, ErrNoProvider
	}
	ctx = llm.WithLearner(llm.WithPurpose(ctx, "remediation-lesson"), req.LearnerID)

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      lessonSystemPrompt,
		Messages:    llm.UserMessage(buildLessonUserMessage(req, g.cfg.GuidedItems)),
		Schema:      lessonSchema(g.cfg.GuidedItems),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("lesson generation: %w", err)
	}

	var out lessonOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse lesson response: %w", err)
	}
	if len(out.GuidedItems) != g.cfg.GuidedItems {
		return nil, fmt.Errorf("lesson has %d guided items, want %d", len(out.GuidedItems), g.cfg.GuidedItems)
	}

	return &Lesson{
		ConceptID:     req.WeakConcept.ID,
		Title:         out.Title,
		Explanation:   out.Explanation,
		WorkedExample: out.WorkedExample,
		GuidedItems:   out.GuidedItems,
		Model:         resp.Model,
	}, nil
}

package lessons

import (
	"fmt"

	"github.com/abhisek/cognify/internal/llm"
)

// lessonSchema returns the structured-output schema for a lesson with
// exactly n guided items. The name carries n so compiled schemas for
// different counts are cached separately.
func lessonSchema(n int) *llm.Schema {
	return &llm.Schema{
		Name:        fmt.Sprintf("remediation-lesson-%d", n),
		Description: "A micro-lesson on a prerequisite concept followed by guided practice items",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short title for the lesson (3-8 words)",
				},
				"explanation": map[string]any{
					"type":        "string",
					"description": "Clear explanation of the prerequisite concept (4-6 sentences)",
				},
				"worked_example": map[string]any{
					"type":        "string",
					"description": "Step-by-step solution to a representative problem, with numbered steps",
				},
				"guided_items": map[string]any{
					"type":     "array",
					"minItems": n,
					"maxItems": n,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"prompt": map[string]any{
								"type":        "string",
								"description": "The practice question",
							},
							"answer": map[string]any{
								"type":        "string",
								"description": "The correct final answer",
							},
							"hint": map[string]any{
								"type":        "string",
								"description": "A one-sentence nudge that does not give the answer away",
							},
							"difficulty_tier": map[string]any{
								"type":    "integer",
								"minimum": 1,
								"maximum": 5,
							},
						},
						"required":             []any{"prompt", "answer", "hint", "difficulty_tier"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []any{"title", "explanation", "worked_example", "guided_items"},
			"additionalProperties": false,
		},
	}
}

// SummarySchema defines the JSON schema for learner-note compression.
var SummarySchema = &llm.Schema{
	Name:        "learner-summary",
	Description: "Compressed behavioral summary of a learner's recent practice",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-3 sentence summary of the learner's behavior",
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}

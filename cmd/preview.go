package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/lessons"
	"github.com/abhisek/cognify/internal/llm"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview an LLM-generated remediation lesson for a concept (no database)",
	Long: `Generate a remediation lesson and walk through its guided items.

This is a stateless developer tool: no database, no ratings, no events.
Useful for evaluating lesson quality against the embedded curriculum.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("concept", "", "Weak concept ID or name (required)")
	previewCmd.Flags().String("trigger", "", "Concept the learner was struggling with (default: first dependent)")
	previewCmd.Flags().Float64("rating", 960, "Rating of the weak concept")
	_ = previewCmd.MarkFlagRequired("concept")
}

func runPreview(cmd *cobra.Command, args []string) error {
	conceptVal, _ := cmd.Flags().GetString("concept")
	triggerVal, _ := cmd.Flags().GetString("trigger")
	rating, _ := cmd.Flags().GetFloat64("rating")

	g, err := conceptgraph.Default()
	if err != nil {
		return err
	}
	weak, err := resolveConcept(g, conceptVal)
	if err != nil {
		return err
	}
	trigger := weak
	if triggerVal != "" {
		if trigger, err = resolveConcept(g, triggerVal); err != nil {
			return err
		}
	} else if deps, _ := g.Dependents(weak.ID); len(deps) > 0 {
		trigger, _ = g.Concept(deps[0])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	// No recorder: request events are not stored.
	ctx := cmd.Context()
	provider, err := llm.NewProvider(ctx, cfg.LLM, nil, log)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}
	if provider == nil {
		return fmt.Errorf("LLM provider: none configured (set COGNIFY_LLM_PROVIDER or a vendor API key)")
	}

	gen := lessons.NewGenerator(provider, cfg.Lessons)
	fmt.Printf("Weak concept: %s (%s), rating %.0f\n", weak.DisplayName(), weak.ID, rating)
	fmt.Printf("Struggling on: %s\n", trigger.DisplayName())
	fmt.Println("Generating lesson...")
	fmt.Println()

	lesson, err := gen.Generate(ctx, lessons.Request{
		LearnerID:      "preview",
		WeakConcept:    weak,
		TriggerConcept: trigger,
		WeakRating:     rating,
	})
	if err != nil {
		return err
	}

	fmt.Printf("── %s ──\n", lesson.Title)
	fmt.Println(lesson.Explanation)
	if lesson.WorkedExample != "" {
		fmt.Printf("\nWorked example:\n%s\n", lesson.WorkedExample)
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	var correct int
	for i, item := range lesson.GuidedItems {
		fmt.Printf("── Guided item %d/%d (tier %d) ──\n", i+1, len(lesson.GuidedItems), item.DifficultyTier)
		fmt.Println(item.Prompt)

		fmt.Print("\nYour answer (? for hint): ")
		if !scanner.Scan() {
			fmt.Println("\n(input closed)")
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "?" {
			fmt.Printf("Hint: %s\n", item.Hint)
			fmt.Print("Your answer: ")
			if !scanner.Scan() {
				fmt.Println("\n(input closed)")
				break
			}
			answer = strings.TrimSpace(scanner.Text())
		}
		if answer == "" {
			fmt.Println("(skipped)")
			fmt.Println()
			continue
		}

		if strings.EqualFold(strings.Join(strings.Fields(answer), ""), strings.Join(strings.Fields(item.Answer), "")) {
			correct++
			fmt.Println("\033[32m✓ Correct!\033[0m")
		} else {
			fmt.Printf("\033[31m✗ Not quite.\033[0m Expected: %s\n", item.Answer)
		}
		fmt.Println()
	}

	fmt.Printf("── Summary: %d/%d correct ──\n", correct, len(lesson.GuidedItems))
	return nil
}

// resolveConcept finds a concept by ID first, then by display name.
func resolveConcept(g *conceptgraph.Graph, val string) (conceptgraph.Concept, error) {
	if c, err := g.Concept(val); err == nil {
		return c, nil
	}

	var matches []conceptgraph.Concept
	for _, c := range g.Concepts() {
		if strings.EqualFold(c.DisplayName(), val) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return conceptgraph.Concept{}, fmt.Errorf("no concept found for %q", val)
	case 1:
		return matches[0], nil
	default:
		var ids []string
		for _, c := range matches {
			ids = append(ids, c.ID)
		}
		return conceptgraph.Concept{}, fmt.Errorf("multiple concepts match %q: %s; use a specific ID",
			val, strings.Join(ids, ", "))
	}
}

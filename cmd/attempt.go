package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/engine"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt",
	Short: "Submit a practice attempt and print the rating change",
	Example: `  cognify attempt --learner ana --concept integration_by_parts \
    --time 140 --hint --confidence 2 --tier 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		in := engine.AttemptInput{}
		in.LearnerID, _ = f.GetString("learner")
		in.SessionID, _ = f.GetString("session")
		in.QuestionID, _ = f.GetString("question")
		in.ConceptIDs, _ = f.GetStringSlice("concept")
		in.Correct, _ = f.GetBool("correct")
		in.TimeTakenSecs, _ = f.GetFloat64("time")
		in.Retries, _ = f.GetInt("retries")
		in.HintUsed, _ = f.GetBool("hint")
		in.Confidence, _ = f.GetInt("confidence")
		in.DifficultyTier, _ = f.GetInt("tier")
		asJSON, _ := f.GetBool("json")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close(ctx)

		res, err := rt.engine.Submit(ctx, in)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(res)
		return nil
	},
}

func printResult(res *engine.Result) {
	b := res.Breakdown
	fmt.Printf("Session:    %s\n", res.SessionID)
	fmt.Printf("Concept:    %s\n", res.ConceptID)
	fmt.Printf("Composite:  %.3f  (acc %.2f, time %.2f, retry %.2f, hint %.2f, conf %.2f)\n",
		res.Composite, b.Accuracy, b.Time, b.Retry, b.Hint, b.Confidence)
	fmt.Printf("Rating:     %.1f -> %.1f (%+.1f)\n", res.OldRating, res.NewRating, res.Delta)
	if res.ErrorCategory != "" {
		fmt.Printf("Error:      %s\n", res.ErrorCategory)
	}
	if ep := res.GuidedEpisode; ep != nil {
		fmt.Printf("Guided:     %s episode for %s (%d attempts)\n", ep.Status, ep.WeakConceptID, ep.GuidedAttempts)
	}
	if d := res.Diagnosis; d != nil {
		fmt.Printf("Diagnosis:  weak prerequisite %s at %.1f (depth %d)\n", d.WeakConceptID, d.WeakRating, d.Depth)
	}
	if r := res.Remediation; r != nil {
		status := string(r.Status)
		if r.Existing {
			status += " (existing)"
		}
		if r.Unavailable {
			status += ": " + r.Reason
		}
		fmt.Printf("Remediate:  %s -> %s\n", r.WeakConceptID, status)
		if r.Lesson != nil {
			sep := strings.Repeat("\u2500", 60)
			fmt.Println(sep)
			fmt.Println(r.Lesson.Title)
			fmt.Println(sep)
			fmt.Println(r.Lesson.Explanation)
			for i, item := range r.Lesson.GuidedItems {
				fmt.Printf("\n%d. %s (tier %d)\n", i+1, item.Prompt, item.DifficultyTier)
			}
		}
	}
}

func init() {
	f := attemptCmd.Flags()
	f.String("learner", "", "Learner ID (required)")
	f.String("session", "", "Session ID to continue; without it each run starts a new session and archives open remediation")
	f.String("question", "", "Question ID")
	f.StringSlice("concept", nil, "Concept ID; the first is scored (required, repeatable)")
	f.Bool("correct", false, "Answer was correct")
	f.Float64("time", 0, "Seconds taken (required)")
	f.Int("retries", 0, "Retries before the final answer")
	f.Bool("hint", false, "A hint was used")
	f.Int("confidence", 3, "Self-reported confidence, 1-5")
	f.Int("tier", 1, "Item difficulty tier, 1-5")
	f.Bool("json", false, "Print the result as JSON")
	_ = attemptCmd.MarkFlagRequired("learner")
	_ = attemptCmd.MarkFlagRequired("concept")
	_ = attemptCmd.MarkFlagRequired("time")
}

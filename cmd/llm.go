package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/store"
)

const lessonPurpose = "remediation-lesson"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect lesson generation calls and their cost per learner",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent lesson and summary calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		learner, _ := cmd.Flags().GetString("learner")
		failedOnly, _ := cmd.Flags().GetBool("failed")

		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.Events().QueryLLMEvents(cmd.Context(), store.QueryOpts{
			Limit:     limit,
			Purpose:   purpose,
			LearnerID: learner,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		shown := 0
		for _, e := range events {
			if failedOnly && e.Success {
				continue
			}
			if shown == 0 {
				fmt.Printf("%-5s  %-16s  %-12s  %-18s  %-13s  %-6s  %s\n",
					"ID", "Time", "Learner", "Purpose", "Tokens", "Ms", "Outcome")
				fmt.Println(rule(90))
			}
			shown++
			fmt.Printf("%-5d  %-16s  %-12s  %-18s  %-13s  %-6d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04"),
				orDash(truncate(e.LearnerID, 12)),
				truncate(e.Purpose, 18),
				fmt.Sprintf("%d/%d", e.InputTokens, e.OutputTokens),
				e.LatencyMs,
				outcome(e.Success, e.Purpose),
			)
		}
		if shown == 0 {
			fmt.Println("No matching calls.")
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and reply of one call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.Events().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		fmt.Printf("Call %d  %s  %s/%s\n", e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Provider, e.Model)
		fmt.Printf("Learner:  %s\n", orDash(e.LearnerID))
		fmt.Printf("Purpose:  %s (%s)\n", e.Purpose, outcome(e.Success, e.Purpose))
		fmt.Printf("Tokens:   %d in / %d out, %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
		if c := llm.LookupCost(e.Model); c != nil {
			fmt.Printf("Cost:     %s\n", formatCost(c.Cost(e.InputTokens, e.OutputTokens)))
		}
		if e.ErrorMessage != "" {
			fmt.Printf("Error:    %s\n", e.ErrorMessage)
		}

		printBody("PROMPT", e.RequestBody)
		printBody("REPLY", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.Events().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Printf("%-20s  %6s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Avg Ms")
		fmt.Println(rule(62))
		for _, u := range byPurpose {
			fmt.Printf("%-20s  %6d  %10d  %10d  %8d\n",
				truncate(u.Key, 20), u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		}

		byModel, err := s.Events().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		fmt.Println()
		fmt.Printf("%-32s  %6s  %10s\n", "Model", "Calls", "Cost")
		fmt.Println(rule(52))
		var total float64
		for _, u := range byModel {
			cost := "?"
			if c := llm.LookupCost(u.Key); c != nil {
				v := c.Cost(u.InputTokens, u.OutputTokens)
				total += v
				cost = formatCost(v)
			}
			fmt.Printf("%-32s  %6d  %10s\n", truncate(u.Key, 32), u.Calls, cost)
		}
		fmt.Println(rule(52))
		fmt.Printf("%-32s  %6s  %10s\n", "TOTAL", "", formatCost(total))
		return nil
	},
}

var llmCostCmd = &cobra.Command{
	Use:   "cost",
	Short: "Show remediation lesson spend per learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")

		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		usage, err := s.Events().LLMUsageByLearner(cmd.Context(), learner)
		if err != nil {
			return fmt.Errorf("query learner usage: %w", err)
		}
		rows := learnerCosts(usage)
		if len(rows) == 0 {
			fmt.Println("No learner-attributed LLM calls recorded yet.")
			return nil
		}

		fmt.Printf("%-16s  %7s  %9s  %9s  %10s  %11s\n",
			"Learner", "Lessons", "Fallback", "Summaries", "Cost", "Per lesson")
		fmt.Println(rule(72))
		for _, r := range rows {
			cost, per := formatCost(r.Cost), "-"
			if r.Lessons > r.Fallbacks {
				per = formatCost(r.LessonCost / float64(r.Lessons-r.Fallbacks))
			}
			if r.Unpriced {
				cost += "*"
			}
			fmt.Printf("%-16s  %7d  %9d  %9d  %10s  %11s\n",
				truncate(r.LearnerID, 16), r.Lessons, r.Fallbacks, r.Other, cost, per)
		}
		if anyUnpriced(rows) {
			fmt.Println("\n* includes calls to models without known pricing")
		}
		return nil
	},
}

// learnerCost is the per-learner rollup shown by `llm cost`.
type learnerCost struct {
	LearnerID  string
	Lessons    int
	Fallbacks  int
	Other      int
	Cost       float64
	LessonCost float64
	Unpriced   bool
}

// learnerCosts folds per-model usage rows into one row per learner, most
// expensive first. Failed lesson calls count as fallbacks since the learner
// received canned content instead.
func learnerCosts(usage []store.LearnerLessonUsage) []learnerCost {
	byLearner := map[string]*learnerCost{}
	var order []string
	for _, u := range usage {
		r, ok := byLearner[u.LearnerID]
		if !ok {
			r = &learnerCost{LearnerID: u.LearnerID}
			byLearner[u.LearnerID] = r
			order = append(order, u.LearnerID)
		}

		var cost float64
		if c := llm.LookupCost(u.Model); c != nil {
			cost = c.Cost(u.InputTokens, u.OutputTokens)
		} else if u.InputTokens+u.OutputTokens > 0 {
			r.Unpriced = true
		}
		r.Cost += cost

		if u.Purpose == lessonPurpose {
			r.Lessons += u.Calls
			r.Fallbacks += u.Failed
			r.LessonCost += cost
		} else {
			r.Other += u.Calls
		}
	}

	out := make([]learnerCost, 0, len(order))
	for _, id := range order {
		out = append(out, *byLearner[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost > out[j].Cost })
	return out
}

func anyUnpriced(rows []learnerCost) bool {
	for _, r := range rows {
		if r.Unpriced {
			return true
		}
	}
	return false
}

func outcome(success bool, purpose string) string {
	switch {
	case success:
		return "ok"
	case purpose == lessonPurpose:
		return "fallback lesson"
	default:
		return "failed"
	}
}

func printBody(title, body string) {
	fmt.Println()
	fmt.Printf("%s %s\n", title, rule(60-len(title)-1))
	if body == "" {
		fmt.Println("(not captured)")
		return
	}
	fmt.Println(body)
}

func rule(n int) string {
	return strings.Repeat("─", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (remediation-lesson, learner-summary)")
	llmListCmd.Flags().StringP("learner", "l", "", "Filter by learner ID")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")
	llmCostCmd.Flags().StringP("learner", "l", "", "Limit to one learner")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
	llmCmd.AddCommand(llmCostCmd)
}

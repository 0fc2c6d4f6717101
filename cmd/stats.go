package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/engine"
)

var statsCmd = &cobra.Command{
	Use:   "stats <learner>",
	Short: "Show a learner's dashboard: readiness, weak and strong concepts, recent attempts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		learner := args[0]
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		g, err := s.Concepts().Load(ctx)
		if err != nil {
			return fmt.Errorf("load concept graph: %w", err)
		}
		if g == nil {
			if g, err = conceptgraph.Default(); err != nil {
				return err
			}
		}

		eng, err := engine.New(engine.Deps{
			Graphs:   conceptgraph.NewHolder(g),
			Ledger:   s.Skills(),
			Attempts: s.Attempts(),
		}, cfg.Engine)
		if err != nil {
			return err
		}
		d, err := eng.Dashboard(ctx, learner)
		if err != nil {
			return err
		}
		sessions, err := s.Events().SessionCount(ctx, learner)
		if err != nil {
			return err
		}
		episodes, err := s.Episodes().History(ctx, learner, 10)
		if err != nil {
			return err
		}

		fmt.Printf("Learner:    %s\n", learner)
		fmt.Printf("Readiness:  %.0f%%\n", d.Readiness*100)
		fmt.Printf("Concepts:   %d rated, %d weak, %d strong\n", len(d.Skills), len(d.Weak), len(d.Strong))
		fmt.Printf("Sessions:   %d completed\n", sessions)

		if len(d.Weak) > 0 {
			fmt.Println()
			fmt.Println("Weak")
			for _, r := range d.Weak {
				fmt.Printf("  %-32s  %7.1f\n", r.ConceptID, r.Rating)
			}
		}
		if len(d.Strong) > 0 {
			fmt.Println()
			fmt.Println("Strong")
			for _, r := range d.Strong {
				fmt.Printf("  %-32s  %7.1f\n", r.ConceptID, r.Rating)
			}
		}

		if len(d.RecentAttempts) > 0 {
			fmt.Println()
			fmt.Println("Recent Attempts")
			fmt.Println(strings.Repeat("\u2500", 72))
			for _, a := range d.RecentAttempts {
				ok := "✓"
				if !a.Correct {
					ok = "✗"
				}
				fmt.Printf("%-19s  %-28s  %s  tier %d  %.3f\n",
					a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					truncate(a.PrimaryConcept(), 28), ok, a.DifficultyTier, a.Composite)
			}
		}

		if len(episodes) > 0 {
			fmt.Println()
			fmt.Println("Remediation")
			fmt.Println(strings.Repeat("\u2500", 72))
			for _, ep := range episodes {
				state := string(ep.Status)
				if ep.ClosedAt != nil && ep.Reason != "" {
					state += " (" + ep.Reason + ")"
				}
				fmt.Printf("%-19s  %-28s  %s\n",
					ep.OpenedAt.Local().Format("2006-01-02 15:04:05"),
					truncate(ep.WeakConceptID, 28), state)
			}
		}
		return nil
	},
}

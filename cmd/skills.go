package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/mastery"
)

var skillsCmd = &cobra.Command{
	Use:   "skills <learner>",
	Short: "List a learner's skill ratings, weakest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		ratings, err := s.Skills().List(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list ratings: %w", err)
		}
		if len(ratings) == 0 {
			fmt.Printf("No ratings recorded for %s.\n", args[0])
			return nil
		}
		printRatings(ratings, cfg.Engine.WeakCutoff(), cfg.Engine.StrongRating)
		return nil
	},
}

func printRatings(ratings []mastery.Rating, weak, strong float64) {
	fmt.Printf("%-32s  %8s  %8s  %-6s  %s\n", "Concept", "Rating", "Expected", "Band", "Updated")
	fmt.Println(strings.Repeat("\u2500", 84))
	for _, r := range ratings {
		band := ""
		switch {
		case r.Rating < weak:
			band = "weak"
		case r.Rating > strong:
			band = "strong"
		}
		fmt.Printf("%-32s  %8.1f  %8.3f  %-6s  %s\n",
			truncate(r.ConceptID, 32), r.Rating, mastery.Expected(r.Rating, mastery.MinTier), band,
			r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("\n%d concepts\n", len(ratings))
}

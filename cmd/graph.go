package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/engine"
	"github.com/abhisek/cognify/internal/store"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and load the concept prerequisite graph",
}

// currentGraph returns the persisted graph, falling back to the embedded
// curriculum when nothing has been loaded yet.
func currentGraph(ctx context.Context, s *store.Store) (*conceptgraph.Graph, error) {
	g, err := s.Concepts().Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load concept graph: %w", err)
	}
	if g != nil {
		return g, nil
	}
	return conceptgraph.Default()
}

func parseCurriculum(path string) ([]conceptgraph.Concept, []conceptgraph.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return conceptgraph.Parse(f)
}

var graphLoadCmd = &cobra.Command{
	Use:   "load <curriculum.yaml>",
	Short: "Upsert concepts and prerequisites from a curriculum file",
	Long: `Merge a curriculum file into the stored graph. Concepts are upserted and the
prerequisite list of every concept in the file is replaced. The merged graph
is validated before anything is written; a cycle or unknown prerequisite
leaves the stored graph unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		concepts, edges, err := parseCurriculum(args[0])
		if err != nil {
			return err
		}

		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		cur, err := currentGraph(ctx, s)
		if err != nil {
			return err
		}
		eng, err := engine.New(engine.Deps{
			Graphs:     conceptgraph.NewHolder(cur),
			Ledger:     s.Skills(),
			Attempts:   s.Attempts(),
			GraphStore: s.Concepts(),
		}, engine.DefaultConfig())
		if err != nil {
			return err
		}

		g, err := eng.LoadGraph(ctx, concepts, edges)
		if err != nil {
			return err
		}
		fmt.Printf("Loaded %d concepts, %d edges. Graph now has %d concepts.\n",
			len(concepts), len(edges), g.Len())
		return nil
	},
}

var graphValidateCmd = &cobra.Command{
	Use:   "validate <curriculum.yaml>",
	Short: "Check a curriculum file for cycles and unknown prerequisites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		concepts, edges, err := parseCurriculum(args[0])
		if err != nil {
			return err
		}
		g, err := conceptgraph.Build(concepts, edges)
		if err != nil {
			return err
		}
		fmt.Printf("OK: %d concepts, %d edges, %d roots.\n", g.Len(), len(g.Edges()), len(g.Roots()))
		return nil
	},
}

var graphListCmd = &cobra.Command{
	Use:   "list",
	Short: "List concepts in prerequisite order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		g, err := currentGraph(cmd.Context(), s)
		if err != nil {
			return err
		}

		fmt.Printf("%-32s  %-36s  %s\n", "ID", "Name", "Prerequisites")
		fmt.Println(strings.Repeat("\u2500", 100))
		for _, c := range g.TopologicalOrder() {
			prereqs, _ := g.Prerequisites(c.ID)
			name := c.DisplayName()
			if len(name) > 36 {
				name = name[:33] + "..."
			}
			fmt.Printf("%-32s  %-36s  %s\n", c.ID, name, strings.Join(prereqs, ", "))
		}
		fmt.Printf("\n%d concepts\n", g.Len())
		return nil
	},
}

var graphPrereqsCmd = &cobra.Command{
	Use:   "prereqs <concept>",
	Short: "Show a concept's direct prerequisites and dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		g, err := currentGraph(cmd.Context(), s)
		if err != nil {
			return err
		}
		c, err := g.Concept(args[0])
		if err != nil {
			return err
		}
		prereqs, _ := g.Prerequisites(c.ID)
		dependents, _ := g.Dependents(c.ID)

		fmt.Printf("%s (%s)\n", c.DisplayName(), c.ID)
		fmt.Printf("  requires:    %s\n", orNone(prereqs))
		fmt.Printf("  unlocks:     %s\n", orNone(dependents))
		return nil
	},
}

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the stored graph as a curriculum file",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		s, err := openFromFlags(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		g, err := currentGraph(cmd.Context(), s)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(g.Document(subject))
	},
}

func orNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

func init() {
	graphExportCmd.Flags().String("subject", "calculus", "Subject written at the top of the file")

	graphCmd.AddCommand(graphLoadCmd)
	graphCmd.AddCommand(graphValidateCmd)
	graphCmd.AddCommand(graphListCmd)
	graphCmd.AddCommand(graphPrereqsCmd)
	graphCmd.AddCommand(graphExportCmd)
}

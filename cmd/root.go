package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/cognify/internal/config"
	"github.com/abhisek/cognify/internal/logging"
	"github.com/abhisek/cognify/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "cognify",
	Short: "Adaptive mastery and remediation engine",
	Long: `Cognify scores practice attempts, keeps a per-concept skill rating for every
learner, traces struggles back to weak prerequisites and opens remediation
episodes with generated lessons.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides COGNIFY_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./cognify.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment and applies command-line
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.Path = p
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured store path (COGNIFY_DB), then the default XDG path.
func resolveDBPath(cfg *config.Config) (string, error) {
	if cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// openStore resolves the database path and opens it.
func openStore(cfg *config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// openFromFlags loads config and opens the store; used by the read-only
// inspection commands.
func openFromFlags(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log, nil)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

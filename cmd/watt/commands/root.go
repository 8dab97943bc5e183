package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openwatt/openwatt/pkg/scenario"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbPath     string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "watt",
		Short: "OpenWatt - Energy System Modeling Engine",
		Long: `OpenWatt models energy systems as buses, components, and regions,
groups them with composable grouping rules, and dispatches them over
discrete timesteps.

Features:
  - Typed scenarios via YAML and CUE schemas
  - Grouping rules scripted in Starlark
  - Pluggable solver backends
  - SQLite-backed entity and series storage
  - Scenario linting via OPA policies
  - Snapshot dump and restore`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default ~/.openwatt/openwatt.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newGroupsCommand())
	rootCmd.AddCommand(newSolveCommand())
	rootCmd.AddCommand(newDumpCommand())
	rootCmd.AddCommand(newRestoreCommand())
	rootCmd.AddCommand(newFetchCommand())

	return rootCmd
}

// defaultDBPath resolves the database path from the --db flag or the
// user's home directory.
func defaultDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".openwatt", "openwatt.db"), nil
}

// loadScenario parses and validates a scenario file.
func loadScenario(ctx context.Context, path string) (*scenario.Scenario, error) {
	parser := scenario.NewParser()
	sc, err := parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := parser.Validate(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rudzz/marketplace/internal/infrastructure/observability"
	"github.com/rudzz/marketplace/pkg/config"
)

var (
	// Global flags
	verbose bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "marketctl",
	Short: "Operator tooling for the marketplace backend",
	Long: `marketctl manages the marketplace data stores.

Configuration is read from the environment (and a .env file when present),
the same way the API server reads it.

Examples:
  marketctl schema > schema.sql      # Print the Postgres DDL
  marketctl seed                     # Apply the schema and insert demo data
  marketctl reindex --reset          # Rebuild the listing search index`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		level := "warn"
		if verbose {
			level = "debug"
		}
		observability.InitLogger("marketctl", cfg.Environment(), level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

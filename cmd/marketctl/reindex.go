package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rudzz/marketplace/internal/bootstrap"
	tsclient "github.com/rudzz/marketplace/internal/infrastructure/clients/typesense"
)

var (
	// Reindex flags
	reset bool
)

// reindexCmd rebuilds the listing search index from the relational store
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the listing search index",
	Long: `Push every provider listing from the store into the Typesense
listings collection.

With --reset the collection is dropped and recreated first, which removes
documents for listings that no longer exist.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReindex(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().BoolVar(&reset, "reset", false, "Drop and recreate the collection before indexing")
}

func runReindex(ctx context.Context) error {
	if !cfg.Typesense.Enabled {
		return fmt.Errorf("typesense is disabled (set TYPESENSE_ENABLED=true)")
	}

	if reset {
		client, err := tsclient.NewClient(&cfg.Typesense)
		if err != nil {
			return fmt.Errorf("failed to create Typesense client: %w", err)
		}
		if err := client.DropSchema(ctx); err != nil {
			return fmt.Errorf("failed to drop listings collection: %w", err)
		}
		log.Info().Msg("listings collection dropped")
	}

	index, _, err := bootstrap.OpenListingIndex(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open listing index: %w", err)
	}

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	svc := bootstrap.NewServices(store, bootstrap.NewTokenIssuer(&cfg.Auth), bootstrap.Options{ListingIndex: index})

	count, err := svc.Directory.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex stopped after %d listings: %w", count, err)
	}
	fmt.Printf("indexed %d listings\n", count)
	return nil
}

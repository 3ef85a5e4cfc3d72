package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-listings/internal/config"
	"github.com/evcraddock/estate-listings/internal/feature"
	"github.com/evcraddock/estate-listings/internal/image"
	"github.com/evcraddock/estate-listings/internal/logging"
	"github.com/evcraddock/estate-listings/internal/property"
	"github.com/evcraddock/estate-listings/internal/search"
)

func newReindexCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild every search document",
		Long: "Rebuild the search document of every property from the local database. " +
			"Failures on single properties are logged and skipped. With --dry-run the documents are built but not stored.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd.Context(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "build documents without writing them")

	return cmd
}

func runReindex(ctx context.Context, dryRun bool) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.DevMode)

	database, _, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	indexer := search.NewIndexer(
		property.NewRepository(database),
		image.NewRepository(database),
		feature.NewRepository(database),
		search.NewSQLStore(database),
		cfg.Currency,
	)
	if !dryRun {
		enableVectors(indexer, database, cfg)
	}

	result, err := indexer.SyncAll(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("reindexing: %w", err)
	}

	if !dryRun && result.Synced > 0 {
		c, err := openCache(ctx, cfg)
		if err != nil {
			slog.Warn("search cache not cleared", "error", err)
		} else if c != nil {
			defer func() { _ = c.Close() }()
			if err := c.InvalidatePrefix(ctx, "search:"); err != nil {
				slog.Warn("clearing search cache", "error", err)
			}
		}
	}

	if isJSON() {
		return printJSON(map[string]interface{}{
			"total":   result.Total,
			"synced":  result.Synced,
			"failed":  result.Failed,
			"dry_run": dryRun,
		})
	}

	verb := "Synced"
	if dryRun {
		verb = "Built"
	}
	fmt.Printf("%s %d of %d documents (%d failed).\n", verb, result.Synced, result.Total, result.Failed)
	return nil
}

// enableVectors turns on similarity search when an embedding endpoint is
// configured and sqlite-vec is compiled in.
func enableVectors(indexer *search.Indexer, database *sql.DB, cfg config.Config) {
	if cfg.EmbedEndpoint == "" {
		return
	}
	vectors, err := search.NewVectorIndex(database)
	if err != nil {
		slog.Warn("similarity search disabled", "error", err)
		return
	}
	indexer.WithVectors(search.NewOllamaEmbedder(cfg.EmbedEndpoint, cfg.EmbedModel), vectors)
}

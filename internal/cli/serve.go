package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-listings/internal/blob"
	"github.com/evcraddock/estate-listings/internal/config"
	"github.com/evcraddock/estate-listings/internal/geocode"
	"github.com/evcraddock/estate-listings/internal/logging"
	"github.com/evcraddock/estate-listings/internal/search"
	"github.com/evcraddock/estate-listings/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the JSON API server. Settings come from the environment and an optional .env file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")

	return cmd
}

func runServe(ctx context.Context, port int) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.DevMode)

	database, dbPath, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	opts := web.Options{Currency: cfg.Currency}

	c, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if c != nil {
		defer func() { _ = c.Close() }()
		opts.Cache = c
	}

	if err := configureBlobs(&opts, cfg, dbPath); err != nil {
		return err
	}

	if cfg.GeocoderURL != "" {
		opts.Geocoder = geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent)
	}

	if cfg.EmbedEndpoint != "" {
		vectors, err := search.NewVectorIndex(database)
		if err != nil {
			slog.Warn("similarity search disabled", "error", err)
		} else {
			opts.Embedder = search.NewOllamaEmbedder(cfg.EmbedEndpoint, cfg.EmbedModel)
			opts.Vectors = vectors
		}
	}

	srv, err := web.NewServer(database, opts)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("listings server configured",
		"db", dbPath,
		"currency", cfg.Currency,
		"cache", c != nil,
		"geocoder", cfg.GeocoderURL != "",
		"similarity", opts.Vectors != nil,
	)
	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
}

// configureBlobs picks the remote store when BLOB_UPLOAD_URL is set; otherwise
// images are written next to the database and served under /media/.
func configureBlobs(opts *web.Options, cfg config.Config, dbPath string) error {
	if cfg.BlobUploadURL != "" {
		opts.Blobs = blob.NewHTTPStore(cfg.BlobUploadURL, cfg.BlobPublicURL, cfg.BlobToken)
		return nil
	}

	dir := cfg.BlobDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(dbPath), "media")
	}
	store, err := blob.NewDiskStore(dir, cfg.BlobPublicURL)
	if err != nil {
		return err
	}
	opts.Blobs = store
	opts.MediaDir = dir
	return nil
}

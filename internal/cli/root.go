// Package cli defines the cobra command tree for listings.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-listings/internal/cache"
	"github.com/evcraddock/estate-listings/internal/client"
	"github.com/evcraddock/estate-listings/internal/config"
	"github.com/evcraddock/estate-listings/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "listings",
		Short:         "Manage real-estate listings",
		Long:          "A tool to publish and browse real-estate listings. Run the API server, manage properties and images, search listings, and issue seller API keys.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyFormatDefault(cmd)
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: $LISTINGS_DB or ~/.config/listings/listings.db)")

	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newShowCmd(),
		newRemoveCmd(),
		newSearchCmd(),
		newReindexCmd(),
		newKeysCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// loadServerConfig reads .env and the environment.
func loadServerConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	return config.FromEnv()
}

// openDB opens the SQLite database using the --db flag, the configured path,
// or the default path. Used by the commands that work on the local database.
func openDB(cfg config.Config) (*sql.DB, string, error) {
	path := flagDB
	if path == "" {
		path = cfg.DBPath
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	d, err := db.Open(path)
	if err != nil {
		return nil, "", err
	}
	return d, path, nil
}

// openCache connects to redis when REDIS_ADDR is set. A nil cache disables caching.
func openCache(ctx context.Context, cfg config.Config) (*cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	return cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})
}

// newAPIClient creates an HTTP client for the listings API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// parsePropertyID checks that arg looks like a property id.
func parsePropertyID(arg string) (string, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("invalid property ID: %s", arg)
	}
	return id.String(), nil
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

// Package config reads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server configuration.
type Config struct {
	DBPath      string // LISTINGS_DB; empty means db.DefaultPath
	DatabaseURL string // DATABASE_URL, used by migration scripts
	Currency    string
	BaseURL     string // e.g. http://localhost:8080
	DevMode     bool

	RedisAddr     string // empty disables caching
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	BlobDir       string
	BlobPublicURL string
	BlobUploadURL string // when set, images go to a remote store instead of BlobDir
	BlobToken     string

	GeocoderURL       string // empty disables geocoding
	GeocoderUserAgent string

	EmbedEndpoint string // empty disables similarity search
	EmbedModel    string
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv creates a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		DBPath:            os.Getenv("LISTINGS_DB"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Currency:          strings.ToUpper(envOrDefault("LISTINGS_CURRENCY", "USD")),
		BaseURL:           envOrDefault("LISTINGS_BASE_URL", "http://localhost:8080"),
		DevMode:           os.Getenv("LISTINGS_DEV_MODE") == "true",
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		BlobDir:           os.Getenv("BLOB_DIR"),
		BlobPublicURL:     os.Getenv("BLOB_PUBLIC_URL"),
		BlobUploadURL:     os.Getenv("BLOB_UPLOAD_URL"),
		BlobToken:         os.Getenv("BLOB_TOKEN"),
		GeocoderURL:       os.Getenv("GEOCODER_URL"),
		GeocoderUserAgent: envOrDefault("GEOCODER_USER_AGENT", "estate-listings/1.0"),
		EmbedEndpoint:     os.Getenv("EMBED_ENDPOINT"),
		EmbedModel:        os.Getenv("EMBED_MODEL"),
	}

	if len(cfg.Currency) != 3 {
		return cfg, fmt.Errorf("LISTINGS_CURRENCY must be a 3-letter code, got %q", cfg.Currency)
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parsing REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	ttl, err := time.ParseDuration(envOrDefault("CACHE_TTL", "5m"))
	if err != nil {
		return cfg, fmt.Errorf("parsing CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	if cfg.BlobPublicURL == "" {
		cfg.BlobPublicURL = strings.TrimRight(cfg.BaseURL, "/") + "/media"
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package migrate

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config is the connection configuration shared by every script.
type Config struct {
	// DatabaseURL is a postgres:// DSN or a SQLite path (optionally sqlite://).
	DatabaseURL string
}

// ConfigFromEnv reads DATABASE_URL.
func ConfigFromEnv() Config {
	return Config{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))}
}

func (c Config) check() error {
	if c.DatabaseURL == "" {
		return &PreconditionError{Reason: "DATABASE_URL is not set in the environment or .env file"}
	}
	return nil
}

// Open connects to the configured database. The caller owns the connection.
func Open(cfg Config) (*gorm.DB, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch dsn := cfg.DatabaseURL; {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		if !strings.Contains(path, "?") {
			path += "?_foreign_keys=on&_busy_timeout=5000"
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

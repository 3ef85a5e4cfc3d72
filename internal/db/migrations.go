package db

import (
	"database/sql"
	"fmt"

	"github.com/evcraddock/estate-listings/internal/lookup"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS operation_statuses (
		id           INTEGER PRIMARY KEY,
		name         TEXT    NOT NULL UNIQUE,
		display_name TEXT    NOT NULL,
		color        TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS property_statuses (
		id           INTEGER PRIMARY KEY,
		name         TEXT    NOT NULL UNIQUE,
		display_name TEXT    NOT NULL,
		color        TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS property_types (
		id           INTEGER PRIMARY KEY,
		name         TEXT    NOT NULL UNIQUE,
		display_name TEXT    NOT NULL,
		color        TEXT    NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id                  TEXT    PRIMARY KEY,
		title               TEXT    NOT NULL,
		description         TEXT    NOT NULL DEFAULT '',
		price               REAL,
		address             TEXT    NOT NULL UNIQUE,
		city                TEXT    NOT NULL DEFAULT '',
		state               TEXT    NOT NULL DEFAULT '',
		country             TEXT    NOT NULL DEFAULT '',
		zip_code            TEXT    NOT NULL DEFAULT '',
		type_id             INTEGER REFERENCES property_types(id),
		bedrooms            INTEGER,
		bathrooms           REAL,
		square_meters       REAL,
		status_id           INTEGER REFERENCES property_statuses(id),
		operation_status_id INTEGER REFERENCES operation_statuses(id),
		latitude            REAL,
		longitude           REAL,
		year_built          INTEGER,
		seller_id           TEXT    NOT NULL DEFAULT 'unassigned',
		created_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_seller ON properties(seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city)`,
	`CREATE TABLE IF NOT EXISTS property_images (
		id            TEXT    PRIMARY KEY,
		property_id   TEXT    NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		url           TEXT    NOT NULL,
		is_cover      INTEGER NOT NULL DEFAULT 0,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_property_images_cover
		ON property_images(property_id) WHERE is_cover = 1`,
	`CREATE TABLE IF NOT EXISTS features (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT    NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS property_features (
		property_id TEXT    NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		feature_id  INTEGER NOT NULL REFERENCES features(id) ON DELETE CASCADE,
		PRIMARY KEY (property_id, feature_id)
	)`,
	`CREATE TABLE IF NOT EXISTS search_documents (
		id         TEXT    PRIMARY KEY,
		body       TEXT    NOT NULL,
		content    TEXT    NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions (idempotent — checks if column exists first)
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"api_keys", "seller_id", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// seedLookups upserts the fixed lookup rows by name.
func seedLookups(db *sql.DB) error {
	for _, table := range lookup.Tables {
		stmt := fmt.Sprintf(`INSERT INTO %s (id, name, display_name, color) VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET display_name = excluded.display_name, color = excluded.color`, table.Name)
		for _, e := range table.Seed {
			if _, err := db.Exec(stmt, e.ID, e.Name, e.DisplayName, e.Color); err != nil {
				return fmt.Errorf("seeding %s %q: %w", table.Name, e.Name, err)
			}
		}
	}
	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func columnExists(db *sql.DB, table, column string) (found bool, err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}

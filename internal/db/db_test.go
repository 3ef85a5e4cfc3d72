package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "listings.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "listings.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "listings.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "properties table exists",
			table: "properties",
			cols: []string{"id", "title", "description", "price", "address", "city", "state", "country", "zip_code",
				"type_id", "bedrooms", "bathrooms", "square_meters", "status_id", "operation_status_id",
				"latitude", "longitude", "year_built", "seller_id", "created_at", "updated_at"},
		},
		{
			name:  "property_images table exists",
			table: "property_images",
			cols:  []string{"id", "property_id", "url", "is_cover", "display_order", "created_at"},
		},
		{
			name:  "features table exists",
			table: "features",
			cols:  []string{"id", "name"},
		},
		{
			name:  "property_features table exists",
			table: "property_features",
			cols:  []string{"property_id", "feature_id"},
		},
		{
			name:  "operation_statuses table exists",
			table: "operation_statuses",
			cols:  []string{"id", "name", "display_name", "color"},
		},
		{
			name:  "search_documents table exists",
			table: "search_documents",
			cols:  []string{"id", "body", "content", "updated_at"},
		},
		{
			name:  "api_keys table exists",
			table: "api_keys",
			cols:  []string{"id", "name", "key_prefix", "key_hash", "created_at", "last_used_at", "seller_id"},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestLookupsSeeded(t *testing.T) {
	d := openTestDB(t)

	tests := []struct {
		table string
		want  int
	}{
		{"operation_statuses", 4},
		{"property_statuses", 5},
		{"property_types", 6},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			var count int
			if err := d.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", tt.table)).Scan(&count); err != nil {
				t.Fatalf("count: %v", err)
			}
			if count != tt.want {
				t.Errorf("count = %d, want %d", count, tt.want)
			}
		})
	}
}

func TestAddressUnique(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO properties (id, title, address) VALUES (?, ?, ?)`
	if _, err := d.Exec(insert, "p1", "Loft", "1 Main St"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := d.Exec(insert, "p2", "Other", "1 Main St"); err == nil {
		t.Error("expected unique violation for duplicate address")
	}
}

func TestSellerPlaceholderDefault(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(`INSERT INTO properties (id, title, address) VALUES ('p1', 'Loft', '1 Main St')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var seller string
	if err := d.QueryRow(`SELECT seller_id FROM properties WHERE id = 'p1'`).Scan(&seller); err != nil {
		t.Fatalf("select: %v", err)
	}
	if seller != "unassigned" {
		t.Errorf("seller_id = %q, want %q", seller, "unassigned")
	}
}

func TestSingleCoverConstraint(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(`INSERT INTO properties (id, title, address) VALUES ('p1', 'Loft', '1 Main St')`); err != nil {
		t.Fatalf("insert property: %v", err)
	}

	insert := `INSERT INTO property_images (id, property_id, url, is_cover) VALUES (?, 'p1', ?, ?)`
	if _, err := d.Exec(insert, "i1", "a.jpg", 1); err != nil {
		t.Fatalf("first cover: %v", err)
	}
	if _, err := d.Exec(insert, "i2", "b.jpg", 0); err != nil {
		t.Fatalf("non-cover image: %v", err)
	}
	if _, err := d.Exec(insert, "i3", "c.jpg", 1); err == nil {
		t.Error("expected second cover image to be rejected")
	}
}

func TestCascadeDelete(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.Exec(`INSERT INTO properties (id, title, address) VALUES ('p1', 'Loft', '1 Main St')`); err != nil {
		t.Fatalf("insert property: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err := d.Exec(
			`INSERT INTO property_images (id, property_id, url, display_order) VALUES (?, 'p1', ?, ?)`,
			fmt.Sprintf("img-%d", i), fmt.Sprintf("%d.jpg", i), i,
		)
		if err != nil {
			t.Fatalf("insert image %d: %v", i, err)
		}
	}
	if _, err := d.Exec(`INSERT INTO features (name) VALUES ('Pool')`); err != nil {
		t.Fatalf("insert feature: %v", err)
	}
	if _, err := d.Exec(`INSERT INTO property_features (property_id, feature_id) VALUES ('p1', 1)`); err != nil {
		t.Fatalf("assign feature: %v", err)
	}

	if _, err := d.Exec(`DELETE FROM properties WHERE id = 'p1'`); err != nil {
		t.Fatalf("delete property: %v", err)
	}

	for _, table := range []string{"property_images", "property_features"} {
		var count int
		if err := d.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("expected 0 rows in %s after cascade delete, got %d", table, count)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.db")

	// Open twice — migrations and seeding should not fail on second run
	for i := 0; i < 2; i++ {
		d, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := d.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "listings.db" {
		t.Errorf("expected filename listings.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "listings" {
		t.Errorf("expected directory listings, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listings.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}

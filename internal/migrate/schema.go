package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Guards and DDL helpers shared by the scripts. Statements stay within the
// SQL that SQLite and PostgreSQL both accept.

func hasTable(table string) func(context.Context, *gorm.DB) (bool, error) {
	return func(_ context.Context, db *gorm.DB) (bool, error) {
		return db.Migrator().HasTable(table), nil
	}
}

func hasColumn(table, column string) func(context.Context, *gorm.DB) (bool, error) {
	return func(_ context.Context, db *gorm.DB) (bool, error) {
		if !db.Migrator().HasTable(table) {
			return false, fmt.Errorf("table %s does not exist", table)
		}
		return columnExists(db, table, column)
	}
}

// columnExists matches the column name exactly. The SQLite migrator's
// HasColumn pattern-matches the table DDL, so status_id would be found
// inside operation_status_id.
func columnExists(db *gorm.DB, table, column string) (bool, error) {
	query := "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?"
	if db.Dialector.Name() == "postgres" {
		query = `SELECT COUNT(*) FROM information_schema.columns
			WHERE table_schema = CURRENT_SCHEMA() AND table_name = ? AND column_name = ?`
	}
	var n int64
	if err := db.Raw(query, table, column).Scan(&n).Error; err != nil {
		return false, fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

func lacksColumn(table, column string) func(context.Context, *gorm.DB) (bool, error) {
	has := hasColumn(table, column)
	return func(ctx context.Context, db *gorm.DB) (bool, error) {
		ok, err := has(ctx, db)
		return !ok, err
	}
}

func hasIndex(table, index string) func(context.Context, *gorm.DB) (bool, error) {
	return func(_ context.Context, db *gorm.DB) (bool, error) {
		return db.Migrator().HasIndex(table, index), nil
	}
}

// noneWhere is satisfied when the query counts zero rows.
func noneWhere(query string, args ...interface{}) func(context.Context, *gorm.DB) (bool, error) {
	return func(_ context.Context, db *gorm.DB) (bool, error) {
		n, err := count(db, query, args...)
		return n == 0, err
	}
}

func exec(query string, args ...interface{}) func(context.Context, *gorm.DB) error {
	return func(_ context.Context, tx *gorm.DB) error {
		return tx.Exec(query, args...).Error
	}
}

func addColumn(table, column, definition string) Step {
	return Step{
		Name:   fmt.Sprintf("add %s.%s", table, column),
		Guard:  hasColumn(table, column),
		Action: exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)),
	}
}

func count(db *gorm.DB, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := db.Raw(query, args...).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

// serialPK is an auto-assigned integer primary key in the connection's dialect.
func serialPK(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

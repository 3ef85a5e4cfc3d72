package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evcraddock/estate-listings/internal/lookup"
)

func createLookupTable(t lookup.Table) Step {
	return Step{
		Name:  "create " + t.Name,
		Guard: hasTable(t.Name),
		Action: exec(fmt.Sprintf(`CREATE TABLE %s (
			id           INTEGER PRIMARY KEY,
			name         TEXT    NOT NULL UNIQUE,
			display_name TEXT    NOT NULL,
			color        TEXT    NOT NULL DEFAULT ''
		)`, t.Name)),
	}
}

// seedLookup upserts the seed rows by their natural key. It always runs.
func seedLookup(t lookup.Table) Step {
	return Step{
		Name: "seed " + t.Name,
		Action: func(_ context.Context, tx *gorm.DB) error {
			return upsertSeed(tx, t, "name")
		},
	}
}

func upsertSeed(tx *gorm.DB, t lookup.Table, conflictColumn string) error {
	rows := make([]lookup.Entry, len(t.Seed))
	copy(rows, t.Seed)

	updates := []string{"display_name", "color"}
	if conflictColumn == "id" {
		updates = append(updates, "name")
	}
	err := tx.Table(t.Name).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: conflictColumn}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("seeding %s: %w", t.Name, err)
	}
	return nil
}

// backfillLookup fills the foreign key from the legacy text column, matching
// the lookup name or display name case-insensitively. Rows already holding a
// foreign key are left alone.
func backfillLookup(t lookup.Table) Step {
	return Step{
		Name: fmt.Sprintf("backfill properties.%s from %s", t.ForeignKey, t.LegacyColumn),
		Guard: func(ctx context.Context, db *gorm.DB) (bool, error) {
			if done, err := lacksColumn("properties", t.LegacyColumn)(ctx, db); err != nil || done {
				return done, err
			}
			return noneWhere(fmt.Sprintf(
				"SELECT COUNT(*) FROM properties WHERE %s IS NULL AND %s IS NOT NULL AND TRIM(%s) <> ''",
				t.ForeignKey, t.LegacyColumn, t.LegacyColumn))(ctx, db)
		},
		Action: func(ctx context.Context, tx *gorm.DB) error {
			res := tx.Exec(fmt.Sprintf(`UPDATE properties SET %[1]s = (
					SELECT l.id FROM %[2]s l
					WHERE l.name = LOWER(TRIM(properties.%[3]s))
					   OR LOWER(l.display_name) = LOWER(TRIM(properties.%[3]s))
					ORDER BY l.id LIMIT 1)
				WHERE %[1]s IS NULL AND %[3]s IS NOT NULL`,
				t.ForeignKey, t.Name, t.LegacyColumn))
			if res.Error != nil {
				return fmt.Errorf("backfilling %s: %w", t.ForeignKey, res.Error)
			}

			unmatched, err := count(tx, fmt.Sprintf(
				"SELECT COUNT(*) FROM properties WHERE %s IS NULL AND %s IS NOT NULL AND TRIM(%s) <> ''",
				t.ForeignKey, t.LegacyColumn, t.LegacyColumn))
			if err != nil {
				return err
			}
			logger(ctx).Info("backfilled lookup references",
				"column", t.ForeignKey, "rows", res.RowsAffected, "unmatched", unmatched)
			return nil
		},
	}
}

// backfillLookupScript adds a lookup foreign key to properties and fills it.
func backfillLookupScript(name string, t lookup.Table) Script {
	return Script{
		Name:        name,
		Description: fmt.Sprintf("Add properties.%s and fill it from the legacy %s column", t.ForeignKey, t.LegacyColumn),
		Steps: []Step{
			createLookupTable(t),
			seedLookup(t),
			addColumn("properties", t.ForeignKey, fmt.Sprintf("INTEGER REFERENCES %s(id)", t.Name)),
			backfillLookup(t),
		},
	}
}

// resetLookup removes every row that is not in the seed and rewrites the seed
// rows under their fixed identifiers. References to removed rows are cleared first.
func resetLookup(t lookup.Table) Step {
	return Step{
		Name: "reset " + t.Name,
		Action: func(ctx context.Context, tx *gorm.DB) error {
			ids := t.IDs()

			referenced, err := columnExists(tx, "properties", t.ForeignKey)
			if err != nil {
				return err
			}
			if referenced {
				res := tx.Exec(fmt.Sprintf("UPDATE properties SET %[1]s = NULL WHERE %[1]s IS NOT NULL AND %[1]s NOT IN ?", t.ForeignKey), ids)
				if res.Error != nil {
					return fmt.Errorf("clearing references: %w", res.Error)
				}
				logger(ctx).Info("cleared lookup references", "column", t.ForeignKey, "rows", res.RowsAffected)
			}

			res := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id NOT IN ?", t.Name), ids)
			if res.Error != nil {
				return fmt.Errorf("deleting rows: %w", res.Error)
			}
			logger(ctx).Info("deleted lookup rows", "table", t.Name, "rows", res.RowsAffected)

			// Park the remaining names so seed rows can swap names without
			// tripping the unique constraint.
			if err := tx.Exec(fmt.Sprintf("UPDATE %s SET name = '~' || CAST(id AS TEXT)", t.Name)).Error; err != nil {
				return fmt.Errorf("parking names: %w", err)
			}
			return upsertSeed(tx, t, "id")
		},
	}
}

package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/evcraddock/estate-listings/internal/feature"
)

type featureRow struct {
	ID   int64
	Name string
}

func (featureRow) TableName() string { return "features" }

type propertyFeatureRow struct {
	PropertyID string
	FeatureID  int64
}

func (propertyFeatureRow) TableName() string { return "property_features" }

func createFeatureTables() []Step {
	return []Step{
		{
			Name:  "create features",
			Guard: hasTable("features"),
			Action: func(_ context.Context, tx *gorm.DB) error {
				return tx.Exec(fmt.Sprintf(`CREATE TABLE features (
					id   %s,
					name TEXT NOT NULL UNIQUE
				)`, serialPK(tx))).Error
			},
		},
		{
			Name:  "create property_features",
			Guard: hasTable("property_features"),
			Action: exec(`CREATE TABLE property_features (
				property_id TEXT    NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
				feature_id  INTEGER NOT NULL REFERENCES features(id) ON DELETE CASCADE,
				PRIMARY KEY (property_id, feature_id)
			)`),
		},
	}
}

type legacyAmenities struct {
	ID        string
	Amenities string
}

func readAmenities(db *gorm.DB) ([]legacyAmenities, error) {
	var legacy []legacyAmenities
	err := db.Raw("SELECT id, amenities FROM properties WHERE amenities IS NOT NULL AND TRIM(amenities) <> ''").
		Scan(&legacy).Error
	if err != nil {
		return nil, fmt.Errorf("reading amenities: %w", err)
	}
	return legacy, nil
}

// unsplitAmenities counts legacy amenity names that are not yet assigned to
// their property as features.
func unsplitAmenities(db *gorm.DB) (int, error) {
	legacy, err := readAmenities(db)
	if err != nil || len(legacy) == 0 {
		return 0, err
	}

	var assigned []struct {
		PropertyID string
		Name       string
	}
	err = db.Raw(`SELECT pf.property_id, f.name FROM property_features pf
		JOIN features f ON f.id = pf.feature_id`).Scan(&assigned).Error
	if err != nil {
		return 0, fmt.Errorf("reading assignments: %w", err)
	}
	have := make(map[[2]string]bool, len(assigned))
	for _, a := range assigned {
		have[[2]string{a.PropertyID, a.Name}] = true
	}

	var missing int
	for _, p := range legacy {
		for _, name := range feature.SplitLegacy(p.Amenities) {
			if !have[[2]string{p.ID, name}] {
				missing++
			}
		}
	}
	return missing, nil
}

// splitAmenities turns the legacy comma-separated amenities column into
// feature rows and assignments. Existing assignments are kept as they are.
func splitAmenities() Step {
	return Step{
		Name: "split properties.amenities into features",
		// Satisfied once every legacy amenity is assigned to its property.
		Guard: func(ctx context.Context, db *gorm.DB) (bool, error) {
			if done, err := lacksColumn("properties", "amenities")(ctx, db); err != nil || done {
				return done, err
			}
			missing, err := unsplitAmenities(db)
			return missing == 0, err
		},
		Action: func(ctx context.Context, tx *gorm.DB) error {
			legacy, err := readAmenities(tx)
			if err != nil {
				return err
			}

			var assigned int64
			for _, p := range legacy {
				for _, name := range feature.SplitLegacy(p.Amenities) {
					f, err := ensureFeature(tx, name)
					if err != nil {
						return err
					}
					res := tx.Clauses(clause.OnConflict{DoNothing: true}).
						Create(&propertyFeatureRow{PropertyID: p.ID, FeatureID: f.ID})
					if res.Error != nil {
						return fmt.Errorf("assigning %q to %s: %w", f.Name, p.ID, res.Error)
					}
					assigned += res.RowsAffected
				}
			}

			logger(ctx).Info("split amenities", "properties", len(legacy), "assignments", assigned)
			return nil
		},
	}
}

func ensureFeature(tx *gorm.DB, name string) (*featureRow, error) {
	name, err := feature.Normalize(name)
	if err != nil {
		return nil, err
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Omit("id").Create(&featureRow{Name: name}).Error
	if err != nil {
		return nil, fmt.Errorf("inserting feature %q: %w", name, err)
	}

	var f featureRow
	if err := tx.Where("name = ?", name).First(&f).Error; err != nil {
		return nil, fmt.Errorf("reading back feature %q: %w", name, err)
	}
	return &f, nil
}

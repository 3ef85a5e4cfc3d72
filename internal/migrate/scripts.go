package migrate

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/evcraddock/estate-listings/internal/lookup"
	"github.com/evcraddock/estate-listings/internal/property"
)

// legacyColumns are the free-text columns replaced by foreign keys and features.
var legacyColumns = []struct {
	column, replacedBy string
}{
	{lookup.OperationStatuses.LegacyColumn, lookup.OperationStatuses.ForeignKey},
	{lookup.PropertyStatuses.LegacyColumn, lookup.PropertyStatuses.ForeignKey},
	{lookup.PropertyTypes.LegacyColumn, lookup.PropertyTypes.ForeignKey},
	{"amenities", ""},
}

// Catalog returns every script. geo is used by backfill-geocodes.
func Catalog(geo property.Geocoder) []Script {
	var seed []Step
	for _, t := range lookup.Tables {
		seed = append(seed, createLookupTable(t), seedLookup(t))
	}
	var reset []Step
	for _, t := range lookup.Tables {
		reset = append(reset, createLookupTable(t), resetLookup(t))
	}

	return []Script{
		{
			Name:        "add-geocode-columns",
			Description: "Add nullable latitude and longitude columns to properties",
			Steps: []Step{
				addColumn("properties", "latitude", "REAL"),
				addColumn("properties", "longitude", "REAL"),
			},
		},
		{
			Name:        "backfill-geocodes",
			Description: "Geocode every property that has no coordinates yet",
			Steps:       []Step{backfillGeocodes(geo)},
		},
		{
			Name:        "seed-lookups",
			Description: "Create the lookup tables and upsert their fixed rows",
			Steps:       seed,
		},
		backfillLookupScript("backfill-operation-status", lookup.OperationStatuses),
		backfillLookupScript("backfill-property-status", lookup.PropertyStatuses),
		backfillLookupScript("backfill-property-type", lookup.PropertyTypes),
		{
			Name:        "backfill-seller",
			Description: "Add properties.seller_id and assign unowned listings to the placeholder seller",
			Steps: []Step{
				addColumn("properties", "seller_id", fmt.Sprintf("TEXT NOT NULL DEFAULT '%s'", property.UnassignedSeller)),
				{
					Name:   "assign placeholder seller",
					Guard:  noneWhere("SELECT COUNT(*) FROM properties WHERE seller_id IS NULL OR seller_id = ''"),
					Action: exec("UPDATE properties SET seller_id = ? WHERE seller_id IS NULL OR seller_id = ''", property.UnassignedSeller),
				},
			},
		},
		{
			Name:        "add-address-unique",
			Description: "Enforce one listing per address",
			Steps: []Step{{
				Name:   "unique index on properties.address",
				Guard:  hasIndex("properties", "idx_properties_address"),
				Action: exec("CREATE UNIQUE INDEX idx_properties_address ON properties(address)"),
			}},
		},
		{
			Name:        "backfill-features",
			Description: "Create the feature tables and fill them from the legacy amenities column",
			Steps:       append(createFeatureTables(), splitAmenities()),
		},
		{
			Name:        "enforce-single-cover",
			Description: "Keep one cover image per property and enforce it with a partial unique index",
			Steps: []Step{
				{
					Name: "demote extra cover images",
					Guard: noneWhere(`SELECT COUNT(*) FROM (
						SELECT property_id FROM property_images WHERE is_cover = 1
						GROUP BY property_id HAVING COUNT(*) > 1) extra`),
					Action: exec(`UPDATE property_images SET is_cover = 0
						WHERE is_cover = 1 AND id <> (
							SELECT keep.id FROM property_images keep
							WHERE keep.property_id = property_images.property_id AND keep.is_cover = 1
							ORDER BY keep.display_order, keep.created_at, keep.id LIMIT 1)`),
				},
				{
					Name:   "unique cover index",
					Guard:  hasIndex("property_images", "idx_property_images_cover"),
					Action: exec("CREATE UNIQUE INDEX idx_property_images_cover ON property_images(property_id) WHERE is_cover = 1"),
				},
			},
		},
		{
			Name:        "reset-lookups",
			Description: "Delete lookup rows that are not part of the seed and restore the seed identifiers",
			Destructive: true,
			Steps:       reset,
		},
		{
			Name:        "drop-legacy-columns",
			Description: "Drop the legacy text columns once their data has been backfilled",
			Destructive: true,
			Steps:       dropLegacyColumns(),
		},
	}
}

func dropLegacyColumns() []Step {
	steps := make([]Step, 0, len(legacyColumns))
	for _, lc := range legacyColumns {
		steps = append(steps, Step{
			Name:  "drop properties." + lc.column,
			Guard: lacksColumn("properties", lc.column),
			Action: func(_ context.Context, tx *gorm.DB) error {
				if lc.replacedBy != "" {
					added, err := columnExists(tx, "properties", lc.replacedBy)
					if err != nil {
						return err
					}
					if !added {
						return fmt.Errorf("properties.%s has not been added yet", lc.replacedBy)
					}
					n, err := count(tx, fmt.Sprintf(
						"SELECT COUNT(*) FROM properties WHERE %s IS NULL AND %s IS NOT NULL AND TRIM(%s) <> ''",
						lc.replacedBy, lc.column, lc.column))
					if err != nil {
						return err
					}
					if n > 0 {
						return fmt.Errorf("%d properties have %s set but no %s", n, lc.column, lc.replacedBy)
					}
				} else {
					if !tx.Migrator().HasTable("property_features") {
						return fmt.Errorf("features have not been backfilled yet")
					}
					missing, err := unsplitAmenities(tx)
					if err != nil {
						return err
					}
					if missing > 0 {
						return fmt.Errorf("%d legacy amenities are not assigned as features", missing)
					}
				}
				return tx.Exec(fmt.Sprintf("ALTER TABLE properties DROP COLUMN %s", lc.column)).Error
			},
		})
	}
	return steps
}

// Find returns the script with the given name.
func Find(scripts []Script, name string) (Script, bool) {
	for _, s := range scripts {
		if s.Name == name {
			return s, true
		}
	}
	return Script{}, false
}

// Names returns the script names in sorted order.
func Names(scripts []Script) []string {
	names := make([]string, len(scripts))
	for i, s := range scripts {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}

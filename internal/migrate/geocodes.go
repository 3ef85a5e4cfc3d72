package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/evcraddock/estate-listings/internal/property"
)

// backfillGeocodes looks up every property still missing coordinates. Each
// row commits on its own; lookups that fail are logged and left for the
// next run.
func backfillGeocodes(geo property.Geocoder) Step {
	return Step{
		Name:       "geocode properties without coordinates",
		Guard:      noneWhere("SELECT COUNT(*) FROM properties WHERE latitude IS NULL OR longitude IS NULL"),
		Autocommit: true,
		Action: func(ctx context.Context, db *gorm.DB) error {
			if geo == nil {
				return fmt.Errorf("no geocoder configured")
			}

			var pending []struct {
				ID, Address, City, State, ZipCode, Country string
			}
			err := db.Raw(`SELECT id, address, COALESCE(city, '') AS city, COALESCE(state, '') AS state,
				COALESCE(zip_code, '') AS zip_code, COALESCE(country, '') AS country FROM properties
				WHERE latitude IS NULL OR longitude IS NULL ORDER BY id`).Scan(&pending).Error
			if err != nil {
				return fmt.Errorf("listing properties: %w", err)
			}

			log := logger(ctx)
			var done, failed int
			for _, row := range pending {
				if err := ctx.Err(); err != nil {
					return err
				}

				p := property.Property{Address: row.Address, City: row.City, State: row.State, ZipCode: row.ZipCode, Country: row.Country}
				point, err := geo.Lookup(ctx, p.FullAddress())
				if err != nil {
					failed++
					log.Warn("geocoding property", "property_id", row.ID, "address", p.FullAddress(), "error", err)
					continue
				}
				err = db.Exec("UPDATE properties SET latitude = ?, longitude = ? WHERE id = ?",
					point.Latitude, point.Longitude, row.ID).Error
				if err != nil {
					failed++
					log.Warn("saving geocode", "property_id", row.ID, "error", err)
					continue
				}
				done++
			}

			log.Info("geocode backfill finished", "total", len(pending), "updated", done, "failed", failed)
			return nil
		},
	}
}

package property

import (
	"database/sql"
	"fmt"
)

// Dashboard summarizes one seller's listings.
type Dashboard struct {
	SellerID       string         `json:"seller_id"`
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByOperation    map[string]int `json:"by_operation"`
	AveragePrice   *float64       `json:"average_price,omitempty"`
	MissingGeocode int            `json:"missing_geocode"`
	MissingImages  int            `json:"missing_images"`
}

// Dashboard computes listing statistics for a seller.
func (r *Repository) Dashboard(sellerID string) (*Dashboard, error) {
	d := &Dashboard{
		SellerID:    sellerID,
		ByStatus:    make(map[string]int),
		ByOperation: make(map[string]int),
	}

	var avg sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT COUNT(*), AVG(price),
			COALESCE(SUM(CASE WHEN latitude IS NULL OR longitude IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT EXISTS (SELECT 1 FROM property_images i WHERE i.property_id = p.id) THEN 1 ELSE 0 END), 0)
		 FROM properties p WHERE seller_id = ?`,
		sellerID,
	).Scan(&d.Total, &avg, &d.MissingGeocode, &d.MissingImages)
	if err != nil {
		return nil, fmt.Errorf("querying dashboard totals: %w", err)
	}
	d.AveragePrice = nullFloat(avg)

	if err := r.countBy(d.ByStatus, "property_statuses", "status_id", sellerID); err != nil {
		return nil, err
	}
	if err := r.countBy(d.ByOperation, "operation_statuses", "operation_status_id", sellerID); err != nil {
		return nil, err
	}

	return d, nil
}

// countBy groups a seller's listings by a lookup table name.
// Listings without a reference are counted under "unknown".
func (r *Repository) countBy(into map[string]int, table, column, sellerID string) (err error) {
	query := fmt.Sprintf(
		`SELECT COALESCE(l.name, 'unknown'), COUNT(*)
		 FROM properties p LEFT JOIN %s l ON l.id = p.%s
		 WHERE p.seller_id = ?
		 GROUP BY COALESCE(l.name, 'unknown')`,
		table, column,
	)
	rows, err := r.db.Query(query, sellerID)
	if err != nil {
		return fmt.Errorf("grouping by %s: %w", column, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return fmt.Errorf("scanning %s count: %w", column, err)
		}
		into[name] = count
	}
	return rows.Err()
}

package property

import (
	"fmt"

	"github.com/evcraddock/estate-listings/internal/lookup"
)

// Lookups returns all rows of a lookup table ordered by id.
func (r *Repository) Lookups(table lookup.Table) (entries []lookup.Entry, err error) {
	rows, err := r.db.Query(fmt.Sprintf("SELECT id, name, display_name, color FROM %s ORDER BY id", table.Name))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", table.Name, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var e lookup.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.DisplayName, &e.Color); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table.Name, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

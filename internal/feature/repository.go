package feature

import (
	"database/sql"
	"fmt"
)

// Repository provides access to features and their assignments.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a feature repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ensure returns the feature with the given name, creating it if needed.
func (r *Repository) Ensure(name string) (*Feature, error) {
	name, err := Normalize(name)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.Exec("INSERT INTO features (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
		return nil, fmt.Errorf("inserting feature: %w", err)
	}

	var f Feature
	if err := r.db.QueryRow("SELECT id, name FROM features WHERE name = ?", name).Scan(&f.ID, &f.Name); err != nil {
		return nil, fmt.Errorf("reading back feature: %w", err)
	}
	return &f, nil
}

// Assign attaches features by name to a property. Unknown names are created;
// assignments that already exist are left untouched.
func (r *Repository) Assign(propertyID string, names ...string) ([]Feature, error) {
	for _, name := range names {
		f, err := r.Ensure(name)
		if err != nil {
			return nil, err
		}
		if _, err := r.db.Exec(
			"INSERT INTO property_features (property_id, feature_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			propertyID, f.ID,
		); err != nil {
			return nil, fmt.Errorf("assigning feature %q: %w", f.Name, err)
		}
	}
	return r.ListByPropertyID(propertyID)
}

// Unassign detaches a feature from a property.
func (r *Repository) Unassign(propertyID string, featureID int64) error {
	result, err := r.db.Exec(
		"DELETE FROM property_features WHERE property_id = ? AND feature_id = ?",
		propertyID, featureID,
	)
	if err != nil {
		return fmt.Errorf("unassigning feature: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("feature %d is not assigned to property %s", featureID, propertyID)
	}
	return nil
}

// ListByPropertyID returns a property's features ordered by name.
func (r *Repository) ListByPropertyID(propertyID string) ([]Feature, error) {
	return r.query(
		`SELECT f.id, f.name FROM features f
		 JOIN property_features pf ON pf.feature_id = f.id
		 WHERE pf.property_id = ? ORDER BY f.name`,
		propertyID,
	)
}

// List returns every known feature ordered by name.
func (r *Repository) List() ([]Feature, error) {
	return r.query("SELECT id, name FROM features ORDER BY name")
}

func (r *Repository) query(q string, args ...interface{}) (features []Feature, err error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing features: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("scanning feature: %w", err)
		}
		features = append(features, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating features: %w", err)
	}
	return features, nil
}

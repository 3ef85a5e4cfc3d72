package property

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository provides CRUD operations for properties.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a property repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const insertSQL = `INSERT INTO properties
	(id, title, description, price, address, city, state, country, zip_code, type_id, bedrooms, bathrooms,
	 square_meters, status_id, operation_status_id, latitude, longitude, year_built, seller_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateSQL = `UPDATE properties SET
	title = ?, description = ?, price = ?, address = ?, city = ?, state = ?, country = ?, zip_code = ?,
	type_id = ?, bedrooms = ?, bathrooms = ?, square_meters = ?, status_id = ?, operation_status_id = ?,
	latitude = ?, longitude = ?, year_built = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const selectSQL = `SELECT
	p.id, p.title, p.description, p.price, p.address, p.city, p.state, p.country, p.zip_code,
	p.type_id, p.bedrooms, p.bathrooms, p.square_meters, p.status_id, p.operation_status_id,
	p.latitude, p.longitude, p.year_built, p.seller_id, p.created_at, p.updated_at,
	t.id, t.name, t.display_name, t.color,
	s.id, s.name, s.display_name, s.color,
	o.id, o.name, o.display_name, o.color
	FROM properties p
	LEFT JOIN property_types t ON t.id = p.type_id
	LEFT JOIN property_statuses s ON s.id = p.status_id
	LEFT JOIN operation_statuses o ON o.id = p.operation_status_id`

// Insert adds a new property and returns it as stored.
func (r *Repository) Insert(p *Property) (*Property, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("property id is required")
	}
	seller := p.SellerID
	if seller == "" {
		seller = UnassignedSeller
	}

	_, err := r.db.Exec(insertSQL,
		p.ID, p.Title, p.Description, p.Price, p.Address,
		p.City, p.State, p.Country, p.ZipCode,
		p.TypeID, p.Bedrooms, p.Bathrooms, p.SquareMeters,
		p.StatusID, p.OperationStatusID, p.Latitude, p.Longitude,
		p.YearBuilt, seller,
	)
	if err != nil {
		if isDuplicateAddress(err) {
			return nil, fmt.Errorf("inserting property: %q: %w", p.Address, ErrDuplicateAddress)
		}
		return nil, fmt.Errorf("inserting property: %w", err)
	}

	return r.GetByID(p.ID)
}

// GetByID returns a property by its ID.
func (r *Repository) GetByID(id string) (*Property, error) {
	row := r.db.QueryRow(selectSQL+" WHERE p.id = ?", id)

	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying property %s: %w", id, err)
	}

	return p, nil
}

// ListOptions controls filtering for List. Zero values mean "no filter".
type ListOptions struct {
	SellerID          string
	City              string
	TypeID            int64
	StatusID          int64
	OperationStatusID int64
	MinPrice          *float64
	MaxPrice          *float64
	MinBedrooms       int64
	MissingGeocode    bool
	Limit             int
	Offset            int
}

// List returns properties matching the options, newest first.
func (r *Repository) List(opts ListOptions) (props []*Property, err error) {
	query := selectSQL
	var args []interface{}
	var conditions []string

	if opts.SellerID != "" {
		conditions = append(conditions, "p.seller_id = ?")
		args = append(args, opts.SellerID)
	}
	if opts.City != "" {
		conditions = append(conditions, "LOWER(p.city) = LOWER(?)")
		args = append(args, opts.City)
	}
	if opts.TypeID > 0 {
		conditions = append(conditions, "p.type_id = ?")
		args = append(args, opts.TypeID)
	}
	if opts.StatusID > 0 {
		conditions = append(conditions, "p.status_id = ?")
		args = append(args, opts.StatusID)
	}
	if opts.OperationStatusID > 0 {
		conditions = append(conditions, "p.operation_status_id = ?")
		args = append(args, opts.OperationStatusID)
	}
	if opts.MinPrice != nil {
		conditions = append(conditions, "p.price >= ?")
		args = append(args, *opts.MinPrice)
	}
	if opts.MaxPrice != nil {
		conditions = append(conditions, "p.price <= ?")
		args = append(args, *opts.MaxPrice)
	}
	if opts.MinBedrooms > 0 {
		conditions = append(conditions, "p.bedrooms >= ?")
		args = append(args, opts.MinBedrooms)
	}
	if opts.MissingGeocode {
		conditions = append(conditions, "(p.latitude IS NULL OR p.longitude IS NULL)")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY p.created_at DESC, p.id"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		props = append(props, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return props, nil
}

// IDs returns every property ID, oldest first.
func (r *Repository) IDs() (ids []string, err error) {
	rows, err := r.db.Query("SELECT id FROM properties ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing property ids: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning property id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update overwrites the editable fields of an existing property.
// Seller ownership is not changed here.
func (r *Repository) Update(p *Property) (*Property, error) {
	result, err := r.db.Exec(updateSQL,
		p.Title, p.Description, p.Price, p.Address,
		p.City, p.State, p.Country, p.ZipCode,
		p.TypeID, p.Bedrooms, p.Bathrooms, p.SquareMeters,
		p.StatusID, p.OperationStatusID, p.Latitude, p.Longitude,
		p.YearBuilt, p.ID,
	)
	if err != nil {
		if isDuplicateAddress(err) {
			return nil, fmt.Errorf("updating property: %q: %w", p.Address, ErrDuplicateAddress)
		}
		return nil, fmt.Errorf("updating property: %w", err)
	}

	if err := expectOneRow(result, p.ID); err != nil {
		return nil, err
	}

	return r.GetByID(p.ID)
}

// UpdateGeocode sets the coordinates for a property.
func (r *Repository) UpdateGeocode(id string, lat, lng float64) error {
	result, err := r.db.Exec(
		"UPDATE properties SET latitude = ?, longitude = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		lat, lng, id,
	)
	if err != nil {
		return fmt.Errorf("updating geocode: %w", err)
	}
	return expectOneRow(result, id)
}

// Delete removes a property by ID. Images and feature assignments cascade.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("property %s: %w", id, ErrNotFound)
	}
	return nil
}

func isDuplicateAddress(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE") && strings.Contains(msg, "properties.address")
}

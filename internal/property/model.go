// Package property provides the property domain model and data access.
package property

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/estate-listings/internal/lookup"
)

// UnassignedSeller is the placeholder seller for listings without an owner.
const UnassignedSeller = "unassigned"

// ErrNotFound is returned when a property does not exist.
var ErrNotFound = errors.New("property not found")

// ErrDuplicateAddress is returned when another property already has the address.
var ErrDuplicateAddress = errors.New("a property with this address already exists")

// Property represents a real-estate listing.
type Property struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Price             *float64      `json:"price,omitempty"`
	Address           string        `json:"address"`
	City              string        `json:"city"`
	State             string        `json:"state"`
	Country           string        `json:"country"`
	ZipCode           string        `json:"zip_code"`
	TypeID            *int64        `json:"type_id,omitempty"`
	Type              *lookup.Entry `json:"type,omitempty"`
	Bedrooms          *int64        `json:"bedrooms,omitempty"`
	Bathrooms         *float64      `json:"bathrooms,omitempty"`
	SquareMeters      *float64      `json:"square_meters,omitempty"`
	StatusID          *int64        `json:"status_id,omitempty"`
	Status            *lookup.Entry `json:"status,omitempty"`
	OperationStatusID *int64        `json:"operation_status_id,omitempty"`
	OperationStatus   *lookup.Entry `json:"operation_status,omitempty"`
	Latitude          *float64      `json:"latitude,omitempty"`
	Longitude         *float64      `json:"longitude,omitempty"`
	YearBuilt         *int64        `json:"year_built,omitempty"`
	SellerID          string        `json:"seller_id"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// HasGeocode reports whether both coordinates are set.
func (p *Property) HasGeocode() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// FullAddress joins the address parts into a single geocodable line.
func (p *Property) FullAddress() string {
	parts := []string{p.Address}
	for _, s := range []string{p.City, p.State, p.ZipCode, p.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Validate checks required fields and numeric ranges.
func (p *Property) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if p.Price != nil && *p.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if p.SquareMeters != nil && *p.SquareMeters < 0 {
		return fmt.Errorf("square_meters must not be negative")
	}
	if p.Bedrooms != nil && *p.Bedrooms < 0 {
		return fmt.Errorf("bedrooms must not be negative")
	}
	if p.Bathrooms != nil && *p.Bathrooms < 0 {
		return fmt.Errorf("bathrooms must not be negative")
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be set together")
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		return fmt.Errorf("latitude out of range: %g", *p.Latitude)
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		return fmt.Errorf("longitude out of range: %g", *p.Longitude)
	}
	return nil
}

// scanProperty scans a property and its joined lookup rows.
func scanProperty(row interface{ Scan(...interface{}) error }) (*Property, error) {
	var p Property
	var price, bathrooms, sqm, lat, lng sql.NullFloat64
	var typeID, bedrooms, statusID, opID, yearBuilt sql.NullInt64
	var typ, status, op nullEntry

	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &price, &p.Address,
		&p.City, &p.State, &p.Country, &p.ZipCode,
		&typeID, &bedrooms, &bathrooms, &sqm, &statusID, &opID,
		&lat, &lng, &yearBuilt, &p.SellerID, &p.CreatedAt, &p.UpdatedAt,
		&typ.id, &typ.name, &typ.displayName, &typ.color,
		&status.id, &status.name, &status.displayName, &status.color,
		&op.id, &op.name, &op.displayName, &op.color,
	)
	if err != nil {
		return nil, err
	}

	p.Price = nullFloat(price)
	p.Bathrooms = nullFloat(bathrooms)
	p.SquareMeters = nullFloat(sqm)
	p.Latitude = nullFloat(lat)
	p.Longitude = nullFloat(lng)
	p.TypeID = nullInt(typeID)
	p.Bedrooms = nullInt(bedrooms)
	p.StatusID = nullInt(statusID)
	p.OperationStatusID = nullInt(opID)
	p.YearBuilt = nullInt(yearBuilt)
	p.Type = typ.entry()
	p.Status = status.entry()
	p.OperationStatus = op.entry()

	return &p, nil
}

type nullEntry struct {
	id          sql.NullInt64
	name        sql.NullString
	displayName sql.NullString
	color       sql.NullString
}

func (n nullEntry) entry() *lookup.Entry {
	if !n.id.Valid {
		return nil
	}
	return &lookup.Entry{
		ID:          n.id.Int64,
		Name:        n.name.String,
		DisplayName: n.displayName.String,
		Color:       n.color.String,
	}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

// Package lookup holds the fixed enumerations that properties reference by
// foreign key: operation statuses, property statuses and property types.
package lookup

// Entry is one row of a lookup table.
type Entry struct {
	ID          int64  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	DisplayName string `json:"display_name" gorm:"not null"`
	Color       string `json:"color" gorm:"not null;default:''"`
}

// Table describes a lookup table, its seed rows, and the legacy text column on
// properties that duplicated it before the foreign key existed.
type Table struct {
	Name         string
	ForeignKey   string
	LegacyColumn string
	Seed         []Entry
}

// OperationStatuses is the seed data for operation_statuses.
var OperationStatuses = Table{
	Name:         "operation_statuses",
	ForeignKey:   "operation_status_id",
	LegacyColumn: "operation",
	Seed: []Entry{
		{ID: 1, Name: "sale", DisplayName: "For Sale", Color: "#16a34a"},
		{ID: 2, Name: "rent", DisplayName: "For Rent", Color: "#2563eb"},
		{ID: 3, Name: "buy", DisplayName: "Wanted to Buy", Color: "#9333ea"},
		{ID: 4, Name: "lease", DisplayName: "For Lease", Color: "#ea580c"},
	},
}

// PropertyStatuses is the seed data for property_statuses.
var PropertyStatuses = Table{
	Name:         "property_statuses",
	ForeignKey:   "status_id",
	LegacyColumn: "status",
	Seed: []Entry{
		{ID: 1, Name: "available", DisplayName: "Available", Color: "#16a34a"},
		{ID: 2, Name: "pending", DisplayName: "Pending", Color: "#ca8a04"},
		{ID: 3, Name: "sold", DisplayName: "Sold", Color: "#dc2626"},
		{ID: 4, Name: "rented", DisplayName: "Rented", Color: "#7c3aed"},
		{ID: 5, Name: "off_market", DisplayName: "Off Market", Color: "#6b7280"},
	},
}

// PropertyTypes is the seed data for property_types.
var PropertyTypes = Table{
	Name:         "property_types",
	ForeignKey:   "type_id",
	LegacyColumn: "property_type",
	Seed: []Entry{
		{ID: 1, Name: "house", DisplayName: "House"},
		{ID: 2, Name: "apartment", DisplayName: "Apartment"},
		{ID: 3, Name: "condo", DisplayName: "Condo"},
		{ID: 4, Name: "townhouse", DisplayName: "Townhouse"},
		{ID: 5, Name: "land", DisplayName: "Land"},
		{ID: 6, Name: "commercial", DisplayName: "Commercial"},
	},
}

// Tables lists every lookup table in seeding order.
var Tables = []Table{OperationStatuses, PropertyStatuses, PropertyTypes}

// ByName returns the seed entry with the given name, if any.
func (t Table) ByName(name string) (Entry, bool) {
	for _, e := range t.Seed {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// IDs returns the fixed identifiers of the seed rows.
func (t Table) IDs() []int64 {
	ids := make([]int64, len(t.Seed))
	for i, e := range t.Seed {
		ids[i] = e.ID
	}
	return ids
}

package property

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Property
		wantErr bool
	}{
		{"valid", Property{Title: "Loft", Address: "1 Main St"}, false},
		{"missing title", Property{Address: "1 Main St"}, true},
		{"blank address", Property{Title: "Loft", Address: "  "}, true},
		{"negative price", Property{Title: "Loft", Address: "x", Price: float(-1)}, true},
		{"negative area", Property{Title: "Loft", Address: "x", SquareMeters: float(-5)}, true},
		{"negative bedrooms", Property{Title: "Loft", Address: "x", Bedrooms: integer(-1)}, true},
		{"negative bathrooms", Property{Title: "Loft", Address: "x", Bathrooms: float(-0.5)}, true},
		{"latitude without longitude", Property{Title: "Loft", Address: "x", Latitude: float(1)}, true},
		{"latitude out of range", Property{Title: "Loft", Address: "x", Latitude: float(91), Longitude: float(0)}, true},
		{"longitude out of range", Property{Title: "Loft", Address: "x", Latitude: float(0), Longitude: float(-181)}, true},
		{"zero area allowed", Property{Title: "Loft", Address: "x", SquareMeters: float(0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFullAddress(t *testing.T) {
	tests := []struct {
		name string
		p    Property
		want string
	}{
		{"address only", Property{Address: "1 Main St"}, "1 Main St"},
		{"full", Property{Address: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"},
			"1 Main St, Springfield, IL, 62701, US"},
		{"skips blanks", Property{Address: "1 Main St", Country: "PT"}, "1 Main St, PT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasGeocode(t *testing.T) {
	if (&Property{}).HasGeocode() {
		t.Error("empty property should not have a geocode")
	}
	if (&Property{Latitude: float(1)}).HasGeocode() {
		t.Error("latitude alone is not a geocode")
	}
	if !(&Property{Latitude: float(1), Longitude: float(2)}).HasGeocode() {
		t.Error("expected geocode")
	}
}

package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/estate-listings/internal/auth"
	"github.com/evcraddock/estate-listings/internal/db"
	"github.com/evcraddock/estate-listings/internal/property"
)

const testSeller = "seller-1"

// testAPIServerWithDB creates a test server and returns the server, db, and a
// valid bearer token for testSeller.
func testAPIServerWithDB(t *testing.T, opts Options) (*Server, *sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	srv, err := NewServer(d, opts)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	rawKey, _, err := srv.apiKeys.Create("test", testSeller)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}

	return srv, d, rawKey
}

func createKey(t *testing.T, d *sql.DB, seller string) string {
	t.Helper()
	raw, _, err := auth.NewAPIKeyStore(d, nil).Create("other", seller)
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	return raw
}

func apiRequest(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	r := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(into); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
}

var apiTestPropertyCounter int

func createTestProperty(t *testing.T, srv *Server, token string, extra map[string]interface{}) *property.Property {
	t.Helper()
	apiTestPropertyCounter++
	body := map[string]interface{}{
		"title":   fmt.Sprintf("Listing %d", apiTestPropertyCounter),
		"address": fmt.Sprintf("%d Test St", apiTestPropertyCounter),
		"city":    "Lisbon",
	}
	for k, v := range extra {
		body[k] = v
	}

	w := apiRequest(t, srv, "POST", "/api/properties", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create property: status = %d, body %s", w.Code, w.Body.String())
	}
	var p property.Property
	decode(t, w, &p)
	return &p
}

func TestHealth(t *testing.T) {
	srv, _, _ := testAPIServerWithDB(t, Options{})

	w := apiRequest(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestAPICreateProperty(t *testing.T) {
	srv, _, token := testAPIServerWithDB(t, Options{})

	p := createTestProperty(t, srv, token, map[string]interface{}{
		"price":         350000,
		"square_meters": 110,
		"type":          "Apartment",
		"operation":     "sale",
		"features":      []string{"Pool", "Garage"},
	})

	if p.ID == "" {
		t.Error("expected generated id")
	}
	if p.SellerID != testSeller {
		t.Errorf("seller = %q, want %q", p.SellerID, testSeller)
	}
	if p.Type == nil || p.Type.Name != "apartment" {
		t.Errorf("type = %+v, want apartment", p.Type)
	}

	w := apiRequest(t, srv, "GET", "/api/properties/"+p.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	var detail propertyDetail
	decode(t, w, &detail)
	if len(detail.Features) != 2 {
		t.Errorf("features = %+v, want 2", detail.Features)
	}
	if detail.Images == nil {
		t.Error("expected empty images array, not null")
	}
}

func TestAPICreatePropertyValidation(t *testing.T) {
	srv, _, token := testAPIServerWithDB(t, Options{})

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing title", map[string]interface{}{"address": "1 Main St"}},
		{"missing address", map[string]interface{}{"title": "Loft"}},
		{"negative price", map[string]interface{}{"title": "Loft", "address": "1 Main St", "price": -5}},
		{"unknown type", map[string]interface{}{"title": "Loft", "address": "1 Main St", "type": "castle"}},
		{"unknown status id", map[string]interface{}{"title": "Loft", "address": "1 Main St", "status_id": 99}},
		{"blank feature", map[string]interface{}{"title": "Loft", "address": "1 Main St", "features": []string{" "}}},
		{"not json", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, "POST", "/api/properties", token, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d (body %s)", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestAPIWritesRequireAuth(t *testing.T) {
	srv, _, token := testAPIServerWithDB(t, Options{})
	p := createTestProperty(t, srv, token, nil)

	tests := []struct {
		method, path string
	}{
		{"POST", "/api/properties"},
		{"PUT", "/api/properties/" + p.ID},
		{"DELETE", "/api/properties/" + p.ID},
		{"POST", "/api/properties/" + p.ID + "/features"},
		{"GET", "/api/dashboard"},
		{"GET", "/api/keys"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := apiRequest(t, srv, tt.method, tt.path, "", map[string]string{})
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAPIListProperties(t *testing.T) {
	srv, d, token := testAPIServerWithDB(t, Options{})
	other := createKey(t, d, "seller-2")

	createTestProperty(t, srv, token, map[string]interface{}{"price": 100000, "bedrooms": 1, "status": "available"})
	createTestProperty(t, srv, token, map[string]interface{}{"price": 300000, "bedrooms": 3, "status": "sold"})
	createTestProperty(t, srv, other, map[string]interface{}{"price": 200000, "city": "Porto"})

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?seller=seller-1", 2},
		{"?city=porto", 1},
		{"?status=sold", 1},
		{"?status=1", 1},
		{"?min_price=150000", 2},
		{"?min_price=150000&max_price=250000", 1},
		{"?min_bedrooms=2", 1},
		{"?limit=2", 2},
		{"?limit=2&offset=2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := apiRequest(t, srv, "GET", "/api/properties"+tt.query, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var props []*property.Property
			decode(t, w, &props)
			if len(props) != tt.want {
				t.Errorf("got %d properties, want %d", len(props), tt.want)
			}
		})
	}
}

func TestAPIListPropertiesBadFilters(t *testing.T) {
	srv, _, _ := testAPIServerWithDB(t, Options{})

	for _, q := range []string{"?min_price=cheap", "?type=castle", "?limit=-1", "?min_bedrooms=x"} {
		w := apiRequest(t, srv, "GET", "/api/properties"+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

func TestAPIListPropertiesEmpty(t *testing.T) {
	srv, _, _ := testAPIServerWithDB(t, Options{})

	w := apiRequest(t, srv, "GET", "/api/properties", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestAPIGetPropertyNotFound(t *testing.T) {
	srv, _, _ := testAPIServerWithDB(t, Options{})

	w := apiRequest(t, srv, "GET", "/api/properties/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAPIUpdateProperty(t *testing.T) {
	srv, d, token := testAPIServerWithDB(t, Options{})
	p := createTestProperty(t, srv, token, nil)

	body := map[string]interface{}{"title": "Renamed", "address": p.Address, "price": 123}
	w := apiRequest(t, srv, "PUT", "/api/properties/"+p.ID, token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var updated property.Property
	decode(t, w, &updated)
	if updated.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", updated.Title)
	}

	other := createKey(t, d, "seller-2")
	w = apiRequest(t, srv, "PUT", "/api/properties/"+p.ID, other, body)
	if w.Code != http.StatusForbidden {
		t.Errorf("other seller: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = apiRequest(t, srv, "PUT", "/api/properties/missing", token, body)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAPIDuplicateAddress(t *testing.T) {
	srv, _, token := testAPIServerWithDB(t, Options{})
	first := createTestProperty(t, srv, token, nil)
	second := createTestProperty(t, srv, token, nil)

	body := map[string]interface{}{"title": "Copy", "address": first.Address}
	w := apiRequest(t, srv, "POST", "/api/properties", token, body)
	if w.Code != http.StatusConflict {
		t.Fatalf("create: status = %d, want %d, body %s", w.Code, http.StatusConflict, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "UNIQUE") {
		t.Errorf("body leaks database error: %s", w.Body.String())
	}

	w = apiRequest(t, srv, "PUT", "/api/properties/"+second.ID, token, body)
	if w.Code != http.StatusConflict {
		t.Errorf("update: status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestAPIDeleteProperty(t *testing.T) {
	srv, d, token := testAPIServerWithDB(t, Options{})
	p := createTestProperty(t, srv, token, nil)

	other := createKey(t, d, "seller-2")
	if w := apiRequest(t, srv, "DELETE", "/api/properties/"+p.ID, other, nil); w.Code != http.StatusForbidden {
		t.Errorf("other seller: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w := apiRequest(t, srv, "DELETE", "/api/properties/"+p.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	w2 := apiRequest(t, srv, "GET", "/api/properties/"+p.ID, "", nil)
	if w2.Code != http.StatusNotFound {
		t.Errorf("after delete: status = %d, want %d", w2.Code, http.StatusNotFound)
	}
	w3 := apiRequest(t, srv, "GET", "/api/search?q=listing", "", nil)
	var docs []map[string]interface{}
	decode(t, w3, &docs)
	if len(docs) != 0 {
		t.Errorf("search after delete returned %d documents", len(docs))
	}
}

func TestAPILookups(t *testing.T) {
	srv, _, _ := testAPIServerWithDB(t, Options{})

	w := apiRequest(t, srv, "GET", "/api/lookups", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var out map[string][]map[string]interface{}
	decode(t, w, &out)

	want := map[string]int{"operation_statuses": 4, "property_statuses": 5, "property_types": 6}
	for table, n := range want {
		if len(out[table]) != n {
			t.Errorf("%s: got %d entries, want %d", table, len(out[table]), n)
		}
	}
}

func TestAPIUnknownRoutes(t *testing.T) {
	srv, _, token := testAPIServerWithDB(t, Options{})

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/nothing", http.StatusNotFound},
		{"GET", "/api/properties/x/unknown", http.StatusNotFound},
		{"PATCH", "/api/properties", http.StatusMethodNotAllowed},
		{"POST", "/api/lookups", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		w := apiRequest(t, srv, tt.method, tt.path, token, nil)
		if w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

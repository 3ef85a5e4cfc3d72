package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/estate-listings/internal/auth"
	"github.com/evcraddock/estate-listings/internal/feature"
	"github.com/evcraddock/estate-listings/internal/image"
	"github.com/evcraddock/estate-listings/internal/lookup"
	"github.com/evcraddock/estate-listings/internal/property"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiServiceError maps domain errors to status codes.
func apiServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, property.ErrNotFound), errors.Is(err, image.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, property.ErrForbidden):
		apiError(w, "property belongs to another seller", http.StatusForbidden)
	case errors.Is(err, property.ErrDuplicateAddress):
		apiError(w, property.ErrDuplicateAddress.Error(), http.StatusConflict)
	default:
		slog.ErrorContext(r.Context(), action, "error", err)
		apiError(w, fmt.Sprintf("%s: %v", action, err), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// sellerID returns the authenticated seller. Only valid behind RequireAPIKey.
func sellerID(r *http.Request) string {
	id, _ := auth.SellerFromContext(r.Context())
	return id
}

// handleAPIProperties routes /api/properties requests.
func (s *Server) handleAPIProperties(w http.ResponseWriter, r *http.Request, parts []string) {
	// /api/properties — list or add
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.apiListProperties(w, r)
		case http.MethodPost:
			s.apiAddProperty(w, r)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.apiGetProperty(w, r, id)
		case http.MethodPut:
			s.apiUpdateProperty(w, r, id)
		case http.MethodDelete:
			s.apiDeleteProperty(w, r, id)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "images":
		s.handleAPIImages(w, r, id, parts[2:])
	case "features":
		s.handleAPIFeatures(w, r, id, parts[2:])
	case "document":
		if len(parts) != 2 {
			apiError(w, "not found", http.StatusNotFound)
			return
		}
		s.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
			s.apiGetDocument(w, r, id)
		})
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

// propertyRequest is the body of create and update calls. Lookups may be given
// by name (type, status, operation) or by id.
type propertyRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Price             *float64 `json:"price"`
	Address           string   `json:"address"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	Country           string   `json:"country"`
	ZipCode           string   `json:"zip_code"`
	Type              string   `json:"type"`
	TypeID            *int64   `json:"type_id"`
	Status            string   `json:"status"`
	StatusID          *int64   `json:"status_id"`
	Operation         string   `json:"operation"`
	OperationStatusID *int64   `json:"operation_status_id"`
	Bedrooms          *int64   `json:"bedrooms"`
	Bathrooms         *float64 `json:"bathrooms"`
	SquareMeters      *float64 `json:"square_meters"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	YearBuilt         *int64   `json:"year_built"`
	Features          []string `json:"features"`
}

func (req propertyRequest) toProperty() (*property.Property, error) {
	p := &property.Property{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Price:        req.Price,
		Address:      strings.TrimSpace(req.Address),
		City:         req.City,
		State:        req.State,
		Country:      req.Country,
		ZipCode:      req.ZipCode,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		SquareMeters: req.SquareMeters,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		YearBuilt:    req.YearBuilt,
	}

	var err error
	if p.TypeID, err = lookupRef(lookup.PropertyTypes, req.Type, req.TypeID); err != nil {
		return nil, err
	}
	if p.StatusID, err = lookupRef(lookup.PropertyStatuses, req.Status, req.StatusID); err != nil {
		return nil, err
	}
	if p.OperationStatusID, err = lookupRef(lookup.OperationStatuses, req.Operation, req.OperationStatusID); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// lookupRef resolves a lookup given by name or id. Both empty means unset.
func lookupRef(table lookup.Table, name string, id *int64) (*int64, error) {
	if name != "" {
		e, ok := table.ByName(strings.ToLower(name))
		if !ok {
			return nil, fmt.Errorf("unknown %s %q", table.Name, name)
		}
		return &e.ID, nil
	}
	if id == nil {
		return nil, nil
	}
	for _, known := range table.IDs() {
		if known == *id {
			return id, nil
		}
	}
	return nil, fmt.Errorf("unknown %s id %d", table.Name, *id)
}

func decodePropertyRequest(w http.ResponseWriter, r *http.Request) (*property.Property, []string, bool) {
	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return nil, nil, false
	}
	p, err := req.toProperty()
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	for _, name := range req.Features {
		if _, err := feature.Normalize(name); err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return nil, nil, false
		}
	}
	return p, req.Features, true
}

// apiListProperties returns properties matching the query filters.
func (s *Server) apiListProperties(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	props, err := s.properties.Repository().List(opts)
	if err != nil {
		apiServiceError(w, r, "listing properties", err)
		return
	}
	if props == nil {
		props = make([]*property.Property, 0)
	}

	apiJSON(w, props, http.StatusOK)
}

func parseListOptions(r *http.Request) (property.ListOptions, error) {
	q := r.URL.Query()
	opts := property.ListOptions{
		SellerID: q.Get("seller"),
		City:     q.Get("city"),
	}

	refs := []struct {
		param string
		table lookup.Table
		into  *int64
	}{
		{"type", lookup.PropertyTypes, &opts.TypeID},
		{"status", lookup.PropertyStatuses, &opts.StatusID},
		{"operation", lookup.OperationStatuses, &opts.OperationStatusID},
	}
	for _, ref := range refs {
		v := q.Get(ref.param)
		if v == "" {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*ref.into = n
			continue
		}
		e, ok := ref.table.ByName(strings.ToLower(v))
		if !ok {
			return opts, fmt.Errorf("unknown %s %q", ref.param, v)
		}
		*ref.into = e.ID
	}

	for _, f := range []struct {
		param string
		into  **float64
	}{
		{"min_price", &opts.MinPrice},
		{"max_price", &opts.MaxPrice},
	} {
		if v := q.Get(f.param); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return opts, fmt.Errorf("%s must be a number", f.param)
			}
			*f.into = &n
		}
	}

	if v := q.Get("min_bedrooms"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("min_bedrooms must be a non-negative integer")
		}
		opts.MinBedrooms = n
	}
	for _, f := range []struct {
		param string
		into  *int
	}{
		{"limit", &opts.Limit},
		{"offset", &opts.Offset},
	} {
		if v := q.Get(f.param); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, fmt.Errorf("%s must be a non-negative integer", f.param)
			}
			*f.into = n
		}
	}
	if opts.Offset > 0 && opts.Limit == 0 {
		opts.Limit = 50
	}
	opts.MissingGeocode = q.Get("missing_geocode") == "true"

	return opts, nil
}

// apiAddProperty creates a listing owned by the calling seller.
func (s *Server) apiAddProperty(w http.ResponseWriter, r *http.Request) {
	p, features, ok := decodePropertyRequest(w, r)
	if !ok {
		return
	}

	seller := sellerID(r)
	saved, err := s.properties.Create(r.Context(), p, seller)
	if err != nil {
		apiServiceError(w, r, "adding property", err)
		return
	}

	if len(features) > 0 {
		if _, err := s.features.Assign(saved.ID, features...); err != nil {
			apiServiceError(w, r, "assigning features", err)
			return
		}
		s.resync(r.Context(), saved.ID)
	}
	s.invalidate(r.Context(), seller)

	apiJSON(w, saved, http.StatusCreated)
}

type propertyDetail struct {
	Property *property.Property `json:"property"`
	Images   []image.Image      `json:"images"`
	Features []feature.Feature  `json:"features"`
}

// apiGetProperty returns a single property with images and features.
func (s *Server) apiGetProperty(w http.ResponseWriter, r *http.Request, id string) {
	p, err := s.properties.Repository().GetByID(id)
	if err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}

	images, err := s.imageRepo.ListByPropertyID(id)
	if err != nil {
		apiServiceError(w, r, "loading images", err)
		return
	}

	features, err := s.features.ListByPropertyID(id)
	if err != nil {
		apiServiceError(w, r, "loading features", err)
		return
	}

	if images == nil {
		images = make([]image.Image, 0)
	}
	if features == nil {
		features = make([]feature.Feature, 0)
	}
	apiJSON(w, propertyDetail{Property: p, Images: images, Features: features}, http.StatusOK)
}

// apiUpdateProperty replaces a listing's fields. Features, when given, are added.
func (s *Server) apiUpdateProperty(w http.ResponseWriter, r *http.Request, id string) {
	p, features, ok := decodePropertyRequest(w, r)
	if !ok {
		return
	}
	p.ID = id

	seller := sellerID(r)
	saved, err := s.properties.Update(r.Context(), p, seller)
	if err != nil {
		apiServiceError(w, r, "updating property", err)
		return
	}

	if len(features) > 0 {
		if _, err := s.features.Assign(id, features...); err != nil {
			apiServiceError(w, r, "assigning features", err)
			return
		}
		s.resync(r.Context(), id)
	}
	s.invalidate(r.Context(), seller)

	apiJSON(w, saved, http.StatusOK)
}

// apiDeleteProperty removes a listing with its images and feature assignments.
func (s *Server) apiDeleteProperty(w http.ResponseWriter, r *http.Request, id string) {
	seller := sellerID(r)
	if err := s.properties.Delete(r.Context(), id, seller); err != nil {
		apiServiceError(w, r, "deleting property", err)
		return
	}
	s.invalidate(r.Context(), seller)
	apiJSON(w, map[string]interface{}{"id": id, "removed": true}, http.StatusOK)
}

// apiLookups returns every lookup table keyed by name.
func (s *Server) apiLookups(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]lookup.Entry, len(lookup.Tables))
	for _, table := range lookup.Tables {
		entries, err := s.properties.Repository().Lookups(table)
		if err != nil {
			apiServiceError(w, r, "loading lookups", err)
			return
		}
		out[table.Name] = entries
	}
	apiJSON(w, out, http.StatusOK)
}

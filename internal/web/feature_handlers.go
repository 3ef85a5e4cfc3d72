package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/evcraddock/estate-listings/internal/feature"
)

// handleAPIFeatures routes /api/properties/{id}/features requests.
func (s *Server) handleAPIFeatures(w http.ResponseWriter, r *http.Request, propertyID string, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		s.apiListFeatures(w, r, propertyID)
	case len(parts) == 0 && r.Method == http.MethodPost:
		s.apiAssignFeatures(w, r, propertyID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.apiUnassignFeature(w, r, propertyID, parts[0])
	case len(parts) <= 1:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) apiListAllFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := s.features.List()
	if err != nil {
		apiServiceError(w, r, "listing features", err)
		return
	}
	if features == nil {
		features = make([]feature.Feature, 0)
	}
	apiJSON(w, features, http.StatusOK)
}

func (s *Server) apiListFeatures(w http.ResponseWriter, r *http.Request, propertyID string) {
	if _, err := s.properties.Repository().GetByID(propertyID); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}
	features, err := s.features.ListByPropertyID(propertyID)
	if err != nil {
		apiServiceError(w, r, "listing features", err)
		return
	}
	if features == nil {
		features = make([]feature.Feature, 0)
	}
	apiJSON(w, features, http.StatusOK)
}

// apiAssignFeatures attaches features by name. Already-assigned names are ignored.
func (s *Server) apiAssignFeatures(w http.ResponseWriter, r *http.Request, propertyID string) {
	var req struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Names) == 0 {
		apiError(w, "names is required", http.StatusBadRequest)
		return
	}
	for _, name := range req.Names {
		if _, err := feature.Normalize(name); err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	seller := sellerID(r)
	if _, err := s.properties.Owned(propertyID, seller); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}

	features, err := s.features.Assign(propertyID, req.Names...)
	if err != nil {
		apiServiceError(w, r, "assigning features", err)
		return
	}

	s.resync(r.Context(), propertyID)
	s.invalidate(r.Context(), seller)
	apiJSON(w, features, http.StatusOK)
}

func (s *Server) apiUnassignFeature(w http.ResponseWriter, r *http.Request, propertyID, rawID string) {
	featureID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		apiError(w, "invalid feature ID", http.StatusBadRequest)
		return
	}

	seller := sellerID(r)
	if _, err := s.properties.Owned(propertyID, seller); err != nil {
		apiServiceError(w, r, "loading property", err)
		return
	}

	if err := s.features.Unassign(propertyID, featureID); err != nil {
		apiError(w, err.Error(), http.StatusNotFound)
		return
	}

	s.resync(r.Context(), propertyID)
	s.invalidate(r.Context(), seller)
	apiJSON(w, map[string]interface{}{"id": featureID, "removed": true}, http.StatusOK)
}

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/estate-listings/internal/cache"
	"github.com/evcraddock/estate-listings/internal/property"
	"github.com/evcraddock/estate-listings/internal/search"
)

const maxSearchLimit = 100

func dashboardKey(sellerID string) string {
	return "dashboard:" + sellerID
}

// apiSearch runs a keyword search, or a similarity search with mode=similar.
// Results are cached per distinct query.
func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		apiError(w, "q is required", http.StatusBadRequest)
		return
	}

	limit := search.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSearchLimit {
			apiError(w, "limit must be 1-100", http.StatusBadRequest)
			return
		}
		limit = n
	}
	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != "similar" && mode != "keyword" {
		apiError(w, "mode must be keyword or similar", http.StatusBadRequest)
		return
	}

	key := cache.QueryKey("search", map[string]string{
		"q":     strings.ToLower(q),
		"limit": strconv.Itoa(limit),
		"mode":  mode,
	})

	var docs []search.Document
	if found, err := s.cache.Get(r.Context(), key, &docs); err != nil {
		slog.WarnContext(r.Context(), "reading search cache", "error", err)
	} else if found {
		w.Header().Set("X-Cache", "hit")
		apiJSON(w, docs, http.StatusOK)
		return
	}

	var err error
	if mode == "similar" {
		docs, err = s.indexer.Similar(r.Context(), q, limit)
	} else {
		docs, err = s.indexer.Store().Search(r.Context(), q, limit)
	}
	if errors.Is(err, search.ErrVectorsUnavailable) {
		apiError(w, err.Error(), http.StatusNotImplemented)
		return
	}
	if err != nil {
		apiServiceError(w, r, "searching", err)
		return
	}

	if err := s.cache.Set(r.Context(), key, docs); err != nil {
		slog.WarnContext(r.Context(), "writing search cache", "error", err)
	}
	w.Header().Set("X-Cache", "miss")
	apiJSON(w, docs, http.StatusOK)
}

// apiGetDocument returns the denormalized document built from the current rows.
func (s *Server) apiGetDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.indexer.Document(r.Context(), id)
	if err != nil {
		apiServiceError(w, r, "building document", err)
		return
	}
	apiJSON(w, doc, http.StatusOK)
}

// apiDashboard returns the calling seller's listing statistics.
func (s *Server) apiDashboard(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	key := dashboardKey(seller)

	var dash property.Dashboard
	if found, err := s.cache.Get(r.Context(), key, &dash); err != nil {
		slog.WarnContext(r.Context(), "reading dashboard cache", "error", err)
	} else if found {
		w.Header().Set("X-Cache", "hit")
		apiJSON(w, dash, http.StatusOK)
		return
	}

	d, err := s.properties.Repository().Dashboard(seller)
	if err != nil {
		apiServiceError(w, r, "building dashboard", err)
		return
	}

	if err := s.cache.Set(r.Context(), key, d); err != nil {
		slog.WarnContext(r.Context(), "writing dashboard cache", "error", err)
	}
	w.Header().Set("X-Cache", "miss")
	apiJSON(w, d, http.StatusOK)
}

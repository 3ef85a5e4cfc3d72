package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/estate-listings/internal/auth"
)

type apiKeyResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	SellerID   string  `json:"seller_id"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

type apiKeyCreateResponse struct {
	Key            string         `json:"key"` // raw key, shown once
	APIKeyResponse apiKeyResponse `json:"api_key"`
}

func toAPIKeyResponse(k auth.APIKey) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		SellerID:  k.SellerID,
		KeyPrefix: k.KeyPrefix,
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339),
	}
	if k.LastUsedAt != nil {
		s := k.LastUsedAt.UTC().Format(time.RFC3339)
		resp.LastUsedAt = &s
	}
	return resp
}

// handleAPIKeys routes /api/keys and /api/keys/{id}. Every route acts on
// the calling seller's own keys.
func (s *Server) handleAPIKeys(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		s.apiListKeys(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		s.apiCreateKey(w, r)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.apiDeleteKey(w, r, parts[0])
	case len(parts) <= 1:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

// apiCreateKey issues another key for the calling seller.
func (s *Server) apiCreateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = "API Key"
	}

	rawKey, key, err := s.apiKeys.Create(name, sellerID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "creating api key", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	apiJSON(w, apiKeyCreateResponse{Key: rawKey, APIKeyResponse: toAPIKeyResponse(*key)}, http.StatusCreated)
}

// apiListKeys returns the calling seller's keys (without raw keys).
func (s *Server) apiListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.apiKeys.List(sellerID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "listing api keys", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]apiKeyResponse, len(keys))
	for i, k := range keys {
		resp[i] = toAPIKeyResponse(k)
	}
	apiJSON(w, resp, http.StatusOK)
}

// apiDeleteKey revokes one of the calling seller's keys.
func (s *Server) apiDeleteKey(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		apiError(w, "invalid key ID", http.StatusBadRequest)
		return
	}

	if err := s.apiKeys.Delete(r.Context(), id, sellerID(r)); err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			apiError(w, "key not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "deleting api key", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

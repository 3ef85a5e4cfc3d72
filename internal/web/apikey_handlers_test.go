package web

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestAPIKeysLifecycle(t *testing.T) {
	srv, d, token := testAPIServerWithDB(t, Options{})
	createKey(t, d, "seller-2")

	w := apiRequest(t, srv, "POST", "/api/keys", token, map[string]string{"name": "Laptop"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body.String())
	}
	var created apiKeyCreateResponse
	decode(t, w, &created)
	if created.Key == "" {
		t.Error("expected raw key in response")
	}
	if created.APIKeyResponse.Name != "Laptop" || created.APIKeyResponse.SellerID != testSeller {
		t.Errorf("created = %+v", created.APIKeyResponse)
	}

	// The new key works on its own.
	if w := apiRequest(t, srv, "GET", "/api/dashboard", created.Key, nil); w.Code != http.StatusOK {
		t.Errorf("new key: status = %d", w.Code)
	}

	lw := apiRequest(t, srv, "GET", "/api/keys", token, nil)
	var keys []apiKeyResponse
	decode(t, lw, &keys)
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2 (other sellers' keys hidden)", len(keys))
	}

	dw := apiRequest(t, srv, "DELETE", fmt.Sprintf("/api/keys/%d", created.APIKeyResponse.ID), token, nil)
	if dw.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", dw.Code)
	}
	if w := apiRequest(t, srv, "GET", "/api/dashboard", created.Key, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked key: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAPIDeleteOtherSellersKey(t *testing.T) {
	srv, d, token := testAPIServerWithDB(t, Options{})
	createKey(t, d, "seller-2")

	// seller-2's key has id 2: the fixture key is created first.
	w := apiRequest(t, srv, "DELETE", "/api/keys/2", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := apiRequest(t, srv, "DELETE", "/api/keys/abc", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

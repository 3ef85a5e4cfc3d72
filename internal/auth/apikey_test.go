package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/estate-listings/internal/db"
)

func TestAPIKeyCreateAndValidate(t *testing.T) {
	store := testAPIKeyStore(t, nil)

	rawKey, key, err := store.Create("Test Key", "seller-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rawKey == "" {
		t.Fatal("expected non-empty raw key")
	}
	if key.Name != "Test Key" {
		t.Errorf("name = %q, want %q", key.Name, "Test Key")
	}
	if key.SellerID != "seller-1" {
		t.Errorf("seller = %q, want seller-1", key.SellerID)
	}

	sellerID, valid, err := store.Validate(context.Background(), rawKey)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !valid || sellerID != "seller-1" {
		t.Errorf("validate = %q,%v, want seller-1,true", sellerID, valid)
	}
}

func TestAPIKeyCreateRequiresSeller(t *testing.T) {
	store := testAPIKeyStore(t, nil)

	if _, _, err := store.Create("No Seller", " "); err == nil {
		t.Fatal("expected error for empty seller id")
	}
}

func TestAPIKeyValidateInvalid(t *testing.T) {
	store := testAPIKeyStore(t, nil)

	for _, raw := range []string{"lst_boguskey12345678", "hf_foreign", ""} {
		_, valid, err := store.Validate(context.Background(), raw)
		if err != nil {
			t.Fatalf("validate %q: %v", raw, err)
		}
		if valid {
			t.Errorf("expected %q to be invalid", raw)
		}
	}
}

func TestAPIKeyList(t *testing.T) {
	store := testAPIKeyStore(t, nil)

	for _, tc := range []struct{ name, seller string }{
		{"Key 1", "seller-1"}, {"Key 2", "seller-1"}, {"Key 3", "seller-2"},
	} {
		if _, _, err := store.Create(tc.name, tc.seller); err != nil {
			t.Fatalf("create %s: %v", tc.name, err)
		}
	}

	tests := []struct {
		seller string
		want   int
	}{
		{"seller-1", 2},
		{"seller-2", 1},
		{"nobody", 0},
		{"", 3},
	}
	for _, tt := range tests {
		keys, err := store.List(tt.seller)
		if err != nil {
			t.Fatalf("list %q: %v", tt.seller, err)
		}
		if len(keys) != tt.want {
			t.Errorf("list %q: got %d keys, want %d", tt.seller, len(keys), tt.want)
		}
	}
}

func TestAPIKeyDelete(t *testing.T) {
	ctx := context.Background()
	store := testAPIKeyStore(t, nil)

	rawKey, key, err := store.Create("To Delete", "seller-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Delete(ctx, key.ID, "seller-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, valid, err := store.Validate(ctx, rawKey)
	if err != nil {
		t.Fatalf("validate after delete: %v", err)
	}
	if valid {
		t.Error("expected invalid after delete")
	}

	if err := store.Delete(ctx, key.ID, ""); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("second delete: err = %v, want ErrKeyNotFound", err)
	}
}

func TestAPIKeyDeleteWrongOwner(t *testing.T) {
	ctx := context.Background()
	store := testAPIKeyStore(t, nil)

	_, key, err := store.Create("Owned Key", "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Delete(ctx, key.ID, "bob"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("delete by other seller: err = %v, want ErrKeyNotFound", err)
	}
	if err := store.Delete(ctx, key.ID, "alice"); err != nil {
		t.Fatalf("delete own key: %v", err)
	}
}

func TestAPIKeyUpdatesLastUsed(t *testing.T) {
	store := testAPIKeyStore(t, nil)

	rawKey, _, err := store.Create("Usage Key", "seller-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	keys, err := store.List("seller-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if keys[0].LastUsedAt != nil {
		t.Error("expected nil last_used_at before first use")
	}

	if _, _, err := store.Validate(context.Background(), rawKey); err != nil {
		t.Fatalf("validate: %v", err)
	}

	keys, err = store.List("seller-1")
	if err != nil {
		t.Fatalf("list after use: %v", err)
	}
	if keys[0].LastUsedAt == nil {
		t.Error("expected non-nil last_used_at after use")
	}
}

func TestAPIKeyPrefix(t *testing.T) {
	store := testAPIKeyStore(t, nil)

	rawKey, key, err := store.Create("Prefix Key", "seller-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(rawKey, KeyPrefix) {
		t.Errorf("raw key should start with %s, got %q", KeyPrefix, rawKey[:4])
	}
	if key.KeyPrefix != rawKey[:8] {
		t.Errorf("prefix = %q, want %q", key.KeyPrefix, rawKey[:8])
	}
}

type memoryCache struct {
	data map[string]cachedSession
	gets int
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.gets++
	s, ok := m.data[key]
	if ok {
		*(dest.(*cachedSession)) = s
	}
	return ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}) error {
	m.data[key] = value.(cachedSession)
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestAPIKeyValidateUsesCache(t *testing.T) {
	ctx := context.Background()
	cache := &memoryCache{data: map[string]cachedSession{}}
	store := testAPIKeyStore(t, cache)

	rawKey, key, err := store.Create("Cached", "seller-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := store.Validate(ctx, rawKey); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(cache.data) != 1 {
		t.Fatalf("cache entries = %d, want 1", len(cache.data))
	}

	// Remove the row behind the cache's back: a cached session still validates.
	if _, err := store.db.Exec("DELETE FROM api_keys WHERE id = ?", key.ID); err != nil {
		t.Fatalf("delete row: %v", err)
	}
	sellerID, valid, err := store.Validate(ctx, rawKey)
	if err != nil || !valid || sellerID != "seller-1" {
		t.Errorf("cached validate = %q,%v,%v", sellerID, valid, err)
	}
}

func TestAPIKeyDeleteEvictsCache(t *testing.T) {
	ctx := context.Background()
	cache := &memoryCache{data: map[string]cachedSession{}}
	store := testAPIKeyStore(t, cache)

	rawKey, key, err := store.Create("Cached", "seller-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := store.Validate(ctx, rawKey); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := store.Delete(ctx, key.ID, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(cache.data) != 0 {
		t.Error("expected cached session to be evicted")
	}

	_, valid, err := store.Validate(ctx, rawKey)
	if err != nil {
		t.Fatalf("validate after delete: %v", err)
	}
	if valid {
		t.Error("expected invalid after delete")
	}
}

func testAPIKeyStore(t *testing.T, cache SessionCache) *APIKeyStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewAPIKeyStore(d, cache)
}

// Package auth issues seller API keys and authenticates API requests with them.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const apiKeyBytes = 32 // 256-bit keys

// KeyPrefix starts every raw key so they are easy to spot in config files.
const KeyPrefix = "lst_"

// ErrKeyNotFound is returned when deleting a key that does not exist.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	SellerID   string     `json:"seller_id"`
	KeyPrefix  string     `json:"key_prefix"` // first 8 chars for identification
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// SessionCache remembers validated keys so repeated requests skip the database.
type SessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// APIKeyStore manages API keys in SQLite.
type APIKeyStore struct {
	db    *sql.DB
	cache SessionCache
}

// NewAPIKeyStore creates an API key store. cache may be nil.
func NewAPIKeyStore(db *sql.DB, cache SessionCache) *APIKeyStore {
	return &APIKeyStore{db: db, cache: cache}
}

// Create generates a new API key for sellerID.
// Returns the raw key (shown once to user) and the stored record.
func (s *APIKeyStore) Create(name, sellerID string) (string, *APIKey, error) {
	if strings.TrimSpace(sellerID) == "" {
		return "", nil, fmt.Errorf("seller id is required")
	}

	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}

	prefix := raw[:8]
	hash := hashAPIKey(raw)

	result, err := s.db.Exec(
		"INSERT INTO api_keys (name, key_prefix, key_hash, seller_id) VALUES (?, ?, ?, ?)",
		name, prefix, hash, sellerID,
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	key := &APIKey{
		ID:        id,
		Name:      name,
		SellerID:  sellerID,
		KeyPrefix: prefix,
		CreatedAt: time.Now(),
	}

	return raw, key, nil
}

// List returns the keys of sellerID, or every key when sellerID is empty.
func (s *APIKeyStore) List(sellerID string) (keys []APIKey, err error) {
	query := "SELECT id, name, seller_id, key_prefix, created_at, last_used_at FROM api_keys"
	var args []interface{}
	if sellerID != "" {
		query += " WHERE seller_id = ?"
		args = append(args, sellerID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.SellerID, &k.KeyPrefix, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Delete removes an API key by ID and forgets any cached validation of it.
// A non-empty sellerID restricts deletion to that seller's keys.
func (s *APIKeyStore) Delete(ctx context.Context, id int64, sellerID string) error {
	var hash, owner string
	err := s.db.QueryRow("SELECT key_hash, seller_id FROM api_keys WHERE id = ?", id).Scan(&hash, &owner)
	if err == sql.ErrNoRows || (err == nil && sellerID != "" && owner != sellerID) {
		return fmt.Errorf("key %d: %w", id, ErrKeyNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up key: %w", err)
	}

	if _, err := s.db.Exec("DELETE FROM api_keys WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, sessionKey(hash)); err != nil {
			slog.WarnContext(ctx, "evicting cached api key", "key_id", id, "error", err)
		}
	}
	return nil
}

type cachedSession struct {
	SellerID string `json:"seller_id"`
}

// Validate checks a raw API key against stored hashes.
// Returns the owning seller and true if valid, and updates last_used_at.
func (s *APIKeyStore) Validate(ctx context.Context, rawKey string) (string, bool, error) {
	if !strings.HasPrefix(rawKey, KeyPrefix) {
		return "", false, nil
	}
	hash := hashAPIKey(rawKey)

	if s.cache != nil {
		var sess cachedSession
		found, err := s.cache.Get(ctx, sessionKey(hash), &sess)
		if err != nil {
			slog.WarnContext(ctx, "reading cached api key", "error", err)
		}
		if found && sess.SellerID != "" {
			return sess.SellerID, true, nil
		}
	}

	var sellerID string
	err := s.db.QueryRow(
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ? RETURNING seller_id",
		time.Now(), hash,
	).Scan(&sellerID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("validating key: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sessionKey(hash), cachedSession{SellerID: sellerID}); err != nil {
			slog.WarnContext(ctx, "caching api key", "error", err)
		}
	}
	return sellerID, true, nil
}

func sessionKey(hash string) string {
	return "session:" + hash
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return KeyPrefix + hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

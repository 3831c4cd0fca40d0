package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/jsonrpc11/pkg/db"
)

const pgLogPrefix = "cache:postgres"

// cacheRepository is the subset of db.Repository used by PGStore.
type cacheRepository interface {
	GetCacheEntry(ctx context.Context, keyDigest string) (*db.CacheEntry, error)
	PutCacheEntry(ctx context.Context, params db.PutCacheEntryParams) error
	DeleteCacheEntry(ctx context.Context, keyDigest string) error
}

// PGStore is a Store backed by the jsonrpc_cache table. Rows are keyed by
// digest; the full key is kept alongside to reject digest collisions.
type PGStore struct {
	repo cacheRepository
	now  func() time.Time
}

// NewPGStore returns a PGStore over repo.
func NewPGStore(repo *db.Repository) *PGStore {
	return &PGStore{repo: repo, now: time.Now}
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, key string) ([]byte, error) {
	digest := Digest(key)
	e, err := s.repo.GetCacheEntry(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("%s - get: %w", pgLogPrefix, err)
	}
	if e == nil || e.CacheKey != key {
		return nil, ErrMiss
	}
	if e.Expired(s.now()) {
		if err := s.repo.DeleteCacheEntry(ctx, digest); err != nil {
			slog.Debug(fmt.Sprintf("%s - failed to delete expired entry: %v", pgLogPrefix, err))
		}
		return nil, ErrMiss
	}
	return e.Value, nil
}

// Set implements Store.
func (s *PGStore) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	params := db.PutCacheEntryParams{
		KeyDigest: Digest(key),
		CacheKey:  key,
		Value:     value,
	}
	if expiry > 0 {
		params.ExpiresAt = s.now().Add(expiry)
	}
	if err := s.repo.PutCacheEntry(ctx, params); err != nil {
		return fmt.Errorf("%s - set: %w", pgLogPrefix, err)
	}
	return nil
}

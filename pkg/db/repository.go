package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for the result cache.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCacheEntry finds a cache entry by key digest. It returns nil, nil when no row exists.
func (r *Repository) GetCacheEntry(ctx context.Context, keyDigest string) (*CacheEntry, error) {
	slog.Debug(fmt.Sprintf("%s - GetCacheEntry digest=%s", repoLogPrefix, keyDigest))

	var e CacheEntry
	err := r.pool.QueryRow(ctx,
		`SELECT key_digest, cache_key, value, expires_at, created, modified
		 FROM jsonrpc_cache
		 WHERE key_digest = $1
		 LIMIT 1`, keyDigest,
	).Scan(&e.KeyDigest, &e.CacheKey, &e.Value, &e.ExpiresAt, &e.Created, &e.Modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - GetCacheEntry failed: %w", repoLogPrefix, err)
	}
	return &e, nil
}

// PutCacheEntry creates or replaces a cache entry.
func (r *Repository) PutCacheEntry(ctx context.Context, params PutCacheEntryParams) error {
	slog.Debug(fmt.Sprintf("%s - PutCacheEntry digest=%s", repoLogPrefix, params.KeyDigest))

	var expiresAt *time.Time
	if !params.ExpiresAt.IsZero() {
		t := params.ExpiresAt.UTC()
		expiresAt = &t
	}
	now := time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO jsonrpc_cache (key_digest, cache_key, value, expires_at, created, modified)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (key_digest) DO UPDATE SET
		   cache_key = EXCLUDED.cache_key,
		   value = EXCLUDED.value,
		   expires_at = EXCLUDED.expires_at,
		   modified = EXCLUDED.modified`,
		params.KeyDigest, params.CacheKey, params.Value, expiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("%s - PutCacheEntry failed: %w", repoLogPrefix, err)
	}
	return nil
}

// DeleteCacheEntry removes a cache entry. Deleting a missing entry is not an error.
func (r *Repository) DeleteCacheEntry(ctx context.Context, keyDigest string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM jsonrpc_cache WHERE key_digest = $1`, keyDigest); err != nil {
		return fmt.Errorf("%s - DeleteCacheEntry failed: %w", repoLogPrefix, err)
	}
	return nil
}

// PurgeExpired deletes every entry whose expiry is at or before now and returns the number removed.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM jsonrpc_cache WHERE expires_at IS NOT NULL AND expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s - PurgeExpired failed: %w", repoLogPrefix, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info(fmt.Sprintf("%s - Purged %d expired cache entries", repoLogPrefix, n))
	}
	return tag.RowsAffected(), nil
}

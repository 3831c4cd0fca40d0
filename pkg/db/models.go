package db

import "time"

// CacheEntry represents a row in the jsonrpc_cache table.
type CacheEntry struct {
	KeyDigest string     `json:"key_digest"`
	CacheKey  string     `json:"cache_key"`
	Value     []byte     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Created   time.Time  `json:"created"`
	Modified  time.Time  `json:"modified"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// PutCacheEntryParams holds parameters for PutCacheEntry.
type PutCacheEntryParams struct {
	KeyDigest string
	CacheKey  string
	Value     []byte
	// Zero means the entry never expires.
	ExpiresAt time.Time
}

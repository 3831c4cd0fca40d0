package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultMemorySize is the entry limit of a MemoryStore created with size 0.
const DefaultMemorySize = 1024

// MemoryStore is an in-process LRU Store.
type MemoryStore struct {
	entries *lru.Cache
	now     func() time.Time
}

// NewMemoryStore returns a MemoryStore holding at most size entries.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("cache:memory - failed to create LRU: %w", err)
	}
	return &MemoryStore{entries: entries, now: time.Now}, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	e := v.(entry)
	if e.expired(s.now()) {
		s.entries.Remove(key)
		return nil, ErrMiss
	}
	data := make([]byte, len(e.Data))
	copy(data, e.Data)
	return data, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)
	s.entries.Add(key, newEntry(key, data, expiry, s.now()))
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

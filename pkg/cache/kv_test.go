package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morezero/jsonrpc11/internal/natstest"
)

const kvTestPrefix = "cache:kv_test"

func TestKVStore_GetSet(t *testing.T) {
	nc := natstest.Start(t)
	ctx := context.Background()

	s, err := NewKVStore(nc, "")
	if err != nil {
		t.Fatalf("%s - NewKVStore: %v", kvTestPrefix, err)
	}
	key := `urn:math:add:[1,"a b/c"]`

	if _, err := s.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("%s - Get on empty bucket = %v, want ErrMiss", kvTestPrefix, err)
	}
	if err := s.Set(ctx, key, []byte("[1]"), 0); err != nil {
		t.Fatalf("%s - Set: %v", kvTestPrefix, err)
	}
	got, err := s.Get(ctx, key)
	if err != nil || string(got) != "[1]" {
		t.Errorf("%s - Get = %q, %v; want [1]", kvTestPrefix, got, err)
	}

	// A second store on the same bucket sees the entry.
	other, err := NewKVStore(nc, "")
	if err != nil {
		t.Fatalf("%s - second NewKVStore: %v", kvTestPrefix, err)
	}
	if got, err := other.Get(ctx, key); err != nil || string(got) != "[1]" {
		t.Errorf("%s - shared bucket Get = %q, %v", kvTestPrefix, got, err)
	}
}

func TestKVStore_Expiry(t *testing.T) {
	nc := natstest.Start(t)
	ctx := context.Background()

	s, err := NewKVStore(nc, "expiry_test")
	if err != nil {
		t.Fatalf("%s - NewKVStore: %v", kvTestPrefix, err)
	}
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	if err := s.Set(ctx, "k", []byte("1"), time.Second); err != nil {
		t.Fatalf("%s - Set: %v", kvTestPrefix, err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("%s - Get before expiry: %v", kvTestPrefix, err)
	}
	now = now.Add(time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("%s - Get after expiry = %v, want ErrMiss", kvTestPrefix, err)
	}
}

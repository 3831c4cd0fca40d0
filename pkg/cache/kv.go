package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/jsonrpc11/pkg/commsutil"
)

const kvLogPrefix = "cache:kv"

// KVStore is a Store backed by a JetStream key/value bucket, shared by every
// client connected to the same COMMS cluster. Keys are stored as digests.
type KVStore struct {
	kv  comms.KeyValue
	now func() time.Time
}

// NewKVStore binds to bucket, creating it when it does not exist.
func NewKVStore(nc *comms.Conn, bucket string) (*KVStore, error) {
	if bucket == "" {
		bucket = commsutil.DefaultCacheBucket
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("%s - JetStream unavailable: %w", kvLogPrefix, err)
	}
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, comms.ErrBucketNotFound) {
		slog.Info(fmt.Sprintf("%s - creating bucket %s", kvLogPrefix, bucket))
		kv, err = js.CreateKeyValue(&comms.KeyValueConfig{
			Bucket:      bucket,
			Description: "JSON-RPC call results",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to bind bucket %s: %w", kvLogPrefix, bucket, err)
	}
	return &KVStore{kv: kv, now: time.Now}, nil
}

// Get implements Store.
func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	digest := Digest(key)
	kve, err := s.kv.Get(digest)
	if errors.Is(err, comms.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%s - get: %w", kvLogPrefix, err)
	}
	e, err := decodeEntry(kve.Value())
	if err != nil {
		return nil, fmt.Errorf("%s - undecodable entry: %w", kvLogPrefix, err)
	}
	if e.Key != key {
		return nil, ErrMiss
	}
	if e.expired(s.now()) {
		if err := s.kv.Delete(digest); err != nil {
			slog.Debug(fmt.Sprintf("%s - failed to delete expired entry: %v", kvLogPrefix, err))
		}
		return nil, ErrMiss
	}
	return e.Data, nil
}

// Set implements Store.
func (s *KVStore) Set(_ context.Context, key string, value []byte, expiry time.Duration) error {
	data, err := encodeEntry(newEntry(key, value, expiry, s.now()))
	if err != nil {
		return fmt.Errorf("%s - encode: %w", kvLogPrefix, err)
	}
	if _, err := s.kv.Put(Digest(key), data); err != nil {
		return fmt.Errorf("%s - put: %w", kvLogPrefix, err)
	}
	return nil
}

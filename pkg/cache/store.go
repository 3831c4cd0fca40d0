// Package cache decorates a client so results of idempotent procedures are
// served from a shared store. Stores hold raw JSON result bytes.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// ErrMiss is returned by Store.Get when no live entry exists.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-valued cache. An expiry of zero means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiry time.Duration) error
}

// Key is the cache key of a call: service id, procedure name and the JSON
// text of the arguments. Map keys are sorted by the JSON encoder so equal
// arguments produce equal keys.
func Key(serviceID, name string, args []any) (string, error) {
	if args == nil {
		args = []any{}
	}
	repr, err := jsonrpc.Marshal(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s", serviceID, name, repr), nil
}

// Digest is the fixed-length hex form of a key, for stores with key length
// or alphabet limits.
func Digest(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// entry frames a value with its expiry for stores without native TTLs.
type entry struct {
	Key       string `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint"`
	ExpiresAt int64  `cbor:"3,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
}

func newEntry(key string, data []byte, expiry time.Duration, now time.Time) entry {
	e := entry{Key: key, Data: data}
	if expiry > 0 {
		e.ExpiresAt = now.Add(expiry).UnixNano()
	}
	return e
}

func (e entry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixNano() >= e.ExpiresAt
}

func encodeEntry(e entry) ([]byte, error) {
	return encMode.Marshal(e)
}

func decodeEntry(data []byte) (entry, error) {
	var e entry
	err := cbor.Unmarshal(data, &e)
	return e, err
}

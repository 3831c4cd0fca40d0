package cache

import (
	"strings"
	"testing"
	"time"
)

const storeTestPrefix = "cache:store_test"

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"nil args", nil, "urn:math:add:[]"},
		{"positional", []any{1, "two"}, `urn:math:add:[1,"two"]`},
		{"named sorted", []any{map[string]any{"y": 2, "x": 1}}, `urn:math:add:[{"x":1,"y":2}]`},
		{"html not escaped", []any{"<a&b>"}, `urn:math:add:["<a&b>"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Key("urn:math", "add", tt.args)
			if err != nil {
				t.Fatalf("%s - Key: %v", storeTestPrefix, err)
			}
			if got != tt.want {
				t.Errorf("%s - Key = %q, want %q", storeTestPrefix, got, tt.want)
			}
		})
	}
}

func TestKey_Unencodable(t *testing.T) {
	if _, err := Key("urn:math", "add", []any{make(chan int)}); err == nil {
		t.Errorf("%s - expected error for unencodable argument", storeTestPrefix)
	}
}

func TestDigest(t *testing.T) {
	a := Digest("urn:math:add:[1,2]")
	b := Digest("urn:math:add:[2,1]")
	if len(a) != 64 || strings.Trim(a, "0123456789abcdef") != "" {
		t.Errorf("%s - Digest = %q, want 64 lowercase hex chars", storeTestPrefix, a)
	}
	if a == b {
		t.Errorf("%s - distinct keys share a digest", storeTestPrefix)
	}
	if a != Digest("urn:math:add:[1,2]") {
		t.Errorf("%s - Digest is not stable", storeTestPrefix)
	}
}

func TestEntry_EncodeDecode(t *testing.T) {
	now := time.Unix(1700000000, 0)
	e := newEntry("k", []byte(`{"a":1}`), time.Minute, now)

	data, err := encodeEntry(e)
	if err != nil {
		t.Fatalf("%s - encodeEntry: %v", storeTestPrefix, err)
	}
	got, err := decodeEntry(data)
	if err != nil {
		t.Fatalf("%s - decodeEntry: %v", storeTestPrefix, err)
	}
	if got.Key != "k" || string(got.Data) != `{"a":1}` || got.ExpiresAt != now.Add(time.Minute).UnixNano() {
		t.Errorf("%s - decoded entry %+v", storeTestPrefix, got)
	}
	if got.expired(now) {
		t.Errorf("%s - entry expired before its expiry", storeTestPrefix)
	}
	if !got.expired(now.Add(time.Minute)) {
		t.Errorf("%s - entry not expired at its expiry", storeTestPrefix)
	}
}

func TestEntry_NoExpiry(t *testing.T) {
	e := newEntry("k", nil, 0, time.Now())
	if e.ExpiresAt != 0 || e.expired(time.Now().Add(100*365*24*time.Hour)) {
		t.Errorf("%s - zero expiry must never expire: %+v", storeTestPrefix, e)
	}
}

func TestDecodeEntry_Junk(t *testing.T) {
	if _, err := decodeEntry([]byte{0xff, 0x00}); err == nil {
		t.Errorf("%s - expected error for junk bytes", storeTestPrefix)
	}
}

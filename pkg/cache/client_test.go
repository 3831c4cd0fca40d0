package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/morezero/jsonrpc11/pkg/client"
	"github.com/morezero/jsonrpc11/pkg/dispatcher"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/metrics"
	"github.com/morezero/jsonrpc11/pkg/registry"
)

const clientTestPrefix = "cache:client_test"

// fakeStub answers every call with the next counter value and records names.
type fakeStub struct {
	mu           sync.Mutex
	sd           *jsonrpc.ServiceDescription
	negotiateErr error
	callErr      error
	calls        []string
}

func newFakeStub() *fakeStub {
	return &fakeStub{sd: &jsonrpc.ServiceDescription{
		SDVersion: jsonrpc.SDVersion,
		Name:      "Math",
		ID:        "urn:math",
		Procs: []jsonrpc.ProcedureDescription{
			{Name: "add", Idempotent: true},
			{Name: "sub"},
		},
	}}
}

func (f *fakeStub) CallRaw(_ context.Context, name string, _ ...any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.callErr != nil {
		return nil, f.callErr
	}
	return json.RawMessage(`"` + name + `#` + string(rune('0'+len(f.calls))) + `"`), nil
}

func (f *fakeStub) Negotiate(context.Context) (*jsonrpc.ServiceDescription, error) {
	if f.negotiateErr != nil {
		return nil, f.negotiateErr
	}
	return f.sd, nil
}

func (f *fakeStub) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}

func newCachingClient(t *testing.T, stub Stub, store Store, m *metrics.Collector) *Client {
	t.Helper()
	if store == nil {
		s, err := NewMemoryStore(0)
		if err != nil {
			t.Fatalf("%s - NewMemoryStore: %v", clientTestPrefix, err)
		}
		store = s
	}
	c, err := NewClient(NewClientParams{Stub: stub, Store: store, Metrics: m})
	if err != nil {
		t.Fatalf("%s - NewClient: %v", clientTestPrefix, err)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	store, _ := NewMemoryStore(1)
	tests := []struct {
		name   string
		params NewClientParams
	}{
		{"no stub", NewClientParams{Store: store}},
		{"no store", NewClientParams{Stub: newFakeStub()}},
		{"negative expiry", NewClientParams{Stub: newFakeStub(), Store: store, Expiry: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.params)
			if !errors.Is(err, &jsonrpc.Fault{Kind: jsonrpc.ConfigurationError}) {
				t.Errorf("%s - NewClient error = %v, want ConfigurationError", clientTestPrefix, err)
			}
		})
	}
}

func TestClient_IdempotentCallIsCached(t *testing.T) {
	stub := newFakeStub()
	m := metrics.NewCollector()
	c := newCachingClient(t, stub, nil, m)
	ctx := context.Background()

	first, err := c.Call(ctx, "add", 1, 2)
	if err != nil {
		t.Fatalf("%s - first add: %v", clientTestPrefix, err)
	}
	second, err := c.Call(ctx, "add", 1, 2)
	if err != nil {
		t.Fatalf("%s - second add: %v", clientTestPrefix, err)
	}
	if first != "add#1" || second != "add#1" {
		t.Errorf("%s - results %v, %v; want add#1 twice", clientTestPrefix, first, second)
	}
	if _, err := c.Call(ctx, "add", 2, 1); err != nil {
		t.Fatalf("%s - add with other args: %v", clientTestPrefix, err)
	}
	if got := stub.recorded(); len(got) != 2 {
		t.Errorf("%s - stub calls = %v, want 2 (one per distinct argument list)", clientTestPrefix, got)
	}

	want := `
# HELP jsonrpc_cache_lookups_total The number of cache lookups made by the caching client.
# TYPE jsonrpc_cache_lookups_total counter
jsonrpc_cache_lookups_total{outcome="hit"} 1
jsonrpc_cache_lookups_total{outcome="miss"} 2
`
	if err := testutil.CollectAndCompare(m, strings.NewReader(want), "jsonrpc_cache_lookups_total"); err != nil {
		t.Errorf("%s - metrics: %v", clientTestPrefix, err)
	}
}

func TestClient_CachedResultSurvivesCallerChanges(t *testing.T) {
	c := newCachingClient(t, newFakeStub(), nil, nil)
	ctx := context.Background()

	if _, err := c.CallRaw(ctx, "add", 1); err != nil {
		t.Fatalf("%s - first add: %v", clientTestPrefix, err)
	}
	hit, err := c.CallRaw(ctx, "add", 1)
	if err != nil {
		t.Fatalf("%s - cached add: %v", clientTestPrefix, err)
	}
	hit[1] = 'X'

	got, err := c.Call(ctx, "add", 1)
	if err != nil || got != "add#1" {
		t.Errorf("%s - add after changing a cached result = %#v, %v; want add#1", clientTestPrefix, got, err)
	}
}

func TestClient_Bypass(t *testing.T) {
	tests := []struct {
		name string
		proc string
	}{
		{"non-idempotent", "sub"},
		{"unknown procedure", "mul"},
		{"describe", jsonrpc.DescribeMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newFakeStub()
			m := metrics.NewCollector()
			c := newCachingClient(t, stub, nil, m)
			ctx := context.Background()

			a, _ := c.Call(ctx, tt.proc, 1)
			b, _ := c.Call(ctx, tt.proc, 1)
			if a == b {
				t.Errorf("%s - %s served from cache: %v", clientTestPrefix, tt.proc, a)
			}
			if n := testutil.CollectAndCount(m, "jsonrpc_cache_lookups_total"); n != 0 {
				t.Errorf("%s - %s consulted the cache (%d series)", clientTestPrefix, tt.proc, n)
			}
		})
	}
}

func TestClient_FailuresAreNotCached(t *testing.T) {
	stub := newFakeStub()
	stub.callErr = jsonrpc.NewFault(jsonrpc.ServiceError, "JSON-RPC error: Disaster!")
	c := newCachingClient(t, stub, nil, nil)
	ctx := context.Background()

	if _, err := c.Call(ctx, "add", 1); err == nil {
		t.Fatalf("%s - expected fault", clientTestPrefix)
	}
	stub.callErr = nil
	got, err := c.Call(ctx, "add", 1)
	if err != nil || got != "add#2" {
		t.Errorf("%s - after failure = %v, %v; want fresh call add#2", clientTestPrefix, got, err)
	}
}

func TestClient_NegotiateFailurePropagates(t *testing.T) {
	stub := newFakeStub()
	down := jsonrpc.NewFault(jsonrpc.ServiceDown, "Connection refused")
	stub.negotiateErr = down
	c := newCachingClient(t, stub, nil, nil)

	_, err := c.Call(context.Background(), "add", 1)
	if !errors.Is(err, down) {
		t.Errorf("%s - error = %v, want %v", clientTestPrefix, err, down)
	}
	if len(stub.recorded()) != 0 {
		t.Errorf("%s - stub called despite failed negotiation", clientTestPrefix)
	}
}

func TestClient_StoreFailureDelegates(t *testing.T) {
	stub := newFakeStub()
	c := newCachingClient(t, stub, failingStore{}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Call(ctx, "add", 1); err != nil {
			t.Fatalf("%s - call %d: %v", clientTestPrefix, i, err)
		}
	}
	if got := stub.recorded(); len(got) != 2 {
		t.Errorf("%s - stub calls = %v, want 2", clientTestPrefix, got)
	}
}

func TestClient_Then(t *testing.T) {
	c := newCachingClient(t, newFakeStub(), nil, nil)
	got := c.Then(context.Background(), "add", []any{1}, func(result any, err error) any {
		if err != nil {
			return err
		}
		return "seen " + result.(string)
	})
	if got != "seen add#1" {
		t.Errorf("%s - Then = %v", clientTestPrefix, got)
	}
}

func TestClient_OverHTTP(t *testing.T) {
	var mu sync.Mutex
	invocations := 0
	reg, err := registry.NewRegistry(registry.NewRegistryParams{
		Service: registry.ServiceOptions{Name: "Math", ID: "urn:math"},
	})
	if err != nil {
		t.Fatalf("%s - NewRegistry: %v", clientTestPrefix, err)
	}
	reg.MustRegister(registry.ProcedureOptions{
		Name:       "add",
		Idempotent: true,
		Params:     []jsonrpc.ParamSpec{{Name: "x", Type: jsonrpc.TypeNum}, {Name: "y", Type: jsonrpc.TypeNum}},
		Handler: func(_ context.Context, args []any) (any, error) {
			mu.Lock()
			invocations++
			mu.Unlock()
			x, _ := jsonrpc.Int64(args[0])
			y, _ := jsonrpc.Int64(args[1])
			return x + y, nil
		},
	})

	router := mux.NewRouter()
	dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Registry: reg}).Mount(router, "/rpc")
	srv := httptest.NewServer(router)
	defer srv.Close()

	stub, err := client.NewClient(client.NewClientParams{BaseURL: srv.URL + "/rpc"})
	if err != nil {
		t.Fatalf("%s - client.NewClient: %v", clientTestPrefix, err)
	}
	c := newCachingClient(t, stub, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Call(ctx, "add", 17, 25)
		if err != nil {
			t.Fatalf("%s - add: %v", clientTestPrefix, err)
		}
		if got != json.Number("42") {
			t.Errorf("%s - add = %#v, want 42", clientTestPrefix, got)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if invocations != 1 {
		t.Errorf("%s - handler invoked %d times, want 1", clientTestPrefix, invocations)
	}
}

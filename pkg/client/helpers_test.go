package client

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/morezero/jsonrpc11/pkg/dispatcher"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/registry"
)

// fakeTransport records requests and answers them with respond.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(req *Request) (*Response, error)
}

func (f *fakeTransport) Do(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeTransport) recorded() []*Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Request(nil), f.requests...)
}

func jsonResponse(body string) *Response {
	return &Response{StatusCode: 200, Status: "OK", ContentType: jsonrpc.MediaType, Body: []byte(body)}
}

const testManifest = `{"version": "1.1", "result": {"sdversion":"1.0","name":"Math","id":"urn:math","version":"1.4.0","procs":[` +
	`{"name":"add","idempotent":true,"params":[{"name":"x","type":"any"},{"name":"y","type":"any"}],"return":{"type":"any"}},` +
	`{"name":"sub","params":[{"name":"x","type":"num"},{"name":"y","type":"num"}],"return":{"type":"num"}}]}}`

// recordingTransport wraps another transport and records the verbs used.
type recordingTransport struct {
	next    Transport
	mu      sync.Mutex
	methods []string
}

func (r *recordingTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	r.mu.Lock()
	r.methods = append(r.methods, req.Method+" "+req.Procedure)
	r.mu.Unlock()
	return r.next.Do(ctx, req)
}

func (r *recordingTransport) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...)
}

func newMathRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewRegistry(registry.NewRegistryParams{
		Service: registry.ServiceOptions{Name: "Math", ID: "urn:math", Version: "1.4.0"},
	})
	if err != nil {
		t.Fatalf("client:helpers_test - NewRegistry: %v", err)
	}
	reg.MustRegister(registry.ProcedureOptions{
		Name:       "add",
		Idempotent: true,
		Params:     registry.Untyped("x", "y"),
		Handler: func(_ context.Context, args []any) (any, error) {
			return args, nil
		},
	})
	reg.MustRegister(registry.ProcedureOptions{
		Name:   "sub",
		Params: []jsonrpc.ParamSpec{{Name: "x", Type: jsonrpc.TypeNum}, {Name: "y", Type: jsonrpc.TypeNum}},
		Handler: func(_ context.Context, args []any) (any, error) {
			x, _ := jsonrpc.Int64(args[0])
			y, _ := jsonrpc.Int64(args[1])
			return x - y, nil
		},
	})
	return reg
}

func newMathServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := newMathRegistry(t)
	router := mux.NewRouter()
	dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Registry: reg}).Mount(router, "/rpc")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, reg
}

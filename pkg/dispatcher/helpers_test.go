package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/registry"
)

// recorder keeps the arguments of the last handler call.
type recorder struct {
	mu   sync.Mutex
	args []any
}

func (r *recorder) record(args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.args = args
}

func (r *recorder) last() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.args
}

func sub(_ context.Context, args []any) (any, error) {
	x, xok := jsonrpc.Int64(args[0])
	y, yok := jsonrpc.Int64(args[1])
	if xok && yok {
		return x - y, nil
	}
	xf, _ := jsonrpc.Float64(args[0])
	yf, _ := jsonrpc.Float64(args[1])
	return xf - yf, nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *registry.Registry, *recorder) {
	t.Helper()
	reg, err := registry.NewRegistry(registry.NewRegistryParams{
		Service: registry.ServiceOptions{Name: "TestService", ID: "skdjfhsdhfkjshdjkhskdhfkjshdf"},
	})
	if err != nil {
		t.Fatalf("dispatcher:helpers_test - NewRegistry: %v", err)
	}
	rec := &recorder{}
	reg.MustRegister(registry.ProcedureOptions{
		Name:       "add",
		Idempotent: true,
		Params:     registry.Untyped("x", "y"),
		Handler: func(_ context.Context, args []any) (any, error) {
			rec.record(args)
			return args, nil
		},
	})
	reg.MustRegister(registry.ProcedureOptions{
		Name:    "sub",
		Params:  []jsonrpc.ParamSpec{{Name: "x", Type: jsonrpc.TypeNum}, {Name: "y", Type: jsonrpc.TypeNum}},
		Return:  &jsonrpc.ReturnSpec{Type: jsonrpc.TypeNum},
		Handler: sub,
	})
	reg.MustRegister(registry.ProcedureOptions{
		Name: "fail",
		Handler: func(context.Context, []any) (any, error) {
			return nil, errors.New("Disaster!")
		},
	})
	reg.MustRegister(registry.ProcedureOptions{
		Name:       "boom",
		Idempotent: true,
		Handler: func(context.Context, []any) (any, error) {
			panic("kaboom")
		},
	})
	reg.MustRegister(registry.ProcedureOptions{
		Name:   "quiet",
		Return: &jsonrpc.ReturnSpec{Type: jsonrpc.TypeNil},
		Handler: func(context.Context, []any) (any, error) {
			return "ignored", nil
		},
	})
	reg.MustRegister(registry.ProcedureOptions{
		Name: "unencodable",
		Handler: func(context.Context, []any) (any, error) {
			return make(chan int), nil
		},
	})
	return NewDispatcher(NewDispatcherParams{Registry: reg}), reg, rec
}

func jsonHeaders() http.Header {
	h := http.Header{}
	h.Set(HeaderUserAgent, "Internet Exploder 12.0")
	h.Set(HeaderAccept, jsonrpc.MediaType)
	return h
}

func get(route, query string) *Inbound {
	in := &Inbound{Method: http.MethodGet, Header: jsonHeaders(), RawQuery: query}
	if route != "" {
		in.Route = []string{route}
	}
	return in
}

func post(body string) *Inbound {
	h := jsonHeaders()
	h.Set(HeaderContentType, jsonrpc.MediaType)
	return &Inbound{Method: http.MethodPost, Header: h, Body: []byte(body)}
}

func errorBody(msg string) string {
	return `{"version": "1.1", "error": {"code":999,"name":"JSONRPCError","message":` + jsonrpc.MarshalString(msg) + "}}\n"
}

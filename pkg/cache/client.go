package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/jsonrpc11/pkg/client"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/metrics"
)

const logPrefix = "cache:client"

// Stub is the client surface the decorator needs: raw calls and the
// negotiated service description.
type Stub interface {
	CallRaw(ctx context.Context, name string, args ...any) (json.RawMessage, error)
	Negotiate(ctx context.Context) (*jsonrpc.ServiceDescription, error)
}

// Client serves calls to idempotent procedures from a Store, delegating to
// the wrapped stub on a miss. Everything else goes straight to the stub.
type Client struct {
	stub    Stub
	store   Store
	expiry  time.Duration
	metrics *metrics.Collector
}

// NewClientParams holds parameters for NewClient.
type NewClientParams struct {
	Stub  Stub
	Store Store
	// Expiry of stored results; zero stores them without expiry.
	Expiry  time.Duration
	Metrics *metrics.Collector
}

// NewClient creates a caching decorator.
func NewClient(params NewClientParams) (*Client, error) {
	if params.Stub == nil {
		return nil, jsonrpc.Configurationf("caching client requires a stub")
	}
	if params.Store == nil {
		return nil, jsonrpc.Configurationf("caching client requires a store")
	}
	if params.Expiry < 0 {
		return nil, jsonrpc.Configurationf("cache expiry must not be negative (got %s)", params.Expiry)
	}
	return &Client{
		stub:    params.Stub,
		store:   params.Store,
		expiry:  params.Expiry,
		metrics: params.Metrics,
	}, nil
}

var _ client.Caller = (*Client)(nil)

// Call is client.Client.Call with result caching.
func (c *Client) Call(ctx context.Context, name string, args ...any) (any, error) {
	raw, err := c.CallRaw(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	var result any
	if err := jsonrpc.Decode(raw, &result); err != nil {
		return nil, &jsonrpc.Fault{Kind: jsonrpc.ServiceReturnsJunk, Message: "JSON-RPC service returned unparseable JSON", Err: err}
	}
	return result, nil
}

// Then is the continuation form of Call.
func (c *Client) Then(ctx context.Context, name string, args []any, k client.Continuation) any {
	return client.Then(ctx, c, name, args, k)
}

// CallRaw returns the stored result of an idempotent call when present and
// otherwise delegates, storing a successful result.
func (c *Client) CallRaw(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	if name == jsonrpc.DescribeMethod {
		return c.stub.CallRaw(ctx, name, args...)
	}
	sd, err := c.stub.Negotiate(ctx)
	if err != nil {
		return nil, err
	}
	proc, ok := sd.Procedure(name)
	if !ok || !proc.Idempotent {
		return c.stub.CallRaw(ctx, name, args...)
	}

	key, err := Key(sd.ID, name, args)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - arguments of %s have no stable key, bypassing cache: %v", logPrefix, name, err))
		return c.stub.CallRaw(ctx, name, args...)
	}

	cached, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		c.metrics.CacheLookup(true)
		slog.Debug(fmt.Sprintf("%s - hit %s", logPrefix, name))
		return json.RawMessage(cached), nil
	case errors.Is(err, ErrMiss):
		c.metrics.CacheLookup(false)
	default:
		c.metrics.CacheLookup(false)
		slog.Warn(fmt.Sprintf("%s - store lookup failed, calling %s directly: %v", logPrefix, name, err))
		return c.stub.CallRaw(ctx, name, args...)
	}

	raw, err := c.stub.CallRaw(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, raw, c.expiry); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to store result of %s: %v", logPrefix, name, err))
	}
	return raw, nil
}

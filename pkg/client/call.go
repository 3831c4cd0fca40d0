package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// Caller is anything that can call a remote procedure by name.
type Caller interface {
	Call(ctx context.Context, name string, args ...any) (any, error)
}

// Continuation receives the outcome of a call made with Then. Its return
// value becomes the return value of Then.
type Continuation func(result any, err error) any

// Then calls name on c and hands the result or the fault to k instead of
// returning it.
func Then(ctx context.Context, c Caller, name string, args []any, k Continuation) any {
	result, err := c.Call(ctx, name, args...)
	return k(result, err)
}

// Call invokes a remote procedure. A single map or struct argument is sent as
// named arguments; anything else is positional. Faults are *jsonrpc.Fault
// values discriminated by Kind.
func (c *Client) Call(ctx context.Context, name string, args ...any) (any, error) {
	raw, err := c.CallRaw(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return decodeResult(raw)
}

// CallNamed invokes a remote procedure with named arguments.
func (c *Client) CallNamed(ctx context.Context, name string, named map[string]any) (any, error) {
	if named == nil {
		named = map[string]any{}
	}
	return c.Call(ctx, name, named)
}

// Then is the continuation form of Call.
func (c *Client) Then(ctx context.Context, name string, args []any, k Continuation) any {
	return Then(ctx, c, name, args, k)
}

// Func returns a function calling the named procedure.
func (c *Client) Func(name string) func(ctx context.Context, args ...any) (any, error) {
	return func(ctx context.Context, args ...any) (any, error) {
		return c.Call(ctx, name, args...)
	}
}

// CallRaw is Call returning the undecoded result.
func (c *Client) CallRaw(ctx context.Context, name string, args ...any) (json.RawMessage, error) {
	var proc *jsonrpc.ProcedureDescription
	if name != jsonrpc.DescribeMethod && !c.noAutoConfig {
		sd, err := c.Negotiate(ctx)
		if err != nil {
			return nil, err
		}
		proc, _ = sd.Procedure(name)
	}
	return c.invoke(ctx, proc, name, args)
}

func (c *Client) invoke(ctx context.Context, proc *jsonrpc.ProcedureDescription, name string, args []any) (json.RawMessage, error) {
	var (
		req *Request
		err error
	)
	if proc != nil && proc.Idempotent {
		req, err = c.encodeGet(proc, name, args)
	} else {
		req, err = c.encodePost(name, args)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode arguments of %s: %w", logPrefix, name, err)
	}

	slog.Debug(fmt.Sprintf("%s - %s %s%s?%s %s", logPrefix, req.Method, req.Host, req.Path, req.RawQuery, req.Body))
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		var fault *jsonrpc.Fault
		if errors.As(err, &fault) {
			return nil, err
		}
		return nil, transportFault(err)
	}

	raw, err := decodeResponse(resp)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - %s failed: %v", logPrefix, name, err))
		return nil, err
	}
	slog.Debug(fmt.Sprintf("%s - %s => %s", logPrefix, name, raw))
	return raw, nil
}

// decodeResponse classifies a reply: non-JSON content is NotAService, an
// unparseable body is ServiceReturnsJunk and an error member is ServiceError.
func decodeResponse(resp *Response) (json.RawMessage, error) {
	mediaType, _, err := mime.ParseMediaType(resp.ContentType)
	if err != nil {
		mediaType = resp.ContentType
	}
	if mediaType != jsonrpc.MediaType {
		status := resp.Status
		if status == "" {
			status = http.StatusText(resp.StatusCode)
		}
		return nil, &jsonrpc.Fault{
			Kind:    jsonrpc.NotAService,
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("Returned %s (status code %d: %s) rather than %s", mediaType, resp.StatusCode, status, jsonrpc.MediaType),
		}
	}

	var env struct {
		Error  json.RawMessage `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := jsonrpc.Decode(resp.Body, &env); err != nil {
		return nil, &jsonrpc.Fault{Kind: jsonrpc.ServiceReturnsJunk, Message: "JSON-RPC service returned unparseable JSON", Err: err}
	}

	if len(env.Error) > 0 && string(env.Error) != "null" && string(env.Error) != "false" {
		var eo jsonrpc.ErrorObject
		if err := json.Unmarshal(env.Error, &eo); err != nil {
			return nil, &jsonrpc.Fault{Kind: jsonrpc.ServiceError, Message: fmt.Sprintf("JSON-RPC error: %s", env.Error)}
		}
		return nil, &jsonrpc.Fault{
			Kind:    jsonrpc.ServiceError,
			Code:    eo.Code,
			Message: fmt.Sprintf("JSON-RPC error %d: %s", eo.Code, eo.Message),
		}
	}

	if len(env.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Result, nil
}

func decodeResult(raw json.RawMessage) (any, error) {
	var result any
	if err := jsonrpc.Decode(raw, &result); err != nil {
		return nil, &jsonrpc.Fault{Kind: jsonrpc.ServiceReturnsJunk, Message: "JSON-RPC service returned unparseable JSON", Err: err}
	}
	return result, nil
}

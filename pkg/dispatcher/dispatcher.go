package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/juju/errors"

	"github.com/morezero/jsonrpc11/pkg/canon"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/metrics"
	"github.com/morezero/jsonrpc11/pkg/registry"
)

const logPrefix = "dispatcher:dispatch"

// unresolvedProcedure labels metrics for requests that never named a registered procedure.
const unresolvedProcedure = "unresolved"

// Dispatcher answers requests against a registry.
type Dispatcher struct {
	registry       *registry.Registry
	metrics        *metrics.Collector
	requestTimeout time.Duration
}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Registry *registry.Registry
	// Metrics may be nil.
	Metrics *metrics.Collector
	// RequestTimeout bounds handler execution for HTTP and COMMS requests. Zero means no bound.
	RequestTimeout time.Duration
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{
		registry:       params.Registry,
		metrics:        params.Metrics,
		requestTimeout: params.RequestTimeout,
	}
}

// Dispatch answers one request. It never panics and never returns a nil Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, in *Inbound) *Outcome {
	start := time.Now()

	if d.registry.Disabled() {
		return &Outcome{
			Status:      http.StatusServiceUnavailable,
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(disabledBody),
		}
	}

	c := &call{kind: classify(in.Method), status: http.StatusOK}
	procedure := unresolvedProcedure

	c.checkHeaders(in.Header)
	if !c.failed() {
		switch c.kind {
		case GetRequest:
			c.parseGet(in)
		case PostRequest:
			c.parsePost(in)
		default:
			c.fail(http.StatusInternalServerError, "Only POST and GET supported")
		}
	}

	var proc *registry.Procedure
	if !c.failed() {
		var ok bool
		proc, ok = d.registry.Lookup(c.method)
		if !ok {
			status := http.StatusInternalServerError
			if c.kind == GetRequest {
				status = http.StatusNotFound
			}
			c.fail(status, "This JSON-RPC service does not provide a '%s' method.", c.method)
		} else {
			procedure = proc.Name
		}
	}

	if !c.failed() && c.kind == GetRequest && !proc.Idempotent {
		c.fail(http.StatusInternalServerError, "This method is not idempotent and can only be called using POST.")
	}

	var args []any
	if !c.failed() {
		var err error
		args, err = canon.Canonicalize(proc.Params, c.positional, c.named)
		if err != nil {
			c.fail(http.StatusInternalServerError, "%s", err.Error())
		}
	}

	if !c.failed() {
		d.invoke(ctx, c, proc, args)
	}

	out := c.outcome()
	outcome := metrics.OutcomeOK
	if c.failed() {
		outcome = metrics.OutcomeError
		slog.Debug(fmt.Sprintf("%s - %s %s failed (%d): %s", logPrefix, c.kind, c.method, c.status, c.err.Message))
	} else {
		slog.Debug(fmt.Sprintf("%s - %s %s ok", logPrefix, c.kind, c.method))
	}
	d.metrics.CallHandled(procedure, string(c.kind), outcome, time.Since(start))
	return out
}

// invoke runs the handler, turning an error or panic into a protocol error
// carrying a trace.
func (d *Dispatcher) invoke(ctx context.Context, c *call, proc *registry.Procedure, args []any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn(fmt.Sprintf("%s - %s panicked: %v", logPrefix, proc.Name, r))
			c.fail(http.StatusInternalServerError, "%v\n%s", r, bytes.TrimSpace(debug.Stack()))
		}
	}()

	result, err := proc.Handler(ctx, args)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %s failed: %v", logPrefix, proc.Name, err))
		c.fail(http.StatusInternalServerError, "%s", errors.ErrorStack(errors.Trace(err)))
		return
	}
	if proc.Return.Type == jsonrpc.TypeNil {
		c.suppress = true
		return
	}
	c.result = result
}

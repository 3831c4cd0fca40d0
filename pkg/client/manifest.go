package client

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/jsonrpc11/pkg/commsutil"
	"github.com/morezero/jsonrpc11/pkg/events"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

const manifestLogPrefix = "client:manifest"

// Describe fetches the service description, validates it and caches it.
// Concurrent fetches may race; the last one stored wins.
func (c *Client) Describe(ctx context.Context) (*jsonrpc.ServiceDescription, error) {
	raw, err := c.invoke(ctx, nil, jsonrpc.DescribeMethod, nil)
	if err != nil {
		return nil, err
	}

	var probe map[string]any
	if err := jsonrpc.Decode(raw, &probe); err != nil || probe == nil {
		return nil, jsonrpc.NewFault(jsonrpc.ServiceReturnsJunk, "JSON-RPC server failed to return a service description")
	}
	if _, ok := probe["procs"].([]any); !ok {
		return nil, jsonrpc.NewFault(jsonrpc.ServiceReturnsJunk, "JSON-RPC server failed to return a standard-compliant service description")
	}
	var sd jsonrpc.ServiceDescription
	if err := jsonrpc.Decode(raw, &sd); err != nil {
		return nil, &jsonrpc.Fault{
			Kind:    jsonrpc.ServiceReturnsJunk,
			Message: "JSON-RPC server failed to return a standard-compliant service description",
			Err:     err,
		}
	}

	if c.constraint != nil && (sd.Version == "" || !c.constraint.Allows(sd.Version)) {
		return nil, jsonrpc.NewFault(jsonrpc.VersionMismatch, "JSON-RPC service %s version %q does not satisfy %s", sd.Name, sd.Version, c.constraint)
	}

	c.manifestMu.Lock()
	c.manifest = &sd
	c.manifestMu.Unlock()

	slog.Debug(fmt.Sprintf("%s - %s (%s) describes %d procedures", manifestLogPrefix, sd.Name, sd.ID, len(sd.Procs)))
	return &sd, nil
}

// Manifest returns the cached service description, or nil before the first
// successful Describe.
func (c *Client) Manifest() *jsonrpc.ServiceDescription {
	c.manifestMu.RLock()
	defer c.manifestMu.RUnlock()
	return c.manifest
}

// Negotiate returns the cached service description, fetching it first if needed.
func (c *Client) Negotiate(ctx context.Context) (*jsonrpc.ServiceDescription, error) {
	if sd := c.Manifest(); sd != nil {
		return sd, nil
	}
	return c.Describe(ctx)
}

// Procedures returns the described procedures by name.
func (c *Client) Procedures() map[string]jsonrpc.ProcedureDescription {
	sd := c.Manifest()
	if sd == nil {
		return map[string]jsonrpc.ProcedureDescription{}
	}
	procs := make(map[string]jsonrpc.ProcedureDescription, len(sd.Procs))
	for _, p := range sd.Procs {
		procs[p.Name] = p
	}
	return procs
}

// Invalidate drops the cached service description; the next call fetches it again.
func (c *Client) Invalidate() {
	c.manifestMu.Lock()
	c.manifest = nil
	c.manifestMu.Unlock()
}

// WatchChanges invalidates the cached service description whenever a change
// event for the described service arrives on subject (default jsonrpc.changed.>).
func (c *Client) WatchChanges(nc *comms.Conn, subject string) (*comms.Subscription, error) {
	if subject == "" {
		subject = commsutil.SubjectChangeEvent + ".>"
	}
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		var event events.ServiceChangedEvent
		if err := commsutil.DecodePayload(msg.Data, &event); err != nil {
			slog.Warn(fmt.Sprintf("%s - undecodable change event on %s: %v", manifestLogPrefix, msg.Subject, err))
			return
		}
		sd := c.Manifest()
		if sd == nil || sd.ID != event.ServiceID {
			return
		}
		slog.Info(fmt.Sprintf("%s - %s changed (%s %s), dropping cached description", manifestLogPrefix, event.Service, event.Action, event.Procedure))
		c.Invalidate()
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", manifestLogPrefix, subject, err)
	}
	return sub, nil
}

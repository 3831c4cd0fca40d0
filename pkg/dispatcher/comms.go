package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/jsonrpc11/pkg/commsutil"
)

const commsLogPrefix = "dispatcher:comms"

// Subscribe answers requests published to subject. Message headers carry
// the HTTP headers plus the verb, procedure and query of a GET; the reply
// carries the status and content type as headers and the response as data.
func (d *Dispatcher) Subscribe(ctx context.Context, nc *comms.Conn, subject string) (*comms.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		reqCtx := ctx
		if d.requestTimeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, d.requestTimeout)
			defer cancel()
		}

		out := d.Dispatch(reqCtx, InboundFromMsg(msg))

		reply := comms.NewMsg(msg.Reply)
		reply.Header.Set(commsutil.HeaderStatus, strconv.Itoa(out.Status))
		reply.Header.Set(HeaderContentType, out.ContentType)
		reply.Data = out.Body
		if err := msg.RespondMsg(reply); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to respond on %s: %v", commsLogPrefix, subject, err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", commsLogPrefix, subject))
	return sub, nil
}

// InboundFromMsg translates a COMMS request message. A message without a
// verb header is a POST.
func InboundFromMsg(msg *comms.Msg) *Inbound {
	header := make(http.Header, len(msg.Header))
	for k, vs := range msg.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	in := &Inbound{
		Method:   http.MethodPost,
		Header:   header,
		RawQuery: header.Get(commsutil.HeaderQuery),
		Body:     msg.Data,
	}
	if verb := header.Get(commsutil.HeaderVerb); verb != "" {
		in.Method = verb
	}
	if procs, ok := header[http.CanonicalHeaderKey(commsutil.HeaderProcedure)]; ok {
		in.Route = procs
	}
	return in
}

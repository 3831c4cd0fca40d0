package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/jsonrpc11/pkg/commsutil"
	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// Request is one outbound call as the transport sees it.
type Request struct {
	// Method is GET or POST.
	Method string
	Scheme string
	// Host is host:port.
	Host string
	// Path includes the procedure name for a GET.
	Path     string
	RawQuery string
	// Procedure is the called procedure name.
	Procedure string
	Header    http.Header
	Body      []byte
	// Proxy is the HTTP proxy to go through, or nil.
	Proxy *url.URL
}

// URL returns the absolute request URL.
func (r *Request) URL() *url.URL {
	return &url.URL{Scheme: r.Scheme, Host: r.Host, Path: r.Path, RawQuery: r.RawQuery}
}

// Response is the status, content type and body of a reply.
type Response struct {
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
}

// Transport sends a request and waits for the reply.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

type proxyKey struct{}

// HTTPTransport sends requests over HTTP, optionally through a proxy.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns an HTTPTransport. A zero timeout leaves requests
// bounded only by their context.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.Proxy = func(r *http.Request) (*url.URL, error) {
		proxy, _ := r.Context().Value(proxyKey{}).(*url.URL)
		return proxy, nil
	}
	return &HTTPTransport{client: &http.Client{Transport: base, Timeout: timeout}}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Proxy != nil {
		ctx = context.WithValue(ctx, proxyKey{}, req.Proxy)
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL().String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	hresp, err := t.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()
	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode:  hresp.StatusCode,
		Status:      http.StatusText(hresp.StatusCode),
		ContentType: hresp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// CommsTransport sends requests as COMMS request/reply messages to a
// dispatcher subscribed on Subject.
type CommsTransport struct {
	nc      *comms.Conn
	subject string
	timeout time.Duration
}

// NewCommsTransport returns a CommsTransport. A zero timeout defaults to 10s.
func NewCommsTransport(nc *comms.Conn, subject string, timeout time.Duration) *CommsTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommsTransport{nc: nc, subject: subject, timeout: timeout}
}

// Do implements Transport.
func (t *CommsTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	msg := comms.NewMsg(t.subject)
	for k, vs := range req.Header {
		for _, v := range vs {
			msg.Header.Add(k, v)
		}
	}
	msg.Header.Set(commsutil.HeaderVerb, req.Method)
	if req.Method == http.MethodGet {
		msg.Header.Set(commsutil.HeaderProcedure, req.Procedure)
		if req.RawQuery != "" {
			msg.Header.Set(commsutil.HeaderQuery, req.RawQuery)
		}
	}
	msg.Data = req.Body

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	reply, err := t.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return nil, err
	}

	status, err := strconv.Atoi(reply.Header.Get(commsutil.HeaderStatus))
	if err != nil {
		status = http.StatusOK
	}
	return &Response{
		StatusCode:  status,
		Status:      http.StatusText(status),
		ContentType: reply.Header.Get("Content-Type"),
		Body:        reply.Data,
	}, nil
}

// isUnreachable reports whether err means nothing answered: the connection
// was refused, the host did not resolve, or no COMMS subscriber exists.
func isUnreachable(err error) bool {
	if errors.Is(err, comms.ErrNoResponders) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func transportFault(err error) error {
	if isUnreachable(err) {
		return &jsonrpc.Fault{Kind: jsonrpc.ServiceDown, Message: "Connection refused", Err: err}
	}
	return fmt.Errorf("%s - transport failed: %w", logPrefix, err)
}

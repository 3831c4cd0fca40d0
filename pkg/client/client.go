// Package client is a JSON-RPC 1.1 client stub. It learns the remote
// service's procedures from system.describe and calls idempotent ones with
// GET and everything else with POST.
package client

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
	"github.com/morezero/jsonrpc11/pkg/semver"
)

const logPrefix = "client:client"

// DefaultUserAgent identifies the client on every request.
const DefaultUserAgent = "Go JSON-RPC Client 1.1"

// NewClientParams holds parameters for NewClient.
type NewClientParams struct {
	// BaseURL is the service URL, e.g. http://localhost:8080/rpc.
	BaseURL string
	// Proxy is an optional HTTP proxy URL.
	Proxy string
	// Transport defaults to an HTTPTransport without timeout.
	Transport Transport
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// NoAutoConfig skips system.describe; every call is then a POST.
	NoAutoConfig bool
	// VersionConstraint, when set, must be satisfied by the service's version.
	VersionConstraint string
}

// Client calls procedures on one remote service. It is safe for concurrent use.
type Client struct {
	transport    Transport
	userAgent    string
	noAutoConfig bool
	constraint   *semver.Constraint

	mu    sync.RWMutex
	base  url.URL
	proxy *url.URL

	manifestMu sync.RWMutex
	manifest   *jsonrpc.ServiceDescription
}

// NewClient validates the parameters and returns a Client. It does not
// contact the service.
func NewClient(params NewClientParams) (*Client, error) {
	base, err := url.Parse(params.BaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, jsonrpc.Configurationf("JSON-RPC client needs an absolute http(s) service URL (got %q)", params.BaseURL)
	}

	c := &Client{
		transport:    params.Transport,
		userAgent:    params.UserAgent,
		noAutoConfig: params.NoAutoConfig,
		base:         *base,
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(0)
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if params.Proxy != "" {
		if c.proxy, err = parseProxy(params.Proxy); err != nil {
			return nil, err
		}
	}
	if params.VersionConstraint != "" {
		constraint, err := semver.ParseConstraint(params.VersionConstraint)
		if err != nil {
			return nil, &jsonrpc.Fault{
				Kind:    jsonrpc.ConfigurationError,
				Message: fmt.Sprintf("invalid service version constraint %q", params.VersionConstraint),
				Err:     err,
			}
		}
		c.constraint = constraint
	}

	slog.Debug(fmt.Sprintf("%s - client for %s", logPrefix, base.Redacted()))
	return c, nil
}

func parseProxy(raw string) (*url.URL, error) {
	proxy, err := url.Parse(raw)
	if err != nil || proxy.Host == "" {
		return nil, jsonrpc.Configurationf("invalid proxy URL %q", raw)
	}
	return proxy, nil
}

// SetHost points the client at another host serving the same service. Empty
// host, zero port or empty proxy leave the current value. The cached service
// description is kept.
func (c *Client) SetHost(host string, port int, proxy string) error {
	var p *url.URL
	if proxy != "" {
		var err error
		if p, err = parseProxy(proxy); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	h, pt := c.base.Hostname(), c.base.Port()
	if host != "" {
		h = host
	}
	if port != 0 {
		pt = strconv.Itoa(port)
	}
	if pt == "" {
		c.base.Host = h
	} else {
		c.base.Host = net.JoinHostPort(h, pt)
	}
	if p != nil {
		c.proxy = p
	}
	slog.Info(fmt.Sprintf("%s - service moved to %s", logPrefix, c.base.Host))
	return nil
}

// ServicePath is the path of the service, e.g. /rpc.
func (c *Client) ServicePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.Path
}

// HostAndPort returns host:port, with the scheme's default port when the URL has none.
func (c *Client) HostAndPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return hostAndPort(&c.base)
}

func hostAndPort(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// newRequest fills in the addressing and headers shared by GET and POST.
func (c *Client) newRequest(method, procedure string) *Request {
	c.mu.RLock()
	defer c.mu.RUnlock()

	header := http.Header{}
	header.Set("User-Agent", c.userAgent)
	header.Set("Accept", jsonrpc.MediaType)

	path := c.base.Path
	if method == http.MethodGet {
		path = strings.TrimRight(path, "/") + "/" + procedure
	} else if path == "" {
		path = "/"
	}

	return &Request{
		Method:    method,
		Scheme:    c.base.Scheme,
		Host:      hostAndPort(&c.base),
		Path:      path,
		Procedure: procedure,
		Header:    header,
		Proxy:     c.proxy,
	}
}

// Package dispatcher answers JSON-RPC 1.1 requests against a registry. It is
// transport-neutral: HTTP and COMMS bindings translate to and from Inbound
// and Outcome.
package dispatcher

import "net/http"

// Inbound is one transport request.
type Inbound struct {
	// Method is the transport verb, GET or POST.
	Method string
	Header http.Header
	// RawQuery is the undecoded query string of a GET.
	RawQuery string
	Body     []byte
	// Route holds the values of the routing parameter naming the procedure
	// of a GET. Exactly one value is required.
	Route []string
}

// Outcome is the transport response.
type Outcome struct {
	Status      int
	ContentType string
	Body        []byte
}

// RequestKind classifies an inbound request by transport verb.
type RequestKind string

const (
	GetRequest       RequestKind = "GET"
	PostRequest      RequestKind = "POST"
	ErroneousRequest RequestKind = "OTHER"
)

// Header names consulted by the dispatcher.
const (
	HeaderUserAgent   = "User-Agent"
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"
)

const disabledBody = "JSON-RPC server disabled"

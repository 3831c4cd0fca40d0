package dispatcher

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// call is the per-request state. The first recorded error is terminal.
type call struct {
	kind       RequestKind
	id         any
	method     string
	positional []any
	named      map[string]any

	result   any
	suppress bool
	err      *jsonrpc.ErrorObject
	status   int
}

func (c *call) failed() bool {
	return c.err != nil
}

// fail records an error unless one is already recorded.
func (c *call) fail(status int, format string, args ...any) {
	if c.err != nil {
		return
	}
	c.err = jsonrpc.NewErrorObject(fmt.Sprintf(format, args...))
	c.status = status
}

func classify(method string) RequestKind {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return GetRequest
	case http.MethodPost:
		return PostRequest
	}
	return ErroneousRequest
}

func (c *call) checkHeaders(h http.Header) {
	if strings.TrimSpace(h.Get(HeaderUserAgent)) == "" {
		c.fail(http.StatusInternalServerError, "User-Agent header not specified")
		return
	}
	if h.Get(HeaderAccept) != jsonrpc.MediaType {
		c.fail(http.StatusInternalServerError, "Accept header must be %s", jsonrpc.MediaType)
	}
}

func (c *call) parseGet(in *Inbound) {
	if len(in.Route) != 1 || in.Route[0] == "" {
		c.fail(http.StatusInternalServerError, "Bad call")
		return
	}
	c.method = in.Route[0]
	c.named = parseQuery(in.RawQuery)
}

// parseQuery decodes a query string into named arguments. A repeated key
// accumulates its values into a sequence in the order received. Empty
// values are kept.
func parseQuery(raw string) map[string]any {
	named := make(map[string]any)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key := unescape(k)
		val := unescape(v)
		prev, seen := named[key]
		if !seen {
			named[key] = val
			continue
		}
		if seq, ok := prev.([]any); ok {
			named[key] = append(seq, val)
		} else {
			named[key] = []any{prev, val}
		}
	}
	return named
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func (c *call) parsePost(in *Inbound) {
	mediaType, _, err := mime.ParseMediaType(in.Header.Get(HeaderContentType))
	if err != nil || mediaType != jsonrpc.MediaType {
		c.fail(http.StatusInternalServerError, "Content-Type header must be %s", jsonrpc.MediaType)
		return
	}

	var body map[string]any
	if err := jsonrpc.Decode(in.Body, &body); err != nil || body == nil {
		c.fail(http.StatusInternalServerError, "JSON did not parse")
		return
	}

	if v, ok := body["version"]; !ok || v == nil || v == false {
		c.fail(http.StatusInternalServerError, "JSON-RPC client protocol version must be specified in POSTs")
		return
	}
	if id, ok := body["id"]; ok && id != nil {
		c.id = id
	}

	switch m := body["method"].(type) {
	case nil:
		c.fail(http.StatusInternalServerError, "Method not specified")
		return
	case string:
		c.method = m
	default:
		c.method = jsonrpc.MarshalString(m)
	}

	switch p := body["params"].(type) {
	case nil:
	case []any:
		c.positional = p
	case map[string]any:
		c.named = p
	default:
		c.fail(http.StatusInternalServerError, "Params must be JSON Object or Array")
	}
}

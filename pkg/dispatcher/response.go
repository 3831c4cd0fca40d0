package dispatcher

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// outcome renders the response body. Exactly one of error or result is
// written; id only when the request carried one.
func (c *call) outcome() *Outcome {
	var result []byte
	if !c.failed() {
		var err error
		if c.suppress {
			result = []byte("null")
		} else if result, err = jsonrpc.Marshal(c.result); err != nil {
			slog.Warn(fmt.Sprintf("%s - %s result could not be encoded: %v", logPrefix, c.method, err))
			c.fail(http.StatusInternalServerError, "The result of %s could not be encoded as JSON: %v", c.method, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`{"version": "`)
	buf.WriteString(jsonrpc.Version)
	buf.WriteString(`"`)
	if c.id != nil {
		buf.WriteString(`, "id": `)
		buf.WriteString(jsonrpc.MarshalString(c.id))
	}
	if c.failed() {
		buf.WriteString(`, "error": `)
		buf.WriteString(jsonrpc.MarshalString(c.err))
	} else {
		buf.WriteString(`, "result": `)
		buf.Write(result)
	}
	buf.WriteString("}\n")

	return &Outcome{
		Status:      c.status,
		ContentType: jsonrpc.MediaType,
		Body:        buf.Bytes(),
	}
}

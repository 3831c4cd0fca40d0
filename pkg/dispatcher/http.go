package dispatcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// RouteVar is the mux route variable naming the procedure of a GET.
const RouteVar = "method"

const maxBodyBytes = 8 << 20

// Mount registers the service at path and path/{method} on router. All
// verbs are routed so the dispatcher can report unsupported ones itself.
func (d *Dispatcher) Mount(router *mux.Router, path string) {
	path = "/" + strings.Trim(path, "/")
	router.Handle(path, d)
	if path == "/" {
		path = ""
	}
	router.Handle(path+"/{"+RouteVar+"}", d)
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if d.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.requestTimeout)
		defer cancel()
	}

	in := &Inbound{
		Method:   r.Method,
		Header:   r.Header,
		RawQuery: r.URL.RawQuery,
	}
	if v, ok := mux.Vars(r)[RouteVar]; ok {
		in.Route = []string{v}
	}
	if r.Body != nil {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to read request body: %v", logPrefix, err))
		}
		in.Body = body
	}

	out := d.Dispatch(ctx, in)
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.WriteHeader(out.Status)
	if _, err := w.Write(out.Body); err != nil {
		slog.Debug(fmt.Sprintf("%s - failed to write response: %v", logPrefix, err))
	}
}

package server

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// homePageTemplate is the HTML for the service home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Service.Name}} – JSON-RPC</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; font-weight: bold; }
    code { background: #f5f5f5; padding: 0 0.25rem; }
  </style>
</head>
<body>
  <h1>{{.Service.Name}}</h1>
  {{if .Service.Summary}}<p class="meta">{{.Service.Summary}}</p>{{end}}
  {{if .Disabled}}<p class="error">This service is currently disabled.</p>{{end}}

  <section>
    <h2>Details</h2>
    <table>
      <tr><th>Id</th><td>{{.Service.ID}}</td></tr>
      {{if .Service.Version}}<tr><th>Version</th><td>{{.Service.Version}}</td></tr>{{end}}
      {{if .Service.Address}}<tr><th>Address</th><td>{{.Service.Address}}</td></tr>{{end}}
      <tr><th>Endpoint</th><td><code>POST {{.Path}}</code></td></tr>
      <tr><th>Description</th><td><a href="{{.DescribeURL}}">{{.DescribeURL}}</a></td></tr>
    </table>
    {{if .Service.Help}}<p>{{.Service.Help}}</p>{{end}}
  </section>

  <section>
    <h2>Procedures</h2>
    {{if not .Service.Procs}}
    <p>No procedures registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Name</th><th>Parameters</th><th>Returns</th><th>GET</th><th>Summary</th></tr>
      </thead>
      <tbody>
        {{range .Service.Procs}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{params .Params}}</td>
          <td>{{if .Return}}{{.Return.Type}}{{end}}</td>
          <td>{{if .Idempotent}}yes{{else}}no{{end}}</td>
          <td>{{.Summary}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Service     *jsonrpc.ServiceDescription
	Disabled    bool
	Path        string
	DescribeURL string
}

// formatParams renders a parameter list as "name: type, ...".
func formatParams(params []jsonrpc.ParamSpec) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return strings.Join(parts, ", ")
}

// handleHome returns an HTTP handler for the service home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Funcs(template.FuncMap{
		"params": formatParams,
	}).Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		path := "/" + strings.Trim(s.servicePath(), "/")
		data := homeData{
			Service:     s.reg.Describe(),
			Disabled:    s.reg.Disabled(),
			Path:        path,
			DescribeURL: path + "/" + jsonrpc.DescribeMethod,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

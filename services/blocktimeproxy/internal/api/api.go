// Package api wires the blocktimeproxy routes and serves their OpenAPI
// document and a Scalar reference page.
package api

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/greymass/workutils/libraries/openapi"
)

//go:embed openapi.yaml
var specYAML []byte

const (
	title       = "Block Time API"
	description = "Unix timestamps of Solana blocks, cached and rate limited."
)

// NewMux registers blockTime and the supporting endpoints, then checks that
// every route in the OpenAPI document has a handler.
func NewMux(blockTime http.Handler, version string) (*http.ServeMux, error) {
	spec, err := openapi.LoadWithVersion(specYAML, version)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /solana_blocktime/{height}", blockTime)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK\n")
	})
	mux.Handle("GET /openapi.json", spec.Handler())
	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Write(spec.YAML())
	})
	mux.Handle("GET /docs", docsHandler(docsPage{Title: title, Description: description, SpecURL: "/openapi.json"}))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusFound)
	})

	if result := spec.ValidateRoutes(openapi.MuxChecker(mux)); !result.Valid {
		return nil, result
	}
	return mux, nil
}

type docsPage struct {
	Title       string
	Description string
	SpecURL     string
}

func docsHandler(page docsPage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		docsTemplate.Execute(w, page)
	})
}

var docsTemplate = template.Must(template.New("scalar").Parse(`<!doctype html>
<html>
<head>
  <title>{{.Title}}</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta name="description" content="{{.Description}}" />
</head>
<body>
  <div id="app"></div>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
  <script>
    Scalar.createApiReference('#app', { url: '{{.SpecURL}}', darkMode: true, layout: 'modern' })
  </script>
</body>
</html>`))

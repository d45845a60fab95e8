// Package openapi serves an embedded OpenAPI document and checks it against
// the routes a service actually registers.
package openapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"

	"github.com/pb33f/libopenapi"
	v3high "github.com/pb33f/libopenapi/datamodel/high/v3"
)

type Spec struct {
	model    *v3high.Document
	yamlData []byte
	jsonData []byte
}

func Load(yamlData []byte) (*Spec, error) {
	return LoadWithVersion(yamlData, "")
}

// LoadWithVersion parses the document and overrides info.version when
// version is set, so the served document matches the running binary.
func LoadWithVersion(yamlData []byte, version string) (*Spec, error) {
	doc, err := libopenapi.NewDocument(yamlData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI model: %v", err)
	}
	if model.Model.Paths == nil {
		return nil, fmt.Errorf("OpenAPI spec has no paths")
	}

	if version != "" && model.Model.Info != nil {
		model.Model.Info.Version = version
	}

	rendered, err := model.Model.Render()
	if err != nil {
		return nil, fmt.Errorf("failed to render OpenAPI as YAML: %w", err)
	}
	jsonData, err := model.Model.RenderJSON("  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render OpenAPI as JSON: %w", err)
	}

	return &Spec{
		model:    &model.Model,
		yamlData: rendered,
		jsonData: jsonData,
	}, nil
}

func (s *Spec) Model() *v3high.Document {
	return s.model
}

func (s *Spec) YAML() []byte {
	return s.yamlData
}

func (s *Spec) JSON() []byte {
	return s.jsonData
}

// Paths lists the documented paths in document order.
func (s *Spec) Paths() []string {
	var paths []string
	for path := range s.model.Paths.PathItems.FromOldest() {
		paths = append(paths, path)
	}
	return paths
}

func (s *Spec) HasPath(path string) bool {
	return s.model.Paths.PathItems.GetOrZero(path) != nil
}

// PathMethods lists the HTTP methods documented for path.
func (s *Spec) PathMethods(path string) []string {
	item := s.model.Paths.PathItems.GetOrZero(path)
	if item == nil {
		return nil
	}

	ops := []struct {
		method string
		op     *v3high.Operation
	}{
		{http.MethodGet, item.Get},
		{http.MethodPost, item.Post},
		{http.MethodPut, item.Put},
		{http.MethodDelete, item.Delete},
		{http.MethodPatch, item.Patch},
		{http.MethodHead, item.Head},
		{http.MethodOptions, item.Options},
	}
	var methods []string
	for _, o := range ops {
		if o.op != nil {
			methods = append(methods, o.method)
		}
	}
	return methods
}

type RouteChecker func(path string, method string) bool

type ValidationResult struct {
	Valid           bool
	MissingHandlers []string
}

func (r ValidationResult) Error() string {
	return "routes documented but not handled: " + strings.Join(r.MissingHandlers, ", ")
}

// ValidateRoutes reports every documented "METHOD /path" that checker
// does not handle.
func (s *Spec) ValidateRoutes(checker RouteChecker) ValidationResult {
	result := ValidationResult{Valid: true}
	for path := range s.model.Paths.PathItems.FromOldest() {
		for _, method := range s.PathMethods(path) {
			if !checker(path, method) {
				result.MissingHandlers = append(result.MissingHandlers, method+" "+path)
				result.Valid = false
			}
		}
	}
	return result
}

var pathParam = regexp.MustCompile(`\{[^}/]+\}`)

// MuxChecker asks mux whether it has a pattern for a documented route.
// Path parameters are filled with "0" for the probe request.
func MuxChecker(mux *http.ServeMux) RouteChecker {
	return func(path, method string) bool {
		req := httptest.NewRequest(method, pathParam.ReplaceAllString(path, "0"), nil)
		_, pattern := mux.Handler(req)
		return pattern != ""
	}
}

// Handler serves the document as JSON, or as YAML for ?format=yaml or an
// Accept header asking for yaml.
func (s *Spec) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format == "yaml" || (format == "" && strings.Contains(r.Header.Get("Accept"), "yaml")) {
			w.Header().Set("Content-Type", "application/x-yaml")
			w.Write(s.yamlData)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.jsonData)
	})
}

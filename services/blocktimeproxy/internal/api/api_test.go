package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewMux(t *testing.T) {
	blockTime := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.PathValue("height")))
	})
	mux, err := NewMux(blockTime, "1.2.3")
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{http.MethodGet, "/solana_blocktime/77", http.StatusOK, "77"},
		{http.MethodGet, "/health", http.StatusOK, "OK"},
		{http.MethodGet, "/openapi.json", http.StatusOK, `"version": "1.2.3"`},
		{http.MethodGet, "/openapi.yaml", http.StatusOK, "openapi: 3.0.3"},
		{http.MethodGet, "/docs", http.StatusOK, "Block Time API"},
		{http.MethodGet, "/", http.StatusFound, ""},
		{http.MethodPost, "/solana_blocktime/77", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body %q missing %q", rec.Body.String(), tt.body)
			}
		})
	}
}

package blocktime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greymass/workutils/libraries/encoding"
	"github.com/greymass/workutils/libraries/serviceclient"
)

func rpcServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := encoding.JSONiter.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["jsonrpc"] != "2.0" || req["method"] != "getBlockTime" {
			t.Errorf("request = %v", req)
		}
		params, _ := req["params"].([]interface{})
		if len(params) != 1 {
			t.Errorf("params = %v", req["params"])
		} else if h, ok := encoding.MaybeGetUint64(params[0]); !ok || h != 100 {
			t.Errorf("height param = %v", params[0])
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRPCClient(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   int64
		reason string
	}{
		{"result", `{"jsonrpc":"2.0","result":1600000000,"id":1}`, 1600000000, ""},
		{"null result", `{"jsonrpc":"2.0","result":null,"id":1}`, 0, "block time not available"},
		{"rpc error", `{"jsonrpc":"2.0","error":{"code":-32009,"message":"Slot 100 was skipped"},"id":1}`, 0, "node refused"},
		{"string result", `{"jsonrpc":"2.0","result":"soon","id":1}`, 0, "invalid result soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rpcServer(t, tt.body)
			c := NewRPCClient(RPCConfig{URL: srv.URL, Timeout: time.Second})

			ts, err := c.BlockTime(context.Background(), 100)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ts != tt.want {
					t.Errorf("ts = %d, want %d", ts, tt.want)
				}
				return
			}
			var le *LookupError
			if !errors.As(err, &le) {
				t.Fatalf("err = %v, want LookupError", err)
			}
			if le.Reason != tt.reason || le.Height != 100 {
				t.Errorf("LookupError = %+v", le)
			}
		})
	}
}

func TestRPCClientRPCErrorDetail(t *testing.T) {
	srv := rpcServer(t, `{"jsonrpc":"2.0","error":{"code":-32009,"message":"Slot 100 was skipped"},"id":1}`)
	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).BlockTime(context.Background(), 100)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32009 {
		t.Fatalf("err = %v, want RPCError", err)
	}
	if !strings.Contains(err.Error(), "Slot 100 was skipped") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRPCClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).BlockTime(context.Background(), 100)
	var se *serviceclient.ServiceError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("err = %v, want wrapped ServiceError", err)
	}
}

func TestNewRPCClientDefaults(t *testing.T) {
	c := NewRPCClient(RPCConfig{})
	if c.client == nil {
		t.Fatal("client not built")
	}
}

func TestProxyClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/solana_blocktime/100":
			io.WriteString(w, `{"block":100,"timestamp":1600000000}`)
		case "/solana_blocktime/200":
			io.WriteString(w, `{"block":200}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":"Slot was skipped"}`)
		}
	}))
	defer srv.Close()

	c := NewProxyClient(ProxyConfig{URL: srv.URL, Timeout: time.Second})

	ts, err := c.BlockTime(context.Background(), 100)
	if err != nil || ts != 1600000000 {
		t.Errorf("BlockTime(100) = %d, %v", ts, err)
	}

	var le *LookupError
	if _, err := c.BlockTime(context.Background(), 200); !errors.As(err, &le) {
		t.Errorf("BlockTime(200) err = %v, want LookupError", err)
	}

	_, err = c.BlockTime(context.Background(), 300)
	var se *serviceclient.ServiceError
	if !errors.As(err, &se) || !strings.Contains(err.Error(), "Slot was skipped") {
		t.Errorf("BlockTime(300) err = %v, want proxy error body", err)
	}
}

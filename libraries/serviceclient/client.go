// Package serviceclient is a small JSON-over-HTTP client for upstream
// services. Backends are http(s) URLs or unix:///path/to.sock.
package serviceclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/encoding"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(backendURL string, timeout time.Duration) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(backendURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}

	u, err := url.Parse(backendURL)
	if err != nil || u.Scheme != "unix" {
		return c
	}

	socket := u.Path
	var dialer net.Dialer
	c.baseURL = "http://localhost"
	c.httpClient.Transport = &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socket)
		},
	}
	return c
}

// Get decodes the JSON body of GET path into resp.
func (c *Client) Get(ctx context.Context, path string, resp any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, resp)
}

// Post sends body as JSON and decodes the response into resp. A nil resp
// discards the response body.
func (c *Client) Post(ctx context.Context, path string, body, resp any) error {
	payload, err := encoding.JSONiter.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, resp)
}

func (c *Client) url(path string) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) do(req *http.Request, resp any) error {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 64*1024))
		return &ServiceError{
			StatusCode: httpResp.StatusCode,
			Message:    http.StatusText(httpResp.StatusCode),
			Body:       body,
		}
	}

	if resp == nil {
		io.Copy(io.Discard, httpResp.Body)
		return nil
	}
	if err := encoding.JSONiter.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

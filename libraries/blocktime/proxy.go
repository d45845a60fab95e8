package blocktime

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/greymass/workutils/libraries/encoding"
	"github.com/greymass/workutils/libraries/serviceclient"
)

type ProxyConfig struct {
	URL     string
	Timeout time.Duration
}

// ProxyClient asks a blocktimeproxy for GET /solana_blocktime/{height}.
type ProxyClient struct {
	client *serviceclient.Client
}

func NewProxyClient(cfg ProxyConfig) *ProxyClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ProxyClient{client: serviceclient.New(cfg.URL, cfg.Timeout)}
}

func (c *ProxyClient) BlockTime(ctx context.Context, height uint64) (int64, error) {
	var resp map[string]interface{}
	path := "/solana_blocktime/" + strconv.FormatUint(height, 10)
	if err := c.client.Get(ctx, path, &resp); err != nil {
		return 0, &LookupError{Height: height, Reason: "request failed", Err: err}
	}

	ts, ok := encoding.MaybeGetInt64(resp["timestamp"])
	if !ok {
		return 0, &LookupError{Height: height, Reason: fmt.Sprintf("invalid timestamp %v", resp["timestamp"])}
	}
	return ts, nil
}

package blocktime

import (
	"context"
	"fmt"
	"time"

	"github.com/greymass/workutils/libraries/encoding"
	"github.com/greymass/workutils/libraries/serviceclient"
)

const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

const reasonNotAvailable = "block time not available"

type RPCConfig struct {
	URL     string
	Timeout time.Duration
}

// RPCClient calls getBlockTime on a Solana JSON-RPC node.
type RPCClient struct {
	client *serviceclient.Client
}

func NewRPCClient(cfg RPCConfig) *RPCClient {
	if cfg.URL == "" {
		cfg.URL = DefaultRPCURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &RPCClient{client: serviceclient.New(cfg.URL, cfg.Timeout)}
}

type rpcRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      int      `json:"id"`
	Method  string   `json:"method"`
	Params  []uint64 `json:"params"`
}

type rpcResponse struct {
	Result interface{} `json:"result"`
	Error  *RPCError   `json:"error"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) BlockTime(ctx context.Context, height uint64) (int64, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBlockTime",
		Params:  []uint64{height},
	}

	var resp rpcResponse
	if err := c.client.Post(ctx, "", req, &resp); err != nil {
		return 0, &LookupError{Height: height, Reason: "request failed", Err: err}
	}
	if resp.Error != nil {
		return 0, &LookupError{Height: height, Reason: "node refused", Err: resp.Error}
	}
	if resp.Result == nil {
		return 0, &LookupError{Height: height, Reason: reasonNotAvailable}
	}

	ts, ok := encoding.MaybeGetInt64(resp.Result)
	if !ok {
		return 0, &LookupError{Height: height, Reason: fmt.Sprintf("invalid result %v", resp.Result)}
	}
	return ts, nil
}

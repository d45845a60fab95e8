// Package blocktime looks up the Unix timestamp of a Solana block, either
// straight from a JSON-RPC node or through the blocktimeproxy service, and
// memoizes the answers.
package blocktime

import (
	"context"
	"errors"
	"fmt"
)

// Source resolves a block height to the block's Unix timestamp.
type Source interface {
	BlockTime(ctx context.Context, height uint64) (int64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, height uint64) (int64, error)

func (f SourceFunc) BlockTime(ctx context.Context, height uint64) (int64, error) {
	return f(ctx, height)
}

// LookupError reports a failed or unusable lookup.
type LookupError struct {
	Height uint64
	Reason string
	Err    error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s for block %d: %v", e.Reason, e.Height, e.Err)
	}
	return fmt.Sprintf("%s for block %d", e.Reason, e.Height)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsNotAvailable reports whether err came from a node that answered but
// had no timestamp for the block, such as a skipped slot.
func IsNotAvailable(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return true
	}
	var le *LookupError
	return errors.As(err, &le) && le.Reason == reasonNotAvailable
}

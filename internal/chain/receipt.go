package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

// DefaultPollInterval is how often WaitMined asks for a receipt.
const DefaultPollInterval = 2 * time.Second

// ErrReverted is returned when a mined transaction has status 0.
var ErrReverted = errors.New("transaction reverted")

// ReceiptBackend fetches transaction receipts.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WaitMined polls for the receipt of hash until it is mined or ctx ends.
// A reverted transaction returns its receipt together with ErrReverted.
func WaitMined(ctx context.Context, b ReceiptBackend, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("transaction %s not mined: %w", hash.Hex(), contextErr(ctx, err))
		}

		receipt, err := b.TransactionReceipt(ctx, hash)
		switch {
		case errors.Is(err, ethereum.NotFound):
			continue // still pending
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("transaction %s not mined: %w", hash.Hex(), ctx.Err())
			}
			return nil, fmt.Errorf("fetching receipt: %w", err)
		case receipt.Status == types.ReceiptStatusFailed:
			return receipt, fmt.Errorf("%w (hash: %s)", ErrReverted, hash.Hex())
		default:
			return receipt, nil
		}
	}
}

// contextErr prefers the context's own error: rate.Limiter reports a
// deadline that would be exceeded before it actually is.
func contextErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := ctx.Deadline(); ok {
		return context.DeadlineExceeded
	}
	return err
}

package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("no RPC endpoint configured")
	}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return c, nil
}

// Ping tests the endpoint and returns latency and the latest block number.
func Ping(ctx context.Context, url string) (latency time.Duration, blockNum uint64, err error) {
	c, err := Dial(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	defer c.Close()

	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	latency = time.Since(start)
	if err != nil {
		return latency, 0, err
	}
	return latency, blockNum, nil
}

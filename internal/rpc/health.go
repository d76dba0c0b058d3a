package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/Mohsinsiddi/greeter/internal/chain"
)

const pingTimeout = 5 * time.Second

// pingFunc is swapped in tests.
var pingFunc = chain.Ping

// HealthCheck pings url. A node is healthy when it answers within the ping
// timeout and, if tip > 0, is no more than staleBlockThreshold blocks behind.
func HealthCheck(ctx context.Context, url string, tip uint64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	latency, block, err := pingFunc(ctx, url)
	ep := Endpoint{
		URL:         url,
		Latency:     latency,
		BlockNumber: block,
		Healthy:     err == nil,
		Checked:     true,
	}
	if ep.Healthy && tip > block && tip-block > staleBlockThreshold {
		ep.Healthy = false
	}
	return ep
}

// Benchmark health-checks all urls in parallel, preserving order.
func Benchmark(ctx context.Context, urls []string) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = HealthCheck(ctx, u, 0)
		}()
	}
	wg.Wait()
	return out
}

// Best benchmarks urls and picks one with algo. A single URL is returned
// without being contacted.
func Best(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	if algo == AlgorithmFailover {
		// Failover keeps configured order; only the first reachable one matters.
		for _, u := range urls {
			if ep := HealthCheck(ctx, u, 0); ep.Healthy {
				return u, nil
			}
		}
		return "", ErrNoHealthyRPC
	}
	ep, err := NewPicker(algo).Pick(Benchmark(ctx, urls))
	if err != nil {
		return "", err
	}
	return ep.URL, nil
}

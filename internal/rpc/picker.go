package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Nodes more than this many blocks behind the tip are skipped.
	staleBlockThreshold = 3
	// The fastest winner is reused for this long.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm validates s. An empty string means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", fmt.Errorf("unknown RPC algorithm %q (want fastest, round-robin or failover)", s)
	}
}

// Endpoint is an RPC URL with what was measured about it.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool // meaningful only when Checked
	Checked     bool
}

// Picker chooses an endpoint according to its algorithm. It is safe for
// concurrent use and keeps round-robin position and the cached fastest
// winner between calls.
type Picker struct {
	algo Algorithm

	mu        sync.Mutex
	next      int
	cached    string
	cachedTil time.Time
	now       func() time.Time
}

// NewPicker creates a Picker.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Pick returns the chosen endpoint.
func (p *Picker) Pick(endpoints []Endpoint) (Endpoint, error) {
	candidates := eligible(endpoints)
	if len(candidates) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmRoundRobin:
		e := candidates[p.next%len(candidates)]
		p.next = (p.next + 1) % len(candidates)
		return e, nil
	case AlgorithmFailover:
		return candidates[0], nil
	default:
		return p.fastest(candidates)
	}
}

func (p *Picker) fastest(candidates []Endpoint) (Endpoint, error) {
	if p.cached != "" && p.now().Before(p.cachedTil) {
		for _, e := range candidates {
			if e.URL == p.cached {
				return e, nil
			}
		}
	}

	var tip uint64
	for _, e := range candidates {
		tip = max(tip, e.BlockNumber)
	}

	var (
		winner Endpoint
		found  bool
	)
	for _, e := range candidates {
		if tip-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if !found || faster(e, winner) {
			winner, found = e, true
		}
	}
	if !found {
		return Endpoint{}, ErrNoHealthyRPC
	}

	p.cached = winner.URL
	p.cachedTil = p.now().Add(cacheTTL)
	return winner, nil
}

// faster prefers lower latency, then the higher block.
func faster(a, b Endpoint) bool {
	if a.Latency != b.Latency {
		return a.Latency < b.Latency
	}
	return a.BlockNumber > b.BlockNumber
}

// eligible keeps healthy endpoints in order. Unchecked endpoints are
// candidates; a checked one must be healthy.
func eligible(endpoints []Endpoint) []Endpoint {
	out := make([]Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if e.Checked && !e.Healthy {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Package greeter holds the wallet-gated interaction flow for the Greeter
// contract: the state a front-end renders and the ordered calls that change it.
package greeter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/greeter/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
)

// State is a snapshot of what the presentation layer renders.
type State struct {
	Greeting        string      // typed input, or the last value read from the contract
	Submitting      bool        // a setGreeting submission is in flight
	WalletAvailable bool        // fixed at construction
	TxHash          common.Hash // last submitted setGreeting, zero if none
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger used for swallowed and informational events.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// WithMetrics instruments reads, writes and confirmations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}

type subscription struct {
	id int
	fn func(State)
}

// Flow owns the greeting state and sequences calls to the wallet.
type Flow struct {
	wallet  Wallet
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	state  State
	subs   []subscription
	nextID int
}

// New probes for a wallet once and returns the flow. The availability flag
// is never re-evaluated.
func New(probe Probe, opts ...Option) *Flow {
	f := &Flow{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(f)
	}

	w, err := detect(probe)
	switch {
	case err != nil:
		f.log.Debug("wallet probe failed", "err", err)
	case w == nil:
		f.log.Debug("no wallet detected")
	default:
		f.wallet = w
		f.state.WalletAvailable = true
	}
	return f
}

func detect(probe Probe) (w Wallet, err error) {
	if probe == nil {
		return nil, ErrWalletUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("wallet probe panicked: %v", r)
		}
	}()
	return probe()
}

// State returns the current snapshot.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn to receive every new snapshot. fn runs on the
// goroutine that caused the change. The returned func unsubscribes.
func (f *Flow) Subscribe(fn func(State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.subs = append(f.subs, subscription{id: id, fn: fn})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

// OnInputChange replaces the greeting with value.
func (f *Flow) OnInputChange(value string) {
	f.update(func(s *State) { s.Greeting = value })
}

// FetchGreeting reads the contract's greeting. On success it replaces the
// greeting and clears Submitting. On failure the error is logged and
// returned and the state is left as it was.
func (f *Flow) FetchGreeting(ctx context.Context) error {
	if !f.available() {
		f.log.Warn("fetch skipped", "err", ErrWalletUnavailable)
		return ErrWalletUnavailable
	}

	greeting, err := f.read(ctx)
	f.metrics.ObserveRead(err)
	if err != nil {
		f.log.Error("fetching greeting", "err", err)
		return err
	}

	f.update(func(s *State) {
		s.Greeting = greeting
		s.Submitting = false
	})
	return nil
}

func (f *Flow) read(ctx context.Context) (string, error) {
	r, err := f.wallet.ReadContract(ctx)
	if err != nil {
		return "", fmt.Errorf("connecting to contract: %w", err)
	}
	greeting, err := r.Greet(ctx)
	if err != nil {
		return "", fmt.Errorf("calling greet: %w", err)
	}
	return greeting, nil
}

// SetGreeting writes the current greeting to the contract, waits for the
// transaction to be mined and reads the value back.
//
// An empty greeting is a no-op returning ErrEmptyGreeting. The input is
// cleared as soon as the transaction is broadcast, before it is mined.
// Submitting is reset on every return path. A failed read-back is logged
// and does not fail the call.
func (f *Flow) SetGreeting(ctx context.Context) (err error) {
	text := f.State().Greeting
	if text == "" {
		return ErrEmptyGreeting
	}
	if !f.available() {
		return ErrWalletUnavailable
	}

	f.update(func(s *State) { s.Submitting = true })
	defer func() {
		f.metrics.ObserveWrite(err)
		f.update(func(s *State) { s.Submitting = false })
	}()

	if _, err := f.wallet.RequestAccounts(ctx); err != nil {
		return fmt.Errorf("requesting accounts: %w", err)
	}

	w, err := f.wallet.SignContract(ctx)
	if err != nil {
		return fmt.Errorf("connecting signer: %w", err)
	}

	tx, err := w.SetGreeting(ctx, text)
	if err != nil {
		return fmt.Errorf("sending setGreeting: %w", err)
	}
	f.update(func(s *State) {
		s.Greeting = ""
		s.TxHash = tx.Hash()
	})
	f.log.Info("setGreeting broadcast", "tx", tx.Hash().Hex())

	start := time.Now()
	if err := tx.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}
	f.metrics.ObserveConfirm(time.Since(start))
	f.log.Info("setGreeting mined", "tx", tx.Hash().Hex(), "took", time.Since(start).Round(time.Millisecond))

	_ = f.FetchGreeting(ctx) // logged inside
	return nil
}

func (f *Flow) available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.WalletAvailable
}

// update applies mutate under the lock and publishes the new snapshot if
// anything changed. Subscribers are called without the lock held.
func (f *Flow) update(mutate func(*State)) {
	f.mu.Lock()
	before := f.state
	mutate(&f.state)
	after := f.state
	if before.Submitting != after.Submitting {
		// Under the lock so racing updates cannot leave the gauge stale.
		f.metrics.SetSubmitting(after.Submitting)
	}
	subs := append([]subscription(nil), f.subs...)
	f.mu.Unlock()

	if before == after {
		return
	}
	for _, s := range subs {
		s.fn(after)
	}
}

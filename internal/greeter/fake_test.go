package greeter

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var errRejected = errors.New("user rejected the request")

// fakeWallet is an in-memory Greeter contract behind a wallet capability.
type fakeWallet struct {
	mu sync.Mutex

	stored     string
	accountErr error
	signErr    error
	readErr    error
	sendErr    error
	waitErr    error

	// waitGate, when set, blocks Pending.Wait until closed.
	waitGate chan struct{}
	// waiting is closed when Wait is entered.
	waiting chan struct{}

	calls []string
}

func newFakeWallet(stored string) *fakeWallet {
	return &fakeWallet{stored: stored}
}

func (w *fakeWallet) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *fakeWallet) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	w.record("requestAccounts")
	if w.accountErr != nil {
		return nil, w.accountErr
	}
	return []common.Address{common.HexToAddress("0x1")}, nil
}

func (w *fakeWallet) ReadContract(ctx context.Context) (Reader, error) {
	w.record("readContract")
	return fakeReader{w}, nil
}

func (w *fakeWallet) SignContract(ctx context.Context) (Writer, error) {
	w.record("signContract")
	if w.signErr != nil {
		return nil, w.signErr
	}
	return fakeWriter{w}, nil
}

type fakeReader struct{ w *fakeWallet }

func (r fakeReader) Greet(ctx context.Context) (string, error) {
	r.w.record("greet")
	if r.w.readErr != nil {
		return "", r.w.readErr
	}
	r.w.mu.Lock()
	defer r.w.mu.Unlock()
	return r.w.stored, nil
}

type fakeWriter struct{ w *fakeWallet }

func (wr fakeWriter) SetGreeting(ctx context.Context, text string) (Pending, error) {
	wr.w.record("setGreeting:" + text)
	if wr.w.sendErr != nil {
		return nil, wr.w.sendErr
	}
	return &fakePending{w: wr.w, text: text, hash: common.HexToHash("0xabc")}, nil
}

type fakePending struct {
	w    *fakeWallet
	text string
	hash common.Hash
}

func (p *fakePending) Hash() common.Hash { return p.hash }

func (p *fakePending) Wait(ctx context.Context) error {
	p.w.record("wait")
	if p.w.waiting != nil {
		close(p.w.waiting)
	}
	if p.w.waitGate != nil {
		select {
		case <-p.w.waitGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.w.waitErr != nil {
		return p.w.waitErr
	}
	p.w.mu.Lock()
	p.w.stored = p.text
	p.w.mu.Unlock()
	return nil
}

func probeFor(w Wallet) Probe {
	return func() (Wallet, error) { return w, nil }
}

package greeter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/greeter/internal/metrics"
)

// ---------------------------------------------------------------------------
// Initialization
// ---------------------------------------------------------------------------

func TestNewWalletPresent(t *testing.T) {
	f := New(probeFor(newFakeWallet("")))
	assert.True(t, f.State().WalletAvailable)
	assert.False(t, f.State().Submitting)
	assert.Empty(t, f.State().Greeting)
}

func TestNewWalletAbsent(t *testing.T) {
	f := New(func() (Wallet, error) { return nil, nil })
	assert.False(t, f.State().WalletAvailable)
}

func TestNewProbeErrorIsAbsent(t *testing.T) {
	f := New(func() (Wallet, error) { return nil, errors.New("no provider") })
	assert.False(t, f.State().WalletAvailable)
}

func TestNewProbePanicIsAbsent(t *testing.T) {
	f := New(func() (Wallet, error) { panic("boom") })
	assert.False(t, f.State().WalletAvailable)
}

func TestNewNilProbe(t *testing.T) {
	f := New(nil)
	assert.False(t, f.State().WalletAvailable)
}

func TestProbeCalledOnce(t *testing.T) {
	calls := 0
	w := newFakeWallet("hi")
	f := New(func() (Wallet, error) {
		calls++
		return w, nil
	})

	require.NoError(t, f.FetchGreeting(context.Background()))
	f.OnInputChange("x")
	require.NoError(t, f.SetGreeting(context.Background()))

	assert.Equal(t, 1, calls)
	assert.True(t, f.State().WalletAvailable)
}

// ---------------------------------------------------------------------------
// OnInputChange
// ---------------------------------------------------------------------------

func TestOnInputChangeOverwrites(t *testing.T) {
	f := New(probeFor(newFakeWallet("")))
	f.OnInputChange("hel")
	f.OnInputChange("hello")
	assert.Equal(t, "hello", f.State().Greeting)

	f.OnInputChange("")
	assert.Empty(t, f.State().Greeting)
}

func TestOnInputChangeWithoutWallet(t *testing.T) {
	f := New(nil)
	f.OnInputChange("typed")
	assert.Equal(t, "typed", f.State().Greeting)
}

// ---------------------------------------------------------------------------
// FetchGreeting
// ---------------------------------------------------------------------------

func TestFetchGreetingSuccess(t *testing.T) {
	f := New(probeFor(newFakeWallet("hi there")))
	require.NoError(t, f.FetchGreeting(context.Background()))

	s := f.State()
	assert.Equal(t, "hi there", s.Greeting)
	assert.False(t, s.Submitting)
}

func TestFetchGreetingOverwritesInput(t *testing.T) {
	f := New(probeFor(newFakeWallet("on chain")))
	f.OnInputChange("typed but not sent")
	require.NoError(t, f.FetchGreeting(context.Background()))
	assert.Equal(t, "on chain", f.State().Greeting)
}

func TestFetchGreetingFailureLeavesState(t *testing.T) {
	w := newFakeWallet("x")
	w.readErr = errors.New("execution reverted")
	f := New(probeFor(w))
	f.OnInputChange("draft")
	f.state.Submitting = true // in-flight submission

	err := f.FetchGreeting(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, w.readErr)

	s := f.State()
	assert.Equal(t, "draft", s.Greeting)
	assert.True(t, s.Submitting, "a failed read must not touch Submitting")
}

func TestFetchGreetingClearsSubmittingOnSuccess(t *testing.T) {
	f := New(probeFor(newFakeWallet("v")))
	f.state.Submitting = true
	require.NoError(t, f.FetchGreeting(context.Background()))
	assert.False(t, f.State().Submitting)
}

func TestFetchGreetingWalletAbsent(t *testing.T) {
	f := New(nil)
	err := f.FetchGreeting(context.Background())
	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Equal(t, State{}, f.State())
}

// ---------------------------------------------------------------------------
// SetGreeting
// ---------------------------------------------------------------------------

func TestSetGreetingEmptyIsNoop(t *testing.T) {
	w := newFakeWallet("old")
	f := New(probeFor(w))

	var published int
	f.Subscribe(func(State) { published++ })

	before := f.State()
	err := f.SetGreeting(context.Background())
	assert.ErrorIs(t, err, ErrEmptyGreeting)
	assert.Equal(t, before, f.State())
	assert.Empty(t, w.Calls(), "no external calls for an empty greeting")
	assert.Zero(t, published)
}

func TestSetGreetingWalletAbsent(t *testing.T) {
	f := New(nil)
	f.OnInputChange("hello")
	err := f.SetGreeting(context.Background())
	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Equal(t, "hello", f.State().Greeting)
	assert.False(t, f.State().Submitting)
}

func TestSetGreetingCallOrder(t *testing.T) {
	w := newFakeWallet("old")
	f := New(probeFor(w))
	f.OnInputChange("hello")

	require.NoError(t, f.SetGreeting(context.Background()))
	assert.Equal(t, []string{
		"requestAccounts",
		"signContract",
		"setGreeting:hello",
		"wait",
		"readContract",
		"greet",
	}, w.Calls())
}

func TestSetGreetingSuccess(t *testing.T) {
	w := newFakeWallet("old")
	f := New(probeFor(w))
	f.OnInputChange("hello")

	require.NoError(t, f.SetGreeting(context.Background()))

	s := f.State()
	assert.Equal(t, "hello", s.Greeting)
	assert.False(t, s.Submitting)
	assert.Equal(t, common.HexToHash("0xabc"), s.TxHash)
}

func TestSetGreetingReadAfterWrite(t *testing.T) {
	w := newFakeWallet("old")
	f := New(probeFor(w))
	f.OnInputChange("hello")
	require.NoError(t, f.SetGreeting(context.Background()))
	afterWrite := f.State()

	require.NoError(t, f.FetchGreeting(context.Background()))
	assert.Equal(t, afterWrite, f.State())
}

func TestSetGreetingClearsInputBeforeConfirmation(t *testing.T) {
	w := newFakeWallet("old")
	w.waitGate = make(chan struct{})
	w.waiting = make(chan struct{})
	f := New(probeFor(w))
	f.OnInputChange("hello")

	done := make(chan error, 1)
	go func() { done <- f.SetGreeting(context.Background()) }()

	select {
	case <-w.waiting:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait was never called")
	}

	s := f.State()
	assert.Empty(t, s.Greeting, "input must be cleared before the tx is mined")
	assert.True(t, s.Submitting)

	close(w.waitGate)
	require.NoError(t, <-done)
	assert.Equal(t, "hello", f.State().Greeting)
}

func TestSetGreetingClearsInputEvenIfConfirmationFails(t *testing.T) {
	w := newFakeWallet("old")
	w.waitErr = errors.New("transaction reverted")
	f := New(probeFor(w))
	f.OnInputChange("hello")

	err := f.SetGreeting(context.Background())
	assert.ErrorIs(t, err, w.waitErr)
	assert.Empty(t, f.State().Greeting)
	assert.False(t, f.State().Submitting)
}

// A rejected account request must leave Submitting false. Earlier behaviour
// left it stuck at true; the deferred reset in SetGreeting is intentional.
func TestSetGreetingAccountRejectedResetsSubmitting(t *testing.T) {
	w := newFakeWallet("old")
	w.accountErr = errRejected
	f := New(probeFor(w))
	f.OnInputChange("hello")

	err := f.SetGreeting(context.Background())
	assert.ErrorIs(t, err, errRejected)

	s := f.State()
	assert.False(t, s.Submitting, "Submitting must not get stuck after a rejection")
	assert.Equal(t, "hello", s.Greeting, "nothing was sent so the input is kept")
	assert.Equal(t, []string{"requestAccounts"}, w.Calls())
}

func TestSetGreetingSignerError(t *testing.T) {
	w := newFakeWallet("old")
	w.signErr = errors.New("watch-only")
	f := New(probeFor(w))
	f.OnInputChange("hello")

	err := f.SetGreeting(context.Background())
	assert.ErrorIs(t, err, w.signErr)
	assert.False(t, f.State().Submitting)
}

func TestSetGreetingSendError(t *testing.T) {
	w := newFakeWallet("old")
	w.sendErr = errors.New("insufficient funds")
	f := New(probeFor(w))
	f.OnInputChange("hello")

	err := f.SetGreeting(context.Background())
	assert.ErrorIs(t, err, w.sendErr)
	assert.Equal(t, "hello", f.State().Greeting)
	assert.False(t, f.State().Submitting)
}

func TestSetGreetingReadBackFailureIsNotAnError(t *testing.T) {
	w := newFakeWallet("old")
	w.readErr = errors.New("rpc down")
	f := New(probeFor(w))
	f.OnInputChange("hello")

	require.NoError(t, f.SetGreeting(context.Background()))
	s := f.State()
	assert.Empty(t, s.Greeting)
	assert.False(t, s.Submitting)
}

func TestSetGreetingContextCancelled(t *testing.T) {
	w := newFakeWallet("old")
	w.waitGate = make(chan struct{})
	f := New(probeFor(w))
	f.OnInputChange("hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.SetGreeting(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.State().Submitting)
}

// ---------------------------------------------------------------------------
// Subscribe
// ---------------------------------------------------------------------------

func TestSubscribeSeesSubmittingTransitions(t *testing.T) {
	f := New(probeFor(newFakeWallet("old")))
	f.OnInputChange("hello")

	var mu sync.Mutex
	var seen []State
	f.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	require.NoError(t, f.SetGreeting(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.True(t, seen[0].Submitting)
	assert.Equal(t, "hello", seen[0].Greeting)
	assert.True(t, seen[1].Submitting)
	assert.Empty(t, seen[1].Greeting)
	assert.False(t, seen[2].Submitting)
	assert.Equal(t, "hello", seen[2].Greeting)
}

func TestSubscribeSkipsUnchangedState(t *testing.T) {
	f := New(nil)
	n := 0
	f.Subscribe(func(State) { n++ })
	f.OnInputChange("a")
	f.OnInputChange("a")
	assert.Equal(t, 1, n)
}

func TestUnsubscribe(t *testing.T) {
	f := New(nil)
	a, b := 0, 0
	cancelA := f.Subscribe(func(State) { a++ })
	f.Subscribe(func(State) { b++ })

	f.OnInputChange("1")
	cancelA()
	f.OnInputChange("2")

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestSubscriberMayReadState(t *testing.T) {
	f := New(nil)
	var got string
	f.Subscribe(func(State) { got = f.State().Greeting })
	f.OnInputChange("no deadlock")
	assert.Equal(t, "no deadlock", got)
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func submittingGauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "greeter_submitting" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("greeter_submitting not registered")
	return 0
}

func TestSubmittingGaugeFollowsStateUnderContention(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := New(probeFor(newFakeWallet("old")), WithMetrics(metrics.New(reg)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.OnInputChange("hello")
			_ = f.SetGreeting(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = f.FetchGreeting(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, f.State().Submitting)
	assert.Equal(t, 0.0, submittingGauge(t, reg))

	w := newFakeWallet("old")
	w.waitGate = make(chan struct{})
	w.waiting = make(chan struct{})
	reg = prometheus.NewRegistry()
	f = New(probeFor(w), WithMetrics(metrics.New(reg)))
	f.OnInputChange("hello")

	done := make(chan error, 1)
	go func() { done <- f.SetGreeting(context.Background()) }()
	<-w.waiting
	assert.Equal(t, 1.0, submittingGauge(t, reg))

	close(w.waitGate)
	require.NoError(t, <-done)
	assert.Equal(t, 0.0, submittingGauge(t, reg))
}

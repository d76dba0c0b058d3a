package integration_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/greeter/internal/chain"
	"github.com/Mohsinsiddi/greeter/internal/contract"
	"github.com/Mohsinsiddi/greeter/internal/greeter"
	"github.com/Mohsinsiddi/greeter/internal/rpc"
	"github.com/Mohsinsiddi/greeter/internal/wallet"
)

// Hardhat/Anvil test account #0. Never fund on mainnet.
const (
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func dial(ctx context.Context, endpoints []string) (wallet.Backend, error) {
	url, err := rpc.Best(ctx, endpoints, rpc.AlgorithmFastest)
	if err != nil {
		return nil, err
	}
	return chain.Dial(ctx, url)
}

func newFlow(t *testing.T, url string, approver wallet.Approver) *greeter.Flow {
	t.Helper()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(wallet.NewInMemoryKeystore()))
	require.NoError(t, mgr.AddWithKey("dev", devKey))

	return greeter.New(wallet.Detect(wallet.DetectConfig{
		Manager:      mgr,
		Contract:     common.HexToAddress(contract.DefaultAddress),
		Endpoints:    []string{url},
		Dial:         dial,
		Approver:     approver,
		PollInterval: 10 * time.Millisecond,
	}))
}

func TestFetchOverJSONRPC(t *testing.T) {
	_, srv := newFakeNode(t, "Hello, Hardhat!")
	flow := newFlow(t, srv.URL, nil)

	require.NoError(t, flow.FetchGreeting(context.Background()))
	assert.Equal(t, "Hello, Hardhat!", flow.State().Greeting)
}

func TestSetGreetingOverJSONRPC(t *testing.T) {
	node, srv := newFakeNode(t, "Hello, Hardhat!")
	node.pendingPolls = 2
	flow := newFlow(t, srv.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	flow.OnInputChange("Hola, mundo!")
	require.NoError(t, flow.SetGreeting(ctx))

	st := flow.State()
	assert.Equal(t, "Hola, mundo!", st.Greeting)
	assert.False(t, st.Submitting)

	require.Len(t, node.sent, 1)
	tx := node.sent[0]
	assert.Equal(t, tx.Hash(), st.TxHash)
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, big.NewInt(31337), tx.ChainId())
	assert.Equal(t, uint64(0x9c40), tx.Gas())

	from, err := types.Sender(types.NewLondonSigner(big.NewInt(31337)), tx)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(devAddress), from)

	assert.Equal(t, 3, node.calls("eth_getTransactionReceipt"))
}

func TestSetGreetingReverted(t *testing.T) {
	node, srv := newFakeNode(t, "unchanged")
	node.revert = true
	flow := newFlow(t, srv.URL, nil)

	flow.OnInputChange("boom")
	err := flow.SetGreeting(context.Background())
	assert.ErrorIs(t, err, chain.ErrReverted)

	st := flow.State()
	assert.Equal(t, "", st.Greeting, "input was cleared at broadcast")
	assert.False(t, st.Submitting)
	assert.Equal(t, 0, node.calls("eth_call"), "no read-back after a failed wait")
}

func TestSetGreetingRejectedSendsNothing(t *testing.T) {
	node, srv := newFakeNode(t, "Hello")
	flow := newFlow(t, srv.URL, func(context.Context, common.Address) (bool, error) { return false, nil })

	flow.OnInputChange("nope")
	assert.ErrorIs(t, flow.SetGreeting(context.Background()), wallet.ErrUserRejected)
	assert.Empty(t, node.sent)
	assert.Equal(t, 0, node.calls("eth_chainId"))
}

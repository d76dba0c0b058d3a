package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcMock creates a JSON-RPC server answering methods from responses.
// Unknown methods get a -32601 error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			ID     json.RawMessage `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
		})
	}))
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryGetByName(t *testing.T) {
	r := NewRegistry()
	n, err := r.GetByName("sepolia")
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), n.ChainID)
	assert.True(t, n.Testnet)
	assert.NotEmpty(t, n.RPCs)
}

func TestRegistryGetByNameCaseInsensitive(t *testing.T) {
	n, err := NewRegistry().GetByName("  Ropsten ")
	require.NoError(t, err)
	assert.Equal(t, "ropsten", n.Name)
	assert.True(t, n.Retired)
	assert.Empty(t, n.RPCs)
}

func TestRegistryGetByNameUnknown(t *testing.T) {
	_, err := NewRegistry().GetByName("solana")
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestRegistryGetByChainID(t *testing.T) {
	n, err := NewRegistry().GetByChainID(31337)
	require.NoError(t, err)
	assert.Equal(t, "localhost", n.Name)

	_, err = NewRegistry().GetByChainID(999999)
	assert.ErrorIs(t, err, ErrNetworkNotFound)
}

func TestRegistryAllSortedAndUnique(t *testing.T) {
	all := NewRegistry().All()
	require.NotEmpty(t, all)
	seen := map[string]bool{}
	for i, n := range all {
		assert.False(t, seen[n.Name], "duplicate network %s", n.Name)
		seen[n.Name] = true
		if i > 0 {
			assert.Less(t, all[i-1].Name, n.Name)
		}
	}
}

// ---------------------------------------------------------------------------
// Explorer links
// ---------------------------------------------------------------------------

func TestAddressURL(t *testing.T) {
	n, _ := NewRegistry().GetByName("ropsten")
	assert.Equal(t,
		"https://ropsten.etherscan.io/address/0x693F885F0CF1adDDD801a252B909AB91Bfd23B4f",
		n.AddressURL("0x693F885F0CF1adDDD801a252B909AB91Bfd23B4f"))
}

func TestTxURLTrimsTrailingSlash(t *testing.T) {
	n := &Network{Explorer: "https://example.org/"}
	assert.Equal(t, "https://example.org/tx/0xabc", n.TxURL("0xabc"))
}

func TestExplorerURLEmpty(t *testing.T) {
	local, _ := NewRegistry().GetByName("localhost")
	assert.Empty(t, local.AddressURL("0x1"))

	var nilNet *Network
	assert.Empty(t, nilNet.TxURL("0x1"))

	n := &Network{Explorer: "https://example.org"}
	assert.Empty(t, n.TxURL(""))
}

// ---------------------------------------------------------------------------
// Dial / Ping
// ---------------------------------------------------------------------------

func TestDialEmptyURL(t *testing.T) {
	_, err := Dial(context.Background(), "")
	assert.Error(t, err)
}

func TestPingReturnsBlock(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x1b4"})
	defer srv.Close()

	latency, block, err := Ping(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, uint64(436), block)
	assert.Greater(t, latency, time.Duration(0))
}

func TestPingRPCError(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{})
	defer srv.Close()

	_, _, err := Ping(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestPingUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := Ping(ctx, "http://127.0.0.1:1")
	assert.Error(t, err)
}

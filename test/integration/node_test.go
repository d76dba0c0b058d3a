package integration_test

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeNode is a JSON-RPC server holding one Greeter contract. Transactions
// are mined on the first receipt poll after pendingPolls misses.
type fakeNode struct {
	t            *testing.T
	mu           sync.Mutex
	greeting     string
	sent         []*types.Transaction
	polls        int
	pendingPolls int
	revert       bool
	methods      []string
}

func newFakeNode(t *testing.T, greeting string) (*fakeNode, *httptest.Server) {
	t.Helper()
	n := &fakeNode{t: t, greeting: greeting}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, srv
}

func stringArgs() abi.Arguments {
	typ, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: typ}}
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.methods = append(n.methods, req.Method)
	result, rpcErr := n.handle(req.Method, req.Params)
	n.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != "" {
		resp["error"] = map[string]any{"code": -32000, "message": rpcErr}
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *fakeNode) handle(method string, params []json.RawMessage) (any, string) {
	switch method {
	case "eth_chainId":
		return "0x7a69", "" // 31337
	case "eth_blockNumber":
		return "0x10", ""
	case "eth_getTransactionCount":
		return hexutil.Uint64(len(n.sent)), ""
	case "eth_gasPrice":
		return "0x3b9aca00", ""
	case "eth_maxPriorityFeePerGas":
		return "0x5f5e100", ""
	case "eth_estimateGas":
		return "0x9c40", ""
	case "eth_call":
		out, err := stringArgs().Pack(n.greeting)
		if err != nil {
			return nil, err.Error()
		}
		return hexutil.Bytes(out), ""
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		if err := json.Unmarshal(params[0], &raw); err != nil {
			return nil, err.Error()
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, err.Error()
		}
		n.sent = append(n.sent, tx)
		return tx.Hash(), ""
	case "eth_getTransactionReceipt":
		var hash common.Hash
		if err := json.Unmarshal(params[0], &hash); err != nil {
			return nil, err.Error()
		}
		return n.receipt(hash)
	}
	return nil, "method not supported: " + method
}

func (n *fakeNode) receipt(hash common.Hash) (any, string) {
	for _, tx := range n.sent {
		if tx.Hash() != hash {
			continue
		}
		n.polls++
		if n.polls <= n.pendingPolls {
			return nil, ""
		}
		status := types.ReceiptStatusSuccessful
		if n.revert {
			status = types.ReceiptStatusFailed
		} else {
			args, err := stringArgs().Unpack(tx.Data()[4:])
			if err != nil {
				return nil, err.Error()
			}
			n.greeting = args[0].(string)
		}
		return &types.Receipt{
			Type:              tx.Type(),
			Status:            status,
			CumulativeGasUsed: 40_000,
			GasUsed:           40_000,
			Logs:              []*types.Log{},
			TxHash:            hash,
			BlockNumber:       big.NewInt(17),
		}, ""
	}
	return nil, ""
}

func (n *fakeNode) calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.methods {
		if m == method {
			c++
		}
	}
	return c
}

package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/greeter/internal/chain"
	"github.com/Mohsinsiddi/greeter/internal/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Errors.
var (
	ErrNoSigner = errors.New("greeter handle is read-only")
	ErrNoCode   = errors.New("no contract code at address (wrong network?)")
)

// Backend is the JSON-RPC surface the binding needs. *ethclient.Client
// satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	chain.ReceiptBackend
}

// TxSigner signs transactions for one account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Option configures a Greeter.
type Option func(*Greeter)

// WithPollInterval sets how often pending transactions poll for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(g *Greeter) { g.pollInterval = d }
}

// Greeter is a typed handle on a deployed Greeter contract.
type Greeter struct {
	address      common.Address
	backend      Backend
	signer       TxSigner
	chainID      *big.Int
	pollInterval time.Duration
}

// NewGreeter returns a read-only handle.
func NewGreeter(address common.Address, backend Backend, opts ...Option) *Greeter {
	g := &Greeter{
		address:      address,
		backend:      backend,
		pollInterval: chain.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithSigner returns a copy of g that signs with s for chainID.
func (g *Greeter) WithSigner(s TxSigner, chainID *big.Int) *Greeter {
	cp := *g
	cp.signer = s
	cp.chainID = chainID
	return &cp
}

// Address returns the contract address.
func (g *Greeter) Address() common.Address {
	return g.address
}

// Greet calls greet() and returns the stored greeting.
func (g *Greeter) Greet(ctx context.Context) (string, error) {
	data, err := greeterABI.Pack(methodGreet)
	if err != nil {
		return "", fmt.Errorf("encoding call: %w", err)
	}

	out, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &g.address, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("contract call failed: %w", err)
	}
	if len(out) == 0 {
		return "", ErrNoCode
	}

	values, err := greeterABI.Unpack(methodGreet, out)
	if err != nil {
		return "", fmt.Errorf("decoding result: %w", err)
	}
	greeting, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("decoding result: unexpected type %T", values[0])
	}
	return greeting, nil
}

// SetGreeting signs and broadcasts setGreeting(text). It returns as soon as
// the node accepts the transaction.
func (g *Greeter) SetGreeting(ctx context.Context, text string) (*PendingTx, error) {
	if g.signer == nil {
		return nil, ErrNoSigner
	}

	data, err := greeterABI.Pack(methodSetGreeting, text)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}

	from := g.signer.Address()

	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &g.address, Data: data})
	if err != nil {
		gas = config.GasLimitContractCall // fallback
	}

	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	tip, err := g.backend.SuggestGasTipCap(ctx)
	if err != nil {
		tip = gasPrice
	}
	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))
	if feeCap.Cmp(tip) < 0 {
		feeCap = new(big.Int).Set(tip)
	}

	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   g.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &g.address,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signed, err := g.signer.SignTx(tx, g.chainID)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", err)
	}

	return &PendingTx{
		hash:     signed.Hash(),
		backend:  g.backend,
		interval: g.pollInterval,
	}, nil
}

// PendingTx is a broadcast transaction.
type PendingTx struct {
	hash     common.Hash
	backend  chain.ReceiptBackend
	interval time.Duration
	receipt  *types.Receipt
}

// Hash returns the transaction hash.
func (p *PendingTx) Hash() common.Hash {
	return p.hash
}

// Wait blocks until the transaction is mined, reverts or ctx ends.
func (p *PendingTx) Wait(ctx context.Context) error {
	r, err := chain.WaitMined(ctx, p.backend, p.hash, p.interval)
	p.receipt = r
	return err
}

// Receipt returns the receipt fetched by Wait, or nil.
func (p *PendingTx) Receipt() *types.Receipt {
	return p.receipt
}

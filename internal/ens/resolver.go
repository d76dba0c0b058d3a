package ens

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ENS registry address, the same on Ethereum mainnet, Sepolia and Holesky.
var registryAddr = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// Function selectors.
var (
	selResolver = []byte{0x01, 0x78, 0xb8, 0xbf} // resolver(bytes32)
	selAddr     = []byte{0x3b, 0x3b, 0x57, 0xde} // addr(bytes32)
)

// Errors.
var (
	ErrNoResolver = errors.New("no resolver set")
	ErrNoAddress  = errors.New("no address record")
)

// Caller runs eth_call. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x") && !strings.ContainsAny(s, " /:")
}

// Resolve resolves an ENS name to an address: the registry gives the
// resolver, the resolver gives the addr record.
func Resolve(ctx context.Context, c Caller, name string) (common.Address, error) {
	node := Namehash(strings.ToLower(strings.TrimSpace(name)))

	resolver, err := callAddress(ctx, c, registryAddr, selResolver, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w for %q", ErrNoResolver, name)
	}

	addr, err := callAddress(ctx, c, resolver, selAddr, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w for %q", ErrNoAddress, name)
	}
	return addr, nil
}

func callAddress(ctx context.Context, c Caller, to common.Address, selector []byte, node common.Hash) (common.Address, error) {
	data := append(append([]byte{}, selector...), node.Bytes()...)
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, nil // no contract there
	}
	if len(out) < 32 {
		return common.Address{}, fmt.Errorf("short result (%d bytes)", len(out))
	}
	return common.BytesToAddress(out[12:32]), nil
}

// Namehash implements the EIP-137 namehash:
//
//	namehash("") = 0x00...00
//	namehash("eth") = keccak256(namehash("") + keccak256("eth"))
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(append(node.Bytes(), labelHash...)))
	}
	return node
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

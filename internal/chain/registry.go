package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the metadata needed to reach one EVM network.
type Network struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ChainID     int64    `json:"chain_id"`
	Currency    string   `json:"currency"`
	RPCs        []string `json:"rpcs"`
	Explorer    string   `json:"explorer,omitempty"`
	Testnet     bool     `json:"testnet"`
	// Retired networks are kept so old deployments can still be named,
	// but their public endpoints are gone.
	Retired bool `json:"retired,omitempty"`
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of built-in networks.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network sorted by name.
func (r *Registry) All() []Network {
	out := append([]Network(nil), r.networks...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetByName finds a network by its slug (e.g. "sepolia").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, Currency: "ETH",
			RPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer: "https://etherscan.io",
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, Currency: "ETH", Testnet: true,
			RPCs:     []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co", "https://ethereum-sepolia-rpc.publicnode.com"},
			Explorer: "https://sepolia.etherscan.io",
		},
		{
			Name: "holesky", DisplayName: "Holesky", ChainID: 17000, Currency: "ETH", Testnet: true,
			RPCs:     []string{"https://ethereum-holesky-rpc.publicnode.com", "https://holesky.drpc.org"},
			Explorer: "https://holesky.etherscan.io",
		},
		{
			Name: "ropsten", DisplayName: "Ropsten", ChainID: 3, Currency: "ETH", Testnet: true, Retired: true,
			Explorer: "https://ropsten.etherscan.io",
		},
		{
			Name: "localhost", DisplayName: "Hardhat (local)", ChainID: 31337, Currency: "ETH", Testnet: true,
			RPCs: []string{"http://127.0.0.1:8545"},
		},
	}
}

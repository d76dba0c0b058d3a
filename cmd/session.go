package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/greeter/internal/chain"
	"github.com/Mohsinsiddi/greeter/internal/config"
	"github.com/Mohsinsiddi/greeter/internal/ens"
	"github.com/Mohsinsiddi/greeter/internal/greeter"
	"github.com/Mohsinsiddi/greeter/internal/metrics"
	"github.com/Mohsinsiddi/greeter/internal/rpc"
	"github.com/Mohsinsiddi/greeter/internal/wallet"
)

// session wires the configured network, contract and wallet into a flow.
type session struct {
	network   *chain.Network
	contract  common.Address
	endpoints []string
	flow      *greeter.Flow

	injected *wallet.Injected
	probeErr error // why the wallet is not available
}

// newSession builds the flow for the current config. approver decides
// account access; nil approves everything.
func newSession(ctx context.Context, approver wallet.Approver, m *metrics.Metrics) (*session, error) {
	network, err := chain.NewRegistry().GetByName(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (run `greeter network list`)", err, cfg.Network)
	}

	s := &session{
		network:   network,
		endpoints: cfg.RPCs(network.Name, network.RPCs),
	}
	if s.contract, err = s.resolveContract(ctx, cfg.ContractAddress); err != nil {
		return nil, err
	}

	detect := wallet.Detect(wallet.DetectConfig{
		Manager:      newWalletManager(),
		WalletName:   cfg.DefaultWallet,
		Contract:     s.contract,
		Endpoints:    s.endpoints,
		Dial:         dialBest,
		Approver:     approver,
		PollInterval: cfg.PollInterval(),
	})
	probe := func() (greeter.Wallet, error) {
		w, err := detect()
		if err != nil {
			s.probeErr = err
			return nil, err
		}
		s.injected = w.(*wallet.Injected)
		return w, nil
	}

	s.flow = greeter.New(probe,
		greeter.WithLogger(logger.With("network", network.Name)),
		greeter.WithMetrics(m),
	)
	return s, nil
}

// resolveContract accepts a hex address or an ENS name, which is resolved
// on the session's network.
func (s *session) resolveContract(ctx context.Context, value string) (common.Address, error) {
	if err := config.ValidateContract(value); err != nil {
		return common.Address{}, err
	}
	if !ens.IsName(value) {
		return common.HexToAddress(value), nil
	}
	client, err := dialBest(ctx, s.endpoints)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving %s: %w", value, err)
	}
	if c, ok := client.(interface{ Close() }); ok {
		defer c.Close()
	}
	addr, err := ens.Resolve(ctx, client, value)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolving %s: %w", value, err)
	}
	logger.Debug("contract resolved", "name", value, "address", addr.Hex())
	return addr, nil
}

// requireWallet turns an absent wallet into an actionable error.
func (s *session) requireWallet() error {
	if s.flow.State().WalletAvailable {
		return nil
	}
	switch {
	case errors.Is(s.probeErr, wallet.ErrNoEndpoint):
		return fmt.Errorf("%w: no RPC endpoint for %s (set one with `greeter config set rpc_url <url>`)",
			greeter.ErrWalletUnavailable, s.network.Name)
	default:
		return fmt.Errorf("%w: add a signing wallet with `greeter wallet add <name> --key <private-key>`",
			greeter.ErrWalletUnavailable)
	}
}

// account returns the address of the wallet in use, or "".
func (s *session) account() string {
	if s.injected == nil {
		return ""
	}
	return s.injected.Wallet().Address
}

func (s *session) close() {
	if s.injected != nil {
		s.injected.Close()
	}
}

// dialBest picks an endpoint with the configured algorithm and connects.
func dialBest(ctx context.Context, endpoints []string) (wallet.Backend, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}

	selectCtx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	url, err := rpc.Best(selectCtx, endpoints, algo)
	cancel()
	if err != nil {
		return nil, err
	}
	logger.Debug("rpc selected", "url", url, "algorithm", algo)

	client, err := chain.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// opContext bounds a contract operation by the configured confirm timeout.
func opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if d := cfg.ConfirmTimeoutDuration(); d > 0 {
		return context.WithTimeout(parent, d)
	}
	return context.WithCancel(parent)
}

package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/greeter/internal/contract"
	"github.com/Mohsinsiddi/greeter/internal/greeter"
)

// Errors returned by the injected provider.
var (
	ErrNoWallet      = errors.New("no default wallet configured")
	ErrNoEndpoint    = errors.New("no RPC endpoint configured for network")
	ErrWatchOnly     = errors.New("wallet is watch-only")
	ErrUserRejected  = errors.New("user rejected the request") // EIP-1193 code 4001
	ErrNotAuthorized = errors.New("account access not granted")
)

// Approver asks the user to expose account to the app. A nil Approver
// approves every request.
type Approver func(ctx context.Context, account common.Address) (bool, error)

// Backend is a contract backend that can also report its chain ID.
// *ethclient.Client satisfies it.
type Backend interface {
	contract.Backend
	ChainID(ctx context.Context) (*big.Int, error)
}

// DialFunc connects to one of the given endpoints.
type DialFunc func(ctx context.Context, endpoints []string) (Backend, error)

// DetectConfig describes where the injected provider gets its pieces.
type DetectConfig struct {
	Manager      *Manager
	WalletName   string // empty means the manager's default
	Contract     common.Address
	Endpoints    []string
	Dial         DialFunc
	Approver     Approver
	PollInterval time.Duration
}

// Detect returns the presence check for the injected provider. The wallet is
// present when the named (or default) wallet exists and at least one endpoint
// is known. Nothing is dialed and no permission is requested.
func Detect(cfg DetectConfig) greeter.Probe {
	return func() (greeter.Wallet, error) {
		if cfg.Manager == nil {
			return nil, ErrNoWallet
		}
		var w *Wallet
		if cfg.WalletName != "" {
			var err error
			if w, err = cfg.Manager.Get(cfg.WalletName); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrNoWallet, cfg.WalletName, err)
			}
		} else if w = cfg.Manager.Default(); w == nil {
			return nil, ErrNoWallet
		}
		if len(cfg.Endpoints) == 0 || cfg.Dial == nil {
			return nil, ErrNoEndpoint
		}
		return &Injected{cfg: cfg, wallet: w}, nil
	}
}

// Injected is the wallet capability handed to the greeter flow.
type Injected struct {
	cfg    DetectConfig
	wallet *Wallet

	mu       sync.Mutex
	backend  Backend
	approved bool
}

// Wallet returns the wallet the provider acts for.
func (p *Injected) Wallet() *Wallet {
	return p.wallet
}

// RequestAccounts asks for permission to use the wallet's account. Approval
// is remembered for the lifetime of p.
func (p *Injected) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if !p.wallet.CanSign() {
		return nil, fmt.Errorf("%w: %s", ErrWatchOnly, p.wallet.Name)
	}
	account := p.wallet.Account()

	p.mu.Lock()
	approved := p.approved
	p.mu.Unlock()
	if approved {
		return []common.Address{account}, nil
	}

	ok := true
	if p.cfg.Approver != nil {
		var err error
		ok, err = p.cfg.Approver(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("requesting accounts: %w", err)
		}
	}
	if !ok {
		return nil, ErrUserRejected
	}

	p.mu.Lock()
	p.approved = true
	p.mu.Unlock()
	return []common.Address{account}, nil
}

// ReadContract returns a read-only Greeter handle.
func (p *Injected) ReadContract(ctx context.Context) (greeter.Reader, error) {
	b, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	return p.bind(b), nil
}

// SignContract returns a Greeter handle that signs with the wallet key.
// RequestAccounts must have been approved first.
func (p *Injected) SignContract(ctx context.Context) (greeter.Writer, error) {
	p.mu.Lock()
	approved := p.approved
	p.mu.Unlock()
	if !approved {
		return nil, ErrNotAuthorized
	}

	b, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}
	signer := NewSigner(p.wallet, p.cfg.Manager.Keystore())
	return writer{g: p.bind(b).WithSigner(signer, chainID)}, nil
}

// Close releases the RPC connection if one was opened.
func (p *Injected) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.backend.(interface{ Close() }); ok {
		c.Close()
	}
	p.backend = nil
}

func (p *Injected) bind(b Backend) *contract.Greeter {
	var opts []contract.Option
	if p.cfg.PollInterval > 0 {
		opts = append(opts, contract.WithPollInterval(p.cfg.PollInterval))
	}
	return contract.NewGreeter(p.cfg.Contract, b, opts...)
}

func (p *Injected) dial(ctx context.Context) (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend != nil {
		return p.backend, nil
	}
	b, err := p.cfg.Dial(ctx, p.cfg.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("connecting to rpc: %w", err)
	}
	p.backend = b
	return b, nil
}

// writer adapts *contract.Greeter to greeter.Writer.
type writer struct {
	g *contract.Greeter
}

func (w writer) SetGreeting(ctx context.Context, text string) (greeter.Pending, error) {
	tx, err := w.g.SetGreeting(ctx, text)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

package greeter

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Errors.
var (
	ErrWalletUnavailable = errors.New("wallet not available")
	ErrEmptyGreeting     = errors.New("greeting is empty")
)

// Wallet is the injected wallet capability the flow drives.
type Wallet interface {
	// RequestAccounts asks for account access. It may prompt the user.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// ReadContract returns a read-only handle to the Greeter contract.
	ReadContract(ctx context.Context) (Reader, error)
	// SignContract returns a handle that signs and sends transactions.
	SignContract(ctx context.Context) (Writer, error)
}

// Reader calls the contract's view method.
type Reader interface {
	Greet(ctx context.Context) (string, error)
}

// Writer submits setGreeting transactions.
type Writer interface {
	SetGreeting(ctx context.Context, text string) (Pending, error)
}

// Pending is a broadcast transaction awaiting inclusion.
type Pending interface {
	Hash() common.Hash
	Wait(ctx context.Context) error
}

// Probe reports the wallet capability present in the environment.
// A nil Wallet or a non-nil error both mean "absent".
type Probe func() (Wallet, error)

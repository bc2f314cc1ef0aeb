// Package wallets provides key-backed wallet providers for servers, scripts
// and tests. They satisfy the clients wallet interfaces the same way a
// browser extension would.
package wallets

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/vitwit/walletpay/clients"
)

// Approver is asked before every signature. Returning an error declines
// the request, which the adapters report as a user rejection.
type Approver func(ctx context.Context, summary string) error

// AutoApprove signs everything.
func AutoApprove(context.Context, string) error { return nil }

// ErrDeclined is returned when the approver declines.
type ErrDeclined struct {
	Reason error
}

func (e *ErrDeclined) Error() string {
	return fmt.Sprintf("user rejected the request: %v", e.Reason)
}

func (e *ErrDeclined) Unwrap() error {
	return e.Reason
}

// ErrorCode reports the EIP-1193 rejection code.
func (e *ErrDeclined) ErrorCode() int {
	return clients.CodeUserRejected
}

type Option func(*keyWallet)

// WithApprover installs a signing approver. The default approves everything.
func WithApprover(a Approver) Option {
	return func(w *keyWallet) {
		if a != nil {
			w.approve = a
		}
	}
}

// WithChainID pins the EVM chain the wallet signs for. The node's chain id
// must match it. Solana and Sui wallets ignore it.
func WithChainID(id *big.Int) Option {
	return func(w *keyWallet) {
		if id != nil && id.Sign() > 0 {
			w.chainID = new(big.Int).Set(id)
		}
	}
}

// keyWallet holds the connection flag shared by the key-backed wallets.
type keyWallet struct {
	address string
	approve Approver
	chainID *big.Int

	mu        sync.RWMutex
	connected bool
}

func newKeyWallet(address string, opts []Option) *keyWallet {
	w := &keyWallet{address: address, approve: AutoApprove}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *keyWallet) Available() bool {
	return w.address != ""
}

func (w *keyWallet) Connect(ctx context.Context) (string, error) {
	if err := w.approve(ctx, "connect "+w.address); err != nil {
		return "", &ErrDeclined{Reason: err}
	}
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	return w.address, nil
}

func (w *keyWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	return nil
}

func (w *keyWallet) Account() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.connected {
		return ""
	}
	return w.address
}

func (w *keyWallet) authorize(ctx context.Context, summary string) error {
	if w.Account() == "" {
		return fmt.Errorf("wallet is not connected")
	}
	if err := w.approve(ctx, summary); err != nil {
		return &ErrDeclined{Reason: err}
	}
	return nil
}

// Package clients implements the per-chain adapters that build, submit and
// confirm a native transfer through a user's wallet provider.
package clients

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/vitwit/walletpay/logger"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/verification"
)

// ChainAdapter is the uniform contract over the supported chains.
type ChainAdapter interface {
	Chain() types.ChainKind

	// Available reports whether a wallet provider is present.
	Available() bool

	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error

	// Account is the provider's current account, "" when it has none.
	Account() string

	// Balance is display only; it is never a precondition for a purchase.
	Balance(ctx context.Context, address string) (*big.Int, error)

	BuildTransaction(ctx context.Context, req *types.PaymentRequest, from string) (*types.TransactionHandle, error)
	Submit(ctx context.Context, handle *types.TransactionHandle) (*types.TransactionHandle, error)
	Confirm(ctx context.Context, handle *types.TransactionHandle) (*types.PaymentOutcome, error)
}

// WalletProvider is the connection half of a wallet. Chain specific signing
// lives on EVMWallet, SolanaWallet and SuiWallet.
type WalletProvider interface {
	// Available is the explicit presence flag checked before any other call.
	Available() bool
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	Account() string
}

// Option configures an adapter.
type Option func(*adapterConfig)

type adapterConfig struct {
	poll     verification.PollConfig
	logger   logger.Logger
	gasLimit uint64
}

func newAdapterConfig(opts []Option) adapterConfig {
	cfg := adapterConfig{
		poll:   verification.DefaultPollConfig,
		logger: logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithConfirmTimeout bounds the wait for confirmation.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *adapterConfig) {
		if d > 0 {
			c.poll.Timeout = d
		}
	}
}

// WithPollInterval sets the spacing between status queries.
func WithPollInterval(d time.Duration) Option {
	return func(c *adapterConfig) {
		if d > 0 {
			c.poll.Interval = d
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *adapterConfig) {
		c.logger = logger.OrNoop(l)
	}
}

// WithGasLimit overrides the EVM transfer gas limit. Ignored by other chains.
func WithGasLimit(limit uint64) Option {
	return func(c *adapterConfig) {
		c.gasLimit = limit
	}
}

// FromChainConfig turns the shared config into adapter options.
func FromChainConfig(cfg *types.Config, chain types.ChainKind) []Option {
	cfg = cfg.WithDefaults()
	opts := []Option{
		WithConfirmTimeout(cfg.ConfirmTimeout),
		WithPollInterval(cfg.PollInterval),
	}
	if cc, ok := cfg.Chains[chain]; ok && cc.GasLimit > 0 {
		opts = append(opts, WithGasLimit(cc.GasLimit))
	}
	return opts
}

// walletBase holds the connection logic shared by every adapter.
type walletBase struct {
	chain  types.ChainKind
	wallet WalletProvider
	cfg    adapterConfig
}

func (b *walletBase) Chain() types.ChainKind {
	return b.chain
}

func (b *walletBase) Available() bool {
	return b.wallet != nil && b.wallet.Available()
}

func (b *walletBase) Account() string {
	if !b.Available() {
		return ""
	}
	return b.wallet.Account()
}

func (b *walletBase) Connect(ctx context.Context) (string, error) {
	if !b.Available() {
		return "", types.NewPaymentError(types.KindProviderUnavailable,
			fmt.Sprintf("no %s wallet provider available", b.chain), nil)
	}

	addr, err := b.wallet.Connect(ctx)
	if err != nil {
		return "", classifyConnectError(err)
	}
	if addr == "" {
		return "", types.NewPaymentError(types.KindProviderUnavailable, "wallet returned no account", nil)
	}

	b.cfg.logger.Debug("wallet connected", map[string]any{"chain": b.chain, "account": addr})
	return addr, nil
}

func (b *walletBase) Disconnect(ctx context.Context) error {
	if !b.Available() {
		return types.NewPaymentError(types.KindProviderUnavailable,
			fmt.Sprintf("no %s wallet provider available", b.chain), nil)
	}

	if err := b.wallet.Disconnect(ctx); err != nil {
		return types.NewPaymentError(types.KindNetworkError, "wallet disconnect failed", err)
	}
	return nil
}

// checkRequest validates req against the adapter's chain.
func (b *walletBase) checkRequest(req *types.PaymentRequest, from string) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Chain != b.chain {
		return types.NewPaymentError(types.KindInvalidRequest,
			fmt.Sprintf("request for %s sent to %s adapter", req.Chain, b.chain), nil)
	}
	if from == "" {
		return types.NewPaymentError(types.KindNotConnected, "no sender account", nil)
	}
	return nil
}

func (b *walletBase) checkHandle(handle *types.TransactionHandle) error {
	if handle == nil || handle.Tx == nil {
		return types.NewPaymentError(types.KindInvalidRequest, "transaction handle is empty", nil)
	}
	if handle.Chain != b.chain {
		return types.NewPaymentError(types.KindInvalidRequest,
			fmt.Sprintf("%s handle sent to %s adapter", handle.Chain, b.chain), nil)
	}
	return nil
}

func (b *walletBase) checkSubmitted(handle *types.TransactionHandle) error {
	if err := b.checkHandle(handle); err != nil {
		return err
	}
	if !handle.Submitted() {
		return types.NewPaymentError(types.KindInvalidRequest, "transaction has not been submitted", nil)
	}
	return nil
}

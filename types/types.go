package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest describes one native-asset purchase.
type PaymentRequest struct {
	// Chain selects the adapter variant.
	Chain ChainKind `json:"chain" validate:"required,oneof=evm solana sui"`

	// PriceDecimal is a human-readable amount in the chain's native asset
	// (ETH, SOL, SUI), e.g. "0.01".
	PriceDecimal string `json:"price" validate:"required,amount"`

	// RecipientAddress is chain-native address text.
	RecipientAddress string `json:"recipient" validate:"required"`
}

// Validate checks the invariants that do not depend on the chain adapter:
// a supported chain, a non-empty recipient and a non-negative finite price.
func (r *PaymentRequest) Validate() error {
	if r == nil {
		return NewPaymentError(KindInvalidRequest, "payment request is required", nil)
	}
	if !r.Chain.IsValid() {
		return NewPaymentError(KindInvalidRequest, fmt.Sprintf("unsupported chain: %q", r.Chain), nil)
	}
	if strings.TrimSpace(r.RecipientAddress) == "" {
		return NewPaymentError(KindInvalidRequest, "recipient address is required", nil)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.PriceDecimal))
	if err != nil {
		return NewPaymentError(KindInvalidAmount, fmt.Sprintf("invalid price %q", r.PriceDecimal), err)
	}
	if price.IsNegative() {
		return NewPaymentError(KindInvalidAmount, fmt.Sprintf("price cannot be negative: %s", r.PriceDecimal), nil)
	}

	return nil
}

// ConnectionState is the wallet session state. The zero value is Disconnected.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("ConnectionState(%d)", int(s))
	}
}

// TransactionHandle tracks one transfer through build, submit and confirm.
type TransactionHandle struct {
	Chain ChainKind
	From  string
	To    string

	// Amount is the transfer value in the chain's smallest unit.
	Amount *big.Int

	// Reference is the freshness token attached right before signing:
	// EVM nonce, Solana recent blockhash, Sui gas object digest.
	Reference string

	// ID is the chain-native identifier (hash, signature, digest),
	// populated after submission.
	ID string

	// Tx is the chain-native transaction object.
	Tx any
}

// Submitted reports whether the handle carries a chain identifier.
func (h *TransactionHandle) Submitted() bool {
	return h != nil && h.ID != ""
}

// OutcomeStatus is the terminal status of a purchase attempt.
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
)

// PaymentOutcome is the chain-agnostic result of one purchase attempt.
type PaymentOutcome struct {
	Status     OutcomeStatus `json:"status"`
	Chain      ChainKind     `json:"chain"`
	Identifier string        `json:"identifier,omitempty"`
	Detail     string        `json:"detail,omitempty"`

	// Kind is empty for succeeded outcomes.
	Kind ErrorKind `json:"kind,omitempty"`

	AttemptID string `json:"attemptId,omitempty"`
}

func (o *PaymentOutcome) Succeeded() bool {
	return o != nil && o.Status == StatusSucceeded
}

// ChainConfig holds the per-chain connection settings.
type ChainConfig struct {
	RPCURL string `json:"rpcUrl" validate:"required,url"`

	// ChainID pins the EVM chain the wallet signs for; the node must report
	// the same id. When zero the node's id is used as is.
	ChainID int64 `json:"chainId,omitempty" validate:"gte=0"`

	// GasLimit overrides the EVM transfer gas limit.
	GasLimit uint64 `json:"gasLimit,omitempty"`

	// ExplorerURL is a printf template receiving the transaction identifier,
	// e.g. "https://explorer.solana.com/tx/%s?cluster=devnet".
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// Config contains global configuration for the payment core.
type Config struct {
	// ConfirmTimeout bounds the wait for confirmation.
	ConfirmTimeout time.Duration `json:"confirmTimeout,omitempty" validate:"gte=0"`

	// PollInterval is the spacing between confirmation status queries.
	PollInterval time.Duration `json:"pollInterval,omitempty" validate:"gte=0"`

	LogLevel      string                    `json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics bool                      `json:"enableMetrics,omitempty"`
	Chains        map[ChainKind]ChainConfig `json:"chains,omitempty" validate:"dive"`
}

const (
	DefaultConfirmTimeout = 90 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// DefaultConfig returns a config with the default confirmation bounds.
func DefaultConfig() *Config {
	return &Config{
		ConfirmTimeout: DefaultConfirmTimeout,
		PollInterval:   DefaultPollInterval,
		LogLevel:       "info",
		Chains:         make(map[ChainKind]ChainConfig),
	}
}

// WithDefaults fills zero durations with the defaults.
func (c *Config) WithDefaults() *Config {
	out := DefaultConfig()
	if c == nil {
		return out
	}
	*out = *c
	if out.ConfirmTimeout <= 0 {
		out.ConfirmTimeout = DefaultConfirmTimeout
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.Chains == nil {
		out.Chains = make(map[ChainKind]ChainConfig)
	}
	return out
}

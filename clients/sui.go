package clients

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/pattonkan/sui-go/sui"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/utils"
	"github.com/vitwit/walletpay/verification"
)

const (
	// DefaultSuiGasBudget is 0.01 SUI, enough for a PaySui transfer.
	DefaultSuiGasBudget uint64 = 10_000_000
	// DefaultSuiGasPrice is the reference gas price floor in MIST.
	DefaultSuiGasPrice uint64 = 1_000

	// maxSuiGasCoins is the protocol cap on gas payment objects.
	maxSuiGasCoins = 256
)

var suiAddressPattern = regexp.MustCompile("^0x[0-9a-fA-F]{1,64}$")

// SuiGasCoin is an owned SUI coin usable as gas payment. Its version and
// digest are the freshness token of a Sui transaction.
type SuiGasCoin struct {
	ObjectID string
	Version  uint64
	Digest   string
	Balance  uint64

	// Ref is the chain-native reference, set by SuiRPC.
	Ref *sui.ObjectRef
}

// SuiTransfer is the chain-native Sui transaction handed to the wallet.
// GasPayment is filled in by Submit.
type SuiTransfer struct {
	Sender     string
	Recipient  string
	Amount     uint64
	GasPayment []SuiGasCoin
	GasBudget  uint64
	GasPrice   uint64
}

// SuiTxStatus is the execution status of a transaction digest.
type SuiTxStatus struct {
	Found   bool
	Success bool
	Error   string
}

// SuiBackend is the chain RPC subset used by SuiAdapter. *SuiRPC satisfies it.
type SuiBackend interface {
	Balance(ctx context.Context, owner string) (*big.Int, error)
	GasCoins(ctx context.Context, owner string) ([]SuiGasCoin, error)
	TransactionStatus(ctx context.Context, digest string) (*SuiTxStatus, error)
}

// SuiWallet signs and executes the transfer, returning the digest.
type SuiWallet interface {
	WalletProvider
	SignAndExecute(ctx context.Context, tx *SuiTransfer) (string, error)
}

// SuiAdapter moves native SUI with a PaySui programmable transaction.
type SuiAdapter struct {
	walletBase
	wallet  SuiWallet
	backend SuiBackend
}

var _ ChainAdapter = (*SuiAdapter)(nil)

func NewSuiAdapter(wallet SuiWallet, backend SuiBackend, opts ...Option) *SuiAdapter {
	a := &SuiAdapter{
		walletBase: walletBase{chain: types.ChainSui, cfg: newAdapterConfig(opts)},
		wallet:     wallet,
		backend:    backend,
	}
	if wallet != nil {
		a.walletBase.wallet = wallet
	}
	return a
}

// IsSuiAddress reports whether s is 0x-prefixed hex of at most 32 bytes.
func IsSuiAddress(s string) bool {
	return suiAddressPattern.MatchString(s)
}

// NormalizeSuiAddress left-pads s to the canonical 64 hex digits.
func NormalizeSuiAddress(s string) string {
	hex := strings.ToLower(strings.TrimPrefix(s, "0x"))
	return "0x" + strings.Repeat("0", 64-len(hex)) + hex
}

func (a *SuiAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !IsSuiAddress(address) {
		return nil, invalidRecipient(a.chain, address, nil)
	}
	bal, err := a.backend.Balance(ctx, NormalizeSuiAddress(address))
	if err != nil {
		return nil, networkError("failed to fetch balance", err)
	}
	return bal, nil
}

func (a *SuiAdapter) BuildTransaction(_ context.Context, req *types.PaymentRequest, from string) (*types.TransactionHandle, error) {
	if err := a.checkRequest(req, from); err != nil {
		return nil, err
	}
	if !IsSuiAddress(req.RecipientAddress) {
		return nil, invalidRecipient(a.chain, req.RecipientAddress, nil)
	}
	if !IsSuiAddress(from) {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "invalid sender address "+from, nil)
	}

	amount, err := utils.ToNativeAmount(req.PriceDecimal, a.chain.Exponent())
	if err != nil {
		return nil, err
	}
	mist, err := utils.NativeUint64(amount)
	if err != nil {
		return nil, err
	}
	if mist > math.MaxUint64-DefaultSuiGasBudget {
		return nil, types.NewPaymentError(types.KindInvalidAmount, "amount leaves no room for the gas budget", nil)
	}

	tx := &SuiTransfer{
		Sender:    NormalizeSuiAddress(from),
		Recipient: NormalizeSuiAddress(req.RecipientAddress),
		Amount:    mist,
		GasBudget: DefaultSuiGasBudget,
		GasPrice:  DefaultSuiGasPrice,
	}

	return &types.TransactionHandle{
		Chain:  a.chain,
		From:   tx.Sender,
		To:     tx.Recipient,
		Amount: amount,
		Tx:     tx,
	}, nil
}

// Submit fetches the sender's current gas coins, attaches them and hands
// the transfer to the wallet.
func (a *SuiAdapter) Submit(ctx context.Context, handle *types.TransactionHandle) (*types.TransactionHandle, error) {
	if err := a.checkHandle(handle); err != nil {
		return nil, err
	}
	if !a.Available() {
		return nil, types.ErrProviderUnavailable
	}

	tmpl, ok := handle.Tx.(*SuiTransfer)
	if !ok {
		return nil, types.NewPaymentError(types.KindInvalidRequest, fmt.Sprintf("unexpected Sui transaction type %T", handle.Tx), nil)
	}

	coins, err := a.backend.GasCoins(ctx, tmpl.Sender)
	if err != nil {
		return nil, networkError("failed to fetch gas coins", err)
	}

	payment, err := selectGasCoins(coins, tmpl.Amount+tmpl.GasBudget)
	if err != nil {
		return nil, err
	}

	tx := *tmpl
	tx.GasPayment = payment

	digest, err := a.wallet.SignAndExecute(ctx, &tx)
	if err != nil {
		return nil, classifySubmitError(err)
	}

	a.cfg.logger.Info("transaction submitted", map[string]any{
		"chain":     a.chain,
		"id":        digest,
		"gas_coins": len(payment),
	})

	out := *handle
	out.Tx = &tx
	out.Reference = payment[0].Digest
	out.ID = digest
	return &out, nil
}

// selectGasCoins picks coins in order until they cover need.
func selectGasCoins(coins []SuiGasCoin, need uint64) ([]SuiGasCoin, error) {
	var (
		picked []SuiGasCoin
		total  uint64
	)
	for _, c := range coins {
		if len(picked) == maxSuiGasCoins {
			break
		}
		picked = append(picked, c)
		total += c.Balance
		if total >= need {
			return picked, nil
		}
	}
	if len(coins) == 0 {
		return nil, types.NewPaymentError(types.KindSubmissionFailed, "no SUI coins available for gas", nil)
	}
	return nil, types.NewPaymentError(types.KindSubmissionFailed,
		fmt.Sprintf("insufficient SUI balance: have %d MIST, need %d MIST", total, need), nil)
}

// Confirm waits until the digest is indexed and inspects its effects.
func (a *SuiAdapter) Confirm(ctx context.Context, handle *types.TransactionHandle) (*types.PaymentOutcome, error) {
	if err := a.checkSubmitted(handle); err != nil {
		return nil, err
	}

	_, err := verification.Poll(ctx, a.cfg.poll, func(ctx context.Context) (*SuiTxStatus, bool, error) {
		st, err := a.backend.TransactionStatus(ctx, handle.ID)
		if err != nil {
			return nil, false, err
		}
		if st == nil || !st.Found {
			return nil, false, nil
		}
		if !st.Success {
			msg := st.Error
			if msg == "" {
				msg = "execution failed"
			}
			return st, true, onChainFailure(msg)
		}
		return st, true, nil
	})
	if err != nil {
		return nil, err
	}

	a.cfg.logger.Info("transaction confirmed", map[string]any{"chain": a.chain, "id": handle.ID})

	return verification.NewReporter().Succeeded(a.chain, handle.ID), nil
}

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/utils"
	"github.com/vitwit/walletpay/verification"
)

// SolanaBackend is the chain RPC subset used by SolanaAdapter. *rpc.Client
// satisfies it.
type SolanaBackend interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// SolanaWallet signs the transaction as fee payer and broadcasts it, like
// signAndSendTransaction on an injected provider.
type SolanaWallet interface {
	WalletProvider
	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SolanaAdapter moves native SOL with a system program transfer.
type SolanaAdapter struct {
	walletBase
	wallet     SolanaWallet
	backend    SolanaBackend
	commitment rpc.CommitmentType
}

var _ ChainAdapter = (*SolanaAdapter)(nil)

func NewSolanaAdapter(wallet SolanaWallet, backend SolanaBackend, opts ...Option) *SolanaAdapter {
	a := &SolanaAdapter{
		walletBase: walletBase{chain: types.ChainSolana, cfg: newAdapterConfig(opts)},
		wallet:     wallet,
		backend:    backend,
		commitment: rpc.CommitmentConfirmed,
	}
	if wallet != nil {
		a.walletBase.wallet = wallet
	}
	return a
}

func (a *SolanaAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, invalidRecipient(a.chain, address, err)
	}
	res, err := a.backend.GetBalance(ctx, pk, a.commitment)
	if err != nil {
		return nil, networkError("failed to fetch balance", err)
	}
	return new(big.Int).SetUint64(res.Value), nil
}

// BuildTransaction creates the transfer with the sender as fee payer. The
// recent blockhash is attached in Submit.
func (a *SolanaAdapter) BuildTransaction(_ context.Context, req *types.PaymentRequest, from string) (*types.TransactionHandle, error) {
	if err := a.checkRequest(req, from); err != nil {
		return nil, err
	}

	to, err := solana.PublicKeyFromBase58(req.RecipientAddress)
	if err != nil {
		return nil, invalidRecipient(a.chain, req.RecipientAddress, err)
	}
	payer, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "invalid sender address "+from, err)
	}

	amount, err := utils.ToNativeAmount(req.PriceDecimal, a.chain.Exponent())
	if err != nil {
		return nil, err
	}
	lamports, err := utils.NativeUint64(amount)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, payer, to).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "failed to build transfer", err)
	}

	return &types.TransactionHandle{
		Chain:  a.chain,
		From:   payer.String(),
		To:     to.String(),
		Amount: amount,
		Tx:     tx,
	}, nil
}

// Submit fetches a recent blockhash, attaches it and hands the transaction
// to the wallet.
func (a *SolanaAdapter) Submit(ctx context.Context, handle *types.TransactionHandle) (*types.TransactionHandle, error) {
	if err := a.checkHandle(handle); err != nil {
		return nil, err
	}
	if !a.Available() {
		return nil, types.ErrProviderUnavailable
	}

	tmpl, ok := handle.Tx.(*solana.Transaction)
	if !ok {
		return nil, types.NewPaymentError(types.KindInvalidRequest, fmt.Sprintf("unexpected Solana transaction type %T", handle.Tx), nil)
	}

	latest, err := a.backend.GetLatestBlockhash(ctx, a.commitment)
	if err != nil {
		return nil, networkError("failed to fetch recent blockhash", err)
	}
	if latest == nil || latest.Value == nil {
		return nil, networkError("failed to fetch recent blockhash", fmt.Errorf("empty response"))
	}

	tx := *tmpl
	tx.Message.RecentBlockhash = latest.Value.Blockhash

	sig, err := a.wallet.SignAndSend(ctx, &tx)
	if err != nil {
		return nil, classifySubmitError(err)
	}

	a.cfg.logger.Info("transaction submitted", map[string]any{
		"chain":     a.chain,
		"id":        sig.String(),
		"blockhash": latest.Value.Blockhash.String(),
	})

	out := *handle
	out.Tx = &tx
	out.Reference = latest.Value.Blockhash.String()
	out.ID = sig.String()
	return &out, nil
}

// Confirm waits for the confirmed commitment level. An error embedded in the
// signature status is an on-chain failure even though the send succeeded.
func (a *SolanaAdapter) Confirm(ctx context.Context, handle *types.TransactionHandle) (*types.PaymentOutcome, error) {
	if err := a.checkSubmitted(handle); err != nil {
		return nil, err
	}

	sig, err := solana.SignatureFromBase58(handle.ID)
	if err != nil {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "invalid transaction signature", err)
	}

	status, err := verification.Poll(ctx, a.cfg.poll, func(ctx context.Context) (*rpc.SignatureStatusesResult, bool, error) {
		res, err := a.backend.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return nil, false, err
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return nil, false, nil
		}

		st := res.Value[0]
		if st.Err != nil {
			return st, true, onChainFailure(renderSolanaError(st.Err))
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return st, true, nil
		}
		return st, false, nil
	})
	if err != nil {
		return nil, err
	}

	a.cfg.logger.Info("transaction confirmed", map[string]any{
		"chain":  a.chain,
		"id":     handle.ID,
		"slot":   status.Slot,
		"status": status.ConfirmationStatus,
	})

	return verification.NewReporter().Succeeded(a.chain, handle.ID), nil
}

// renderSolanaError turns the status error object (e.g.
// {"InstructionError":[0,{"Custom":1}]}) into text.
func renderSolanaError(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

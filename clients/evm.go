package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/utils"
	"github.com/vitwit/walletpay/verification"
)

// EVMBackend is the chain RPC subset used by EVMAdapter. *ethclient.Client
// satisfies it.
type EVMBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// EVMWallet signs and broadcasts an unsigned transaction, like an
// eth_sendTransaction request to an injected provider.
type EVMWallet interface {
	WalletProvider
	SignAndSend(ctx context.Context, tx *ethtypes.Transaction) (common.Hash, error)
}

// EVMAdapter moves native ETH with a legacy value transfer.
type EVMAdapter struct {
	walletBase
	wallet  EVMWallet
	backend EVMBackend
}

var _ ChainAdapter = (*EVMAdapter)(nil)

// NewEVMAdapter creates an adapter. wallet may be nil when no provider is
// installed; Connect then fails with ProviderUnavailable.
func NewEVMAdapter(wallet EVMWallet, backend EVMBackend, opts ...Option) *EVMAdapter {
	a := &EVMAdapter{
		walletBase: walletBase{chain: types.ChainEVM, cfg: newAdapterConfig(opts)},
		wallet:     wallet,
		backend:    backend,
	}
	if wallet != nil {
		a.walletBase.wallet = wallet
	}
	if a.cfg.gasLimit == 0 {
		a.cfg.gasLimit = params.TxGas
	}
	return a
}

func (a *EVMAdapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, invalidRecipient(a.chain, address, nil)
	}
	bal, err := a.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, networkError("failed to fetch balance", err)
	}
	return bal, nil
}

// BuildTransaction prepares the transfer. The nonce is left unset until
// Submit so it is as fresh as possible.
func (a *EVMAdapter) BuildTransaction(ctx context.Context, req *types.PaymentRequest, from string) (*types.TransactionHandle, error) {
	if err := a.checkRequest(req, from); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(req.RecipientAddress) {
		return nil, invalidRecipient(a.chain, req.RecipientAddress, nil)
	}
	if !common.IsHexAddress(from) {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "invalid sender address "+from, nil)
	}

	value, err := utils.ToNativeAmount(req.PriceDecimal, a.chain.Exponent())
	if err != nil {
		return nil, err
	}

	gasPrice, err := a.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, networkError("failed to fetch gas price", err)
	}

	to := common.HexToAddress(req.RecipientAddress)
	return &types.TransactionHandle{
		Chain:  a.chain,
		From:   common.HexToAddress(from).Hex(),
		To:     to.Hex(),
		Amount: value,
		Tx: &ethtypes.LegacyTx{
			GasPrice: gasPrice,
			Gas:      a.cfg.gasLimit,
			To:       &to,
			Value:    value,
		},
	}, nil
}

// Submit attaches the pending nonce and hands the transaction to the wallet.
func (a *EVMAdapter) Submit(ctx context.Context, handle *types.TransactionHandle) (*types.TransactionHandle, error) {
	if err := a.checkHandle(handle); err != nil {
		return nil, err
	}
	if !a.Available() {
		return nil, types.ErrProviderUnavailable
	}

	tmpl, ok := handle.Tx.(*ethtypes.LegacyTx)
	if !ok {
		return nil, types.NewPaymentError(types.KindInvalidRequest, fmt.Sprintf("unexpected EVM transaction type %T", handle.Tx), nil)
	}

	nonce, err := a.backend.PendingNonceAt(ctx, common.HexToAddress(handle.From))
	if err != nil {
		return nil, networkError("failed to fetch nonce", err)
	}

	inner := *tmpl
	inner.Nonce = nonce
	tx := ethtypes.NewTx(&inner)

	hash, err := a.wallet.SignAndSend(ctx, tx)
	if err != nil {
		return nil, classifySubmitError(err)
	}

	a.cfg.logger.Info("transaction submitted", map[string]any{
		"chain": a.chain,
		"id":    hash.Hex(),
		"nonce": nonce,
	})

	out := *handle
	out.Tx = tx
	out.Reference = strconv.FormatUint(nonce, 10)
	out.ID = hash.Hex()
	return &out, nil
}

// Confirm waits for the receipt. A missing receipt keeps the wait going;
// status 0 is an on-chain failure.
func (a *EVMAdapter) Confirm(ctx context.Context, handle *types.TransactionHandle) (*types.PaymentOutcome, error) {
	if err := a.checkSubmitted(handle); err != nil {
		return nil, err
	}

	hash := common.HexToHash(handle.ID)
	receipt, err := verification.Poll(ctx, a.cfg.poll, func(ctx context.Context) (*ethtypes.Receipt, bool, error) {
		receipt, err := a.backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if receipt.Status == ethtypes.ReceiptStatusFailed {
			return receipt, true, onChainFailure(fmt.Sprintf("execution reverted in block %s", receipt.BlockNumber))
		}
		return receipt, true, nil
	})
	if err != nil {
		return nil, err
	}

	a.cfg.logger.Info("transaction confirmed", map[string]any{
		"chain": a.chain,
		"id":    handle.ID,
		"block": receipt.BlockNumber.String(),
	})

	return verification.NewReporter().Succeeded(a.chain, handle.ID), nil
}

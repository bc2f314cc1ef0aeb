package clients

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type fakeProvider struct {
	mu sync.Mutex

	available     bool
	account       string
	connectErr    error
	disconnectErr error

	connectCalls    int
	disconnectCalls int
}

func newFakeProvider(account string) *fakeProvider {
	return &fakeProvider{available: true, account: account}
}

func (p *fakeProvider) Available() bool {
	return p.available
}

func (p *fakeProvider) Connect(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectCalls++
	if p.connectErr != nil {
		return "", p.connectErr
	}
	return p.account, nil
}

func (p *fakeProvider) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectCalls++
	return p.disconnectErr
}

func (p *fakeProvider) Account() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account
}

// EVM

type fakeEVMWallet struct {
	*fakeProvider
	sendErr error
	hash    common.Hash
	sent    []*ethtypes.Transaction
}

func (w *fakeEVMWallet) SignAndSend(_ context.Context, tx *ethtypes.Transaction) (common.Hash, error) {
	w.sent = append(w.sent, tx)
	if w.sendErr != nil {
		return common.Hash{}, w.sendErr
	}
	return w.hash, nil
}

type fakeEVMBackend struct {
	mu sync.Mutex

	balance     *big.Int
	nonce       uint64
	gasPrice    *big.Int
	nonceErr    error
	gasPriceErr error

	// receipts are returned in order; the last one repeats.
	receipts    []*ethtypes.Receipt
	receiptErrs []error
	receiptCall int
	nonceCalls  int
}

func (b *fakeEVMBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return b.balance, nil
}

func (b *fakeEVMBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.nonceCalls++
	return b.nonce, b.nonceErr
}

func (b *fakeEVMBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return b.gasPrice, b.gasPriceErr
}

func (b *fakeEVMBackend) TransactionReceipt(context.Context, common.Hash) (*ethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.receiptCall
	b.receiptCall++
	if i < len(b.receiptErrs) && b.receiptErrs[i] != nil {
		return nil, b.receiptErrs[i]
	}
	if len(b.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	if i >= len(b.receipts) {
		i = len(b.receipts) - 1
	}
	if b.receipts[i] == nil {
		return nil, ethereum.NotFound
	}
	return b.receipts[i], nil
}

// Solana

type fakeSolanaWallet struct {
	*fakeProvider
	sendErr error
	sig     solana.Signature
	sent    []*solana.Transaction
}

func (w *fakeSolanaWallet) SignAndSend(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	w.sent = append(w.sent, tx)
	if w.sendErr != nil {
		return solana.Signature{}, w.sendErr
	}
	return w.sig, nil
}

type fakeSolanaBackend struct {
	mu sync.Mutex

	blockhash    solana.Hash
	blockhashErr error
	lamports     uint64

	// statuses are returned in order; the last one repeats.
	statuses   []*rpc.SignatureStatusesResult
	statusCall int
}

func (b *fakeSolanaBackend) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if b.blockhashErr != nil {
		return nil, b.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: b.blockhash, LastValidBlockHeight: 100},
	}, nil
}

func (b *fakeSolanaBackend) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: b.lamports}, nil
}

func (b *fakeSolanaBackend) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.statuses) == 0 {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	i := b.statusCall
	b.statusCall++
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{b.statuses[i]}}, nil
}

// Sui

type fakeSuiWallet struct {
	*fakeProvider
	execErr error
	digest  string
	sent    []*SuiTransfer
}

func (w *fakeSuiWallet) SignAndExecute(_ context.Context, tx *SuiTransfer) (string, error) {
	w.sent = append(w.sent, tx)
	if w.execErr != nil {
		return "", w.execErr
	}
	return w.digest, nil
}

type fakeSuiBackend struct {
	mu sync.Mutex

	balance  *big.Int
	coins    []SuiGasCoin
	coinsErr error

	statuses   []*SuiTxStatus
	statusErr  error
	statusCall int
}

func (b *fakeSuiBackend) Balance(context.Context, string) (*big.Int, error) {
	return b.balance, nil
}

func (b *fakeSuiBackend) GasCoins(context.Context, string) ([]SuiGasCoin, error) {
	return b.coins, b.coinsErr
}

func (b *fakeSuiBackend) TransactionStatus(context.Context, string) (*SuiTxStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.statusErr != nil {
		return nil, b.statusErr
	}
	if len(b.statuses) == 0 {
		return &SuiTxStatus{}, nil
	}
	i := b.statusCall
	b.statusCall++
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	return b.statuses[i], nil
}

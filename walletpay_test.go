package walletpay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/walletpay/clients"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/wallets"
)

type solanaNode struct {
	mu       sync.Mutex
	lamports uint64
	sent     []*solana.Transaction
}

func (n *solanaNode) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{9}, LastValidBlockHeight: 10},
	}, nil
}

func (n *solanaNode) GetBalance(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: n.lamports}, nil
}

func (n *solanaNode) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{
		{Slot: 42, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}, nil
}

func (n *solanaNode) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, tx)
	return tx.Signatures[0], nil
}

type eventLog struct {
	mu     sync.Mutex
	events []types.Event
}

func (l *eventLog) handle(e types.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []types.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&types.Config{LogLevel: "loud"})
	assert.Error(t, err)

	_, err = New(&types.Config{Chains: map[types.ChainKind]types.ChainConfig{
		"bitcoin": {RPCURL: "http://localhost:8332"},
	}})
	assert.Error(t, err)
}

func TestNewWithDefaults(t *testing.T) {
	w := NewWithDefaults(WithConfirmTimeout(5 * time.Second))
	require.NotNil(t, w)
	assert.Equal(t, 5*time.Second, w.Config().ConfirmTimeout)
	assert.Equal(t, types.DefaultPollInterval, w.Config().PollInterval)
	assert.Empty(t, w.Chains())
}

func TestAbsentProvider(t *testing.T) {
	w := NewWithDefaults()
	flow, err := w.AddChain(clients.NewEVMAdapter(nil, nil))
	require.NoError(t, err)

	assert.False(t, flow.ProviderAvailable())
	assert.False(t, flow.CanPurchase())

	_, err = flow.Connect(context.Background())
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
	assert.Equal(t, types.StateDisconnected, flow.ConnectionState())
	assert.Empty(t, flow.WalletAddress())

	_, err = flow.Balance(context.Background())
	assert.ErrorIs(t, err, types.ErrNotConnected)
}

func TestAddChainTwice(t *testing.T) {
	w := NewWithDefaults()
	_, err := w.AddChain(clients.NewSuiAdapter(nil, nil))
	require.NoError(t, err)

	_, err = w.AddChain(clients.NewSuiAdapter(nil, nil))
	assert.Error(t, err)
	assert.Equal(t, []types.ChainKind{types.ChainSui}, w.Chains())
}

func TestAddEVMWithoutRPCURL(t *testing.T) {
	w := NewWithDefaults()
	_, err := w.AddEVM(nil, nil)
	assert.ErrorContains(t, err, "no RPC URL configured")
}

func TestPurchaseUnregisteredChain(t *testing.T) {
	w := NewWithDefaults()

	_, err := w.Purchase(context.Background(), &types.PaymentRequest{
		Chain:            types.ChainSui,
		PriceDecimal:     "1",
		RecipientAddress: "0x2",
	})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = w.Purchase(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestPurchaseJSONInvalidAmount(t *testing.T) {
	w := NewWithDefaults()
	_, err := w.AddChain(clients.NewSuiAdapter(nil, nil))
	require.NoError(t, err)

	for _, price := range []string{"-1", "abc"} {
		_, err := w.PurchaseJSON(context.Background(), []byte(`{"chain":"sui","price":"`+price+`","recipient":"0x2"}`))
		assert.ErrorIs(t, err, types.ErrInvalidAmount, price)
	}
}

func TestDuplicateChainReleasesDialedClient(t *testing.T) {
	w, err := New(&types.Config{Chains: map[types.ChainKind]types.ChainConfig{
		types.ChainSolana: {RPCURL: "http://localhost:8899"},
	}})
	require.NoError(t, err)

	_, err = w.AddSolana(nil, &solanaNode{})
	require.NoError(t, err)

	_, err = w.AddSolana(nil, nil)
	assert.ErrorContains(t, err, "already registered")

	closed := 0
	_, err = w.addChain(clients.NewSolanaAdapter(nil, &solanaNode{}), func() { closed++ })
	assert.ErrorContains(t, err, "already registered")
	assert.Equal(t, 1, closed)

	flow, err := w.addChain(clients.NewEVMAdapter(nil, nil), func() { closed++ })
	require.NoError(t, err)
	assert.Equal(t, 1, closed, "a registered flow keeps its client")
	assert.NotNil(t, flow)
}

func TestSolanaPurchaseEndToEnd(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	recipient, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	node := &solanaNode{lamports: 1_500_000_000}
	wallet, err := wallets.NewSolanaKeyWallet(key.String(), node)
	require.NoError(t, err)

	events := &eventLog{}
	cfg := &types.Config{
		ConfirmTimeout: time.Second,
		PollInterval:   10 * time.Millisecond,
		Chains: map[types.ChainKind]types.ChainConfig{
			types.ChainSolana: {
				RPCURL:      "http://localhost:8899",
				ExplorerURL: "https://explorer.solana.com/tx/%s?cluster=devnet",
			},
		},
	}
	w, err := New(cfg, WithEventHandler(events.handle))
	require.NoError(t, err)
	defer w.Close()

	flow, err := w.AddSolana(wallet, node)
	require.NoError(t, err)

	ctx := context.Background()
	assert.False(t, flow.CanPurchase())

	account, err := flow.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), account)
	assert.Equal(t, types.StateConnected, flow.ConnectionState())
	assert.True(t, flow.CanPurchase())

	balance, err := flow.FormattedBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.5 SOL", balance)

	body := fmt.Sprintf(`{"chain":"solana","price":"0.25","recipient":%q}`, recipient.PublicKey().String())
	outcome, err := w.PurchaseJSON(ctx, []byte(body))
	require.NoError(t, err)

	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome)
	assert.Equal(t, types.ChainSolana, outcome.Chain)
	assert.NotEmpty(t, outcome.AttemptID)

	require.Len(t, node.sent, 1)
	sent := node.sent[0]
	assert.Equal(t, sent.Signatures[0].String(), outcome.Identifier)
	assert.Equal(t, solana.Hash{9}, sent.Message.RecentBlockhash)
	assert.NoError(t, sent.VerifySignatures())

	assert.Equal(t,
		"https://explorer.solana.com/tx/"+outcome.Identifier+"?cluster=devnet",
		flow.ExplorerLink(outcome.Identifier))
	assert.NotEmpty(t, flow.Message(outcome))
	assert.False(t, flow.IsLoading())

	assert.Equal(t, []types.EventType{
		types.EventConnecting,
		types.EventConnected,
		types.EventPurchaseAttempt,
		types.EventPurchaseSubmitted,
		types.EventPurchaseSucceeded,
	}, events.kinds())

	require.NoError(t, flow.Disconnect(ctx))
	assert.False(t, flow.CanPurchase())
	assert.Empty(t, wallet.Account())
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v["library_version"])
	assert.Equal(t, []string{"evm", "solana", "sui"}, v["supported_chains"])
}

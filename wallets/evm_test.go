package wallets

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/walletpay/clients"
)

type fakeEVMSender struct {
	chainID      *big.Int
	chainIDCalls int
	sent         []*ethtypes.Transaction
	sendErr      error
}

func (s *fakeEVMSender) ChainID(context.Context) (*big.Int, error) {
	s.chainIDCalls++
	return s.chainID, nil
}

func (s *fakeEVMSender) SendTransaction(_ context.Context, tx *ethtypes.Transaction) error {
	s.sent = append(s.sent, tx)
	return s.sendErr
}

func newEVMWallet(t *testing.T, opts ...Option) (*EVMKeyWallet, *fakeEVMSender) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sender := &fakeEVMSender{chainID: big.NewInt(11155111)}
	w, err := NewEVMKeyWallet("0x"+hex.EncodeToString(crypto.FromECDSA(key)), sender, opts...)
	require.NoError(t, err)
	return w, sender
}

func unsignedTransfer() *ethtypes.Transaction {
	to := common.HexToAddress("0xE4d365a5a8fC0DCEE9E3C5985D7FcBab8B4A0fE1")
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    3,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1e16),
	})
}

func TestEVMKeyWalletLifecycle(t *testing.T) {
	w, _ := newEVMWallet(t)
	ctx := context.Background()

	assert.True(t, w.Available())
	assert.Empty(t, w.Account())

	addr, err := w.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, w.Address().Hex(), addr)
	assert.Equal(t, addr, w.Account())

	require.NoError(t, w.Disconnect(ctx))
	assert.Empty(t, w.Account())
}

func TestEVMKeyWalletSignAndSend(t *testing.T) {
	w, sender := newEVMWallet(t)
	ctx := context.Background()

	_, err := w.Connect(ctx)
	require.NoError(t, err)

	hash, err := w.SignAndSend(ctx, unsignedTransfer())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	signed := sender.sent[0]
	assert.Equal(t, signed.Hash(), hash)

	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(sender.chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), from)
	assert.Zero(t, sender.chainID.Cmp(signed.ChainId()))

	_, err = w.SignAndSend(ctx, unsignedTransfer())
	require.NoError(t, err)
	assert.Equal(t, 1, sender.chainIDCalls, "chain id is cached")
}

func TestEVMKeyWalletPinnedChain(t *testing.T) {
	t.Run("matching node", func(t *testing.T) {
		w, sender := newEVMWallet(t, WithChainID(big.NewInt(11155111)))
		ctx := context.Background()
		_, err := w.Connect(ctx)
		require.NoError(t, err)

		_, err = w.SignAndSend(ctx, unsignedTransfer())
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)
		assert.Zero(t, big.NewInt(11155111).Cmp(sender.sent[0].ChainId()))
	})

	t.Run("node on another chain", func(t *testing.T) {
		w, sender := newEVMWallet(t, WithChainID(big.NewInt(1)))
		ctx := context.Background()
		_, err := w.Connect(ctx)
		require.NoError(t, err)

		_, err = w.SignAndSend(ctx, unsignedTransfer())
		assert.ErrorContains(t, err, "pinned to chain 1")
		assert.Empty(t, sender.sent)
	})
}

func TestEVMKeyWalletDeclined(t *testing.T) {
	w, sender := newEVMWallet(t, WithApprover(func(context.Context, string) error {
		return errors.New("not today")
	}))

	_, err := w.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, clients.IsUserRejection(err))
	assert.Empty(t, sender.sent)
}

func TestEVMKeyWalletRequiresConnection(t *testing.T) {
	w, sender := newEVMWallet(t)

	_, err := w.SignAndSend(context.Background(), unsignedTransfer())
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestNewEVMKeyWalletInvalidKey(t *testing.T) {
	_, err := NewEVMKeyWallet("zz", &fakeEVMSender{})
	assert.Error(t, err)
}

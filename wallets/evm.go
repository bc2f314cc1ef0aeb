package wallets

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/walletpay/clients"
)

// EVMSender broadcasts signed transactions. *ethclient.Client satisfies it.
type EVMSender interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// EVMKeyWallet signs with a secp256k1 private key.
type EVMKeyWallet struct {
	*keyWallet
	key     *ecdsa.PrivateKey
	backend EVMSender

	chainMu   sync.Mutex
	nodeChain *big.Int
}

var _ clients.EVMWallet = (*EVMKeyWallet)(nil)

// NewEVMKeyWallet parses a hex private key, with or without 0x.
func NewEVMKeyWallet(hexKey string, backend EVMSender, opts ...Option) (*EVMKeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid EVM private key: %w", err)
	}
	return &EVMKeyWallet{
		keyWallet: newKeyWallet(crypto.PubkeyToAddress(key.PublicKey).Hex(), opts),
		key:       key,
		backend:   backend,
	}, nil
}

func (w *EVMKeyWallet) Address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

// SignAndSend signs tx with EIP-155 replay protection for the backend's
// chain and broadcasts it. With WithChainID the backend must report the
// pinned chain.
func (w *EVMKeyWallet) SignAndSend(ctx context.Context, tx *ethtypes.Transaction) (common.Hash, error) {
	if tx.To() == nil {
		return common.Hash{}, fmt.Errorf("contract creation is not supported")
	}
	summary := fmt.Sprintf("send %s wei to %s", tx.Value(), tx.To().Hex())
	if err := w.authorize(ctx, summary); err != nil {
		return common.Hash{}, err
	}

	chainID, err := w.chain(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx failed: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func (w *EVMKeyWallet) chain(ctx context.Context) (*big.Int, error) {
	w.chainMu.Lock()
	defer w.chainMu.Unlock()

	if w.nodeChain != nil {
		return w.nodeChain, nil
	}
	id, err := w.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	if w.chainID != nil && w.chainID.Cmp(id) != 0 {
		return nil, fmt.Errorf("node is on chain %s, wallet is pinned to chain %s", id, w.chainID)
	}
	w.nodeChain = id
	return id, nil
}

package wallets

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/vitwit/walletpay/clients"
)

// SolanaSender broadcasts signed transactions. *rpc.Client satisfies it.
type SolanaSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// SolanaKeyWallet signs with an ed25519 keypair.
type SolanaKeyWallet struct {
	*keyWallet
	key     solana.PrivateKey
	backend SolanaSender
}

var _ clients.SolanaWallet = (*SolanaKeyWallet)(nil)

// NewSolanaKeyWallet parses a base58 encoded 64 byte keypair.
func NewSolanaKeyWallet(base58Key string, backend SolanaSender, opts ...Option) (*SolanaKeyWallet, error) {
	key, err := solana.PrivateKeyFromBase58(base58Key)
	if err != nil {
		return nil, fmt.Errorf("invalid Solana private key: %w", err)
	}
	return &SolanaKeyWallet{
		keyWallet: newKeyWallet(key.PublicKey().String(), opts),
		key:       key,
		backend:   backend,
	}, nil
}

func (w *SolanaKeyWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignAndSend signs every signature slot owned by this key and broadcasts.
func (w *SolanaKeyWallet) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := w.authorize(ctx, fmt.Sprintf("sign transaction with %d instruction(s)", len(tx.Message.Instructions))); err != nil {
		return solana.Signature{}, err
	}

	pub := w.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign tx failed: %w", err)
	}

	return w.backend.SendTransaction(ctx, tx)
}

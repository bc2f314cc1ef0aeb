package wallets

import (
	"context"
	"fmt"

	"github.com/fardream/go-bcs/bcs"
	"github.com/pattonkan/sui-go/sui"
	"github.com/pattonkan/sui-go/sui/suiptb"
	"github.com/pattonkan/sui-go/suiclient"
	"github.com/pattonkan/sui-go/suisigner"
	"github.com/vitwit/walletpay/clients"
)

// SuiKeyWallet signs with an ed25519 key derived from a mnemonic.
type SuiKeyWallet struct {
	*keyWallet
	signer *suisigner.Signer
	client *suiclient.ClientImpl
}

var _ clients.SuiWallet = (*SuiKeyWallet)(nil)

// NewSuiKeyWallet derives the signer from mnemonic. client executes the
// signed transactions and may be nil for wallets that never sign.
func NewSuiKeyWallet(mnemonic string, client *suiclient.ClientImpl, opts ...Option) (*SuiKeyWallet, error) {
	signer, err := suisigner.NewSignerWithMnemonic(mnemonic, suisigner.KeySchemeFlagEd25519)
	if err != nil {
		return nil, fmt.Errorf("invalid Sui mnemonic: %w", err)
	}
	return &SuiKeyWallet{
		keyWallet: newKeyWallet(clients.NormalizeSuiAddress(signer.Address.String()), opts),
		signer:    signer,
		client:    client,
	}, nil
}

// SignAndExecute builds a PaySui programmable transaction over the attached
// gas coins, signs it and executes it.
func (w *SuiKeyWallet) SignAndExecute(ctx context.Context, tx *clients.SuiTransfer) (string, error) {
	if tx.Sender != w.address {
		return "", fmt.Errorf("transfer sender %s does not match wallet %s", tx.Sender, w.address)
	}
	if len(tx.GasPayment) == 0 {
		return "", fmt.Errorf("no gas payment attached")
	}

	refs := make([]*sui.ObjectRef, 0, len(tx.GasPayment))
	for _, c := range tx.GasPayment {
		if c.Ref == nil {
			return "", fmt.Errorf("gas coin %s has no object reference", c.ObjectID)
		}
		refs = append(refs, c.Ref)
	}

	if err := w.authorize(ctx, fmt.Sprintf("send %d MIST to %s", tx.Amount, tx.Recipient)); err != nil {
		return "", err
	}

	recipient, err := sui.AddressFromHex(tx.Recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient: %w", err)
	}

	ptb := suiptb.NewTransactionDataTransactionBuilder()
	if err := ptb.PaySui([]*sui.Address{recipient}, []uint64{tx.Amount}); err != nil {
		return "", fmt.Errorf("build transfer failed: %w", err)
	}

	data := suiptb.NewTransactionData(
		w.signer.Address,
		ptb.Finish(),
		refs,
		tx.GasBudget,
		tx.GasPrice,
	)

	txBytes, err := bcs.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal transaction failed: %w", err)
	}

	if w.client == nil {
		return "", fmt.Errorf("no Sui client configured")
	}

	resp, err := w.client.SignAndExecuteTransaction(
		ctx,
		w.signer,
		txBytes,
		&suiclient.SuiTransactionBlockResponseOptions{ShowEffects: true},
	)
	if err != nil {
		return "", err
	}
	return resp.Digest.String(), nil
}

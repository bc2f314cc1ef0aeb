package walletpay

import (
	"context"
	"math/big"

	"github.com/vitwit/walletpay/clients"
	"github.com/vitwit/walletpay/session"
	"github.com/vitwit/walletpay/settlement"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/utils"
)

// Flow is the purchase flow of one chain, the surface a UI card binds to.
type Flow struct {
	chain        types.ChainKind
	adapter      clients.ChainAdapter
	session      *session.Session
	orchestrator *settlement.Orchestrator
	explorerURL  string
	closer       func()
}

func (f *Flow) Chain() types.ChainKind {
	return f.chain
}

// ConnectionState is the current session state.
func (f *Flow) ConnectionState() types.ConnectionState {
	return f.session.State()
}

// WalletAddress is the connected account, "" when not Connected.
func (f *Flow) WalletAddress() string {
	return f.session.Account()
}

// IsLoading reports whether a purchase is in flight.
func (f *Flow) IsLoading() bool {
	return f.orchestrator.IsLoading()
}

// ProviderAvailable reports whether a wallet provider is installed.
func (f *Flow) ProviderAvailable() bool {
	return f.adapter.Available()
}

// CanPurchase tells the UI whether to offer the purchase action.
func (f *Flow) CanPurchase() bool {
	return f.adapter.Available() &&
		f.session.State() == types.StateConnected &&
		!f.session.IsBusy() &&
		!f.orchestrator.IsLoading()
}

func (f *Flow) Connect(ctx context.Context) (string, error) {
	return f.session.Connect(ctx)
}

func (f *Flow) Disconnect(ctx context.Context) error {
	return f.session.Disconnect(ctx)
}

// Restore adopts an account the provider already exposes, without prompting.
func (f *Flow) Restore() (string, bool) {
	return f.session.Restore()
}

// Purchase pays req from the connected wallet. See settlement.Orchestrator.
func (f *Flow) Purchase(ctx context.Context, req *types.PaymentRequest) (*types.PaymentOutcome, error) {
	return f.orchestrator.Purchase(ctx, req)
}

// Balance returns the connected account's native balance in the smallest
// unit. It is informational and never gates a purchase.
func (f *Flow) Balance(ctx context.Context) (*big.Int, error) {
	account := f.session.Account()
	if account == "" {
		return nil, types.NewPaymentError(types.KindNotConnected, "wallet is not connected", nil)
	}
	return f.adapter.Balance(ctx, account)
}

// FormattedBalance renders Balance with the chain symbol, e.g. "1.5 SOL".
func (f *Flow) FormattedBalance(ctx context.Context) (string, error) {
	bal, err := f.Balance(ctx)
	if err != nil {
		return "", err
	}
	return utils.FormatBalance(f.chain, bal), nil
}

// Message renders outcome for display.
func (f *Flow) Message(outcome *types.PaymentOutcome) string {
	return f.orchestrator.Reporter().Message(outcome)
}

// ExplorerLink returns the explorer URL of id, "" when no explorer is
// configured or id is not a well-formed identifier for the chain.
func (f *Flow) ExplorerLink(id string) string {
	if err := utils.ValidateTransactionID(f.chain, id); err != nil {
		return ""
	}
	return utils.ExplorerLink(f.explorerURL, id)
}

// Close resets the session and releases RPC clients owned by the flow.
func (f *Flow) Close() {
	f.session.Close()
	if f.closer != nil {
		f.closer()
	}
}

// Package walletpay lets a user pay a fixed price in the native asset of an
// EVM, Solana or Sui chain through their own wallet, and reports the result.
//
// Each chain gets a Flow that pairs a wallet session with a chain adapter and
// a payment orchestrator. Flows are independent; a purchase on one chain
// never touches the state of another.
package walletpay

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/vitwit/walletpay/clients"
	"github.com/vitwit/walletpay/logger"
	"github.com/vitwit/walletpay/metrics"
	"github.com/vitwit/walletpay/session"
	"github.com/vitwit/walletpay/settlement"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/utils"
)

// WalletPay holds one Flow per registered chain.
type WalletPay struct {
	config  *types.Config
	logger  logger.Logger
	metrics metrics.Recorder
	events  types.EventHandler

	mu    sync.RWMutex
	flows map[types.ChainKind]*Flow
}

// New creates a WalletPay from config. A nil config means defaults. When
// config.EnableMetrics is set and no recorder was supplied, a Prometheus
// recorder is registered on the default registry.
func New(config *types.Config, opts ...Option) (*WalletPay, error) {
	config = config.WithDefaults()
	if err := utils.ValidateConfig(config); err != nil {
		return nil, err
	}

	w := &WalletPay{
		config:  config,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		flows:   make(map[types.ChainKind]*Flow),
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, isNoop := w.metrics.(metrics.NoopRecorder); isNoop && config.EnableMetrics {
		rec, err := metrics.NewPrometheusRecorder(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		w.metrics = rec
	}

	return w, nil
}

// NewWithDefaults creates a WalletPay with the default configuration.
func NewWithDefaults(opts ...Option) *WalletPay {
	w, _ := New(types.DefaultConfig(), opts...)
	return w
}

// Config returns the effective configuration.
func (w *WalletPay) Config() *types.Config {
	return w.config
}

// AddChain registers a Flow over adapter. Registering a chain twice fails.
func (w *WalletPay) AddChain(adapter clients.ChainAdapter) (*Flow, error) {
	return w.addChain(adapter, nil)
}

// AddEVM registers the EVM flow. When backend is nil an ethclient is dialed
// from the EVM chain config and closed with the flow.
func (w *WalletPay) AddEVM(wallet clients.EVMWallet, backend clients.EVMBackend) (*Flow, error) {
	if err := w.checkFree(types.ChainEVM); err != nil {
		return nil, err
	}

	var closer func()
	if backend == nil {
		cc, err := w.chainConfig(types.ChainEVM)
		if err != nil {
			return nil, err
		}
		client, err := ethclient.Dial(cc.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create EVM client: %w", err)
		}
		backend, closer = client, client.Close
	}

	adapter := clients.NewEVMAdapter(wallet, backend, w.adapterOptions(types.ChainEVM)...)
	return w.addChain(adapter, closer)
}

// AddSolana registers the Solana flow. When backend is nil an RPC client is
// created from the Solana chain config.
func (w *WalletPay) AddSolana(wallet clients.SolanaWallet, backend clients.SolanaBackend) (*Flow, error) {
	if err := w.checkFree(types.ChainSolana); err != nil {
		return nil, err
	}

	var closer func()
	if backend == nil {
		cc, err := w.chainConfig(types.ChainSolana)
		if err != nil {
			return nil, err
		}
		client := rpc.New(cc.RPCURL)
		backend, closer = client, func() { _ = client.Close() }
	}

	adapter := clients.NewSolanaAdapter(wallet, backend, w.adapterOptions(types.ChainSolana)...)
	return w.addChain(adapter, closer)
}

// AddSui registers the Sui flow. When backend is nil a SuiRPC is created
// from the Sui chain config.
func (w *WalletPay) AddSui(wallet clients.SuiWallet, backend clients.SuiBackend) (*Flow, error) {
	if err := w.checkFree(types.ChainSui); err != nil {
		return nil, err
	}

	if backend == nil {
		cc, err := w.chainConfig(types.ChainSui)
		if err != nil {
			return nil, err
		}
		backend = clients.NewSuiRPC(cc.RPCURL)
	}

	adapter := clients.NewSuiAdapter(wallet, backend, w.adapterOptions(types.ChainSui)...)
	return w.addChain(adapter, nil)
}

// checkFree fails when chain already has a flow.
func (w *WalletPay) checkFree(chain types.ChainKind) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, exists := w.flows[chain]; exists {
		return fmt.Errorf("chain %s is already registered", chain)
	}
	return nil
}

func (w *WalletPay) chainConfig(chain types.ChainKind) (types.ChainConfig, error) {
	cc, ok := w.config.Chains[chain]
	if !ok || cc.RPCURL == "" {
		return types.ChainConfig{}, fmt.Errorf("no RPC URL configured for %s", chain)
	}
	return cc, nil
}

func (w *WalletPay) adapterOptions(chain types.ChainKind) []clients.Option {
	opts := clients.FromChainConfig(w.config, chain)
	return append(opts, clients.WithLogger(w.logger))
}

// addChain registers adapter. closer releases a client dialed for it and
// runs on every failure path.
func (w *WalletPay) addChain(adapter clients.ChainAdapter, closer func()) (flow *Flow, err error) {
	defer func() {
		if err != nil && closer != nil {
			closer()
		}
	}()

	if adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	chain := adapter.Chain()
	if !chain.IsValid() {
		return nil, types.NewPaymentError(types.KindInvalidRequest, fmt.Sprintf("unsupported chain: %q", chain), nil)
	}

	sess := session.New(adapter,
		session.WithLogger(w.logger),
		session.WithMetrics(w.metrics),
		session.WithEventHandler(w.events),
	)
	orch, err := settlement.NewOrchestrator(sess, adapter,
		settlement.WithLogger(w.logger),
		settlement.WithMetrics(w.metrics),
		settlement.WithEventHandler(w.events),
	)
	if err != nil {
		return nil, err
	}

	flow = &Flow{
		chain:        chain,
		adapter:      adapter,
		session:      sess,
		orchestrator: orch,
		explorerURL:  w.config.Chains[chain].ExplorerURL,
		closer:       closer,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.flows[chain]; exists {
		return nil, fmt.Errorf("chain %s is already registered", chain)
	}
	w.flows[chain] = flow

	w.logger.Info("chain registered", map[string]any{"chain": chain, "available": adapter.Available()})
	return flow, nil
}

// Flow returns the flow registered for chain.
func (w *WalletPay) Flow(chain types.ChainKind) (*Flow, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	flow, ok := w.flows[chain]
	if !ok {
		return nil, types.NewPaymentError(types.KindInvalidRequest, fmt.Sprintf("chain %s is not registered", chain), nil)
	}
	return flow, nil
}

// Chains lists the registered chains in a stable order.
func (w *WalletPay) Chains() []types.ChainKind {
	w.mu.RLock()
	defer w.mu.RUnlock()

	chains := make([]types.ChainKind, 0, len(w.flows))
	for chain := range w.flows {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

// Purchase routes req to the flow of req.Chain.
func (w *WalletPay) Purchase(ctx context.Context, req *types.PaymentRequest) (*types.PaymentOutcome, error) {
	if req == nil {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "payment request is required", nil)
	}
	flow, err := w.Flow(req.Chain)
	if err != nil {
		return nil, err
	}
	return flow.Purchase(ctx, req)
}

// PurchaseJSON parses and validates a JSON payment request, then purchases.
func (w *WalletPay) PurchaseJSON(ctx context.Context, data []byte) (*types.PaymentOutcome, error) {
	req, err := utils.ParsePaymentRequest(data)
	if err != nil {
		return nil, err
	}
	return w.Purchase(ctx, req)
}

// Close tears down every flow without calling wallet providers.
func (w *WalletPay) Close() {
	w.mu.Lock()
	flows := w.flows
	w.flows = make(map[types.ChainKind]*Flow)
	w.mu.Unlock()

	for _, flow := range flows {
		flow.Close()
	}
	if z, ok := w.logger.(interface{ Sync() error }); ok {
		_ = z.Sync()
	}
}

// Version information
const Version = "1.0.0"

// GetVersion returns version information.
func GetVersion() map[string]interface{} {
	chains := make([]string, 0, len(types.SupportedChains))
	for _, c := range types.SupportedChains {
		chains = append(chains, c.String())
	}
	return map[string]interface{}{
		"library_version":  Version,
		"supported_chains": chains,
		"supported_assets": []string{"ETH", "SOL", "SUI"},
	}
}

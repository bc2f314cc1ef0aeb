// Package session tracks the wallet connection of one purchase flow.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vitwit/walletpay/logger"
	"github.com/vitwit/walletpay/metrics"
	"github.com/vitwit/walletpay/types"
)

// Provider is the connection half of a chain adapter.
type Provider interface {
	Chain() types.ChainKind
	Available() bool
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	Account() string
}

// Session is the per-chain connection state machine:
//
//	Disconnected -> Connecting -> Connected -> Disconnecting -> Disconnected
//
// A failed connect returns to Disconnected. Only one transition or purchase
// may be in flight; anything arriving meanwhile fails with Busy.
type Session struct {
	provider Provider
	chain    types.ChainKind
	logger   logger.Logger
	metrics  metrics.Recorder
	events   types.EventHandler

	mu         sync.Mutex
	state      types.ConnectionState
	account    string
	purchasing bool
}

type Option func(*Session)

func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Session) {
		s.metrics = metrics.OrNoop(r)
	}
}

// WithEventHandler registers h for connection events. h is called without
// the session lock held.
func WithEventHandler(h types.EventHandler) Option {
	return func(s *Session) {
		s.events = h
	}
}

// New creates a Disconnected session over provider.
func New(provider Provider, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		chain:    provider.Chain(),
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Chain() types.ChainKind {
	return s.chain
}

// State returns the current state after observing the provider.
func (s *Session) State() types.ConnectionState {
	s.mu.Lock()
	ev := s.observe()
	state := s.state
	s.mu.Unlock()

	s.emit(ev)
	return state
}

// Account returns the connected address, "" unless Connected.
func (s *Session) Account() string {
	s.mu.Lock()
	ev := s.observe()
	account := s.account
	s.mu.Unlock()

	s.emit(ev)
	return account
}

// IsBusy reports whether a transition or purchase is in flight.
func (s *Session) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy()
}

func (s *Session) busy() bool {
	return s.purchasing || s.state == types.StateConnecting || s.state == types.StateDisconnecting
}

// Connect asks the provider for an account. Calling it while Connected
// returns the current address without prompting.
func (s *Session) Connect(ctx context.Context) (string, error) {
	s.mu.Lock()
	ev := s.observe()
	if s.busy() {
		s.mu.Unlock()
		s.emit(ev)
		return "", types.NewPaymentError(types.KindBusy, "a wallet operation is already in progress", nil)
	}
	if s.state == types.StateConnected {
		account := s.account
		s.mu.Unlock()
		s.emit(ev)
		return account, nil
	}
	s.state = types.StateConnecting
	s.mu.Unlock()

	s.emit(ev)
	s.emit(&types.Event{Type: types.EventConnecting, Chain: s.chain, State: types.StateConnecting})

	start := time.Now()
	account, err := s.provider.Connect(ctx)

	s.mu.Lock()
	if err != nil {
		s.state = types.StateDisconnected
		s.account = ""
		s.mu.Unlock()

		s.logger.Warn("wallet connect failed", map[string]any{"chain": s.chain, "error": err})
		s.metrics.IncCounter(metrics.ConnectFailure, s.labels())
		s.emit(&types.Event{
			Type:     types.EventConnectFailed,
			Chain:    s.chain,
			State:    types.StateDisconnected,
			Err:      err,
			Message:  err.Error(),
			Duration: time.Since(start),
		})
		return "", err
	}
	s.state = types.StateConnected
	s.account = account
	s.mu.Unlock()

	s.logger.Info("wallet connected", map[string]any{"chain": s.chain, "account": account})
	s.metrics.IncCounter(metrics.Connect, s.labels())
	s.metrics.ObserveLatency(metrics.Connect, time.Since(start), s.labels())
	s.emit(&types.Event{
		Type:     types.EventConnected,
		Chain:    s.chain,
		State:    types.StateConnected,
		Account:  account,
		Duration: time.Since(start),
	})
	return account, nil
}

// Disconnect asks the provider to disconnect. The session only returns to
// Disconnected once the provider acknowledged; a failed disconnect leaves it
// Connected and returns the error.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	ev := s.observe()
	if s.busy() {
		s.mu.Unlock()
		s.emit(ev)
		return types.NewPaymentError(types.KindBusy, "a wallet operation is already in progress", nil)
	}
	if s.state == types.StateDisconnected {
		s.mu.Unlock()
		s.emit(ev)
		return nil
	}
	s.state = types.StateDisconnecting
	account := s.account
	s.mu.Unlock()

	err := s.provider.Disconnect(ctx)

	s.mu.Lock()
	if err != nil && !errors.Is(err, types.ErrProviderUnavailable) {
		s.state = types.StateConnected
		s.mu.Unlock()

		s.logger.Warn("wallet disconnect failed", map[string]any{"chain": s.chain, "error": err})
		return err
	}
	s.state = types.StateDisconnected
	s.account = ""
	s.mu.Unlock()

	s.logger.Info("wallet disconnected", map[string]any{"chain": s.chain, "account": account})
	s.emit(&types.Event{Type: types.EventDisconnected, Chain: s.chain, State: types.StateDisconnected, Account: account})
	return nil
}

// Restore adopts an account the provider is already connected with, without
// prompting. It reports whether the session is Connected afterwards.
func (s *Session) Restore() (string, bool) {
	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return "", false
	}
	if s.state == types.StateConnected {
		ev := s.observe()
		account, ok := s.account, s.state == types.StateConnected
		s.mu.Unlock()
		s.emit(ev)
		return account, ok
	}
	if !s.provider.Available() {
		s.mu.Unlock()
		return "", false
	}
	account := s.provider.Account()
	if account == "" {
		s.mu.Unlock()
		return "", false
	}
	s.state = types.StateConnected
	s.account = account
	s.mu.Unlock()

	s.logger.Info("wallet session restored", map[string]any{"chain": s.chain, "account": account})
	s.emit(&types.Event{Type: types.EventConnected, Chain: s.chain, State: types.StateConnected, Account: account})
	return account, true
}

// Close resets the session on teardown without calling the provider.
func (s *Session) Close() {
	s.mu.Lock()
	wasConnected := s.state != types.StateDisconnected
	account := s.account
	s.state = types.StateDisconnected
	s.account = ""
	s.mu.Unlock()

	if wasConnected {
		s.emit(&types.Event{Type: types.EventDisconnected, Chain: s.chain, State: types.StateDisconnected, Account: account})
	}
}

// BeginPurchase reserves the session for one purchase. The caller must call
// release exactly once when the attempt is over; extra calls are ignored.
func (s *Session) BeginPurchase() (account string, release func(), err error) {
	s.mu.Lock()
	ev := s.observe()
	defer func() {
		s.mu.Unlock()
		s.emit(ev)
	}()

	if s.purchasing || s.state == types.StateConnecting || s.state == types.StateDisconnecting {
		return "", nil, types.NewPaymentError(types.KindBusy, "a purchase is already in progress", nil)
	}
	if s.state != types.StateConnected {
		return "", nil, types.NewPaymentError(types.KindNotConnected, "connect your wallet first", nil)
	}

	s.purchasing = true
	var once sync.Once
	release = func() {
		once.Do(func() {
			s.mu.Lock()
			s.purchasing = false
			s.mu.Unlock()
		})
	}
	return s.account, release, nil
}

// observe reconciles with the provider while Connected: an account that
// disappeared forces Disconnected, a switched account is adopted.
// Must be called with mu held; the returned event is emitted after unlock.
func (s *Session) observe() *types.Event {
	if s.state != types.StateConnected {
		return nil
	}

	current := ""
	if s.provider.Available() {
		current = s.provider.Account()
	}

	switch {
	case current == "":
		previous := s.account
		s.state = types.StateDisconnected
		s.account = ""
		s.logger.Info("wallet disconnected by provider", map[string]any{"chain": s.chain, "account": previous})
		return &types.Event{
			Type:    types.EventDisconnected,
			Chain:   s.chain,
			State:   types.StateDisconnected,
			Account: previous,
			Message: "wallet disconnected by provider",
		}
	case current != s.account:
		s.logger.Info("wallet account changed", map[string]any{"chain": s.chain, "from": s.account, "to": current})
		s.account = current
		return &types.Event{
			Type:    types.EventConnected,
			Chain:   s.chain,
			State:   types.StateConnected,
			Account: current,
			Message: "wallet account changed",
		}
	}
	return nil
}

func (s *Session) emit(ev *types.Event) {
	if ev == nil {
		return
	}
	s.events.Emit(*ev)
}

func (s *Session) labels() map[string]string {
	return map[string]string{"chain": string(s.chain)}
}

// Package settlement sequences one purchase attempt through build, submit
// and confirm on a connected wallet session.
package settlement

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vitwit/walletpay/clients"
	"github.com/vitwit/walletpay/logger"
	"github.com/vitwit/walletpay/metrics"
	"github.com/vitwit/walletpay/types"
	"github.com/vitwit/walletpay/verification"
)

// Session is the part of session.Session the orchestrator needs.
type Session interface {
	Chain() types.ChainKind
	BeginPurchase() (account string, release func(), err error)
}

// Orchestrator runs purchases for one session. At most one attempt is in
// flight at a time.
type Orchestrator struct {
	session  Session
	adapter  clients.ChainAdapter
	reporter *verification.Reporter
	logger   logger.Logger
	metrics  metrics.Recorder
	events   types.EventHandler

	loading atomic.Bool
}

type Option func(*Orchestrator)

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics.OrNoop(r)
	}
}

func WithEventHandler(h types.EventHandler) Option {
	return func(o *Orchestrator) {
		o.events = h
	}
}

// NewOrchestrator pairs a session with the adapter of the same chain.
func NewOrchestrator(session Session, adapter clients.ChainAdapter, opts ...Option) (*Orchestrator, error) {
	if session == nil || adapter == nil {
		return nil, fmt.Errorf("session and adapter are required")
	}
	if session.Chain() != adapter.Chain() {
		return nil, fmt.Errorf("session chain %s does not match adapter chain %s", session.Chain(), adapter.Chain())
	}

	o := &Orchestrator{
		session:  session,
		adapter:  adapter,
		reporter: verification.NewReporter(),
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// IsLoading reports whether an attempt is in flight.
func (o *Orchestrator) IsLoading() bool {
	return o.loading.Load()
}

// Reporter returns the reporter used to render outcomes.
func (o *Orchestrator) Reporter() *verification.Reporter {
	return o.reporter
}

// Purchase runs build, submit and confirm.
//
// Precondition failures (invalid or mismatched request, NotConnected, Busy)
// are returned as errors and nothing is sent to the provider. Every later
// failure is reported as a Failed outcome with a nil error.
//
// Cancelling ctx before submission aborts with nothing sent. Submission
// itself is not cancellable. Cancelling during confirmation yields a Failed
// outcome with detail "cancelled"; the transaction may still land.
func (o *Orchestrator) Purchase(ctx context.Context, req *types.PaymentRequest) (*types.PaymentOutcome, error) {
	chain := o.session.Chain()
	if req == nil {
		return nil, types.NewPaymentError(types.KindInvalidRequest, "payment request is required", nil)
	}
	if req.Chain != chain {
		return nil, types.NewPaymentError(types.KindInvalidRequest,
			fmt.Sprintf("request for %s cannot be paid from a %s session", req.Chain, chain), nil)
	}

	account, release, err := o.session.BeginPurchase()
	if err != nil {
		o.logger.Debug("purchase refused", map[string]any{"chain": chain, "error": err})
		return nil, err
	}
	defer release()

	o.loading.Store(true)
	defer o.loading.Store(false)

	a := &attempt{
		id:      uuid.NewString(),
		chain:   chain,
		account: account,
		start:   time.Now(),
	}

	o.metrics.IncCounter(metrics.PurchaseAttempt, a.labels())
	o.logger.Info("purchase started", map[string]any{
		"chain":     chain,
		"attempt":   a.id,
		"price":     req.PriceDecimal,
		"recipient": req.RecipientAddress,
	})
	o.events.Emit(types.Event{
		Type:      types.EventPurchaseAttempt,
		Chain:     chain,
		State:     types.StateConnected,
		Account:   account,
		AttemptID: a.id,
	})

	if err := ctx.Err(); err != nil {
		return o.fail(a, "", err), nil
	}

	handle, err := o.adapter.BuildTransaction(ctx, req, account)
	if err != nil {
		return o.fail(a, "", err), nil
	}

	if err := ctx.Err(); err != nil {
		return o.fail(a, "", err), nil
	}

	submitted, err := o.adapter.Submit(context.WithoutCancel(ctx), handle)
	if err != nil {
		return o.fail(a, "", err), nil
	}

	o.logger.Info("purchase submitted", map[string]any{
		"chain":     chain,
		"attempt":   a.id,
		"id":        submitted.ID,
		"reference": submitted.Reference,
	})
	o.events.Emit(types.Event{
		Type:      types.EventPurchaseSubmitted,
		Chain:     chain,
		State:     types.StateConnected,
		Account:   account,
		AttemptID: a.id,
		Message:   submitted.ID,
	})

	confirmStart := time.Now()
	outcome, err := o.adapter.Confirm(ctx, submitted)
	o.metrics.ObserveLatency(metrics.Confirm, time.Since(confirmStart), a.labels())
	if err != nil {
		return o.fail(a, submitted.ID, err), nil
	}
	if outcome == nil {
		outcome = o.reporter.Succeeded(chain, submitted.ID)
	}

	return o.succeed(a, outcome), nil
}

type attempt struct {
	id      string
	chain   types.ChainKind
	account string
	start   time.Time
}

func (a *attempt) labels() map[string]string {
	return map[string]string{"chain": string(a.chain)}
}

func (o *Orchestrator) succeed(a *attempt, outcome *types.PaymentOutcome) *types.PaymentOutcome {
	out := *outcome
	out.AttemptID = a.id
	elapsed := time.Since(a.start)

	o.metrics.IncCounter(metrics.PurchaseSuccess, a.labels())
	o.metrics.ObserveLatency(metrics.Purchase, elapsed, a.labels())
	o.logger.Info("purchase succeeded", map[string]any{
		"chain":   a.chain,
		"attempt": a.id,
		"id":      out.Identifier,
	})
	o.events.Emit(types.Event{
		Type:      types.EventPurchaseSucceeded,
		Chain:     a.chain,
		State:     types.StateConnected,
		Account:   a.account,
		AttemptID: a.id,
		Outcome:   &out,
		Message:   o.reporter.Message(&out),
		Duration:  elapsed,
	})
	return &out
}

func (o *Orchestrator) fail(a *attempt, id string, err error) *types.PaymentOutcome {
	out := o.reporter.FromError(a.chain, id, err)
	out.AttemptID = a.id
	elapsed := time.Since(a.start)

	o.metrics.IncCounter(metrics.PurchaseFailure, a.labels())
	o.metrics.ObserveLatency(metrics.Purchase, elapsed, a.labels())
	o.logger.Warn("purchase failed", map[string]any{
		"chain":   a.chain,
		"attempt": a.id,
		"id":      id,
		"kind":    out.Kind,
		"detail":  out.Detail,
	})
	o.events.Emit(types.Event{
		Type:      types.EventPurchaseFailed,
		Chain:     a.chain,
		State:     types.StateConnected,
		Account:   a.account,
		AttemptID: a.id,
		Outcome:   out,
		Message:   o.reporter.Message(out),
		Err:       err,
		Duration:  elapsed,
	})
	return out
}

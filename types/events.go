package types

import "time"

// EventType identifies a session or purchase lifecycle event.
type EventType string

const (
	EventConnecting    EventType = "connecting"
	EventConnected     EventType = "connected"
	EventConnectFailed EventType = "connect_failed"
	EventDisconnected  EventType = "disconnected"

	EventPurchaseAttempt   EventType = "purchase_attempt"
	EventPurchaseSubmitted EventType = "purchase_submitted"
	EventPurchaseSucceeded EventType = "purchase_succeeded"
	EventPurchaseFailed    EventType = "purchase_failed"
)

// Event is delivered to the UI layer instead of blocking dialogs.
type Event struct {
	Type      EventType
	Chain     ChainKind
	Timestamp time.Time

	// State is the session state after the event.
	State ConnectionState

	// Account is the connected wallet address, when known.
	Account string

	// AttemptID groups the purchase events of one attempt.
	AttemptID string

	// Outcome is set on purchase_succeeded and purchase_failed.
	Outcome *PaymentOutcome

	// Message is a human-readable summary suitable for display.
	Message string

	Err      error
	Duration time.Duration
}

// EventHandler receives events synchronously; it must not block.
type EventHandler func(Event)

// Emit calls h when it is non-nil.
func (h EventHandler) Emit(e Event) {
	if h == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	h(e)
}

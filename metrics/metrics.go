package metrics

import "time"

// Metric names recorded by the payment core.
const (
	PurchaseAttempt = "purchase_attempt"
	PurchaseSuccess = "purchase_success"
	PurchaseFailure = "purchase_failure"
	Purchase        = "purchase"
	Connect         = "connect"
	ConnectFailure  = "connect_failure"
	Confirm         = "confirm"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

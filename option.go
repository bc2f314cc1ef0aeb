package walletpay

import (
	"time"

	"github.com/vitwit/walletpay/logger"
	"github.com/vitwit/walletpay/metrics"
	"github.com/vitwit/walletpay/types"
)

type Option func(*WalletPay)

func WithLogger(l logger.Logger) Option {
	return func(w *WalletPay) {
		w.logger = logger.OrNoop(l)
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(w *WalletPay) {
		w.metrics = metrics.OrNoop(r)
	}
}

// WithConfirmTimeout overrides config.ConfirmTimeout for every flow.
func WithConfirmTimeout(t time.Duration) Option {
	return func(w *WalletPay) {
		if t > 0 {
			w.config.ConfirmTimeout = t
		}
	}
}

// WithEventHandler receives session and purchase events of every flow.
func WithEventHandler(h types.EventHandler) Option {
	return func(w *WalletPay) {
		w.events = h
	}
}

// Package verification waits for submitted transactions to reach finality
// and maps every attempt result onto a PaymentOutcome.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitwit/walletpay/types"
)

// PollConfig bounds a confirmation wait.
type PollConfig struct {
	Timeout  time.Duration // Upper bound for the whole wait
	Interval time.Duration // Spacing between status queries
}

// DefaultPollConfig mirrors the package-wide config defaults.
var DefaultPollConfig = PollConfig{
	Timeout:  types.DefaultConfirmTimeout,
	Interval: types.DefaultPollInterval,
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultPollConfig.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollConfig.Interval
	}
	return c
}

// CheckFunc queries the chain once. It returns done=true once the status is
// terminal, in which case err is the terminal failure (nil on success).
// An error with done=false is treated as transient and the wait continues.
type CheckFunc[T any] func(ctx context.Context) (result T, done bool, err error)

// Poll runs check immediately and then on every tick until it reports a
// terminal status, cfg.Timeout elapses or ctx is cancelled.
//
// Cancellation of ctx yields a Cancelled error whose detail is "cancelled";
// the bound elapsing yields ConfirmationTimeout. Neither says anything about
// whether the transaction landed.
func Poll[T any](ctx context.Context, cfg PollConfig, check CheckFunc[T]) (T, error) {
	var zero T
	cfg = cfg.withDefaults()

	pollCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	var lastErr error
	for {
		result, done, err := check(pollCtx)
		if done {
			return result, err
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ticker.C:
		case <-pollCtx.Done():
			return zero, waitError(ctx, cfg.Timeout, lastErr)
		}
	}
}

func waitError(parent context.Context, bound time.Duration, lastErr error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return types.NewPaymentError(types.KindCancelled, "cancelled", nil)
	}

	msg := fmt.Sprintf("not confirmed within %s", bound)
	if lastErr != nil {
		msg = fmt.Sprintf("%s (last status error: %v)", msg, lastErr)
	}
	return types.NewPaymentError(types.KindConfirmationTimeout, msg, nil)
}

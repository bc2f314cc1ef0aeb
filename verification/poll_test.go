package verification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/walletpay/types"
)

func TestPoll(t *testing.T) {
	cfg := PollConfig{Timeout: time.Second, Interval: 5 * time.Millisecond}

	t.Run("returns once terminal", func(t *testing.T) {
		var calls atomic.Int32
		got, err := Poll(context.Background(), cfg, func(context.Context) (string, bool, error) {
			if calls.Add(1) < 3 {
				return "", false, nil
			}
			return "finalized", true, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "finalized", got)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("terminal failure is returned as is", func(t *testing.T) {
		failure := types.NewPaymentError(types.KindOnChainFailure, "execution reverted", nil)
		_, err := Poll(context.Background(), cfg, func(context.Context) (int, bool, error) {
			return 0, true, failure
		})

		assert.Same(t, failure, err)
	})

	t.Run("transient errors keep waiting", func(t *testing.T) {
		var calls atomic.Int32
		got, err := Poll(context.Background(), cfg, func(context.Context) (int, bool, error) {
			if calls.Add(1) == 1 {
				return 0, false, errors.New("connection reset")
			}
			return 7, true, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("bound elapses", func(t *testing.T) {
		short := PollConfig{Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond}
		_, err := Poll(context.Background(), short, func(context.Context) (int, bool, error) {
			return 0, false, errors.New("rpc unavailable")
		})

		require.Error(t, err)
		assert.Equal(t, types.KindConfirmationTimeout, types.KindOf(err))
		assert.Contains(t, err.Error(), "rpc unavailable")
	})

	t.Run("cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := Poll(ctx, cfg, func(context.Context) (int, bool, error) {
			return 0, false, nil
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrCancelled)

		var pe *types.PaymentError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "cancelled", pe.Detail())
	})

	t.Run("zero config uses defaults", func(t *testing.T) {
		got := PollConfig{}.withDefaults()
		assert.Equal(t, DefaultPollConfig, got)
	})
}

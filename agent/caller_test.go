package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/ratelimit"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/retry"
)

func newTestCaller(retryCfg retry.Config) *Caller {
	return NewCaller("openai", CallerOptions{
		RateLimit: ratelimit.Config{}, // unlimited in tests
		Retry:     retryCfg,
	})
}

func TestCallerDoSuccess(t *testing.T) {
	c := newTestCaller(retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond})

	calls := 0
	err := c.Do(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "openai", c.Name())
}

func TestCallerDoRetriesTransientFailures(t *testing.T) {
	c := newTestCaller(retry.Config{MaxRetries: 3, BaseDelay: time.Millisecond})

	calls := 0
	err := c.Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.WrapTransient(assert.AnError, "apify", "fetch", "scrape profile")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCallerDoStopsOnAuthFailure(t *testing.T) {
	c := newTestCaller(retry.Config{MaxRetries: 5, BaseDelay: time.Millisecond})

	calls := 0
	err := c.Do(context.Background(), func(_ context.Context) error {
		calls++
		return errors.WrapAuthentication(errors.ErrInvalidToken, "gmail", "poll", "refresh grant")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "credential failures are not retried")
}

func TestCallerLimiterGatesAttempts(t *testing.T) {
	c := NewCaller("openai", CallerOptions{
		RateLimit: ratelimit.Config{
			MaxPerSecond: 2,
			SecondWindow: 100 * time.Millisecond,
		},
		Retry: retry.Config{MaxRetries: 0, BaseDelay: time.Millisecond},
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Do(context.Background(), func(_ context.Context) error {
			return nil
		}))
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond,
		"third call waits for the window to roll over")

	admitted, _ := c.Limiter().Stats()
	assert.Equal(t, uint64(3), admitted)
}

package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/ratelimit"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config provides executor configuration
type Config struct {
	MaxRetries int           // Retries beyond the first attempt (3 = up to 4 attempts)
	BaseDelay  time.Duration // Delay before the first retry
	MaxDelay   time.Duration // Cap applied to every backoff delay
	Multiplier float64       // Backoff multiplier (typically 2.0)
	Jitter     bool          // Add up to 25% randomness to each delay

	// OnBackoff, when set, observes each backoff delay before it is slept.
	// Used for metrics; must not block.
	OnBackoff func(delay time.Duration)
}

// DefaultConfig returns the reference executor configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1000 * time.Millisecond,
		MaxDelay:   30000 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false,
	}
}

// withDefaults fills zero fields so a partially specified config behaves
func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 1000 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30000 * time.Millisecond
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	return c
}

// BackoffDelay returns the delay before retry index k (0-indexed, k=0 is the
// first retry): min(BaseDelay*Multiplier^k, MaxDelay).
func (c Config) BackoffDelay(k int) time.Duration {
	c = c.withDefaults()
	if k < 0 {
		k = 0
	}
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(k))
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Executor wraps operations with rate-limit admission, failure
// classification and exponential backoff. A nil limiter skips admission;
// otherwise every attempt, including retries, consumes one admission from
// the credential scope the limiter guards.
type Executor struct {
	cfg     Config
	limiter *ratelimit.Limiter
}

// New creates an executor for one external credential scope
func New(cfg Config, limiter *ratelimit.Limiter) *Executor {
	return &Executor{cfg: cfg.withDefaults(), limiter: limiter}
}

// Config returns the executor's effective configuration
func (e *Executor) Config() Config {
	return e.cfg
}

// Do executes op until it succeeds, fails non-retryably, or attempts are
// exhausted. The error returned after exhaustion is the last error op
// produced, unmodified.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, err)
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				if lastErr != nil {
					return lastErr
				}
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.IsRetryable(err) {
			return err
		}
		if attempt == e.cfg.MaxRetries {
			break
		}

		delay := e.delayFor(attempt)
		if e.cfg.OnBackoff != nil {
			e.cfg.OnBackoff(delay)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// delayFor returns the backoff delay before the retry that follows attempt
// (0-indexed attempt = retry index), with jitter applied when configured.
func (e *Executor) delayFor(attempt int) time.Duration {
	delay := e.cfg.BackoffDelay(attempt)
	if e.cfg.Jitter && delay > 0 {
		randMu.Lock()
		jitter := time.Duration(randSource.Int63n(int64(delay)/4 + 1))
		randMu.Unlock()
		delay += jitter
	}
	return delay
}

// sleep waits for d with context cancellation support
func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoValue executes op through exec and returns its result alongside the
// terminal error, with the same semantics as Do.
func DoValue[T any](ctx context.Context, exec *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := exec.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = op(ctx)
		return innerErr
	})
	return result, err
}

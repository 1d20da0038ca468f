package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/shajith240/SHARPFLOW-sub002/errors"
	"github.com/shajith240/SHARPFLOW-sub002/metric"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/ratelimit"
	"github.com/shajith240/SHARPFLOW-sub002/pkg/retry"
)

// Operation is one external call an agent wants executed reliably
type Operation func(ctx context.Context) error

// Caller binds one external credential scope to its rate limiter and retry
// executor. Each upstream credential (an OpenAI key, an Apify token, a Gmail
// OAuth grant) gets its own Caller so one scope's quota exhaustion never
// throttles another.
type Caller struct {
	name    string
	limiter *ratelimit.Limiter
	exec    *retry.Executor
	logger  *slog.Logger
	metrics *metric.Metrics
}

// CallerOptions configures a Caller
type CallerOptions struct {
	RateLimit ratelimit.Config
	Retry     retry.Config
	Logger    *slog.Logger
	Metrics   *metric.Metrics // Optional; nil disables metrics
}

// NewCaller creates a caller for the named credential scope
func NewCaller(name string, opts CallerOptions) *Caller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	limiter := ratelimit.New(opts.RateLimit)

	retryCfg := opts.Retry
	if opts.Metrics != nil {
		metrics := opts.Metrics
		retryCfg.OnBackoff = func(delay time.Duration) {
			metrics.RecordBackoff(name, delay)
		}
	}

	return &Caller{
		name:    name,
		limiter: limiter,
		exec:    retry.New(retryCfg, limiter),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Name returns the credential scope name
func (c *Caller) Name() string {
	return c.name
}

// Limiter exposes the scope's limiter for usage introspection
func (c *Caller) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Do runs the operation under the scope's admission and retry policy
func (c *Caller) Do(ctx context.Context, op Operation) error {
	var waitsBefore uint64
	if c.metrics != nil {
		_, waitsBefore = c.limiter.Stats()
	}

	err := c.exec.Do(ctx, func(ctx context.Context) error {
		attemptErr := op(ctx)
		if attemptErr != nil && c.metrics != nil && errors.IsRetryable(attemptErr) {
			c.metrics.AgentRetries.WithLabelValues(c.name, errors.Classify(attemptErr).String()).Inc()
		}
		return attemptErr
	})

	if c.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.metrics.AgentAttempts.WithLabelValues(c.name, outcome).Inc()

		_, waitsAfter := c.limiter.Stats()
		if delta := waitsAfter - waitsBefore; delta > 0 {
			c.metrics.AdmissionWaits.WithLabelValues(c.name).Add(float64(delta))
		}
	}
	if err != nil {
		c.logger.Warn("external call failed after retry policy",
			"scope", c.name, "error", err)
	}
	return err
}

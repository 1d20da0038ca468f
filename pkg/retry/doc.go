// Package retry provides the rate-limited retrying executor used for every
// call a background agent makes to a quota-constrained external service.
//
// Each attempt runs through the same pipeline:
//
//	admission (ratelimit.Limiter) -> attempt -> classify failure
//	  -> non-retryable: fail immediately
//	  -> retryable, attempts remain: exponential backoff, try again
//	  -> retryable, attempts exhausted: fail with the LAST underlying error
//
// Classification comes from the errors package: authentication, permission
// and validation failures are never retried; explicit rate-limit signals and
// generic transient failures are retried until attempts run out. On
// exhaustion the executor returns the last error unmodified so callers keep
// full diagnosability of what the upstream actually said.
//
// Backoff for retry index k is min(BaseDelay*Multiplier^k, MaxDelay). Jitter
// is off by default and should be enabled when many callers in one process
// share an upstream, to keep their retries from synchronizing.
package retry

// Package errors provides the failure taxonomy shared by the notification
// pipeline. It classifies upstream failures into retryable and non-retryable
// classes, carries component/operation context, and maps status-code-like
// hints from external SDKs onto the taxonomy.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for retry handling
type ErrorClass int

const (
	// ErrorTransient represents temporary failures that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorRateLimited represents explicit quota signals; retryable after backoff
	ErrorRateLimited
	// ErrorValidation represents caller bugs (malformed requests); never retried
	ErrorValidation
	// ErrorAuthentication represents credential failures; never retried
	ErrorAuthentication
	// ErrorPermission represents authorization failures; never retried
	ErrorPermission
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorValidation:
		return "validation"
	case ErrorAuthentication:
		return "authentication"
	case ErrorPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Handshake and connection errors
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrTokenExpired     = errors.New("authentication token expired")
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotRunning       = errors.New("hub not running")
	ErrAlreadyStarted   = errors.New("hub already started")

	// Quota and admission errors
	ErrRateLimited   = errors.New("rate limited")
	ErrQuotaExceeded = errors.New("quota exceeded")

	// Request errors
	ErrMalformedFrame = errors.New("malformed frame")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ClassifiedError wraps an error with its classification and origin
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Classify returns the error class for an error. Unclassified errors default
// to transient so a flaky upstream gets the benefit of a retry.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded) {
		return ErrorRateLimited
	}
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) {
		return ErrorAuthentication
	}
	if errors.Is(err, ErrMalformedFrame) || errors.Is(err, ErrInvalidConfig) {
		return ErrorValidation
	}

	return classifyMessage(err.Error())
}

// classifyMessage falls back to message-pattern matching for errors from SDKs
// that expose neither sentinels nor status codes.
func classifyMessage(msg string) ErrorClass {
	lower := strings.ToLower(msg)

	// Rate-limit signals first: "rate limit exceeded" must not be mistaken
	// for a permission failure even when phrased alongside 403 wording.
	for _, pattern := range []string{"rate limit", "too many requests", "quota"} {
		if strings.Contains(lower, pattern) {
			return ErrorRateLimited
		}
	}
	for _, pattern := range []string{"unauthorized", "invalid api key", "invalid credentials", "authentication"} {
		if strings.Contains(lower, pattern) {
			return ErrorAuthentication
		}
	}
	for _, pattern := range []string{"forbidden", "permission", "access denied"} {
		if strings.Contains(lower, pattern) {
			return ErrorPermission
		}
	}
	for _, pattern := range []string{"bad request", "malformed", "invalid argument", "invalid request"} {
		if strings.Contains(lower, pattern) {
			return ErrorValidation
		}
	}

	return ErrorTransient
}

// ClassifyStatus maps an HTTP-style status code onto the taxonomy. The
// message is consulted for 403 responses because several upstreams report
// exhausted quotas as 403 with a rate-limit body.
func ClassifyStatus(code int, msg string) ErrorClass {
	switch {
	case code == 401:
		return ErrorAuthentication
	case code == 403:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota") {
			return ErrorRateLimited
		}
		return ErrorPermission
	case code == 429:
		return ErrorRateLimited
	case code >= 400 && code < 500:
		return ErrorValidation
	default:
		return ErrorTransient
	}
}

// IsRetryable reports whether the executor may attempt the operation again.
// Only rate-limit signals and transient failures qualify; retrying an
// authentication, permission or validation failure cannot change the outcome
// and wastes quota.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch Classify(err) {
	case ErrorTransient, ErrorRateLimited:
		return true
	default:
		return false
	}
}

// IsAuthentication checks if an error is an authentication failure
func IsAuthentication(err error) bool {
	return err != nil && Classify(err) == ErrorAuthentication
}

// IsPermission checks if an error is an authorization failure
func IsPermission(err error) bool {
	return err != nil && Classify(err) == ErrorPermission
}

// IsValidation checks if an error is a caller bug
func IsValidation(err error) bool {
	return err != nil && Classify(err) == ErrorValidation
}

// IsRateLimited checks if an error is an explicit quota signal
func IsRateLimited(err error) bool {
	return err != nil && Classify(err) == ErrorRateLimited
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* constructors instead.
func newClassified(class ErrorClass, err error, component, operation string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorTransient, Wrap(err, component, method, action), component, method)
}

// WrapRateLimited wraps an error as an explicit rate-limit signal with context
func WrapRateLimited(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorRateLimited, Wrap(err, component, method, action), component, method)
}

// WrapValidation wraps an error as a caller bug with context
func WrapValidation(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorValidation, Wrap(err, component, method, action), component, method)
}

// WrapAuthentication wraps an error as an authentication failure with context
func WrapAuthentication(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorAuthentication, Wrap(err, component, method, action), component, method)
}

// WrapPermission wraps an error as an authorization failure with context
func WrapPermission(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return newClassified(ErrorPermission, Wrap(err, component, method, action), component, method)
}

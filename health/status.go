// Package health tracks component health for the notification pipeline and
// serves it over HTTP. Components report into a Monitor; the handler
// aggregates the worst state so a single probe answers "is this process ok".
package health

import (
	"time"
)

// Health state strings
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status is one component's health at a point in time
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthy creates a healthy status
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a degraded status. Degraded keeps the probe passing;
// it flags reduced service, not failure.
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates an unhealthy status
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate folds component statuses into one system status: any unhealthy
// component makes the system unhealthy, otherwise any degraded component
// makes it degraded.
func Aggregate(statuses []Status) string {
	agg := StatusHealthy
	for _, s := range statuses {
		switch s.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			agg = StatusDegraded
		}
	}
	return agg
}

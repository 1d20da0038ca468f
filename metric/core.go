package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the pipeline's core collectors, created up front and
// shared by reference. Components with extra collectors of their own
// register them against the same registry via MetricsRegistry.Register.
type Metrics struct {
	// Hub metrics
	ConnectionsOpen   prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	EnvelopesSent     *prometheus.CounterVec
	EnvelopeBytesSent prometheus.Counter
	EvictionsTotal    *prometheus.CounterVec

	// Executor metrics
	AgentAttempts   *prometheus.CounterVec
	AgentRetries    *prometheus.CounterVec
	AdmissionWaits  *prometheus.CounterVec
	BackoffDuration *prometheus.HistogramVec

	// Shared
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sharpflow",
			Subsystem: "hub",
			Name:      "connections_open",
			Help:      "Number of currently registered WebSocket connections",
		}),

		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "hub",
			Name:      "connections_total",
			Help:      "Total accepted WebSocket connections",
		}),

		EnvelopesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "hub",
			Name:      "envelopes_sent_total",
			Help:      "Total envelopes written to clients",
		}, []string{"type"}),

		EnvelopeBytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "hub",
			Name:      "envelope_bytes_sent_total",
			Help:      "Total envelope bytes written to clients",
		}),

		EvictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "hub",
			Name:      "evictions_total",
			Help:      "Connections removed from the registry",
		}, []string{"reason"}),

		AgentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "executor",
			Name:      "attempts_total",
			Help:      "External call attempts by agent",
		}, []string{"agent", "outcome"}),

		AgentRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "executor",
			Name:      "retries_total",
			Help:      "Retried attempts by agent and error class",
		}, []string{"agent", "class"}),

		AdmissionWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "executor",
			Name:      "admission_waits_total",
			Help:      "Attempts that blocked on rate-limit admission",
		}, []string{"agent"}),

		BackoffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sharpflow",
			Subsystem: "executor",
			Name:      "backoff_duration_seconds",
			Help:      "Backoff delay distribution",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"agent"}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharpflow",
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Total errors by component and type",
		}, []string{"component", "type"}),

		HealthCheckStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sharpflow",
			Subsystem: "health",
			Name:      "status",
			Help:      "Health check status (0=unhealthy, 1=healthy)",
		}, []string{"component"}),
	}
}

// register registers all core metrics with the given registry
func (m *Metrics) register(registry *prometheus.Registry) {
	registry.MustRegister(
		m.ConnectionsOpen,
		m.ConnectionsTotal,
		m.EnvelopesSent,
		m.EnvelopeBytesSent,
		m.EvictionsTotal,
		m.AgentAttempts,
		m.AgentRetries,
		m.AdmissionWaits,
		m.BackoffDuration,
		m.ErrorsTotal,
		m.HealthCheckStatus,
	)
}

// RecordEnvelopeSent increments the sent counter and byte counter
func (m *Metrics) RecordEnvelopeSent(envType string, bytes int) {
	m.EnvelopesSent.WithLabelValues(envType).Inc()
	m.EnvelopeBytesSent.Add(float64(bytes))
}

// RecordEviction increments the eviction counter for a reason
func (m *Metrics) RecordEviction(reason string) {
	m.EvictionsTotal.WithLabelValues(reason).Inc()
}

// RecordError increments the error counter
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealthStatus updates a component's health gauge
func (m *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordBackoff records one backoff delay for an agent
func (m *Metrics) RecordBackoff(agent string, delay time.Duration) {
	m.BackoffDuration.WithLabelValues(agent).Observe(delay.Seconds())
}

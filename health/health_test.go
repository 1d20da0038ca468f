package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     string
	}{
		{"empty is healthy", nil, StatusHealthy},
		{"all healthy", []Status{NewHealthy("hub", ""), NewHealthy("tracker", "")}, StatusHealthy},
		{"one degraded", []Status{NewHealthy("hub", ""), NewDegraded("tracker", "slow")}, StatusDegraded},
		{"one unhealthy wins", []Status{NewDegraded("hub", ""), NewUnhealthy("tracker", "down")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.statuses))
		})
	}
}

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()

	m.UpdateHealthy("hub", "accepting connections")
	m.UpdateDegraded("executor", "rate limited")

	status, ok := m.Get("hub")
	require.True(t, ok)
	assert.True(t, status.Healthy)
	assert.Equal(t, "hub", status.Component)
	assert.False(t, status.Timestamp.IsZero())

	_, ok = m.Get("unknown")
	assert.False(t, ok)

	assert.Len(t, m.All(), 2)
	assert.Equal(t, StatusDegraded, m.SystemStatus())
}

func TestMonitorUpdateReplaces(t *testing.T) {
	m := NewMonitor()

	m.UpdateUnhealthy("hub", "starting")
	assert.Equal(t, StatusUnhealthy, m.SystemStatus())

	m.UpdateHealthy("hub", "ready")
	assert.Equal(t, StatusHealthy, m.SystemStatus())
}

type stubHub struct {
	running     bool
	connections int
	identities  int
	started     time.Time
}

func (s *stubHub) Running() bool        { return s.running }
func (s *stubHub) ConnectionCount() int { return s.connections }
func (s *stubHub) IdentityCount() int   { return s.identities }
func (s *stubHub) StartTime() time.Time { return s.started }

func TestHandlerHealthy(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("hub", "ok")
	hub := &stubHub{running: true, connections: 3, identities: 2, started: time.Now().Add(-time.Minute)}

	rec := httptest.NewRecorder()
	Handler(m, hub)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, 3, report.Connections)
	assert.Equal(t, 2, report.Identities)
	assert.NotEmpty(t, report.Uptime)
}

func TestHandlerStoppedHubIsUnhealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(NewMonitor(), &stubHub{running: false})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestHandlerUnhealthyComponent(t *testing.T) {
	m := NewMonitor()
	m.UpdateUnhealthy("executor", "credential revoked")

	rec := httptest.NewRecorder()
	Handler(m, &stubHub{running: true})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// HubStats supplies live pipeline numbers for the health report. The
// notification hub satisfies it.
type HubStats interface {
	Running() bool
	ConnectionCount() int
	IdentityCount() int
	StartTime() time.Time
}

// Report is the /healthz response body
type Report struct {
	Status      string   `json:"status"`
	Uptime      string   `json:"uptime"`
	Connections int      `json:"connections"`
	Identities  int      `json:"identities"`
	Components  []Status `json:"components,omitempty"`
}

// Handler serves the aggregated health report. An unhealthy aggregate or a
// stopped hub answers 503 so orchestrator probes fail without parsing the
// body.
func Handler(monitor *Monitor, hub HubStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := Report{
			Status:     monitor.SystemStatus(),
			Components: monitor.All(),
		}

		if hub != nil {
			if !hub.Running() {
				report.Status = StatusUnhealthy
			} else {
				report.Uptime = time.Since(hub.StartTime()).Round(time.Second).String()
			}
			report.Connections = hub.ConnectionCount()
			report.Identities = hub.IdentityCount()
		}

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}

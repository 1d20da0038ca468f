package notify

import (
	"encoding/json"
	"time"
)

// Outbound envelope types. The set is extensible: collaborating agents may
// send opaque job-status envelopes with their own types, passed through
// unchanged.
const (
	TypeConnectionEstablished   = "connection_established"
	TypePong                    = "pong"
	TypeSubscriptionConfirmed   = "subscription_confirmed"
	TypeAgentStatusUpdate       = "agent_status_update"
	TypeSystemNotification      = "system_notification"
	TypeMaintenanceNotification = "maintenance_notification"
)

// Inbound control frame types recognized by the Router.
const (
	TypePing            = "ping"
	TypeSubscribeToJobs = "subscribe_to_jobs"
	TypeGetAgentStatus  = "get_agent_status"
)

// Envelope is the unit exchanged over a connection: UTF-8 JSON with a type
// tag, an opaque payload and, outbound only, an ISO-8601 timestamp. The
// timestamp is stamped by the dispatcher at send time; callers never set it.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewEnvelope creates an unstamped envelope
func NewEnvelope(envType string, data any) Envelope {
	return Envelope{Type: envType, Data: data}
}

// stamped returns a copy carrying the send-time timestamp
func (e Envelope) stamped(now time.Time) Envelope {
	e.Timestamp = now.UTC().Format(time.RFC3339)
	return e
}

// encode stamps the envelope and serializes it exactly once; every
// connection the dispatcher targets receives these same bytes.
func (e Envelope) encode(now time.Time) ([]byte, error) {
	return json.Marshal(e.stamped(now))
}

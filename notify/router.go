package notify

import (
	"encoding/json"
	"log/slog"
	"time"
)

// AgentStatusSource answers synchronous get_agent_status queries. The agent
// package's status tracker implements it.
type AgentStatusSource interface {
	AgentStatus(identity string) any
}

// HandlerFunc processes one inbound frame and optionally returns a reply
// envelope for the originating connection.
type HandlerFunc func(c *Conn, data json.RawMessage) *Envelope

// Router dispatches inbound control frames by their type tag. A malformed or
// unknown frame is logged and dropped; it never closes the connection and
// never reaches other connections.
type Router struct {
	logger   *slog.Logger
	status   AgentStatusSource
	handlers map[string]HandlerFunc
}

// NewRouter creates a router with the built-in control frame handlers
// registered. status may be nil, in which case get_agent_status reports an
// empty payload.
func NewRouter(logger *slog.Logger, status AgentStatusSource) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		logger:   logger,
		status:   status,
		handlers: make(map[string]HandlerFunc),
	}

	r.Handle(TypePing, r.handlePing)
	r.Handle(TypeSubscribeToJobs, r.handleSubscribe)
	r.Handle(TypeGetAgentStatus, r.handleAgentStatus)

	return r
}

// Handle registers or replaces the handler for a frame type
func (r *Router) Handle(frameType string, fn HandlerFunc) {
	r.handlers[frameType] = fn
}

// frame is the inbound wire shape: a type tag plus opaque payload
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Dispatch routes one raw inbound message. Failures are isolated per
// message: a panicking handler or garbage payload affects nothing beyond
// this frame.
func (r *Router) Dispatch(c *Conn, raw []byte) (reply *Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("frame handler panicked",
				"connection_id", c.ID,
				"identity", c.Identity,
				"panic", rec)
			reply = nil
		}
	}()

	var f frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Type == "" {
		r.logger.Warn("dropping malformed frame",
			"connection_id", c.ID,
			"identity", c.Identity,
			"bytes", len(raw))
		return nil
	}

	handler, ok := r.handlers[f.Type]
	if !ok {
		r.logger.Warn("dropping frame with unknown type",
			"connection_id", c.ID,
			"identity", c.Identity,
			"type", f.Type)
		return nil
	}

	return handler(c, f.Data)
}

// handlePing answers client-level ping frames with the server time. This is
// the application-level ping, separate from the protocol ping/pong the
// liveness monitor drives.
func (r *Router) handlePing(_ *Conn, _ json.RawMessage) *Envelope {
	env := NewEnvelope(TypePong, map[string]string{
		"server_time": time.Now().UTC().Format(time.RFC3339),
	})
	return &env
}

func (r *Router) handleSubscribe(c *Conn, _ json.RawMessage) *Envelope {
	r.logger.Debug("job subscription confirmed",
		"connection_id", c.ID, "identity", c.Identity)
	env := NewEnvelope(TypeSubscriptionConfirmed, map[string]string{
		"identity": c.Identity,
	})
	return &env
}

func (r *Router) handleAgentStatus(c *Conn, _ json.RawMessage) *Envelope {
	var payload any
	if r.status != nil {
		payload = r.status.AgentStatus(c.Identity)
	}
	env := NewEnvelope(TypeAgentStatusUpdate, payload)
	return &env
}

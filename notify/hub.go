package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shajith240/SHARPFLOW-sub002/auth"
	"github.com/shajith240/SHARPFLOW-sub002/errors"
	"github.com/shajith240/SHARPFLOW-sub002/metric"
)

const (
	// DefaultHeartbeat is the liveness monitor tick. Detection latency for
	// a dead peer is one full missed interval, trading latency for
	// tolerance of transient network jitter.
	DefaultHeartbeat = 30 * time.Second

	// DefaultPath is the WebSocket endpoint path
	DefaultPath = "/ws"

	// readSlack is added on top of two heartbeat intervals for the read
	// deadline so the monitor, not the transport, decides evictions.
	readSlack = 5 * time.Second
)

// Options configures a Hub
type Options struct {
	Path      string          // WebSocket endpoint path (default /ws)
	Heartbeat time.Duration   // Liveness tick (default 30s)
	Verifier  auth.Verifier   // Handshake credential verifier (required)
	Logger    *slog.Logger    // Structured logger (default slog.Default)
	Status    AgentStatusSource
	Metrics   *metric.Metrics // Optional; nil disables metrics
}

// Hub is the per-user fan-out service. It is constructed once at process
// start and passed by reference to every component that broadcasts; there is
// deliberately no package-level singleton.
type Hub struct {
	path      string
	heartbeat time.Duration
	verifier  auth.Verifier
	logger    *slog.Logger
	registry  *Registry
	router    *Router
	metrics   *metric.Metrics
	upgrader  websocket.Upgrader
	now       func() time.Time

	// Lifecycle; Start/Stop are serialized
	lifecycleMu sync.Mutex
	mu          sync.RWMutex
	running     bool
	startTime   time.Time
	shutdown    chan struct{}
	wg          *sync.WaitGroup
}

// NewHub creates a hub from options. The verifier is mandatory: an
// unauthenticated transport must never reach the registry.
func NewHub(opts Options) (*Hub, error) {
	if opts.Verifier == nil {
		return nil, errors.WrapValidation(errors.ErrInvalidConfig,
			"Hub", "NewHub", "credential verifier is required")
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Hub{
		path:      opts.Path,
		heartbeat: opts.Heartbeat,
		verifier:  opts.Verifier,
		logger:    opts.Logger,
		registry:  NewRegistry(),
		router:    NewRouter(opts.Logger, opts.Status),
		metrics:   opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Browser clients connect from the app origin and from
				// localhost during development; token auth is the gate.
				return true
			},
		},
		now: time.Now,
	}, nil
}

// Router returns the hub's message router for handler extension
func (h *Hub) Router() *Router {
	return h.router
}

// Path returns the WebSocket endpoint path
func (h *Hub) Path() string {
	return h.path
}

// Start begins the liveness monitor and opens the hub for connections
func (h *Hub) Start() error {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return errors.WrapValidation(errors.ErrAlreadyStarted, "Hub", "Start", "start hub")
	}

	h.shutdown = make(chan struct{})
	h.wg = &sync.WaitGroup{}
	h.running = true
	h.startTime = h.now()

	h.wg.Add(1)
	go h.monitorLiveness()

	h.logger.Info("notification hub started",
		"path", h.path, "heartbeat", h.heartbeat.String())
	return nil
}

// Stop closes every connection and stops the liveness monitor
func (h *Hub) Stop(timeout time.Duration) error {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	close(h.shutdown)
	wg := h.wg
	h.mu.Unlock()

	for _, c := range h.registry.All() {
		h.drop(c, "shutdown", websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		h.logger.Warn("hub goroutines did not exit within timeout")
	}

	h.logger.Info("notification hub stopped")
	return nil
}

// Running reports whether the hub is accepting connections
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// StartTime returns when the hub was started
func (h *Hub) StartTime() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.startTime
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	return h.registry.Count()
}

// IdentityCount returns the number of identities with live connections
func (h *Hub) IdentityCount() int {
	return h.registry.IdentityCount()
}

// RegisterHTTPHandlers registers the WebSocket endpoint with the mux
func (h *Hub) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc(h.path, h.HandleWebSocket)
}

// HandleWebSocket performs the authenticated handshake. The credential is a
// query parameter; a failed verification completes the upgrade only to close
// immediately with policy-violation code 1008, which is distinct from every
// normal closure a client can observe.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.Running() {
		http.Error(w, "hub not running", http.StatusServiceUnavailable)
		return
	}

	token := r.URL.Query().Get("token")
	claims, authErr := h.verifier.Verify(token)

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		if h.metrics != nil {
			h.metrics.RecordError("hub", "upgrade")
		}
		return
	}

	if authErr != nil {
		h.logger.Warn("refusing unauthenticated handshake",
			"remote", r.RemoteAddr, "error", authErr)
		if h.metrics != nil {
			h.metrics.RecordError("hub", "handshake_auth")
		}
		deadline := time.Now().Add(time.Second)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			deadline)
		_ = ws.Close()
		return
	}

	h.admit(claims, ws)
}

// admit registers a verified connection and starts its read loop
func (h *Hub) admit(claims auth.Claims, ws *websocket.Conn) {
	c := newConn(claims.UserID, claims.Plan, ws)

	ws.SetPongHandler(func(string) error {
		c.markAlive()
		_ = ws.SetReadDeadline(time.Now().Add(2*h.heartbeat + readSlack))
		return nil
	})

	h.registry.Register(c)
	if err := c.transition(StateOpen); err != nil {
		// Transport dropped between upgrade and registration.
		h.registry.Unregister(c)
		c.close(0, "")
		return
	}

	if h.metrics != nil {
		h.metrics.ConnectionsTotal.Inc()
		h.metrics.ConnectionsOpen.Set(float64(h.registry.Count()))
	}

	h.logger.Info("connection established",
		"connection_id", c.ID, "identity", c.Identity, "plan", c.Plan)

	h.send(c, NewEnvelope(TypeConnectionEstablished, map[string]string{
		"connection_id": c.ID,
	}))

	h.mu.RLock()
	wg := h.wg
	h.mu.RUnlock()
	wg.Add(1)
	go h.readLoop(c)
}

// readLoop consumes inbound frames until the transport closes. Every
// failure stays scoped to this connection.
func (h *Hub) readLoop(c *Conn) {
	defer h.wg.Done()
	defer h.drop(c, "closed", 0, "")

	for {
		select {
		case <-h.shutdown:
			return
		default:
		}

		_ = c.ws.SetReadDeadline(time.Now().Add(2*h.heartbeat + readSlack))

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		if !c.allowInbound() {
			h.logger.Warn("inbound frame throttled",
				"connection_id", c.ID, "identity", c.Identity)
			continue
		}

		if reply := h.router.Dispatch(c, data); reply != nil {
			h.send(c, *reply)
		}
	}
}

// send stamps, serializes and writes one envelope to one connection
func (h *Hub) send(c *Conn, env Envelope) {
	data, err := env.encode(h.now())
	if err != nil {
		h.logger.Error("envelope marshal failed", "type", env.Type, "error", err)
		if h.metrics != nil {
			h.metrics.RecordError("hub", "envelope_marshal")
		}
		return
	}
	if err := c.write(data); err != nil {
		h.drop(c, "write_error", 0, "")
		return
	}
	if h.metrics != nil {
		h.metrics.RecordEnvelopeSent(env.Type, len(data))
	}
}

// UnicastToUser delivers one envelope to every live connection the identity
// holds. The envelope is stamped and serialized exactly once, so all
// recipients get byte-identical payloads. Zero connections is a silent
// no-op: there is no queued redelivery, and durable job state is the
// reconciliation path for offline users.
func (h *Hub) UnicastToUser(identity string, env Envelope) int {
	conns := h.registry.Snapshot(identity)
	if len(conns) == 0 {
		return 0
	}

	data, err := env.encode(h.now())
	if err != nil {
		h.logger.Error("envelope marshal failed", "type", env.Type, "error", err)
		if h.metrics != nil {
			h.metrics.RecordError("hub", "envelope_marshal")
		}
		return 0
	}

	delivered := 0
	for _, c := range conns {
		if c.State() != StateOpen {
			continue
		}
		if err := c.write(data); err != nil {
			h.drop(c, "write_error", 0, "")
			continue
		}
		delivered++
		if h.metrics != nil {
			h.metrics.RecordEnvelopeSent(env.Type, len(data))
		}
	}
	return delivered
}

// Predicate filters broadcast recipients by identity and plan tier
type Predicate func(identity, plan string) bool

// BroadcastAll delivers one envelope to every connection, optionally
// filtered by predicate (nil means everyone). Connections are written
// concurrently; per-connection FIFO still holds because the call does not
// return until every write finished.
func (h *Hub) BroadcastAll(env Envelope, pred Predicate) int {
	conns := h.registry.All()
	if len(conns) == 0 {
		return 0
	}

	data, err := env.encode(h.now())
	if err != nil {
		h.logger.Error("envelope marshal failed", "type", env.Type, "error", err)
		if h.metrics != nil {
			h.metrics.RecordError("hub", "envelope_marshal")
		}
		return 0
	}

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for _, c := range conns {
		if c.State() != StateOpen {
			continue
		}
		if pred != nil && !pred(c.Identity, c.Plan) {
			continue
		}

		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			if err := c.write(data); err != nil {
				h.drop(c, "write_error", 0, "")
				return
			}
			delivered.Add(1)
			if h.metrics != nil {
				h.metrics.RecordEnvelopeSent(env.Type, len(data))
			}
		}(c)
	}
	wg.Wait()

	return int(delivered.Load())
}

// monitorLiveness heartbeats every connection on a fixed tick. A connection
// still pending from the previous tick missed a full interval and is
// terminated; everyone else is marked pending and pinged. Eviction is a
// normal lifecycle event, not an error.
func (h *Hub) monitorLiveness() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.shutdown:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep runs one liveness pass over a registry snapshot
func (h *Hub) sweep() {
	for _, c := range h.registry.All() {
		if c.State() != StateOpen {
			continue
		}

		if c.Liveness() == LivenessPending {
			c.markDead()
			h.logger.Info("evicting unresponsive connection",
				"connection_id", c.ID, "identity", c.Identity)
			h.drop(c, "heartbeat_timeout", websocket.CloseNormalClosure, "heartbeat timeout")
			continue
		}

		c.markPending()
		if err := c.ping(); err != nil {
			h.drop(c, "ping_failed", 0, "")
		}
	}
}

// drop removes a connection from the registry and closes its transport.
// Safe to call multiple times for the same connection.
func (h *Hub) drop(c *Conn, reason string, closeCode int, closeMsg string) {
	h.registry.Unregister(c)
	c.close(closeCode, closeMsg)

	if h.metrics != nil {
		h.metrics.RecordEviction(reason)
		h.metrics.ConnectionsOpen.Set(float64(h.registry.Count()))
	}

	h.logger.Debug("connection dropped",
		"connection_id", c.ID, "identity", c.Identity, "reason", reason)
}

package agent

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shajith240/SHARPFLOW-sub002/notify"
)

// Known agent names. Collaborating services report under these keys; the
// tracker itself accepts any name so new agents need no pipeline change.
const (
	AgentLeadDiscovery   = "lead-discovery"
	AgentProfileResearch = "profile-research"
	AgentEmailMonitor    = "email-monitor"
)

// Agent work states
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Status is one agent's latest reported state for one user
type Status struct {
	Agent     string    `json:"agent"`
	State     string    `json:"state"`
	JobID     string    `json:"job_id,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dispatcher delivers envelopes to a user's live connections. The
// notification hub satisfies it.
type Dispatcher interface {
	UnicastToUser(identity string, env notify.Envelope) int
}

// Tracker keeps the latest per-agent status for each user. It answers the
// hub's synchronous get_agent_status queries and pushes an update envelope
// whenever an agent reports.
type Tracker struct {
	mu         sync.RWMutex
	byIdentity map[string]map[string]Status

	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewTracker creates a tracker. dispatcher may be nil, in which case updates
// are recorded but not pushed.
func NewTracker(dispatcher Dispatcher, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		byIdentity: make(map[string]map[string]Status),
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SetDispatcher wires the push target after construction. The hub needs the
// tracker as its status source and the tracker needs the hub to push, so one
// side is attached late.
func (t *Tracker) SetDispatcher(d Dispatcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatcher = d
}

// Update records an agent's status for a user and pushes it to the user's
// connections. A user with no live connections simply gets the record; they
// see current state on their next get_agent_status query.
func (t *Tracker) Update(identity string, status Status) {
	status.UpdatedAt = t.now()

	t.mu.Lock()
	agents, ok := t.byIdentity[identity]
	if !ok {
		agents = make(map[string]Status)
		t.byIdentity[identity] = agents
	}
	agents[status.Agent] = status
	dispatcher := t.dispatcher
	t.mu.Unlock()

	t.logger.Debug("agent status updated",
		"identity", identity, "agent", status.Agent, "state", status.State)

	if dispatcher != nil {
		dispatcher.UnicastToUser(identity, notify.NewEnvelope(notify.TypeAgentStatusUpdate, status))
	}
}

// AgentStatus returns a copy of the user's per-agent status map. Implements
// the hub's status source; an unknown identity yields an empty map.
func (t *Tracker) AgentStatus(identity string) any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Status, len(t.byIdentity[identity]))
	for name, s := range t.byIdentity[identity] {
		out[name] = s
	}
	return out
}

// Clear drops all recorded status for a user
func (t *Tracker) Clear(identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byIdentity, identity)
}

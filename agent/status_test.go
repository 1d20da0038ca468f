package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shajith240/SHARPFLOW-sub002/notify"
)

type recordingDispatcher struct {
	identities []string
	envelopes  []notify.Envelope
}

func (d *recordingDispatcher) UnicastToUser(identity string, env notify.Envelope) int {
	d.identities = append(d.identities, identity)
	d.envelopes = append(d.envelopes, env)
	return 1
}

func TestTrackerUpdatePushesToDispatcher(t *testing.T) {
	d := &recordingDispatcher{}
	tr := NewTracker(d, nil)

	tr.Update("user-1", Status{
		Agent:    AgentLeadDiscovery,
		State:    StateRunning,
		JobID:    "job-42",
		Progress: 30,
	})

	require.Len(t, d.envelopes, 1)
	assert.Equal(t, []string{"user-1"}, d.identities)
	assert.Equal(t, notify.TypeAgentStatusUpdate, d.envelopes[0].Type)

	pushed, ok := d.envelopes[0].Data.(Status)
	require.True(t, ok)
	assert.Equal(t, AgentLeadDiscovery, pushed.Agent)
	assert.Equal(t, "job-42", pushed.JobID)
	assert.False(t, pushed.UpdatedAt.IsZero(), "tracker stamps the update time")
}

func TestTrackerAgentStatusReturnsLatestPerAgent(t *testing.T) {
	tr := NewTracker(nil, nil)

	tr.Update("user-1", Status{Agent: AgentLeadDiscovery, State: StateRunning})
	tr.Update("user-1", Status{Agent: AgentEmailMonitor, State: StateIdle})
	tr.Update("user-1", Status{Agent: AgentLeadDiscovery, State: StateCompleted})

	statuses, ok := tr.AgentStatus("user-1").(map[string]Status)
	require.True(t, ok)
	require.Len(t, statuses, 2)
	assert.Equal(t, StateCompleted, statuses[AgentLeadDiscovery].State,
		"later reports replace earlier ones")
	assert.Equal(t, StateIdle, statuses[AgentEmailMonitor].State)
}

func TestTrackerAgentStatusUnknownIdentity(t *testing.T) {
	tr := NewTracker(nil, nil)

	statuses, ok := tr.AgentStatus("nobody").(map[string]Status)
	require.True(t, ok)
	assert.Empty(t, statuses)
}

func TestTrackerAgentStatusReturnsCopy(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Update("user-1", Status{Agent: AgentLeadDiscovery, State: StateRunning})

	first := tr.AgentStatus("user-1").(map[string]Status)
	first[AgentLeadDiscovery] = Status{Agent: AgentLeadDiscovery, State: StateFailed}

	second := tr.AgentStatus("user-1").(map[string]Status)
	assert.Equal(t, StateRunning, second[AgentLeadDiscovery].State,
		"callers mutate a snapshot, not tracker state")
}

func TestTrackerClear(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Update("user-1", Status{Agent: AgentLeadDiscovery, State: StateRunning})

	tr.Clear("user-1")
	statuses := tr.AgentStatus("user-1").(map[string]Status)
	assert.Empty(t, statuses)
}

func TestTrackerUpdateWithoutDispatcher(t *testing.T) {
	tr := NewTracker(nil, nil)

	assert.NotPanics(t, func() {
		tr.Update("user-1", Status{Agent: AgentProfileResearch, State: StateRunning})
	})
}

func TestTrackerIsolatesIdentities(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	tr.Update("user-1", Status{Agent: AgentLeadDiscovery, State: StateRunning})
	tr.Update("user-2", Status{Agent: AgentLeadDiscovery, State: StateFailed})

	one := tr.AgentStatus("user-1").(map[string]Status)
	two := tr.AgentStatus("user-2").(map[string]Status)
	assert.Equal(t, StateRunning, one[AgentLeadDiscovery].State)
	assert.Equal(t, StateFailed, two[AgentLeadDiscovery].State)
}

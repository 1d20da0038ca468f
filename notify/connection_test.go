package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		ok   bool
	}{
		{"connecting to open", StateConnecting, StateOpen, true},
		{"connecting to closed", StateConnecting, StateClosed, true},
		{"connecting to closing", StateConnecting, StateClosing, false},
		{"open to closing", StateOpen, StateClosing, true},
		{"open to closed", StateOpen, StateClosed, true},
		{"open to connecting", StateOpen, StateConnecting, false},
		{"closing to closed", StateClosing, StateClosed, true},
		{"closing to open", StateClosing, StateOpen, false},
		{"closed is terminal", StateClosed, StateOpen, false},
		{"closed to closing", StateClosed, StateClosing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, ValidTransition(tt.from, tt.to))
		})
	}
}

func TestConnTransition(t *testing.T) {
	c := newConn("user-1", "pro", nil)
	assert.Equal(t, StateConnecting, c.State())

	require.NoError(t, c.transition(StateOpen))
	assert.Equal(t, StateOpen, c.State())

	err := c.transition(StateConnecting)
	require.Error(t, err)
	assert.Equal(t, StateOpen, c.State(), "invalid transition leaves state unchanged")

	require.NoError(t, c.transition(StateClosing))
	require.NoError(t, c.transition(StateClosed))
	require.Error(t, c.transition(StateOpen))
}

func TestConnLivenessFlags(t *testing.T) {
	c := newConn("user-1", "pro", nil)
	assert.Equal(t, LivenessAlive, c.Liveness(), "new connections start alive")

	c.markPending()
	assert.Equal(t, LivenessPending, c.Liveness())

	c.markAlive()
	assert.Equal(t, LivenessAlive, c.Liveness())

	c.markDead()
	assert.Equal(t, LivenessDead, c.Liveness())
}

func TestConnWriteRequiresOpenState(t *testing.T) {
	c := newConn("user-1", "pro", nil)

	err := c.write([]byte(`{"type":"pong"}`))
	require.Error(t, err, "writing before registration must fail")
}

func TestConnIDsAreUnique(t *testing.T) {
	a := newConn("user-1", "pro", nil)
	b := newConn("user-1", "pro", nil)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestConnInboundThrottle(t *testing.T) {
	c := newConn("user-1", "pro", nil)

	// The burst allowance admits an initial run of frames, then the
	// throttle kicks in.
	allowed := 0
	for i := 0; i < defaultInboundBurst*2; i++ {
		if c.allowInbound() {
			allowed++
		}
	}
	assert.GreaterOrEqual(t, allowed, defaultInboundBurst)
	assert.Less(t, allowed, defaultInboundBurst*2)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestLivenessString(t *testing.T) {
	assert.Equal(t, "alive", LivenessAlive.String())
	assert.Equal(t, "pending", LivenessPending.String())
	assert.Equal(t, "dead", LivenessDead.String())
	assert.Equal(t, "unknown", Liveness(99).String())
}

package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeStamped(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	env := NewEnvelope(TypeSystemNotification, map[string]string{"msg": "hi"})
	assert.Empty(t, env.Timestamp, "callers never set the timestamp")

	stamped := env.stamped(now)
	assert.Equal(t, "2026-03-14T09:26:53Z", stamped.Timestamp)
	assert.Empty(t, env.Timestamp, "stamping returns a copy")
}

func TestEnvelopeStampedNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, loc)

	stamped := Envelope{Type: TypePong}.stamped(now)
	assert.Equal(t, "2026-03-14T09:00:00Z", stamped.Timestamp)
}

func TestEnvelopeEncode(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	env := NewEnvelope(TypeAgentStatusUpdate, map[string]any{
		"agent": "lead-discovery",
		"state": "running",
	})

	data, err := env.encode(now)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeAgentStatusUpdate, decoded["type"])
	assert.Equal(t, "2026-01-02T03:04:05Z", decoded["timestamp"])

	payload, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "lead-discovery", payload["agent"])
}

func TestEnvelopeEncodeOmitsEmptyData(t *testing.T) {
	data, err := Envelope{Type: TypePong}.encode(time.Now())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "data")
}

package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/mqtt"
)

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) PublishRetained(topic string, payload []byte) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestAvailabilityPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	gate := availability.NewGate()
	gate.Observe(AvailabilityPublisher(pub, slog.New(slog.DiscardHandler)))

	_, err := gate.Apply(context.Background(), availability.StatusPausar, "1")
	require.NoError(t, err)
	_, err = gate.Apply(context.Background(), availability.StatusRestart, "2")
	require.NoError(t, err)

	require.Len(t, pub.payloads, 2)
	assert.Equal(t, mqtt.Topics{}.SystemService(), pub.topics[0])

	var msg map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, "paused", msg["status"])
	assert.Equal(t, "1", msg["actor"])
	assert.NotEmpty(t, msg["timestamp"])

	require.NoError(t, json.Unmarshal(pub.payloads[1], &msg))
	assert.Equal(t, "active", msg["status"])
}

func TestAvailabilityPublisher_FailureDoesNotBlockGate(t *testing.T) {
	pub := &recordingPublisher{err: mqtt.ErrNotConnected}
	gate := availability.NewGate()
	gate.Observe(AvailabilityPublisher(pub, slog.New(slog.DiscardHandler)))

	state, err := gate.Apply(context.Background(), availability.StatusPause, "1")
	require.NoError(t, err)
	assert.Equal(t, availability.StatePaused, state)
	assert.True(t, gate.Paused())
}

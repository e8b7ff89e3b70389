package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/mqtt"
)

// Publisher is the part of *mqtt.Client used for status messages.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

type availabilityMessage struct {
	Status    availability.State `json:"status"`
	Actor     string             `json:"actor,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// AvailabilityPublisher returns a gate observer that publishes every
// applied state, retained, on sensorhub/system/service. Publish failures
// are logged; the state change itself has already happened.
func AvailabilityPublisher(pub Publisher, logger *slog.Logger) availability.Observer {
	topic := mqtt.Topics{}.SystemService()
	return func(_ context.Context, state availability.State, actor string) {
		payload, err := json.Marshal(availabilityMessage{
			Status:    state,
			Actor:     actor,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			logger.Error("encoding availability message failed", "error", err)
			return
		}
		if err := pub.PublishRetained(topic, payload); err != nil {
			logger.Warn("publishing availability failed", "state", state, "error", err)
		}
	}
}

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/mqtt"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// ingestTimeout bounds the storage work for one MQTT message.
const ingestTimeout = 10 * time.Second

// Subscriber is the part of *mqtt.Client the ingest subscriber needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Ingester stores a batch of readings. *sensor.Service implements it.
type Ingester interface {
	Ingest(ctx context.Context, batch sensor.Batch) (int, error)
}

// MQTTSubscriber ingests readings published by sensors over MQTT.
type MQTTSubscriber struct {
	client   Subscriber
	readings Ingester
	logger   *slog.Logger
	qos      byte
	topic    string

	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// SubscriberOptions configures NewMQTTSubscriber.
type SubscriberOptions struct {
	Client   Subscriber
	Readings Ingester
	Logger   *slog.Logger

	// QoS for the subscription. Defaults to 1.
	QoS byte
}

// NewMQTTSubscriber validates opts and returns a stopped subscriber.
func NewMQTTSubscriber(opts SubscriberOptions) (*MQTTSubscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("ingest: mqtt client is required")
	}
	if opts.Readings == nil {
		return nil, errors.New("ingest: readings service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	return &MQTTSubscriber{
		client:   opts.Client,
		readings: opts.Readings,
		logger:   logger.With("component", "mqtt_ingest"),
		qos:      qos,
		topic:    mqtt.Topics{}.AllSensorReadings(),
	}, nil
}

// Start subscribes to every sensor's readings topic. Messages are stored
// until ctx is cancelled or Stop is called.
func (s *MQTTSubscriber) Start(ctx context.Context) error {
	s.ctx, s.ctxCancel = context.WithCancel(ctx)
	if err := s.client.Subscribe(s.topic, s.qos, s.handleMessage); err != nil {
		s.ctxCancel()
		return fmt.Errorf("subscribe to readings: %w", err)
	}
	s.logger.Info("subscribed to readings", "topic", s.topic)
	return nil
}

// Stop unsubscribes. It is safe to call more than once.
func (s *MQTTSubscriber) Stop() {
	s.stopOnce.Do(func() {
		if s.ctxCancel == nil {
			return
		}
		s.ctxCancel()
		if err := s.client.Unsubscribe(s.topic); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
			s.logger.Warn("unsubscribe from readings failed", "error", err)
		}
		s.logger.Info("mqtt ingest stopped")
	})
}

// handleMessage runs on the MQTT client's goroutine. Invalid payloads are
// logged and dropped; only storage failures are returned.
func (s *MQTTSubscriber) handleMessage(topic string, payload []byte) error {
	if s.ctx.Err() != nil {
		return nil
	}

	batch, err := sensor.ParseJSONBatch(payload)
	if err != nil {
		s.logger.Warn("dropping malformed reading payload", "topic", topic, "error", err)
		return nil
	}
	topics := mqtt.Topics{}
	if id, ok := topics.SensorIDFromTopic(topic); ok {
		fillSensorID(batch, id)
	}

	ctx, cancel := context.WithTimeout(s.ctx, ingestTimeout)
	defer cancel()

	n, err := s.readings.Ingest(ctx, batch)
	if err != nil {
		if sensor.IsValidation(err) {
			s.logger.Warn("dropping invalid reading payload", "topic", topic, "error", err)
			return nil
		}
		return fmt.Errorf("storing readings from %s: %w", topic, err)
	}
	s.logger.Debug("mqtt readings stored", "topic", topic, "count", n)
	return nil
}

// fillSensorID sets sensor_id from the topic on records that omit it.
// Topic segments that are not integers are ignored.
func fillSensorID(batch sensor.Batch, id string) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return
	}
	for _, rec := range batch.Records() {
		if rec == nil {
			continue
		}
		if _, ok := rec[sensor.FieldSensorID]; !ok {
			rec[sensor.FieldSensorID] = json.Number(id)
		}
	}
}

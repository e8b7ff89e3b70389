package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gustavobizon/sprint-programacao/internal/audit"
)

// Sink receives every reading after it has been stored. Sinks must not
// block; failures are theirs to log.
type Sink interface {
	WriteReading(ctx context.Context, r Reading)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Reading)

// WriteReading implements Sink.
func (f SinkFunc) WriteReading(ctx context.Context, r Reading) { f(ctx, r) }

// Service validates, stores and serves readings.
type Service struct {
	repo   Repository
	audit  audit.Recorder
	logger *slog.Logger

	mu    sync.RWMutex
	sinks []Sink
}

// NewService creates a Service over repo. A nil recorder disables auditing.
func NewService(repo Repository, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{repo: repo, audit: recorder, logger: logger}
}

// AddSink registers a sink for stored readings.
func (s *Service) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Ingest validates the whole batch, then inserts each reading in request
// order as an independent operation.
//
// A validation failure stores nothing. An insert failure fails the call
// but the remaining readings are still attempted and those stored stay
// stored: there is no transaction around the batch. The returned count is
// the number of readings stored.
func (s *Service) Ingest(ctx context.Context, batch Batch) (int, error) {
	readings, err := Validate(batch.Records())
	if err != nil {
		return 0, err
	}
	s.logger.Debug("readings received", "count", len(readings))

	var (
		stored int
		errs   []error
	)
	for i := range readings {
		r := &readings[i]
		if err := s.repo.Insert(ctx, r); err != nil {
			s.logger.Error("inserting reading failed", "index", i, "sensor_id", r.SensorID, "error", err)
			errs = append(errs, fmt.Errorf("reading %d: %w", i, err))
			continue
		}
		stored++
		s.fanOut(ctx, *r)
	}

	if err := errors.Join(errs...); err != nil {
		return stored, err
	}
	s.logger.Info("readings stored", "count", stored)
	return stored, nil
}

func (s *Service) fanOut(ctx context.Context, r Reading) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sink := range s.sinks {
		sink.WriteReading(ctx, r)
	}
}

// List returns every stored reading, unfiltered.
func (s *Service) List(ctx context.Context) ([]Reading, error) {
	readings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing readings: %w", err)
	}
	return readings, nil
}

// Clear deletes every stored reading. actor and source (api, grpc)
// identify the caller in the audit trail.
func (s *Service) Clear(ctx context.Context, actor, source string) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing readings: %w", err)
	}
	s.logger.Info("readings cleared", "deleted", n, "actor", actor)
	s.audit.Record(ctx, &audit.Log{
		Action:     audit.ActionClearReadings,
		EntityType: "sensor_readings",
		ActorID:    actor,
		Source:     source,
		Details:    map[string]any{"deleted": n},
	})
	return n, nil
}

// IsValidation reports whether err is a client input problem rather than
// a storage failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrMalformedBody)
}

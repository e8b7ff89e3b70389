package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gustavobizon/sprint-programacao/internal/audit"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/logging"
)

// memRepo is an in-memory Repository that fails inserts for selected
// sensor ids.
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	readings []Reading
	failOn   map[int64]error
	listErr  error
}

func (m *memRepo) Insert(_ context.Context, r *Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[r.SensorID]; err != nil {
		return err
	}
	m.nextID++
	r.ID = m.nextID
	r.RecordedAt = time.Now().UTC()
	m.readings = append(m.readings, *r)
	return nil
}

func (m *memRepo) List(context.Context) ([]Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]Reading{}, m.readings...), nil
}

func (m *memRepo) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.readings))
	m.readings = nil
	return n, nil
}

func (m *memRepo) sensorIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.readings))
	for _, r := range m.readings {
		ids = append(ids, r.SensorID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func reading(id int) Record {
	return Record{
		FieldSensorID:    json.Number(strconv.Itoa(id)),
		FieldTemperature: 21.0,
		FieldHumidity:    45.0,
		FieldVibration:   0.5,
	}
}

func newService(repo Repository) *Service {
	return NewService(repo, nil, logging.Discard().Logger)
}

func TestService_IngestSingleAndMany(t *testing.T) {
	repo := &memRepo{}
	svc := newService(repo)
	ctx := context.Background()

	n, err := svc.Ingest(ctx, Single{Record: reading(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Ingest(ctx, Many{reading(2), reading(3), reading(4)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []int64{1, 2, 3, 4}, repo.sensorIDs())
}

func TestService_IngestEmptyMany(t *testing.T) {
	repo := &memRepo{}
	n, err := newService(repo).Ingest(context.Background(), Many{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, repo.sensorIDs())
}

func TestService_InvalidElementRejectsWholeBatch(t *testing.T) {
	repo := &memRepo{}
	bad := reading(3)
	bad[FieldTemperature] = 0

	_, err := newService(repo).Ingest(context.Background(), Many{reading(1), reading(2), bad, reading(4)})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldTemperature, ve.Field)
	assert.True(t, IsValidation(err))
	assert.Empty(t, repo.sensorIDs(), "validation failure must not store anything")
}

func TestService_StorageFailureIsNotRolledBack(t *testing.T) {
	boom := errors.New("disk full")
	const k = 4
	repo := &memRepo{failOn: map[int64]error{k: boom}}

	batch := Many{}
	for i := 1; i <= 6; i++ {
		batch = append(batch, reading(i))
	}

	stored, err := newService(repo).Ingest(context.Background(), batch)
	require.ErrorIs(t, err, boom)
	assert.False(t, IsValidation(err))

	ids := repo.sensorIDs()
	assert.Equal(t, len(ids), stored)
	for i := int64(1); i < k; i++ {
		assert.Contains(t, ids, i, "reading %d before the failure should stay stored", i)
	}
	assert.NotContains(t, ids, int64(k))
	assert.Equal(t, []int64{1, 2, 3, 5, 6}, ids, "readings after the failure are still attempted")
}

func TestService_IngestKeepsRequestOrder(t *testing.T) {
	repo := &memRepo{}
	svc := newService(repo)

	order := []int{5, 1, 4, 2, 3, 9, 7, 8, 6, 10, 12, 11}
	batch := Many{}
	for _, id := range order {
		batch = append(batch, reading(id))
	}

	n, err := svc.Ingest(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, len(order), n)

	stored, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, len(order))
	for i, r := range stored {
		assert.Equal(t, int64(i+1), r.ID)
		assert.Equal(t, int64(order[i]), r.SensorID, "position %d", i)
	}
}

func TestService_SinksSeeStoredReadingsOnly(t *testing.T) {
	repo := &memRepo{failOn: map[int64]error{2: errors.New("boom")}}
	svc := newService(repo)

	var mu sync.Mutex
	var seen []int64
	svc.AddSink(SinkFunc(func(_ context.Context, r Reading) {
		mu.Lock()
		defer mu.Unlock()
		assert.NotZero(t, r.ID)
		seen = append(seen, r.SensorID)
	}))

	_, err := svc.Ingest(context.Background(), Many{reading(1), reading(2), reading(3)})
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	assert.Equal(t, []int64{1, 3}, seen)
}

type auditLogs struct {
	mu   sync.Mutex
	logs []*audit.Log
}

func (a *auditLogs) Record(_ context.Context, l *audit.Log) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, l)
}

func TestService_ListAndClear(t *testing.T) {
	repo := &memRepo{}
	rec := &auditLogs{}
	svc := NewService(repo, rec, logging.Discard().Logger)
	ctx := context.Background()

	readings, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, readings)

	_, err = svc.Ingest(ctx, Many{reading(1), reading(2)})
	require.NoError(t, err)

	readings, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, readings, 2)

	n, err := svc.Clear(ctx, "9", "api")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, rec.logs, 1)
	assert.Equal(t, audit.ActionClearReadings, rec.logs[0].Action)
	assert.Equal(t, "9", rec.logs[0].ActorID)
	assert.Equal(t, int64(2), rec.logs[0].Details["deleted"])
}

func TestService_ListError(t *testing.T) {
	boom := errors.New("locked")
	_, err := newService(&memRepo{listErr: boom}).List(context.Background())
	assert.ErrorIs(t, err, boom)
}

package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/config"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/influxdb"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// fakeInflux answers /ping and records the line protocol posted to
// /api/v2/write.
type fakeInflux struct {
	mu         sync.Mutex
	lines      []string
	query      string
	writeCode  int
	pingStatus int
}

func newFakeInflux(t *testing.T) (*fakeInflux, *httptest.Server) {
	t.Helper()
	f := &fakeInflux{writeCode: http.StatusNoContent, pingStatus: http.StatusNoContent}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			f.mu.Lock()
			code := f.pingStatus
			f.mu.Unlock()
			w.WriteHeader(code)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.query = r.URL.RawQuery
			f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
			code := f.writeCode
			f.mu.Unlock()
			if code != http.StatusNoContent {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"code":"invalid","message":"bad point"}`))
				return
			}
			w.WriteHeader(code)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "sensorhub",
		Bucket:        "readings",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnect(t *testing.T) {
	_, srv := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	if _, err := influxdb.Connect(context.Background(), cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, srv := newFakeInflux(t)
	url := srv.URL
	srv.Close()

	if _, err := influxdb.Connect(context.Background(), testConfig(url)); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteReading(t *testing.T) {
	fake, srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	recorded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var sink sensor.Sink = client
	sink.WriteReading(context.Background(), sensor.Reading{
		ID:          1,
		SensorID:    3,
		Temperature: 21.5,
		Humidity:    40.25,
		Vibration:   0.1,
		RecordedAt:  recorded,
	})
	client.Flush()

	lines := fake.written()
	if len(lines) != 1 {
		t.Fatalf("written lines = %v, want 1", lines)
	}
	line := lines[0]
	for _, want := range []string{
		"sensor_reading,sensor_id=3 ",
		"temperature=21.5",
		"humidity=40.25",
		"vibration=0.1",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, " 1740830400000000000") {
		t.Errorf("line %q has wrong timestamp", line)
	}
	if !strings.Contains(fake.query, "bucket=readings") || !strings.Contains(fake.query, "org=sensorhub") {
		t.Errorf("write query = %q", fake.query)
	}
}

func TestWriteReading_AfterClose(t *testing.T) {
	fake, srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	client.WriteReading(context.Background(), sensor.Reading{SensorID: 1, Temperature: 1, RecordedAt: time.Now()})
	client.Flush()

	if lines := fake.written(); len(lines) != 0 {
		t.Errorf("written after Close = %v", lines)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v", err)
	}
}

func TestWriteReading_ConcurrentClose(t *testing.T) {
	fake, srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	const writers, perWriter = 8, 50
	start := make(chan struct{})
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := range perWriter {
				client.WriteReading(context.Background(), sensor.Reading{SensorID: int64(w*perWriter + i + 1), Temperature: 1, RecordedAt: time.Now()})
			}
		}()
	}

	close(start)
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	wg.Wait()

	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if got := len(fake.written()); got > writers*perWriter {
		t.Errorf("written = %d lines, more than the %d submitted", got, writers*perWriter)
	}
}

func TestSetOnError(t *testing.T) {
	fake, srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	fake.mu.Lock()
	fake.writeCode = http.StatusBadRequest
	fake.mu.Unlock()

	client.WriteReading(context.Background(), sensor.Reading{SensorID: 1, Temperature: 1, RecordedAt: time.Now()})
	client.Flush()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("nil error delivered")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error not delivered to callback")
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	fake, srv := newFakeInflux(t)
	client, err := influxdb.Connect(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	fake.mu.Lock()
	fake.pingStatus = http.StatusServiceUnavailable
	fake.mu.Unlock()

	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() = nil for failing ping")
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client = %v", err)
	}
}

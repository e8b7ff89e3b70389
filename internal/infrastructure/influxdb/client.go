package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client is the reading mirror. It is safe for concurrent use.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI

	// state guards closed so no write reaches a released write API.
	state  sync.RWMutex
	closed bool

	mu      sync.RWMutex
	onError func(err error)
}

// Connect pings cfg.URL and opens a batched write API on cfg.Org and
// cfg.Bucket. It returns ErrDisabled when the mirror is turned off.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	c := &Client{influx: influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.ping(pingCtx); err != nil {
		c.influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.writeAPI = c.influx.WriteAPI(cfg.Org, cfg.Bucket)
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

// writeOptions applies the batch settings, falling back to defaults for
// non-positive values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds()))
}

func (c *Client) ping(ctx context.Context) error {
	healthy, err := c.influx.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets the callback for failed batch writes.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	checkCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.ping(checkCtx); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected is false once Close has been called.
func (c *Client) IsConnected() bool {
	if c == nil || c.influx == nil {
		return false
	}
	c.state.RLock()
	defer c.state.RUnlock()
	return !c.closed
}

// Flush blocks until buffered points are sent. It does nothing after Close.
func (c *Client) Flush() {
	if c == nil || c.influx == nil {
		return
	}
	c.state.RLock()
	defer c.state.RUnlock()
	if !c.closed {
		c.writeAPI.Flush()
	}
}

// Close flushes buffered points and releases the client. It waits for
// in-flight writes; later writes are dropped.
func (c *Client) Close() error {
	if c == nil || c.influx == nil {
		return nil
	}
	c.state.Lock()
	defer c.state.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.writeAPI.Flush()
	c.influx.Close()
	return nil
}

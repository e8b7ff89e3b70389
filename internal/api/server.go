package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gustavobizon/sprint-programacao/internal/audit"
	"github.com/gustavobizon/sprint-programacao/internal/auth"
	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/config"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/logging"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// defaultMaxBodyBytes applies when the configuration leaves the limit unset.
const defaultMaxBodyBytes = 1 << 20

// HealthCheck is one component reported by GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Stream    config.StreamConfig
	Logger    *logging.Logger
	Accounts  *auth.Service
	Readings  *sensor.Service
	Gate      *availability.Gate
	AuditLogs audit.Repository // optional: GET /audit-logs answers 500 without it
	Checks    []HealthCheck
	Version   string
}

// Server is the HTTP API server for sensorhub.
//
// It owns the router, the live reading hub and the stream ticket store.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	streamCfg config.StreamConfig
	logger    *logging.Logger
	accounts  *auth.Service
	tokens    *auth.TokenService
	readings  *sensor.Service
	gate      *availability.Gate
	auditLogs audit.Repository
	checks    []HealthCheck
	version   string

	router   http.Handler
	hub      *Hub
	tickets  *ticketStore
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies and registers
// its stream hub as a sink of the reading service.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("account service is required")
	}
	if deps.Readings == nil {
		return nil, fmt.Errorf("reading service is required")
	}
	if deps.Gate == nil {
		deps.Gate = availability.NewGate()
	}

	s := &Server{
		cfg:       deps.Config,
		streamCfg: deps.Stream,
		logger:    deps.Logger,
		accounts:  deps.Accounts,
		tokens:    deps.Accounts.Tokens(),
		readings:  deps.Readings,
		gate:      deps.Gate,
		auditLogs: deps.AuditLogs,
		checks:    deps.Checks,
		version:   deps.Version,
	}

	s.hub = NewHub(deps.Stream, deps.Logger, deps.Gate)
	s.tickets = newTicketStore(time.Duration(deps.Stream.TicketTTL) * time.Second)
	s.readings.AddSink(s.hub)
	s.router = s.buildRouter()

	return s, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the live reading hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine. It also
// starts the hub and the ticket sweeper, both stopped by Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.MaxBodyBytes > 0 {
		return s.cfg.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

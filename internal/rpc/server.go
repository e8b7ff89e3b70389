package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gustavobizon/sprint-programacao/internal/auth"
	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/logging"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// Client-facing messages, shared with the HTTP surface.
const (
	msgTokenMissing  = "Token não fornecido"
	msgAccessDenied  = "Acesso negado"
	msgInvalidBody   = "Corpo da requisição inválido."
	msgServicePaused = "Serviço pausado."
	msgFetchFailed   = "Erro ao buscar os dados."
	msgProcessFailed = "Erro ao processar os dados."
	msgClearFailed   = "Erro ao limpar os dados."
)

// gracefulStopTimeout bounds GracefulStop before the server is forced down.
const gracefulStopTimeout = 10 * time.Second

// Deps holds the dependencies of the gRPC server.
type Deps struct {
	Addr     string
	Logger   *logging.Logger
	Tokens   *auth.TokenService
	Readings *sensor.Service
	Gate     *availability.Gate
}

// Server serves sensorhub.v1.Telemetry.
type Server struct {
	addr     string
	logger   *logging.Logger
	tokens   *auth.TokenService
	readings *sensor.Service
	gate     *availability.Gate

	srv *grpc.Server
}

// New creates a Server. It does not listen until Start or Serve.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Readings == nil {
		return nil, fmt.Errorf("reading service is required")
	}
	if deps.Gate == nil {
		deps.Gate = availability.NewGate()
	}

	s := &Server{
		addr:     deps.Addr,
		logger:   deps.Logger.With("component", "grpc"),
		tokens:   deps.Tokens,
		readings: deps.Readings,
		gate:     deps.Gate,
	}
	s.srv = grpc.NewServer(grpc.ChainUnaryInterceptor(s.authInterceptor))
	RegisterTelemetryServer(s.srv, s)
	return s, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.logger.Info("gRPC server starting", "address", ln.Addr().String())
	go func() {
		if err := s.Serve(ln); err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
	}()
	return nil
}

// Serve accepts connections on ln until Close.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving gRPC: %w", err)
	}
	return nil
}

// Close stops the server, waiting for in-flight calls up to
// gracefulStopTimeout.
func (s *Server) Close() error {
	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(gracefulStopTimeout):
		s.logger.Warn("gRPC graceful stop timed out, forcing")
		s.srv.Stop()
	}
	return nil
}

// Ingest implements TelemetryServer. A struct value is one reading, a
// list value a batch.
func (s *Server) Ingest(ctx context.Context, in *structpb.Value) (*structpb.Struct, error) {
	batch, err := sensor.BatchFromValue(in.AsInterface())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, msgInvalidBody)
	}

	count, err := s.readings.Ingest(ctx, batch)
	if err != nil {
		var ve *sensor.ValidationError
		if errors.As(err, &ve) {
			return nil, status.Error(codes.InvalidArgument, ve.Message)
		}
		s.logger.Error("storing readings failed", "stored", count, "error", err)
		return nil, status.Error(codes.Internal, msgProcessFailed)
	}

	return newStruct(map[string]any{
		"message": "Dados recebidos e armazenados com sucesso.",
		"count":   count,
	})
}

// ListReadings implements TelemetryServer.
func (s *Server) ListReadings(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	if s.gate.Paused() {
		return nil, status.Error(codes.FailedPrecondition, msgServicePaused)
	}

	readings, err := s.readings.List(ctx)
	if err != nil {
		s.logger.Error("listing readings failed", "error", err)
		return nil, status.Error(codes.Internal, msgFetchFailed)
	}

	values := make([]*structpb.Value, 0, len(readings))
	for _, r := range readings {
		st, err := structpb.NewStruct(readingFields(r))
		if err != nil {
			s.logger.Error("encoding reading failed", "id", r.ID, "error", err)
			return nil, status.Error(codes.Internal, msgFetchFailed)
		}
		values = append(values, structpb.NewStructValue(st))
	}
	return &structpb.ListValue{Values: values}, nil
}

// Clear implements TelemetryServer.
func (s *Server) Clear(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	actor := ""
	if claims := claimsFromContext(ctx); claims != nil {
		actor = claims.Subject
	}

	deleted, err := s.readings.Clear(ctx, actor, "grpc")
	if err != nil {
		s.logger.Error("clearing readings failed", "error", err)
		return nil, status.Error(codes.Internal, msgClearFailed)
	}
	return newStruct(map[string]any{
		"message": "Dados da tabela foram limpos com sucesso.",
		"deleted": deleted,
	})
}

// readingFields uses the same field names as the JSON wire format.
func readingFields(r sensor.Reading) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"sensor_id":   r.SensorID,
		"temperatura": r.Temperature,
		"umidade":     r.Humidity,
		"vibracao":    r.Vibration,
		"timestamp":   r.RecordedAt.UTC().Format(time.RFC3339),
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gustavobizon/sprint-programacao/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.gateMiddleware)

	r.Get("/health", s.handleHealth)

	// Account endpoints (no auth required)
	r.Post("/register", s.handleRegister)
	r.Post("/recover-password", s.handleRecoverPassword)
	r.Post("/change-password", s.handleChangePassword)
	r.Post("/login", s.handleLogin)

	// Ticket-authenticated WebSocket
	r.Get("/stream", s.handleStream)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/dados-sensores", s.handleIngestReadings)
		r.Delete("/limpar-dados", s.handleClearReadings)
		r.Post("/pausar-servico", s.handleSetAvailability)

		r.Group(func(r chi.Router) {
			r.Use(s.authorize(auth.RoleAdmin, auth.RoleUser))

			r.Get("/dados-sensores", s.handleListReadings)
			r.Post("/stream/ticket", s.handleStreamTicket)
		})

		r.With(s.authorize(auth.RoleAdmin)).Get("/audit-logs", s.handleListAuditLogs)
	})

	return r
}

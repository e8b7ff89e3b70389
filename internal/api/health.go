package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// healthCheckTimeout bounds each component check.
const healthCheckTimeout = 2 * time.Second

// handleHealth reports the status of each registered component and the
// availability state. Checks run concurrently. Any failing component makes
// the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := make([]error, len(s.checks))

	var g errgroup.Group
	for i, hc := range s.checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			results[i] = hc.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	components := make(map[string]string, len(s.checks))
	healthy := true
	for i, hc := range s.checks {
		if err := results[i]; err != nil {
			s.logger.Warn("health check failed", "component", hc.Name, "error", err)
			components[hc.Name] = "unhealthy"
			healthy = false
			continue
		}
		components[hc.Name] = "healthy"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":       status,
		"version":      s.version,
		"availability": string(s.gate.State()),
		"components":   components,
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gustavobizon/sprint-programacao/internal/audit"
)

// handleListAuditLogs returns recent audit entries, newest first.
// Query parameters: action (exact match) and limit.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditLogs == nil {
		writeInternalError(w, msgFetchFailed)
		return
	}

	filter := audit.Filter{Action: r.URL.Query().Get("action")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "Parâmetro limit inválido.")
			return
		}
		filter.Limit = limit
	}

	logs, err := s.auditLogs.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit logs failed", "error", err)
		writeInternalError(w, msgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

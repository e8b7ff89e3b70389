package api

import (
	"errors"
	"net/http"

	"github.com/gustavobizon/sprint-programacao/internal/availability"
	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

// pausedResponse is the body of GET /dados-sensores while reads are paused.
type pausedResponse struct {
	Message string           `json:"message"`
	Status  string           `json:"status"`
	Data    []sensor.Reading `json:"data"`
}

// availabilityRequest is the body of POST /pausar-servico.
type availabilityRequest struct {
	Status string `json:"status"`
}

// handleListReadings returns every stored reading, or the paused body
// without touching storage when the gate is closed.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	if gate := availability.FromContext(r.Context()); gate != nil && gate.Paused() {
		writeJSON(w, http.StatusOK, pausedResponse{
			Message: msgServicePaused,
			Status:  string(availability.StatePaused),
			Data:    []sensor.Reading{},
		})
		return
	}

	readings, err := s.readings.List(r.Context())
	if err != nil {
		s.logger.Error("listing readings failed", "error", err)
		writeInternalError(w, msgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// handleIngestReadings stores one reading or an array of them. The batch
// is rejected whole on the first invalid element; storage failures may
// leave part of a valid batch stored.
func (s *Server) handleIngestReadings(w http.ResponseWriter, r *http.Request) {
	batch, err := s.decodeBatch(r)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, msgBodyTooLarge)
		case errors.Is(err, errUnsupportedEncoding):
			writeError(w, http.StatusUnsupportedMediaType, ErrCodeBadRequest, msgInvalidBody)
		default:
			s.logger.Debug("malformed reading body", "error", err)
			writeBadRequest(w, msgInvalidBody)
		}
		return
	}

	count, err := s.readings.Ingest(r.Context(), batch)
	if err != nil {
		var ve *sensor.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(w, ve.Message)
			return
		}
		s.logger.Error("storing readings failed", "stored", count, "error", err)
		writeInternalError(w, msgProcessFailed)
		return
	}

	writeMessage(w, http.StatusOK, "Dados recebidos e armazenados com sucesso.", map[string]any{"count": count})
}

// handleClearReadings deletes every stored reading. Any authenticated
// account may do this.
func (s *Server) handleClearReadings(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.readings.Clear(r.Context(), actorFromContext(r.Context()), "api")
	if err != nil {
		s.logger.Error("clearing readings failed", "error", err)
		writeInternalError(w, msgClearFailed)
		return
	}
	writeMessage(w, http.StatusOK, "Dados da tabela foram limpos com sucesso.", map[string]any{"deleted": deleted})
}

// handleSetAvailability pauses or resumes read access.
func (s *Server) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, msgInvalidStatus)
		return
	}

	gate := availability.FromContext(r.Context())
	if gate == nil {
		gate = s.gate
	}
	state, err := gate.Apply(r.Context(), req.Status, actorFromContext(r.Context()))
	if err != nil {
		writeBadRequest(w, msgInvalidStatus)
		return
	}

	s.logger.Info("availability changed", "state", string(state), "actor", actorFromContext(r.Context()))
	message := "Serviço reiniciado com sucesso."
	if state == availability.StatePaused {
		message = "Serviço pausado com sucesso."
	}
	writeMessage(w, http.StatusOK, message, map[string]any{"status": string(state)})
}

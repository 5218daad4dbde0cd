package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veriflow/orchestrator/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CorrectableEnvelope reports a failure the user can fix and retry.
type CorrectableEnvelope struct {
	Error       string `json:"error"`
	ErrorCode   string `json:"error_code"`
	Remediation string `json:"remediation"`
}

// PaginatedSessionsEnvelope wraps session history responses.
type PaginatedSessionsEnvelope struct {
	Data       []domain.VerificationSession `json:"data"`
	NextCursor string                       `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps the service error taxonomy onto HTTP statuses. A
// correctable failure keeps its code and remediation so clients can guide
// the user instead of showing a generic error.
func writeDomainError(w http.ResponseWriter, err error) {
	var ce *domain.CorrectableError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusUnprocessableEntity, CorrectableEnvelope{
			Error:       ce.Error(),
			ErrorCode:   ce.Code,
			Remediation: ce.Remediation,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrDecisionFinal), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCollaboratorUnavailable):
		writeError(w, http.StatusServiceUnavailable, "verification service temporarily unavailable, retry the stage")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/google/uuid"
)

// StatusFor maps a client error code to its HTTP status.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeBadRequest, domain.CodeConfigNotFound:
		return http.StatusBadRequest
	case domain.CodeConversationActive:
		return http.StatusConflict
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ce := domain.ToClientError(err, uuid.NewString())
	status := StatusFor(ce.Code)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "reference", ce.ReferenceCode, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", ce.Code, "err", err)
	}
	writeJSON(w, status, ce)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

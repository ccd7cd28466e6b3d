package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/willtrail/willtrail/internal/common"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondError maps service errors onto HTTP statuses. Validation details go
// back to the caller verbatim; everything else gets a fixed message so
// internals never leak through error text.
func (s *Server) respondError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		respondMessage(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		respondMessage(w, http.StatusForbidden, "account deactivated")
	case errors.Is(err, common.ErrorNotFound):
		respondMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorConflict):
		respondMessage(w, http.StatusConflict, "already exists")
	default:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		respondMessage(w, http.StatusInternalServerError, "internal error")
	}
}

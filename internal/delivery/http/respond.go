package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/farmstore/backend/internal/entity"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the business-rule taxonomy onto status codes. Anything
// outside the taxonomy is a 500 with a generic body; details stay in the log.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, entity.ErrValidation), errors.Is(err, entity.ErrInsufficientStock):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, entity.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrEmailTaken):
		status = http.StatusConflict
	default:
		slog.Error("Internal error", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
		return
	}

	writeJSON(w, status, map[string]string{"message": err.Error()})
}

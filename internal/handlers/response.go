package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps the carrier/service error taxonomy onto HTTP
// status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var authErr *carrier.AuthError
	var rateErr *carrier.RateLimitError

	switch {
	case errors.As(err, &authErr):
		writeError(w, http.StatusUnauthorized, "carrier authentication failed")
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rateErr.RetryAfter.Seconds()))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case carrier.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found at carrier")
	case errors.Is(err, service.ErrInvalidICCID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

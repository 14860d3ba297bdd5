package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Priya8975/notification-hub/internal/domain"
	"github.com/Priya8975/notification-hub/internal/validation"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	maxBodyBytes = 1 << 20
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// clientError reports whether err was caused by the request itself.
func clientError(err error) bool {
	var verr *validation.Error

	return errors.Is(err, &domain.SchemaError{}) ||
		errors.As(err, &verr) ||
		errors.Is(err, domain.ErrInvalidTopic)
}

func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}

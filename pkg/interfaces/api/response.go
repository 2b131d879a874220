package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
)

const maxBodyBytes = 1 << 20

// apiResponse is the envelope of every successful response
type apiResponse struct {
	Data any `json:"data"`
}

// JSON writes a successful API response with the given data.
func JSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// errorResponse is the envelope of every failed response. Code names the
// job service sentinel so clients can map it back.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Err writes a JSON error response with the given message and HTTP status code.
func Err(w http.ResponseWriter, msg string, code int) {
	ErrWithCode(w, msg, "", code)
}

// ErrWithCode writes a JSON error response carrying a machine-readable error code.
func ErrWithCode(w http.ResponseWriter, msg, errorCode string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{Error: msg, Code: errorCode})
}

// DecodeBody decodes a JSON request body into the given value.
func DecodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// StatusFor maps a job service error to its HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrInvalidRequest),
		errors.Is(err, entities.ErrUnknownPriority),
		errors.Is(err, entities.ErrUnknownStatus),
		errors.Is(err, entities.ErrNegativeDelta):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrIllegalTransition),
		errors.Is(err, entities.ErrNotInProgress),
		errors.Is(err, entities.ErrNoRemainingOperations):
		return http.StatusConflict
	case errors.Is(err, entities.ErrInvalidPlan):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

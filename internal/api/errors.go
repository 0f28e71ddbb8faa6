package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/tunerwatch/internal/device"
	"github.com/nerrad567/tunerwatch/internal/tuner"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeConflict          = "conflict"
	ErrCodeInternal          = "internal_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeCommandFailed     = "command_failed"
	ErrCodeDeviceUnreachable = "device_unreachable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps tuner and device errors onto HTTP responses.
// Device-side failures are 502: the request was fine, the tuner was not.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tuner.ErrInvalidChannel), errors.Is(err, tuner.ErrInvalidTuner):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, tuner.ErrNotTuned):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, tuner.ErrDeviceUnreachable):
		writeError(w, http.StatusBadGateway, ErrCodeDeviceUnreachable, err.Error())
	case errors.Is(err, tuner.ErrCommandFailed):
		writeError(w, http.StatusBadGateway, ErrCodeCommandFailed, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}

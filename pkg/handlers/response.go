package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
)

// ApiResponse is the envelope of every successful JSON response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// errorStatus maps tracker errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrNoProject):
		return http.StatusConflict, "no_project"
	case errors.Is(err, apperrors.ErrPhaseGated):
		return http.StatusConflict, "phase_gated"
	case errors.Is(err, apperrors.ErrPhaseSkipped):
		return http.StatusConflict, "phase_skipped"
	case errors.Is(err, apperrors.ErrProjectClosed):
		return http.StatusConflict, "project_closed"
	case errors.Is(err, apperrors.ErrOperationRunning):
		return http.StatusConflict, "operation_running"
	case errors.Is(err, apperrors.ErrNoTablePair):
		return http.StatusConflict, "no_table_pair"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrInvalidPhase):
		return http.StatusBadRequest, "invalid_phase"
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		return http.StatusBadRequest, "invalid_status_transition"
	case errors.Is(err, apperrors.ErrUnknownPlatform):
		return http.StatusBadRequest, "unknown_platform"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError writes err with its mapped status. Server errors are logged.
func writeError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
	} else {
		logger.Debug(msg, zap.String("code", code), zap.Error(err))
	}
	if err := ErrorResponse(w, status, code, err.Error()); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeData wraps data in a successful ApiResponse.
func writeData(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// decodeBody decodes a JSON request body into dst. An empty body is accepted
// when allowEmpty is set. It writes the 400 response itself and returns false
// on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *zap.Logger, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
	return false
}

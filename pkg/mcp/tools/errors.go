package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Actionable errors are returned as a successful tool call carrying this body
// so the client sees the code and message.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (bad parameters, gated phase).
// System failures should still be returned as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
//
// Example:
//
//	return NewErrorResultWithDetails(
//	    "phase_gated",
//	    "upload is not complete",
//	    map[string]any{"current_phase": "upload"},
//	), nil
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// trackerErrorCodes lists the tracker errors a caller can act on.
var trackerErrorCodes = []struct {
	err  error
	code string
}{
	{apperrors.ErrNotFound, "not_found"},
	{apperrors.ErrNoProject, "no_project"},
	{apperrors.ErrPhaseGated, "phase_gated"},
	{apperrors.ErrPhaseSkipped, "phase_skipped"},
	{apperrors.ErrProjectClosed, "project_closed"},
	{apperrors.ErrOperationRunning, "operation_running"},
	{apperrors.ErrNoTablePair, "no_table_pair"},
	{apperrors.ErrConflict, "conflict"},
	{apperrors.ErrInvalidPhase, "invalid_phase"},
	{apperrors.ErrInvalidStatusTransition, "invalid_status_transition"},
	{apperrors.ErrUnknownPlatform, "unknown_platform"},
	{apperrors.ErrInvalidInput, "invalid_parameters"},
}

// TrackerErrorCode returns the tool error code for an actionable tracker
// error, or false for system failures.
func TrackerErrorCode(err error) (string, bool) {
	for _, c := range trackerErrorCodes {
		if errors.Is(err, c.err) {
			return c.code, true
		}
	}
	return "", false
}

// trackerErrorResult converts a tracker error into a tool result. System
// failures are passed through as Go errors.
func trackerErrorResult(err error) (*mcp.CallToolResult, error) {
	if code, ok := TrackerErrorCode(err); ok {
		return NewErrorResult(code, err.Error()), nil
	}
	return nil, err
}

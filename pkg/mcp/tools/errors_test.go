package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
)

// getTextContent extracts the text string from the first text content item.
func getTextContent(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if text, ok := mcp.AsTextContent(result.Content[0]); ok {
		return text.Text
	}
	return ""
}

func TestNewErrorResultWithDetails(t *testing.T) {
	result := NewErrorResultWithDetails("phase_gated", "upload is not complete", map[string]any{"current_phase": "upload"})

	require.NotNil(t, result)
	assert.True(t, result.IsError)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &resp))
	assert.True(t, resp.Error)
	assert.Equal(t, "phase_gated", resp.Code)
	assert.Equal(t, "upload is not complete", resp.Message)
	assert.Equal(t, map[string]any{"current_phase": "upload"}, resp.Details)

	plain := NewErrorResult("not_found", "missing")
	assert.NotContains(t, getTextContent(plain), "details")
}

func TestTrackerErrorResult(t *testing.T) {
	result, err := trackerErrorResult(fmt.Errorf("%w: mapping", apperrors.ErrPhaseGated))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, getTextContent(result), `"code":"phase_gated"`)

	result, err = trackerErrorResult(fmt.Errorf("%w: transformation", apperrors.ErrInvalidInput))
	require.NoError(t, err)
	assert.Contains(t, getTextContent(result), `"code":"invalid_parameters"`)

	boom := errors.New("redis unavailable")
	result, err = trackerErrorResult(boom)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
}

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// PhaseReader reports the wizard phase for the health tool.
type PhaseReader interface {
	CurrentPhase() models.Phase
}

type healthResult struct {
	Status       string       `json:"status"`
	Version      string       `json:"version"`
	CurrentPhase models.Phase `json:"current_phase,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and the wizard phase when
// phases is non-nil.
func RegisterHealthTool(s *server.MCPServer, version string, phases PhaseReader) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		if phases != nil {
			result.CurrentPhase = phases.CurrentPhase()
		}
		return jsonResult(result)
	})
}

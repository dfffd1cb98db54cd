package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_RegisterToolAndCall(t *testing.T) {
	s := NewServer("ekaya-migrate", "1.0.0", zap.NewNop())
	require.NotNil(t, s.MCP())

	called := false
	s.RegisterTool(mcp.NewTool("echo", mcp.WithDescription("Echo")), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("pong"), nil
	})
	assert.False(t, called, "handler should not be called during registration")

	msg := s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.True(t, called)
	assert.Contains(t, string(raw), "pong")
}

func TestServer_RecoversToolPanic(t *testing.T) {
	s := NewServer("ekaya-migrate", "1.0.0", zap.NewNop())
	s.RegisterTool(mcp.NewTool("boom"), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("tracker exploded")
	})

	assert.NotPanics(t, func() {
		s.MCP().HandleMessage(context.Background(),
			[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"boom"}}`))
	})
}

func TestServer_NewStreamableHTTPServer(t *testing.T) {
	s := NewServer("ekaya-migrate", "1.0.0", zap.NewNop())
	assert.NotNil(t, s.NewStreamableHTTPServer())
}

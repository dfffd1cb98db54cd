package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

// toolCallResponse is the JSON-RPC shape of a tools/call reply.
type toolCallResponse struct {
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool invokes a tool through the server's JSON-RPC entry point.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolCallResponse {
	t.Helper()

	if args == nil {
		args = map[string]any{}
	}
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	require.NoError(t, err)
	request := fmt.Sprintf(`{"jsonrpc":"2.0","method":"tools/call","params":%s,"id":1}`, params)

	result := s.HandleMessage(context.Background(), []byte(request))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response toolCallResponse
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	return response
}

// text returns the first text content of a successful call.
func (r toolCallResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected JSON-RPC error")
	require.NotEmpty(t, r.Result.Content, "expected content in response")
	require.Equal(t, "text", r.Result.Content[0].Type)
	return r.Result.Content[0].Text
}

// decode unmarshals the first text content into dst.
func (r toolCallResponse) decode(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(r.text(t)), dst))
}

// toolNames lists the tools registered on s.
func toolNames(t *testing.T, s *server.MCPServer) map[string]string {
	t.Helper()

	result := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make(map[string]string, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names[tool.Name] = tool.Description
	}
	return names
}

package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/germanamz/videocapture/pkg/tools/content"
	"github.com/germanamz/videocapture/pkg/tools/toolbox"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer creates an MCP server with the given tools, connects a
// client via in-memory transports, and returns the client. The server runs
// in a background goroutine tied to t.Cleanup.
func setupTestServer(t *testing.T, tools ...toolbox.Tool) *MCPClient {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-server",
		Version: "1.0.0",
	}, nil)

	for _, tool := range tools {
		handler := tool.Handler
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			parts, err := handler(ctx, req.Params.Arguments)
			if err != nil {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: content.ToolResult{Parts: parts}.Text()}},
			}, nil
		})
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx, serverTransport)
	}()
	t.Cleanup(func() {
		cancel()
		<-serverDone
	})

	client, err := newFromTransport(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func echoHandler(_ context.Context, input json.RawMessage) ([]content.Part, error) {
	return toolbox.Text(string(input)), nil
}

func textOf(parts []content.Part) string {
	return content.ToolResult{Parts: parts}.Text()
}

func TestListTools(t *testing.T) {
	client := setupTestServer(t,
		toolbox.Tool{
			Name:        "open_camera",
			Description: "Open a camera",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"device_index":{"type":"integer"}}}`),
			Handler:     echoHandler,
		},
		toolbox.Tool{
			Name:        "close_connection",
			Description: "Close a connection",
			InputSchema: json.RawMessage(`{"type":"object"}`),
			Handler:     echoHandler,
		},
	)

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	toolsByName := make(map[string]toolbox.Tool, len(tools))
	for _, tool := range tools {
		toolsByName[tool.Name] = tool
	}

	open, ok := toolsByName["open_camera"]
	require.True(t, ok)
	assert.Equal(t, "Open a camera", open.Description)
	assert.NotNil(t, open.Handler)

	closeConn, ok := toolsByName["close_connection"]
	require.True(t, ok)
	assert.Equal(t, "Close a connection", closeConn.Description)
	assert.NotNil(t, closeConn.Handler)
}

func TestCallToolSuccess(t *testing.T) {
	client := setupTestServer(t, toolbox.Tool{
		Name:        "echo",
		Description: "Echo input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler:     echoHandler,
	})

	parts, err := client.CallTool(context.Background(), "echo", json.RawMessage(`{"msg":"hello"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":"hello"}`, textOf(parts))
}

func TestCallToolError(t *testing.T) {
	client := setupTestServer(t, toolbox.Tool{
		Name:        "fail",
		Description: "Always fails",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, _ json.RawMessage) ([]content.Part, error) {
			return nil, errors.New("something went wrong")
		},
	})

	parts, err := client.CallTool(context.Background(), "fail", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something went wrong")
	assert.Empty(t, parts)
}

func TestCallToolMultipleContent(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-server",
		Version: "1.0.0",
	}, nil)

	server.AddTool(&mcp.Tool{
		Name:        "multi",
		Description: "Returns multiple content items",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "320x240 image/png"},
				&mcp.ImageContent{Data: []byte{1, 2, 3}, MIMEType: "image/png"},
				&mcp.TextContent{Text: "line 2"},
			},
		}, nil
	})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx, serverTransport)
	}()
	defer func() {
		cancel()
		<-serverDone
	}()

	client, err := newFromTransport(ctx, clientTransport)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	parts, err := client.CallTool(context.Background(), "multi", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "320x240 image/png\nline 2", textOf(parts))

	images := content.ToolResult{Parts: parts}.Images()
	require.Len(t, images, 1)
	assert.Equal(t, "image/png", images[0].MediaType)
	assert.Equal(t, []byte{1, 2, 3}, images[0].Data)
}

func TestListToolsHandlerRoundTrip(t *testing.T) {
	client := setupTestServer(t, toolbox.Tool{
		Name:        "greet",
		Description: "Say hello",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, _ json.RawMessage) ([]content.Part, error) {
			return toolbox.Text("hello world"), nil
		},
	})

	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)

	parts, err := tools[0].Handler(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "hello world", textOf(parts))
}

func TestNewStreamable_InvalidEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewStreamable(ctx, "http://127.0.0.1:1/invalid")
	assert.Error(t, err, "NewStreamable should fail for unreachable endpoint")
}

func TestClose(t *testing.T) {
	client := setupTestServer(t, toolbox.Tool{
		Name:        "noop",
		Description: "Does nothing",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler:     echoHandler,
	})

	err := client.Close()
	assert.NoError(t, err)
}

func TestFromSDKContent(t *testing.T) {
	tests := []struct {
		name  string
		items []mcp.Content
		want  []content.Part
	}{
		{
			name:  "single text",
			items: []mcp.Content{&mcp.TextContent{Text: "hello"}},
			want:  []content.Part{content.Text{Text: "hello"}},
		},
		{
			name: "text and image",
			items: []mcp.Content{
				&mcp.TextContent{Text: "a"},
				&mcp.ImageContent{Data: []byte{9}, MIMEType: "image/jpeg"},
			},
			want: []content.Part{
				content.Text{Text: "a"},
				content.Image{Data: []byte{9}, MediaType: "image/jpeg"},
			},
		},
		{
			name:  "unsupported kinds skipped",
			items: []mcp.Content{&mcp.AudioContent{Data: []byte{1}, MIMEType: "audio/wav"}},
			want:  []content.Part{},
		},
		{
			name:  "empty content",
			items: []mcp.Content{},
			want:  []content.Part{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fromSDKContent(tt.items))
		})
	}
}

func TestFromSDKTool(t *testing.T) {
	sdkTool := &mcp.Tool{
		Name:        "test",
		Description: "A test tool",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
		},
	}

	client := &MCPClient{}
	tool, err := fromSDKTool(sdkTool, client)
	require.NoError(t, err)
	assert.Equal(t, "test", tool.Name)
	assert.Equal(t, "A test tool", tool.Description)
	assert.NotNil(t, tool.InputSchema)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tool.InputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
}

package rpc

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/filestore"
	"github.com/calder-ops/toolbridge/pkg/filetools"
	"github.com/calder-ops/toolbridge/pkg/registry"
)

func newTestDispatcher(t *testing.T) (result *Dispatcher) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	events, err := eventlog.Open(t.TempDir(), "test")
	require.NoError(t, err)

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	filetools.RegisterAll(reg, store)

	result = NewDispatcher(reg, events, logger)
	return result
}

func TestDispatchEchoesRequestID(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     interface{}
		method string
	}{
		{name: "numeric id", id: float64(1), method: MethodInitialize},
		{name: "string id", id: "abc-123", method: MethodToolsList},
		{name: "unknown method still echoes", id: float64(7), method: "resources/list"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			response := dispatcher.Dispatch(ctx, Request{
				JSONRPC: Version,
				ID:      tt.id,
				Method:  tt.method,
			})

			assert.Equal(t, tt.id, response.ID)
			assert.Equal(t, Version, response.JSONRPC)
		})
	}
}

func TestDispatchInitialize(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)

	response := dispatcher.Dispatch(context.Background(), Request{
		JSONRPC: Version,
		ID:      float64(1),
		Method:  MethodInitialize,
		Params: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]interface{}{},
			"clientInfo":      map[string]interface{}{"name": "test", "version": "0"},
		},
	})

	require.Nil(t, response.Error)
	assert.Equal(t, ProtocolVersion, response.Result["protocolVersion"])

	info, ok := response.Result["serverInfo"].(ServerMetadata)
	require.True(t, ok)
	assert.Equal(t, ServerName, info.Name)
}

func TestDispatchToolsListStableOrder(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)
	ctx := context.Background()

	first := dispatcher.Dispatch(ctx, Request{JSONRPC: Version, ID: float64(1), Method: MethodToolsList})
	second := dispatcher.Dispatch(ctx, Request{JSONRPC: Version, ID: float64(2), Method: MethodToolsList})

	require.Nil(t, first.Error)
	require.Nil(t, second.Error)
	assert.Equal(t, first.Result["tools"], second.Result["tools"],
		"tools/list must be identical across calls with no registry changes")

	tools, ok := first.Result["tools"].([]registry.Tool)
	require.True(t, ok)
	require.Len(t, tools, 5)
	assert.Equal(t, filetools.ToolListFiles, tools[0].Name, "registration order, not alphabetical")
}

func TestDispatchToolCallSuccessShape(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)

	response := dispatcher.Dispatch(context.Background(), Request{
		JSONRPC: Version,
		ID:      float64(3),
		Method:  MethodToolsCall,
		Params: map[string]interface{}{
			"name": filetools.ToolWriteFile,
			"arguments": map[string]interface{}{
				"filename": "demo.txt",
				"text":     "hi",
			},
		},
	})

	require.Nil(t, response.Error)
	assert.Equal(t, false, response.Result["isError"])

	content, ok := response.Result["content"].([]ContentItem)
	require.True(t, ok)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0].Type)
	assert.Contains(t, content[0].Text, "Wrote 2 bytes to demo.txt")

	structured, ok := response.Result["structuredContent"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Wrote 2 bytes to demo.txt", structured["message"])
}

func TestDispatchUnknownMethod(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)

	response := dispatcher.Dispatch(context.Background(), Request{
		JSONRPC: Version,
		ID:      float64(4),
		Method:  "prompts/list",
	})

	require.NotNil(t, response.Error)
	assert.Equal(t, CodeMethodNotFound, response.Error.Code)
	assert.Nil(t, response.Result, "a response never carries both result and error")
}

func TestDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)

	response := dispatcher.Dispatch(context.Background(), Request{
		JSONRPC: Version,
		ID:      float64(5),
		Method:  MethodToolsCall,
		Params: map[string]interface{}{
			"name":      "nonexistent_tool",
			"arguments": map[string]interface{}{},
		},
	})

	require.NotNil(t, response.Error)
	assert.Equal(t, CodeToolNotFound, response.Error.Code,
		"unknown tool is distinct from unknown method")
	assert.Contains(t, response.Error.Message, "nonexistent_tool")
}

func TestDispatchHandlerFault(t *testing.T) {
	t.Parallel()

	dispatcher := newTestDispatcher(t)

	response := dispatcher.Dispatch(context.Background(), Request{
		JSONRPC: Version,
		ID:      float64(6),
		Method:  MethodToolsCall,
		Params: map[string]interface{}{
			"name": filetools.ToolReadFile,
			"arguments": map[string]interface{}{
				"filename": "ghost.txt",
			},
		},
	})

	require.NotNil(t, response.Error)
	assert.Equal(t, CodeToolFault, response.Error.Code)
	assert.Contains(t, response.Error.Message, "ghost.txt not found")
}

func TestUnknownToolLogsEvent(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	logDir := t.TempDir()

	events, err := eventlog.Open(logDir, "audit")
	require.NoError(t, err)

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	filetools.RegisterAll(reg, store)

	dispatcher := NewDispatcher(reg, events, logger)

	dispatcher.Dispatch(context.Background(), Request{
		JSONRPC: Version,
		ID:      float64(1),
		Method:  MethodToolsCall,
		Params: map[string]interface{}{
			"name":      "nonexistent_tool",
			"arguments": map[string]interface{}{},
		},
	})

	data, err := os.ReadFile(events.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool_not_found")
}

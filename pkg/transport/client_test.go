package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/filestore"
	"github.com/calder-ops/toolbridge/pkg/filetools"
	"github.com/calder-ops/toolbridge/pkg/registry"
	"github.com/calder-ops/toolbridge/pkg/rpc"
)

func writeJSON(w http.ResponseWriter, response rpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func newTestClient(t *testing.T) (result *Client) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	serverEvents, err := eventlog.Open(t.TempDir(), "server")
	require.NoError(t, err)

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	reg := registry.New()
	filetools.RegisterAll(reg, store)

	dispatcher := rpc.NewDispatcher(reg, serverEvents, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var request rpc.Request

		decodeErr := json.NewDecoder(r.Body).Decode(&request)
		if decodeErr != nil {
			writeJSON(w, dispatcher.ParseErrorResponse(r.RemoteAddr))
			return
		}

		writeJSON(w, dispatcher.Dispatch(r.Context(), request))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	clientEvents, err := eventlog.Open(t.TempDir(), "client")
	require.NoError(t, err)

	result = NewClient(server.URL+"/rpc", clientEvents, logger)
	return result
}

func TestInitializeHandshake(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	assert.False(t, client.Initialized())

	result, err := client.Initialize(context.Background(), ClientInfo{Name: "test-client", Version: "0.1"})
	require.NoError(t, err)

	assert.Equal(t, rpc.ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, rpc.ServerName, result.ServerInfo.Name)
	assert.True(t, client.Initialized())
}

func TestListTools(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Initialize(ctx, ClientInfo{Name: "test-client", Version: "0.1"})
	require.NoError(t, err)

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 5)

	assert.Equal(t, filetools.ToolListFiles, tools[0].Name)
	assert.Equal(t, filetools.ToolSearchFile, tools[4].Name)
	assert.NotEmpty(t, tools[0].Description)
	assert.NotNil(t, tools[1].InputSchema)
}

func TestCallTool(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Initialize(ctx, ClientInfo{Name: "test-client", Version: "0.1"})
	require.NoError(t, err)

	result, err := client.CallTool(ctx, filetools.ToolWriteFile, map[string]interface{}{
		"filename": "notes.txt",
		"text":     "remember the milk",
	})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "Wrote 17 bytes to notes.txt", result.StructuredContent["message"])

	result, err = client.CallTool(ctx, filetools.ToolReadFile, map[string]interface{}{
		"filename": "notes.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", result.StructuredContent["content"])
}

func TestCallToolProtocolError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Initialize(ctx, ClientInfo{Name: "test-client", Version: "0.1"})
	require.NoError(t, err)

	_, err = client.CallTool(ctx, "nonexistent_tool", map[string]interface{}{})
	require.Error(t, err)

	var rpcErr *RPCError

	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpc.CodeToolNotFound, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "nonexistent_tool")
}

func TestCallBeforeInitialize(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	// Advisory handshake only: the call still goes through.
	tools, err := client.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 5)
}

func TestTransportFault(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	events, err := eventlog.Open(t.TempDir(), "client")
	require.NoError(t, err)

	client := NewClient("http://127.0.0.1:1/rpc", events, logger)

	_, err = client.Initialize(context.Background(), ClientInfo{Name: "test-client", Version: "0.1"})
	require.Error(t, err)

	var rpcErr *RPCError

	assert.False(t, errors.As(err, &rpcErr), "a connection failure is not a protocol error")
}

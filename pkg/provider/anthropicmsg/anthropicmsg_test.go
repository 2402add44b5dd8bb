package anthropicmsg

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-ops/toolbridge/pkg/provider"
)

func TestConvertTools(t *testing.T) {
	t.Parallel()

	tools := []provider.ToolDefinition{
		{
			Name:        "search_file",
			Description: "Search for a keyword in a file and count occurrences",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"filename": map[string]interface{}{"type": "string"},
					"keyword":  map[string]interface{}{"type": "string"},
				},
				"required": []string{"filename", "keyword"},
			},
		},
	}

	converted := ConvertTools(tools)
	require.Len(t, converted, 1)

	assert.Equal(t, "search_file", converted[0].Name)
	assert.Equal(t, "Search for a keyword in a file and count occurrences", converted[0].Description)

	schema, ok := converted[0].InputSchema.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", schema["type"])
}

func TestConvertHistory(t *testing.T) {
	t.Parallel()

	history := []provider.Turn{
		provider.UserTurn("delete old.txt please"),
		provider.AssistantTurn("Deleting it now.", []provider.ToolCall{
			{
				ID:        "toolu_01",
				Name:      "delete_file",
				Arguments: map[string]interface{}{"filename": "old.txt"},
			},
		}),
		provider.ToolResultsTurn([]provider.ToolResult{
			{CallID: "toolu_01", Content: `{"deleted":true}`},
		}),
	}

	messages := convertHistory(history)
	require.Len(t, messages, 3)

	assert.Equal(t, anthropic.RoleUser, messages[0].Role)

	assistant := messages[1]
	assert.Equal(t, anthropic.RoleAssistant, assistant.Role)
	require.Len(t, assistant.Content, 2, "text block plus tool_use block")
	require.NotNil(t, assistant.Content[1].MessageContentToolUse)
	assert.Equal(t, "toolu_01", assistant.Content[1].MessageContentToolUse.ID)
	assert.Equal(t, "delete_file", assistant.Content[1].MessageContentToolUse.Name)

	// Tool results ride back as a user message of tool_result blocks.
	results := messages[2]
	assert.Equal(t, anthropic.RoleUser, results.Role)
	require.Len(t, results.Content, 1)
}

func TestExtractResponse(t *testing.T) {
	t.Parallel()

	text := "Checking the file now."

	content := []anthropic.MessageContent{
		{Type: "text", Text: &text},
		{
			Type: "tool_use",
			MessageContentToolUse: &anthropic.MessageContentToolUse{
				ID:    "toolu_02",
				Name:  "read_file",
				Input: json.RawMessage(`{"filename":"notes.txt"}`),
			},
		},
	}

	result := extractResponse(content)

	assert.Equal(t, "Checking the file now.", result.Text)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "toolu_02", result.ToolCalls[0].ID)
	assert.Equal(t, "read_file", result.ToolCalls[0].Name)
	assert.Equal(t, map[string]interface{}{"filename": "notes.txt"}, result.ToolCalls[0].Arguments)
}

func TestExtractResponseBadToolInput(t *testing.T) {
	t.Parallel()

	content := []anthropic.MessageContent{
		{
			Type: "tool_use",
			MessageContentToolUse: &anthropic.MessageContentToolUse{
				ID:    "toolu_03",
				Name:  "list_files",
				Input: json.RawMessage(`not json at all`),
			},
		},
	}

	result := extractResponse(content)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, map[string]interface{}{}, result.ToolCalls[0].Arguments,
		"undecodable input degrades to an empty argument bundle")
}

func TestAdapterDefaults(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	adapter := New("test-key", "", logger)
	assert.Equal(t, DefaultModel, adapter.model)
	assert.Equal(t, "anthropic", adapter.Name())

	adapter = New("test-key", "claude-3-5-haiku-20241022", logger)
	assert.Equal(t, "claude-3-5-haiku-20241022", adapter.model)
}

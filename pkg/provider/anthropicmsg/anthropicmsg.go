// Package anthropicmsg adapts the neutral tool model to the Anthropic Messages
// API (message-block wire shape).
package anthropicmsg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/calder-ops/toolbridge/pkg/metrics"
	"github.com/calder-ops/toolbridge/pkg/provider"
)

const (
	// DefaultModel is the default Claude model ID.
	DefaultModel = "claude-sonnet-4-5-20250929"

	// MaxTokens is the maximum tokens for model responses.
	MaxTokens = 4096

	providerName = "anthropic"
)

// Adapter translates neutral tool definitions and turns into Anthropic message
// blocks and extracts tool_use blocks from responses.
type Adapter struct {
	client *anthropic.Client
	model  string
	logger *slog.Logger
}

// New creates an adapter. An empty model selects DefaultModel.
func New(apiKey string, model string, logger *slog.Logger) (result *Adapter) {
	if model == "" {
		model = DefaultModel
	}

	result = &Adapter{
		client: anthropic.NewClient(apiKey),
		model:  model,
		logger: logger,
	}

	return result
}

// Name identifies the provider variant.
func (a *Adapter) Name() (result string) {
	result = providerName
	return result
}

// Generate sends the conversation to the Messages API and returns the neutral
// response.
func (a *Adapter) Generate(ctx context.Context, req provider.GenerateRequest) (result provider.GenerateResponse, err error) {
	request := anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		Messages:  convertHistory(req.History),
		MaxTokens: MaxTokens,
		System:    req.SystemPrompt,
	}

	if len(req.Tools) > 0 {
		request.Tools = ConvertTools(req.Tools)
	}

	a.logger.InfoContext(ctx, "sending message to Claude",
		slog.Int("message_count", len(request.Messages)),
		slog.Int("tool_count", len(request.Tools)))

	resp, err := a.client.CreateMessages(ctx, request)
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(providerName, "error").Inc()
		err = fmt.Errorf("calling Claude API: %w", err)
		return result, err
	}

	metrics.ModelCallsTotal.WithLabelValues(providerName, "success").Inc()
	metrics.ModelTokensTotal.WithLabelValues(providerName, "input").Add(float64(resp.Usage.InputTokens))
	metrics.ModelTokensTotal.WithLabelValues(providerName, "output").Add(float64(resp.Usage.OutputTokens))

	a.logger.InfoContext(ctx, "received response from Claude",
		slog.String("stop_reason", string(resp.StopReason)),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens))

	result = extractResponse(resp.Content)
	return result, err
}

// ConvertTools maps neutral tool definitions onto the Anthropic tool shape:
// the input schema passes through as input_schema.
func ConvertTools(tools []provider.ToolDefinition) (result []anthropic.ToolDefinition) {
	result = make([]anthropic.ToolDefinition, 0, len(tools))

	for _, tool := range tools {
		result = append(result, anthropic.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	return result
}

// convertHistory maps neutral turns onto Anthropic messages. Assistant turns
// become text plus tool_use blocks; tool results become a user message of
// tool_result blocks keyed by tool_use_id.
func convertHistory(history []provider.Turn) (result []anthropic.Message) {
	result = make([]anthropic.Message, 0, len(history))

	for _, turn := range history {
		switch turn.Kind {
		case provider.KindUser:
			text := turn.Text
			result = append(result, anthropic.Message{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					{Type: "text", Text: &text},
				},
			})

		case provider.KindAssistant:
			var content []anthropic.MessageContent

			if turn.Text != "" {
				text := turn.Text
				content = append(content, anthropic.MessageContent{Type: "text", Text: &text})
			}

			for _, call := range turn.ToolCalls {
				input, marshalErr := json.Marshal(call.Arguments)
				if marshalErr != nil {
					input = []byte("{}")
				}

				content = append(content, anthropic.MessageContent{
					Type: "tool_use",
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    call.ID,
						Name:  call.Name,
						Input: input,
					},
				})
			}

			result = append(result, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})

		case provider.KindToolResults:
			content := make([]anthropic.MessageContent, 0, len(turn.Results))

			for _, toolResult := range turn.Results {
				content = append(content, anthropic.NewToolResultMessageContent(
					toolResult.CallID, toolResult.Content, toolResult.IsError))
			}

			result = append(result, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: content,
			})
		}
	}

	return result
}

// extractResponse collects text and tool_use blocks from the response content.
// Tool inputs arrive already structured; an undecodable input degrades to an
// empty argument bundle rather than failing the turn.
func extractResponse(content []anthropic.MessageContent) (result provider.GenerateResponse) {
	var texts []string

	for _, block := range content {
		//nolint:exhaustive // Only handling text and tool_use, other types are ignored
		switch block.Type {
		case "text":
			if block.Text != nil {
				texts = append(texts, *block.Text)
			}

		case "tool_use":
			if block.MessageContentToolUse == nil {
				continue
			}

			arguments := map[string]interface{}{}
			if len(block.MessageContentToolUse.Input) > 0 {
				decodeErr := json.Unmarshal(block.MessageContentToolUse.Input, &arguments)
				if decodeErr != nil {
					arguments = map[string]interface{}{}
				}
			}

			result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
				ID:        block.MessageContentToolUse.ID,
				Name:      block.MessageContentToolUse.Name,
				Arguments: arguments,
			})

		default:
			// Ignore other content types (thinking, image, etc.)
		}
	}

	result.Text = strings.Join(texts, "")
	return result
}

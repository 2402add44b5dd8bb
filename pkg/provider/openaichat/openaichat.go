// Package openaichat adapts the neutral tool model to chat-completion-style
// providers (OpenAI and OpenAI-compatible endpoints such as Ollama).
package openaichat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/calder-ops/toolbridge/pkg/metrics"
	"github.com/calder-ops/toolbridge/pkg/provider"
)

const providerName = "openai"

// Adapter translates neutral tool definitions and turns into the chat
// completion function-calling shape and extracts tool calls from choices.
type Adapter struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// New creates an adapter. baseURL may be empty for the official endpoint or
// point at an OpenAI-compatible server.
func New(apiKey string, baseURL string, model string, logger *slog.Logger) (result *Adapter) {
	var clientOpts []option.RequestOption

	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	result = &Adapter{
		client: openai.NewClient(clientOpts...),
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

// Generate sends the conversation to the chat completions API and returns the
// neutral response.
func (a *Adapter) Generate(ctx context.Context, req provider.GenerateRequest) (result provider.GenerateResponse, err error) {
	params := openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: convertHistory(req.SystemPrompt, req.History),
	}

	if len(req.Tools) > 0 {
		params.Tools = ConvertTools(req.Tools)
	}

	a.logger.InfoContext(ctx, "sending chat completion request",
		slog.String("model", a.model),
		slog.Int("message_count", len(params.Messages)),
		slog.Int("tool_count", len(params.Tools)))

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.ModelCallsTotal.WithLabelValues(providerName, "error").Inc()
		err = fmt.Errorf("calling chat completions API: %w", err)
		return result, err
	}

	metrics.ModelCallsTotal.WithLabelValues(providerName, "success").Inc()
	metrics.ModelTokensTotal.WithLabelValues(providerName, "input").Add(float64(completion.Usage.PromptTokens))
	metrics.ModelTokensTotal.WithLabelValues(providerName, "output").Add(float64(completion.Usage.CompletionTokens))

	if len(completion.Choices) == 0 {
		err = fmt.Errorf("chat completion returned no choices")
		return result, err
	}

	result = ExtractResponse(completion.Choices[0].Message)

	a.logger.InfoContext(ctx, "received chat completion",
		slog.String("finish_reason", completion.Choices[0].FinishReason),
		slog.Int("tool_call_count", len(result.ToolCalls)))

	return result, err
}

// ConvertTools maps neutral tool definitions onto the function-calling shape:
// the input schema passes through as the function parameters.
func ConvertTools(tools []provider.ToolDefinition) (result []openai.ChatCompletionToolParam) {
	result = make([]openai.ChatCompletionToolParam, 0, len(tools))

	for _, tool := range tools {
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  shared.FunctionParameters(tool.InputSchema),
			},
		})
	}

	return result
}

// convertHistory maps the system prompt plus neutral turns onto chat
// completion messages. Assistant tool calls are replayed with their original
// IDs; tool results become role:tool messages keyed by tool_call_id.
func convertHistory(systemPrompt string, history []provider.Turn) (result []openai.ChatCompletionMessageParamUnion) {
	if systemPrompt != "" {
		result = append(result, openai.SystemMessage(systemPrompt))
	}

	for _, turn := range history {
		switch turn.Kind {
		case provider.KindUser:
			result = append(result, openai.UserMessage(turn.Text))

		case provider.KindAssistant:
			assistant := &openai.ChatCompletionAssistantMessageParam{}

			if turn.Text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(turn.Text),
				}
			}

			for _, call := range turn.ToolCalls {
				arguments, marshalErr := json.Marshal(call.Arguments)
				if marshalErr != nil {
					arguments = []byte("{}")
				}

				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(arguments),
					},
				})
			}

			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})

		case provider.KindToolResults:
			for _, toolResult := range turn.Results {
				result = append(result, openai.ToolMessage(toolResult.Content, toolResult.CallID))
			}
		}
	}

	return result
}

// ExtractResponse converts an assistant message into the neutral response.
// Function arguments arrive as a raw JSON string; a parse failure substitutes
// an empty argument bundle rather than failing the turn, and a missing call ID
// is synthesized so correlation still works.
func ExtractResponse(message openai.ChatCompletionMessage) (result provider.GenerateResponse) {
	result.Text = message.Content

	for i, toolCall := range message.ToolCalls {
		arguments := map[string]interface{}{}

		if toolCall.Function.Arguments != "" {
			decodeErr := json.Unmarshal([]byte(toolCall.Function.Arguments), &arguments)
			if decodeErr != nil {
				arguments = map[string]interface{}{}
			}
		}

		callID := toolCall.ID
		if callID == "" {
			callID = fmt.Sprintf("auto_call_%d", i)
		}

		result.ToolCalls = append(result.ToolCalls, provider.ToolCall{
			ID:        callID,
			Name:      toolCall.Function.Name,
			Arguments: arguments,
		})
	}

	return result
}

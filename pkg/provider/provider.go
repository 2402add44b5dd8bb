// Package provider defines the neutral tool and conversation model shared by
// the orchestrator and the provider adapters. Provider wire shapes never cross
// this boundary: each adapter translates to and from its own SDK types.
package provider

import "context"

// ToolDefinition is the provider-neutral description of an invokable tool, as
// published by the tool host's tools/list.
type ToolDefinition struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
}

// ToolCall is a model-issued request to invoke a tool. The ID is opaque and
// provider-assigned; it is used only to correlate results within a turn.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolResult is the outcome of one tool call, bound to the call's ID.
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// TurnKind discriminates conversation turns.
type TurnKind string

const (
	// KindUser is a user text message.
	KindUser TurnKind = "user"

	// KindAssistant is a model message: text and/or tool calls.
	KindAssistant TurnKind = "assistant"

	// KindToolResults is the set of tool results answering the preceding
	// assistant turn's calls.
	KindToolResults TurnKind = "tool_results"
)

// Turn is one entry in a conversation history. Exactly the fields implied by
// its Kind are populated.
type Turn struct {
	Kind      TurnKind
	Text      string
	ToolCalls []ToolCall
	Results   []ToolResult
}

// UserTurn builds a user turn.
func UserTurn(text string) (result Turn) {
	result = Turn{Kind: KindUser, Text: text}
	return result
}

// AssistantTurn builds an assistant turn.
func AssistantTurn(text string, calls []ToolCall) (result Turn) {
	result = Turn{Kind: KindAssistant, Text: text, ToolCalls: calls}
	return result
}

// ToolResultsTurn builds a tool-results turn.
func ToolResultsTurn(results []ToolResult) (result Turn) {
	result = Turn{Kind: KindToolResults, Results: results}
	return result
}

// GenerateRequest is one model invocation: the system prompt, the full neutral
// history and the tool list the model may call.
type GenerateRequest struct {
	SystemPrompt string
	History      []Turn
	Tools        []ToolDefinition
}

// GenerateResponse is the neutral form of a model reply.
type GenerateResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Adapter translates between the neutral model and one provider's wire format
// and performs the model call. Adapters never invoke tools and never mutate
// conversation state.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// Package chat drives the tool-calling conversation loop between a provider
// adapter and the RPC tool host.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/provider"
	"github.com/calder-ops/toolbridge/pkg/transport"
)

// State identifies where a session is in its turn state machine.
type State string

const (
	StateAwaitingUserInput    State = "awaiting_user_input"
	StateModelTurnInFlight    State = "model_turn_in_flight"
	StateToolCallsPending     State = "tool_calls_pending"
	StateToolsExecuting       State = "tools_executing"
	StateFollowupTurnInFlight State = "followup_turn_in_flight"
)

// DefaultSystemPrompt instructs the model to prefer the published tools.
const DefaultSystemPrompt = "You are a helpful assistant with access to tools. " +
	"When appropriate, call a tool to answer the user. " +
	"Prefer using available tools to read/write/search files."

// Session owns one conversation: its append-only history, the provider
// adapter and the tool transport. A session is a single logical thread of
// control; it is not safe for concurrent turns.
type Session struct {
	ID           string
	StartedAt    time.Time
	LastActivity time.Time

	adapter      provider.Adapter
	rpcClient    *transport.Client
	tools        []provider.ToolDefinition
	history      []provider.Turn
	systemPrompt string
	state        State
	events       *eventlog.Logger
	logger       *slog.Logger
}

// NewSession creates a session over an adapter and an RPC client. The neutral
// tool list is fetched once from the host; definitions are immutable after
// that.
func NewSession(ctx context.Context, adapter provider.Adapter, rpcClient *transport.Client, events *eventlog.Logger, logger *slog.Logger) (result *Session, err error) {
	initResult, err := rpcClient.Initialize(ctx, transport.ClientInfo{
		Name:    "toolbridge-chat",
		Version: "0.1",
	})
	if err != nil {
		err = fmt.Errorf("initialize handshake: %w", err)
		return result, err
	}

	tools, err := rpcClient.ListTools(ctx)
	if err != nil {
		err = fmt.Errorf("listing tools: %w", err)
		return result, err
	}

	logger.InfoContext(ctx, "session ready",
		slog.String("server", initResult.ServerInfo.Name),
		slog.String("protocol_version", initResult.ProtocolVersion),
		slog.Int("tool_count", len(tools)))

	result = &Session{
		ID:           uuid.New().String(),
		StartedAt:    time.Now(),
		LastActivity: time.Now(),
		adapter:      adapter,
		rpcClient:    rpcClient,
		tools:        tools,
		history:      make([]provider.Turn, 0),
		systemPrompt: DefaultSystemPrompt,
		state:        StateAwaitingUserInput,
		events:       events,
		logger:       logger,
	}

	return result, err
}

// State returns the session's current state.
func (s *Session) State() (result State) {
	result = s.state
	return result
}

// Tools returns the neutral tool list fetched at session start.
func (s *Session) Tools() (result []provider.ToolDefinition) {
	result = s.tools
	return result
}

// History returns the conversation history so far.
func (s *Session) History() (result []provider.Turn) {
	result = s.history
	return result
}

// RunTurn executes one user turn: send the message, execute any requested
// tool calls sequentially, and return the model's final text. A transport
// fault aborts only the current turn; the session returns to idle either way.
func (s *Session) RunTurn(ctx context.Context, userText string) (result string, err error) {
	defer func() {
		s.state = StateAwaitingUserInput
		s.LastActivity = time.Now()
	}()

	s.history = append(s.history, provider.UserTurn(userText))
	s.state = StateModelTurnInFlight

	s.events.Log("chat_request", map[string]interface{}{
		"provider":   s.adapter.Name(),
		"turn_count": len(s.history),
	})

	response, err := s.adapter.Generate(ctx, provider.GenerateRequest{
		SystemPrompt: s.systemPrompt,
		History:      s.history,
		Tools:        s.tools,
	})
	if err != nil {
		err = fmt.Errorf("model turn: %w", err)
		return result, err
	}

	s.history = append(s.history, provider.AssistantTurn(response.Text, response.ToolCalls))

	if len(response.ToolCalls) == 0 {
		// Single round trip: no tools requested.
		result = response.Text
		return result, err
	}

	s.state = StateToolCallsPending

	results := s.executeToolCalls(ctx, response.ToolCalls)

	// Every pending call id now has exactly one result; extend the history
	// with the tool-result turn and ask the model to continue.
	s.history = append(s.history, provider.ToolResultsTurn(results))
	s.state = StateFollowupTurnInFlight

	s.events.Log("chat_followup_request", map[string]interface{}{
		"provider":     s.adapter.Name(),
		"result_count": len(results),
	})

	followup, err := s.adapter.Generate(ctx, provider.GenerateRequest{
		SystemPrompt: s.systemPrompt,
		History:      s.history,
		Tools:        s.tools,
	})
	if err != nil {
		err = fmt.Errorf("follow-up turn: %w", err)
		return result, err
	}

	s.history = append(s.history, provider.AssistantTurn(followup.Text, followup.ToolCalls))

	result = followup.Text
	return result, err
}

// executeToolCalls invokes each call in request order. A fault on one call is
// captured as an error-shaped result for its id; the remaining calls still
// run. The returned slice has exactly one result per call.
func (s *Session) executeToolCalls(ctx context.Context, calls []provider.ToolCall) (results []provider.ToolResult) {
	s.state = StateToolsExecuting

	results = make([]provider.ToolResult, 0, len(calls))

	for _, call := range calls {
		s.events.Log("llm_tool_call", map[string]interface{}{
			"name":         call.Name,
			"arguments":    call.Arguments,
			"tool_call_id": call.ID,
		})

		callResult, err := s.rpcClient.CallTool(ctx, call.Name, call.Arguments)
		if err != nil {
			s.events.LogError("llm_tool_error", map[string]interface{}{
				"name":  call.Name,
				"error": err.Error(),
			})

			results = append(results, provider.ToolResult{
				CallID:  call.ID,
				Content: renderToolError(err),
				IsError: true,
			})

			continue
		}

		results = append(results, provider.ToolResult{
			CallID:  call.ID,
			Content: renderToolResult(callResult),
			IsError: callResult.IsError,
		})
	}

	return results
}

// renderToolResult serializes a tool result payload for the model.
func renderToolResult(result transport.ToolCallResult) (text string) {
	data, err := json.Marshal(result.StructuredContent)
	if err != nil {
		for _, item := range result.Content {
			text += item.Text
		}

		return text
	}

	text = string(data)
	return text
}

// renderToolError serializes a tool fault for the model.
func renderToolError(toolErr error) (text string) {
	payload := map[string]interface{}{
		"isError": true,
		"message": toolErr.Error(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		text = toolErr.Error()
		return text
	}

	text = string(data)
	return text
}

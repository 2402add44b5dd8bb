package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/metrics"
	"github.com/calder-ops/toolbridge/pkg/registry"
)

// Dispatcher routes decoded requests to their method handlers and renders
// responses. It is constructed once at process start; there is no package
// state.
type Dispatcher struct {
	registry *registry.Registry
	events   *eventlog.Logger
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over a tool registry. Every request and
// response passes through the event log regardless of outcome.
func NewDispatcher(reg *registry.Registry, events *eventlog.Logger, logger *slog.Logger) (result *Dispatcher) {
	result = &Dispatcher{
		registry: reg,
		events:   events,
		logger:   logger,
	}

	return result
}

// Dispatch handles a single decoded request synchronously and returns its
// response. Protocol faults are returned as error responses, never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (response Response) {
	metrics.RPCRequestsTotal.WithLabelValues(req.Method).Inc()

	d.events.Log("rpc_request", map[string]interface{}{
		"method":  req.Method,
		"id":      req.ID,
		"payload": req,
	})

	switch req.Method {
	case MethodInitialize:
		response = d.handleInitialize(req)

	case MethodToolsList:
		response = d.handleListTools(req)

	case MethodToolsCall:
		response = d.handleToolCall(ctx, req)

	default:
		d.events.LogError("rpc_method_not_found", map[string]interface{}{
			"method": req.Method,
			"id":     req.ID,
		})
		response = newError(req.ID, CodeMethodNotFound, "Method not found")
	}

	if response.Error != nil {
		metrics.RPCErrorsTotal.WithLabelValues(strconv.Itoa(response.Error.Code)).Inc()
	}

	return response
}

// ParseErrorResponse renders the response for an unparseable request body.
// No request ID is available to echo, so the id field stays null.
func (d *Dispatcher) ParseErrorResponse(remote string) (response Response) {
	d.events.LogError("rpc_parse_error", map[string]interface{}{
		"remote": remote,
	})

	metrics.RPCErrorsTotal.WithLabelValues(strconv.Itoa(CodeParseError)).Inc()

	response = Response{
		JSONRPC: Version,
		Error: &Error{
			Code:    CodeParseError,
			Message: "Parse error",
		},
	}

	return response
}

// handleInitialize advertises the protocol version, static capabilities and
// server identity.
func (d *Dispatcher) handleInitialize(req Request) (response Response) {
	result := map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": Capabilities{
			Tools:     ToolsCapability{ListChanged: false},
			Resources: ResourcesCapability{Subscribe: false, ListChanged: false},
			Prompts:   PromptsCapability{ListChanged: false},
		},
		"serverInfo": ServerMetadata{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}

	d.events.Log("rpc_response", map[string]interface{}{
		"method": req.Method,
		"id":     req.ID,
		"result": result,
	})

	response = newResult(req.ID, result)
	return response
}

// handleListTools returns the registered tool definitions in registration
// order.
func (d *Dispatcher) handleListTools(req Request) (response Response) {
	tools := d.registry.List()

	d.events.Log("rpc_response", map[string]interface{}{
		"method": req.Method,
		"id":     req.ID,
		"count":  len(tools),
	})

	response = newResult(req.ID, map[string]interface{}{
		"tools": tools,
	})

	return response
}

// handleToolCall dispatches to the named tool handler. Success wraps the
// handler result both as free text and as the structured payload; handler
// faults and unknown names map to the application error codes.
func (d *Dispatcher) handleToolCall(ctx context.Context, req Request) (response Response) {
	var params ToolCallParams

	paramsJSON, _ := json.Marshal(req.Params)

	err := json.Unmarshal(paramsJSON, &params)
	if err != nil {
		response = newError(req.ID, CodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		return response
	}

	d.events.Log("tool_call_request", map[string]interface{}{
		"name":      params.Name,
		"arguments": params.Arguments,
		"id":        req.ID,
	})

	d.logger.InfoContext(ctx, "executing tool", slog.String("tool", params.Name))

	result, err := d.registry.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		response = d.toolCallError(req, params.Name, err)
		return response
	}

	metrics.ToolExecutionsTotal.WithLabelValues(params.Name, "success").Inc()

	d.events.Log("tool_call_success", map[string]interface{}{
		"name":   params.Name,
		"result": result,
		"id":     req.ID,
	})

	response = newResult(req.ID, map[string]interface{}{
		"content": []ContentItem{
			{Type: "text", Text: renderResultText(result)},
		},
		"structuredContent": result,
		"isError":           false,
	})

	return response
}

// toolCallError maps registry faults onto the numeric error contract:
// unknown tool and handler fault get distinct codes.
func (d *Dispatcher) toolCallError(req Request, toolName string, invokeErr error) (response Response) {
	var notFound *registry.NotFoundError

	if errors.As(invokeErr, &notFound) {
		metrics.ToolExecutionsTotal.WithLabelValues(toolName, "not_found").Inc()

		d.events.LogError("tool_not_found", map[string]interface{}{
			"name": toolName,
			"id":   req.ID,
		})

		response = newError(req.ID, CodeToolNotFound, fmt.Sprintf("Tool '%s' not found", toolName))
		return response
	}

	metrics.ToolExecutionsTotal.WithLabelValues(toolName, "error").Inc()

	d.events.LogError("tool_call_error", map[string]interface{}{
		"name":  toolName,
		"error": invokeErr.Error(),
		"id":    req.ID,
	})

	response = newError(req.ID, CodeToolFault, invokeErr.Error())
	return response
}

// renderResultText renders a handler result as free text for providers that
// only consume text content.
func renderResultText(result map[string]interface{}) (text string) {
	data, err := json.Marshal(result)
	if err != nil {
		text = fmt.Sprintf("%v", result)
		return text
	}

	text = string(data)
	return text
}

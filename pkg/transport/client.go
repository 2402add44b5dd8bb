// Package transport implements the synchronous HTTP JSON-RPC client side of
// the tool protocol.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/calder-ops/toolbridge/pkg/eventlog"
	"github.com/calder-ops/toolbridge/pkg/provider"
	"github.com/calder-ops/toolbridge/pkg/rpc"
)

// DefaultTimeout bounds a single request/response exchange. The protocol
// itself carries no timeout; this is the caller-imposed bound.
const DefaultTimeout = 60 * time.Second

// RPCError is a protocol-level error returned by the server in a response
// body, as opposed to a transport fault reaching the server at all.
type RPCError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *RPCError) Error() (result string) {
	result = fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	return result
}

// ClientInfo identifies this client during the initialize handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Client issues JSON-RPC requests against a single HTTP endpoint. Request IDs
// are caller-chosen and monotonically increasing; each response's ID is checked
// against its request.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	events      *eventlog.Logger
	logger      *slog.Logger
	nextID      atomic.Int64
	initialized atomic.Bool
}

// NewClient creates a client for the given /rpc endpoint URL.
func NewClient(endpoint string, events *eventlog.Logger, logger *slog.Logger) (result *Client) {
	result = &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		events: events,
		logger: logger,
	}

	return result
}

// Initialized reports whether a successful initialize exchange has completed.
// It is a soft precondition for the other methods, advisory only.
func (c *Client) Initialized() (result bool) {
	result = c.initialized.Load()
	return result
}

// Initialize performs the protocol handshake and records the handshake flag.
func (c *Client) Initialize(ctx context.Context, info ClientInfo) (result rpc.InitializeResult, err error) {
	params := map[string]interface{}{
		"protocolVersion": rpc.ProtocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo":      info,
	}

	response, err := c.call(ctx, rpc.MethodInitialize, params)
	if err != nil {
		return result, err
	}

	err = decodeResult(response.Result, &result)
	if err != nil {
		err = fmt.Errorf("decoding initialize result: %w", err)
		return result, err
	}

	c.initialized.Store(true)
	return result, err
}

// ListTools fetches the server's tool definitions, in server order.
func (c *Client) ListTools(ctx context.Context) (result []provider.ToolDefinition, err error) {
	if !c.Initialized() {
		c.logger.Warn("tools/list before initialize handshake")
	}

	response, err := c.call(ctx, rpc.MethodToolsList, nil)
	if err != nil {
		return result, err
	}

	var payload struct {
		Tools []provider.ToolDefinition `json:"tools"`
	}

	err = decodeResult(response.Result, &payload)
	if err != nil {
		err = fmt.Errorf("decoding tools/list result: %w", err)
		return result, err
	}

	result = payload.Tools
	return result, err
}

// ToolCallResult is the two-shaped payload of a successful tools/call.
type ToolCallResult struct {
	Content           []rpc.ContentItem      `json:"content"`
	StructuredContent map[string]interface{} `json:"structuredContent"`
	IsError           bool                   `json:"isError"`
}

// CallTool invokes a named tool with structured arguments. Protocol-level
// errors come back as *RPCError; anything else is a transport fault.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (result ToolCallResult, err error) {
	if !c.Initialized() {
		c.logger.Warn("tools/call before initialize handshake", slog.String("tool", name))
	}

	params := map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	}

	response, err := c.call(ctx, rpc.MethodToolsCall, params)
	if err != nil {
		return result, err
	}

	err = decodeResult(response.Result, &result)
	if err != nil {
		err = fmt.Errorf("decoding tools/call result: %w", err)
		return result, err
	}

	return result, err
}

// call performs one request/response exchange and surfaces protocol errors.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}) (response rpc.Response, err error) {
	id := c.nextID.Add(1)

	request := rpc.Request{
		JSONRPC: rpc.Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}

	c.events.Log("client_request", map[string]interface{}{
		"method":  method,
		"payload": request,
	})

	body, err := json.Marshal(request)
	if err != nil {
		err = fmt.Errorf("encoding request: %w", err)
		return response, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("building request: %w", err)
		return response, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("sending request: %w", err)
		return response, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		err = fmt.Errorf("reading response body: %w", err)
		return response, err
	}

	err = json.Unmarshal(respBody, &response)
	if err != nil {
		err = fmt.Errorf("decoding response body: %w", err)
		return response, err
	}

	c.events.Log("client_response", map[string]interface{}{
		"method":   method,
		"response": response,
	})

	if response.Error != nil {
		err = &RPCError{Code: response.Error.Code, Message: response.Error.Message}
		return response, err
	}

	// The id round-trips as a JSON number; compare numerically.
	echoed, ok := response.ID.(float64)
	if !ok || int64(echoed) != id {
		err = fmt.Errorf("response id %v does not match request id %d", response.ID, id)
		return response, err
	}

	return response, err
}

// decodeResult re-marshals a generic result map into a typed structure.
func decodeResult(result map[string]interface{}, target interface{}) (err error) {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, target)
	return err
}

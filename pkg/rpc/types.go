// Package rpc implements the JSON-RPC envelope, dispatch and HTTP transport of
// the tool host.
package rpc

// Protocol constants.
const (
	Version         = "2.0"
	ProtocolVersion = "2025-06-18"
	ServerName      = "FileServer"
	ServerVersion   = "1.0"
)

// Method names.
const (
	MethodInitialize = "initialize"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

// Error codes. Parse and method-not-found use the JSON-RPC sentinel values;
// tool faults use small application-specific codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeToolFault      = 1
	CodeToolNotFound   = 404
)

// Request is an incoming JSON-RPC request. The ID is caller-chosen and echoed
// verbatim; the server never generates request IDs.
type Request struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response is a JSON-RPC response carrying exactly one of Result or Error.
type Response struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   *Error                 `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolCallParams are the parameters of a tools/call request.
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Capabilities describes what the server supports. Flags are static; the
// server advertises, it does not negotiate.
type Capabilities struct {
	Tools     ToolsCapability     `json:"tools"`
	Resources ResourcesCapability `json:"resources"`
	Prompts   PromptsCapability   `json:"prompts"`
}

// ToolsCapability is the tools capability flag set.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ResourcesCapability is the resources capability flag set.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// PromptsCapability is the prompts capability flag set.
type PromptsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerMetadata identifies the server.
type ServerMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result payload of an initialize exchange.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      ServerMetadata `json:"serverInfo"`
}

// ContentItem is one entry in a tools/call result content list.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// newResult builds a success response for a request ID.
func newResult(id interface{}, result map[string]interface{}) (response Response) {
	response = Response{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}

	return response
}

// newError builds an error response for a request ID.
func newError(id interface{}, code int, message string) (response Response) {
	response = Response{
		JSONRPC: Version,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}

	return response
}

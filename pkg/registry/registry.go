// Package registry maps tool names to handlers and their schemas. The registry
// produces typed faults only; translating faults into RPC error envelopes is
// the dispatcher's job.
package registry

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes a tool. A successful result is a mapping with at least one
// named field; a returned error is a handler fault.
type Handler func(ctx context.Context, arguments map[string]interface{}) (map[string]interface{}, error)

// Tool is a registered tool definition plus its handler. The JSON shape is the
// wire form published by tools/list.
type Tool struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	Handler      Handler                `json:"-"`
}

// NotFoundError indicates an unknown tool name.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() (result string) {
	result = fmt.Sprintf("tool '%s' not found", e.Name)
	return result
}

// HandlerError wraps a fault raised by a tool handler, keeping it
// distinguishable from dispatcher-level faults like an unknown method.
type HandlerError struct {
	Tool  string
	Cause error
}

// Error implements the error interface.
func (e *HandlerError) Error() (result string) {
	result = e.Cause.Error()
	return result
}

// Unwrap exposes the underlying fault.
func (e *HandlerError) Unwrap() (result error) {
	result = e.Cause
	return result
}

// Registry holds tool definitions in registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// New creates an empty registry.
func New() (result *Registry) {
	result = &Registry{
		tools: make(map[string]*Tool),
	}

	return result
}

// Register adds a tool. Re-registering a name replaces the prior definition in
// place; the tool keeps its original position in iteration order.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}

	copied := tool
	r.tools[tool.Name] = &copied
}

// List returns all tool definitions in registration order. The order is stable
// for the process lifetime.
func (r *Registry) List() (result []Tool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result = make([]Tool, 0, len(r.order))

	for _, name := range r.order {
		result = append(result, *r.tools[name])
	}

	return result
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (result Tool, exists bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if exists {
		result = *tool
	}

	return result, exists
}

// Invoke runs the named tool's handler. Unknown names return *NotFoundError;
// handler faults and missing required arguments return *HandlerError.
func (r *Registry) Invoke(ctx context.Context, name string, arguments map[string]interface{}) (result map[string]interface{}, err error) {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		err = &NotFoundError{Name: name}
		return result, err
	}

	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	err = checkRequired(tool.InputSchema, arguments)
	if err != nil {
		err = &HandlerError{Tool: name, Cause: err}
		return result, err
	}

	result, err = tool.Handler(ctx, arguments)
	if err != nil {
		err = &HandlerError{Tool: name, Cause: err}
		return result, err
	}

	return result, err
}

// checkRequired verifies the arguments carry every field the input schema
// marks required. Type checking stays with the handlers.
func checkRequired(schema map[string]interface{}, arguments map[string]interface{}) (err error) {
	required, ok := schema["required"]
	if !ok {
		return err
	}

	var names []string

	switch typed := required.(type) {
	case []string:
		names = typed

	case []interface{}:
		for _, entry := range typed {
			if name, isString := entry.(string); isString {
				names = append(names, name)
			}
		}
	}

	for _, name := range names {
		if _, present := arguments[name]; !present {
			err = fmt.Errorf("missing required argument '%s'", name)
			return err
		}
	}

	return err
}

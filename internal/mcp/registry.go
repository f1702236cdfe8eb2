package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry holds tools by name.
//
// The SDK server only dispatches tools over a transport, so Registry also
// keeps the handlers for direct invocation through CallTool.
type Registry struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewRegistry creates an empty registry for a server with the given
// implementation name and version.
func NewRegistry(name, version string) *Registry {
	return &Registry{
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 4),
	}
}

// Name returns the server name.
func (r *Registry) Name() string {
	return r.name
}

// Version returns the server version.
func (r *Registry) Version() string {
	return r.version
}

// AddTool registers a tool, replacing any tool with the same name.
func (r *Registry) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []*mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*mcp.Tool, 0, len(r.tools))
	for _, name := range slices.Sorted(maps.Keys(r.tools)) {
		tools = append(tools, r.tools[name].tool)
	}

	return tools
}

// ListTools returns name, description and input schema of every tool as
// plain maps, sorted by name.
func (r *Registry) ListTools() []map[string]any {
	tools := r.Tools()
	result := make([]map[string]any, 0, len(tools))

	for _, tool := range tools {
		entry := map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
		}

		if schema, ok := toMap(tool.InputSchema); ok {
			entry["inputSchema"] = schema
		}

		result = append(result, entry)
	}

	return result
}

// CallTool executes a tool by name with the given input.
//
// Unknown tools and handler failures are reported as error results, never
// as a Go error; the returned error is reserved for invalid input.
func (r *Registry) CallTool(ctx context.Context, name string, input map[string]any) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	t, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name), nil
	}

	arguments, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal tool input: %w", err)
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: arguments,
		},
	}

	result, err := t.handler(ctx, req)
	if err != nil {
		//nolint:nilerr // the failure is reported inside the result
		return ErrorResult("Tool execution failed: " + err.Error()), nil
	}

	return result, nil
}

// Server builds an SDK server exposing every registered tool.
func (r *Registry) Server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: r.name, Version: r.version}, nil)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tools {
		server.AddTool(t.tool, t.handler)
	}

	return server
}

// Serve runs the SDK server over stdin and stdout until ctx is done or the
// client disconnects.
func (r *Registry) Serve(ctx context.Context) error {
	return r.Server().Run(ctx, &mcp.StdioTransport{})
}

func toMap(schema any) (map[string]any, bool) {
	if schema == nil {
		return nil, false
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, false
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}

	return m, true
}

// TextOf concatenates the text content of a tool result.
func TextOf(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var text string

	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			text += tc.Text
		}
	}

	return text
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// NewTool creates an mcp.Tool with the given parameters.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into v.
func ParseArguments(req *mcp.CallToolRequest, v any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}

	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return nil
}

// Package tools defines the tool surface exposed to the agent runtime: typed
// definitions, a registry, and the built-in memory tools. Tool names follow
// the toolkit_action convention so the stream layer can derive toolkit labels.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// Handler executes one tool invocation. The returned value must be
// JSON-marshalable; it is forwarded verbatim to the model and to the client.
type Handler func(ctx context.Context, userID string, input json.RawMessage) (any, error)

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// Tool pairs a definition with its handler.
type Tool struct {
	Definition
	Handler Handler
}

// Registry holds the tools available to the runtime. Registration happens at
// startup; lookups are concurrent.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(tool *Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// MustRegister registers all tools and panics on conflict. For startup wiring.
func (r *Registry) MustRegister(tools ...*Tool) {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Get returns the named tool.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, userID, name string, input json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Handler(ctx, userID, input)
}

// ToAPITools converts the registry to Anthropic API tool params, sorted by
// name for a stable prompt.
func (r *Registry) ToAPITools() []anthropic.ToolUnionParam {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		schema := anthropic.ToolInputSchemaParam{
			Properties: tool.Properties,
			Required:   tool.Required,
		}
		param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(tool.Description)
		}
		params = append(params, param)
	}
	return params
}

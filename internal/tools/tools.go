// Package tools defines the capabilities the reasoning backend can invoke
// and the registry that dispatches them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/voiceteller/voiceteller/internal/llm"
)

// Result is the envelope every tool execution produces. It marshals with
// success first and the payload fields flattened alongside it, so the
// reasoning backend sees {"success":true,"balance":500,...} rather than a
// nested data object.
type Result struct {
	Success bool
	Data    map[string]any
	Error   string
}

// Ok builds a successful result with the given payload fields.
func Ok(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failed result with a human-readable error message.
func Fail(message string) Result {
	return Result{Success: false, Error: message}
}

// MarshalJSON flattens Data into the top-level object.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Data)+2)
	for k, v := range r.Data {
		out[k] = v
	}
	out["success"] = r.Success
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

// JSON returns the envelope as a JSON string, the form fed back to the
// reasoning backend.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"internal encoding failure"}`
	}
	return string(data)
}

// InvalidArgumentsError reports that a tool invocation carried missing or
// malformed arguments.
type InvalidArgumentsError struct {
	Tool   string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// Tool is a named capability with a JSON-schema input contract.
type Tool interface {
	Name() string
	Description() string
	InputSchema() string

	// Execute runs the tool with raw JSON arguments. Domain failures
	// (missing account, rejected transfer) come back as a failed Result;
	// an error return means the arguments themselves were unusable.
	Execute(ctx context.Context, input string) (Result, error)
}

// Registry holds the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice replaces the
// earlier entry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool with the given name, or false when unknown.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool contracts in the form the reasoning
// backend consumes.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, n := range names {
		t := r.tools[n]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

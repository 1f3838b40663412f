// Package tools holds the function tools the model may call during a relay,
// keyed by name, together with their JSON-schema declarations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go/v3"
)

// Result is what a tool returns to the model. Payload keys are flattened
// next to success and message when serialized.
type Result struct {
	Success bool
	Message string
	Payload map[string]any
}

// MarshalJSON encodes the result as a single flat object.
func (r Result) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		m[k] = v
	}
	m["success"] = r.Success
	if r.Message != "" {
		m["message"] = r.Message
	}
	return json.Marshal(m)
}

// Failure returns an unsuccessful result with msg.
func Failure(msg string) Result {
	return Result{Success: false, Message: msg}
}

// Outcome is a dispatched tool's result plus the flags reported to the
// client alongside the toolExecuted notification.
type Outcome struct {
	Result Result
	Notify map[string]any
}

// Handler executes a tool with already-decoded arguments. Handlers report
// failures through the returned Result rather than an error.
type Handler func(ctx context.Context, args map[string]any) Outcome

// Tool pairs a declaration with its handler.
type Tool struct {
	Definition openai.FunctionDefinitionParam
	Handler    Handler
}

// Registry maps tool names to tools. A nil or empty registry disables tool
// calling for a relay.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding tools in declaration order.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	name := t.Definition.Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Names returns the registered tool names in declaration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Definitions returns the declarations to send upstream.
func (r *Registry) Definitions() []openai.FunctionDefinitionParam {
	if r == nil {
		return nil
	}
	defs := make([]openai.FunctionDefinitionParam, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Dispatch runs the named tool. Unknown names and handler panics become
// failure results.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (out Outcome) {
	var t Tool
	ok := false
	if r != nil {
		t, ok = r.tools[name]
	}
	if !ok {
		slog.Warn("tool.unknown", "tool", name)
		return Outcome{Result: Failure(fmt.Sprintf("Herramienta desconocida: %s", name))}
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool.panic", "tool", name, "panic", rec)
			out = Outcome{Result: Failure(fmt.Sprintf("Error al ejecutar %s", name))}
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	out = t.Handler(ctx, args)
	slog.Debug("tool.executed", "tool", name, "success", out.Result.Success, "message", out.Result.Message)
	return out
}

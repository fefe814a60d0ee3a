package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/go-agent/internal/llm"
)

// Registry is an ordered tool catalog with name lookup.
type Registry struct {
	defs   []ToolDefinition
	byName map[string]int
}

// NewRegistry keeps definitions in the given order. A later definition with a
// duplicate name replaces the earlier one in place.
func NewRegistry(defs ...ToolDefinition) *Registry {
	r := &Registry{byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if i, ok := r.byName[d.Name]; ok {
			r.defs[i] = d
			continue
		}
		r.byName[d.Name] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r
}

func (r *Registry) Definitions() []ToolDefinition {
	return append([]ToolDefinition(nil), r.defs...)
}

func (r *Registry) Lookup(name string) (ToolDefinition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return r.defs[i], true
}

// Schemas returns the catalog advertised to the model, in registration order.
func (r *Registry) Schemas() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, llm.Tool{Name: d.Name, Description: d.Description, Parameters: d.InputSchema})
	}
	return out
}

// Dispatch runs the named tool and always returns the text to record as the
// tool result; failures are described in that text.
func (r *Registry) Dispatch(ctx context.Context, name, args string) string {
	out, _ := r.Invoke(ctx, name, args)
	return out
}

// Invoke is Dispatch that also reports whether the call failed. The returned
// text is the model-facing result in both cases.
func (r *Registry) Invoke(ctx context.Context, name, args string) (string, error) {
	raw := strings.TrimSpace(args)
	if raw == "" {
		raw = "{}"
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		err = fmt.Errorf("invalid tool arguments for %s: %w", name, err)
		return err.Error(), err
	}

	def, ok := r.Lookup(name)
	if !ok {
		err := fmt.Errorf("unknown tool: %s", name)
		return err.Error(), err
	}

	out, err := runTool(ctx, def, json.RawMessage(raw))
	if err != nil {
		err = fmt.Errorf("tool %s failed: %w", name, err)
		return err.Error(), err
	}
	return out, nil
}

// runTool runs def, turning a panic into an error.
func runTool(ctx context.Context, def ToolDefinition, input json.RawMessage) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return def.Function(ctx, input)
}

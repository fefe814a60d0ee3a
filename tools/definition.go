package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes one callable tool. Function receives the raw JSON
// arguments object and returns the text handed back to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

// GenerateSchema reflects T into an inline JSON Schema object. Fields tagged
// omitempty are optional; the rest are required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic("tools: marshal schema: " + err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic("tools: unmarshal schema: " + err.Error())
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

func decode[T any](input json.RawMessage) (T, error) {
	var in T
	err := json.Unmarshal(input, &in)
	return in, err
}

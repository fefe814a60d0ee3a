package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/petasbytes/go-agent/internal/fsops"
)

type WriteFileInput struct {
	Path    string `json:"path" jsonschema_description:"Relative file path within the workspace."`
	Content string `json:"content" jsonschema_description:"Full text to write. Replaces any existing content."`
}

var WriteFileDefinition = ToolDefinition{
	Name: "writeFile",
	Description: `Write a text file addressed by a relative path within the workspace.

Missing parent directories are created. An existing file is overwritten in full.
Writes under .git/ or .agent/ and to go.mod/go.sum are rejected.`,
	InputSchema: GenerateSchema[WriteFileInput](),
	Function:    WriteFile,
}

func WriteFile(_ context.Context, input json.RawMessage) (string, error) {
	in, err := decode[WriteFileInput](input)
	if err != nil {
		return "", err
	}
	if in.Path == "" {
		return "", errors.New("path is required")
	}
	n, err := fsops.WriteFile(in.Path, in.Content)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("wrote %d bytes to %s", n, in.Path), nil
}

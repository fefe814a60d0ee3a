package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/go-agent/internal/fsops"
)

type ListFilesInput struct {
	Path     string `json:"path,omitempty" jsonschema_description:"Relative directory; empty lists the workspace root."`
	Page     int    `json:"page,omitempty" jsonschema_description:"1-based page number (default 1)."`
	PageSize int    `json:"page_size,omitempty" jsonschema_description:"Entries per page (default 200)."`
}

const listPageSize = 200

var ListFilesDefinition = ToolDefinition{
	Name:        "listFiles",
	Description: "List one workspace directory, not recursive. Returns a JSON array of names sorted by name; directories end with '/'. A page past the end returns [].",
	InputSchema: GenerateSchema[ListFilesInput](),
	Function:    ListFiles,
}

func ListFiles(_ context.Context, input json.RawMessage) (string, error) {
	in, err := decode[ListFilesInput](input)
	if err != nil {
		return "", err
	}
	names, err := fsops.ListDir(in.Path)
	if err != nil {
		return "", err
	}

	size := in.PageSize
	if size <= 0 {
		size = listPageSize
	}
	start, end := window(len(names), (max(in.Page, 1)-1)*size, size, listPageSize)
	b, err := json.Marshal(names[start:end])
	if err != nil {
		return "", err
	}
	return string(b), nil
}

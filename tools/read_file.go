package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/petasbytes/go-agent/internal/fsops"
)

type ReadFileInput struct {
	Path   string `json:"path" jsonschema_description:"Relative file path within the workspace."`
	Offset int    `json:"offset,omitempty" jsonschema_description:"0-based line to start from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Number of lines to return (default 200)."`
}

const (
	readPageLines  = 200
	readLineRunes  = 2000
	readTotalRunes = 12_000
	moreSentinel   = "-- truncated; use offset/limit to fetch more --\n"
)

var ReadFileDefinition = ToolDefinition{
	Name: "readFile",
	Description: `Read a text file by relative path within the workspace.

Returns up to 200 lines starting at offset. When lines remain, or a line or
the whole page was cut, the output ends with a "-- truncated" marker; call
again with a later offset to continue. Directories, binary files and paths
outside the workspace are rejected.`,
	InputSchema: GenerateSchema[ReadFileInput](),
	Function:    ReadFile,
}

func ReadFile(_ context.Context, input json.RawMessage) (string, error) {
	in, err := decode[ReadFileInput](input)
	if err != nil {
		return "", err
	}
	text, err := fsops.ReadFile(in.Path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(text, "\n")
	start, end := window(len(lines), in.Offset, in.Limit, readPageLines)
	cut := end < len(lines)

	var b strings.Builder
	for i, line := range lines[start:end] {
		if i > 0 {
			b.WriteByte('\n')
		}
		line, clipped := clip(line, readLineRunes)
		cut = cut || clipped
		b.WriteString(line)
	}
	out, clipped := clip(b.String(), readTotalRunes)
	if !cut && !clipped {
		return out, nil
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out + moreSentinel, nil
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/petasbytes/go-agent/internal/fsops"
)

const (
	defaultSearchResults = 200
	maxSearchResults     = 1000
)

type SearchCodeInput struct {
	Query             string `json:"query" jsonschema_description:"Search text or regular expression."`
	Cwd               string `json:"cwd,omitempty" jsonschema_description:"Directory to search, relative to the workspace root."`
	UseRegex          *bool  `json:"useRegex,omitempty" jsonschema_description:"Treat query as a regular expression (default true)."`
	Output            string `json:"output,omitempty" jsonschema:"enum=lines,enum=files" jsonschema_description:"lines or files (default lines)."`
	IgnoreNodeModules *bool  `json:"ignoreNodeModules,omitempty" jsonschema_description:"Exclude node_modules (default true)."`
	MaxResults        int    `json:"maxResults,omitempty" jsonschema_description:"Maximum results (default 200, max 1000)."`
}

// rgBinary is the ripgrep executable looked up on PATH.
var rgBinary = "rg"

var SearchCodeDefinition = ToolDefinition{
	Name:        "searchCode",
	Description: "Search code in the workspace with ripgrep. Returns matching lines (path:line:text) or file paths.",
	InputSchema: GenerateSchema[SearchCodeInput](),
	Function:    SearchCode,
}

func clampResults(n int) int {
	switch {
	case n <= 0:
		return defaultSearchResults
	case n > maxSearchResults:
		return maxSearchResults
	default:
		return n
	}
}

func searchArgs(in SearchCodeInput, limit int) []string {
	args := []string{"--no-heading", "--line-number", "--color", "never", "-m", strconv.Itoa(limit)}
	if in.Output == "files" {
		args = append(args, "-l")
	}
	if in.UseRegex != nil && !*in.UseRegex {
		args = append(args, "-F")
	}
	if in.IgnoreNodeModules == nil || *in.IgnoreNodeModules {
		args = append(args, "--glob", "!node_modules/**")
	}
	return append(args, "--", in.Query, ".")
}

func SearchCode(ctx context.Context, input json.RawMessage) (string, error) {
	in, err := decode[SearchCodeInput](input)
	if err != nil {
		return "", err
	}
	if in.Query == "" {
		return "", errors.New("query is required")
	}
	dir, err := fsops.Dir(in.Cwd)
	if err != nil {
		return "", err
	}
	bin, err := exec.LookPath(rgBinary)
	if err != nil {
		return "", errors.New("rg not found; install ripgrep and add it to PATH")
	}

	limit := clampResults(in.MaxResults)
	res, err := runProcess(ctx, MaxCommandTimeout, dir, bin, searchArgs(in, limit)...)
	if err != nil {
		return "", err
	}
	out := res.combined()
	switch {
	case res.timedOut:
		return "", withDetails("search timed out", out)
	case res.exitCode == 1 && out == "":
		return "no matches", nil
	case res.exitCode != 0:
		return "", withDetails(fmt.Sprintf("rg exit code %d", res.exitCode), out)
	}
	return capLines(out, limit), nil
}

// capLines keeps at most n lines, since rg -m limits matches per file only.
func capLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n-- %d more results omitted --", len(lines)-n)
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/petasbytes/go-agent/internal/fsops"
)

const (
	DefaultCommandTimeout = 10 * time.Second
	MaxCommandTimeout     = 30 * time.Second
)

type ExecuteCommandInput struct {
	Command   string `json:"command" jsonschema_description:"Shell command to run."`
	Cwd       string `json:"cwd,omitempty" jsonschema_description:"Working directory relative to the workspace root."`
	TimeoutMs int    `json:"timeoutMs,omitempty" jsonschema_description:"Timeout in milliseconds (default 10000, max 30000)."`
}

// CommandDefinition builds executeCommand. defaultTimeout applies when the
// caller gives none; both are capped at MaxCommandTimeout.
func CommandDefinition(defaultTimeout time.Duration) ToolDefinition {
	if defaultTimeout <= 0 || defaultTimeout > MaxCommandTimeout {
		defaultTimeout = DefaultCommandTimeout
	}
	return ToolDefinition{
		Name:        "executeCommand",
		Description: "Run a shell command inside the workspace and return its combined stdout/stderr.",
		InputSchema: GenerateSchema[ExecuteCommandInput](),
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			return executeCommand(ctx, input, defaultTimeout)
		},
	}
}

func commandTimeout(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	d := time.Duration(ms) * time.Millisecond
	if d > MaxCommandTimeout {
		return MaxCommandTimeout
	}
	return d
}

func shellArgs(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}

func executeCommand(ctx context.Context, input json.RawMessage, def time.Duration) (string, error) {
	in, err := decode[ExecuteCommandInput](input)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Command) == "" {
		return "", errors.New("command is required")
	}
	dir, err := fsops.Dir(in.Cwd)
	if err != nil {
		return "", err
	}

	timeout := commandTimeout(in.TimeoutMs, def)
	shell, args := shellArgs(in.Command)
	res, err := runProcess(ctx, timeout, dir, shell, args...)
	if err != nil {
		return "", err
	}

	out := res.combined()
	switch {
	case res.timedOut:
		return "", withDetails(fmt.Sprintf("timed out after %s", timeout), out)
	case res.exitCode != 0:
		return "", withDetails(fmt.Sprintf("exit code %d", res.exitCode), out)
	case out == "":
		return "command completed with no output", nil
	default:
		return out, nil
	}
}

func withDetails(msg, details string) error {
	if details == "" {
		return errors.New(msg)
	}
	return errors.New(msg + "\n" + details)
}

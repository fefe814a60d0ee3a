package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

const maxProcessOutput = 1 << 20

// cappedBuffer keeps the first max bytes and silently discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	room := c.max - c.buf.Len()
	if room <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

type processResult struct {
	stdout, stderr string
	exitCode       int
	timedOut       bool
	truncated      bool
}

// combined joins trimmed stdout and stderr, skipping empty parts.
func (r processResult) combined() string {
	var parts []string
	if s := strings.TrimSpace(r.stdout); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(r.stderr); s != "" {
		parts = append(parts, s)
	}
	out := strings.Join(parts, "\n")
	if r.truncated {
		out += "\n-- output truncated --"
	}
	return out
}

// runProcess runs cmd in dir. A non-zero exit is reported through exitCode,
// not err; err is reserved for failures to start or wait.
func runProcess(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (processResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	stdout := &cappedBuffer{max: maxProcessOutput}
	stderr := &cappedBuffer{max: maxProcessOutput}
	cmd.Stdout, cmd.Stderr = stdout, stderr

	err := cmd.Run()
	res := processResult{
		stdout:    stdout.buf.String(),
		stderr:    stderr.buf.String(),
		truncated: stdout.truncated || stderr.truncated,
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.timedOut = true
		res.exitCode = -1
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

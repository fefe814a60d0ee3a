package runner_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/petasbytes/go-agent/internal/llm"
	"github.com/petasbytes/go-agent/internal/transcript"
)

// scriptedClient replays responses in order and records every request.
type scriptedClient struct {
	mu        sync.Mutex
	steps     []step
	requests  []llm.Request
	onRequest func(n int)
	stream    string
}

type step struct {
	resp *llm.Response
	err  error
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	n := len(c.requests)
	hook := c.onRequest
	var s step
	if len(c.steps) > 0 {
		s, c.steps = c.steps[0], c.steps[1:]
	} else {
		s = step{err: errors.New("script exhausted")}
	}
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return s.resp, s.err
}

func (c *scriptedClient) Stream(_ context.Context, req llm.Request) (*llm.DeltaStream, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return llm.NewDeltaStream(io.NopCloser(strings.NewReader(c.stream))), nil
}

func (c *scriptedClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func toolCalls(calls ...transcript.ToolCall) step {
	return step{resp: &llm.Response{
		Message:      transcript.Message{Role: transcript.RoleAssistant, ToolCalls: calls},
		FinishReason: llm.FinishToolCalls,
	}}
}

func answer(text string) step {
	return step{resp: &llm.Response{
		Message:      transcript.Message{Role: transcript.RoleAssistant, Content: text},
		FinishReason: "stop",
	}}
}

func call(id, name, args string) transcript.ToolCall {
	return transcript.ToolCall{ID: id, Type: "function", Function: transcript.FunctionCall{Name: name, Arguments: args}}
}

// recordingToolbox records dispatch order and the request count seen at each dispatch.
type recordingToolbox struct {
	client   *scriptedClient
	names    []string
	seenReqs []int
}

func (b *recordingToolbox) Schemas() []llm.Tool {
	return []llm.Tool{{Name: "echo", Parameters: map[string]any{"type": "object"}}}
}

func (b *recordingToolbox) Invoke(_ context.Context, name, args string) (string, error) {
	b.names = append(b.names, name)
	if b.client != nil {
		b.seenReqs = append(b.seenReqs, b.client.requestCount())
	}
	return name + ":" + args, nil
}

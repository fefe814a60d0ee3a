package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petasbytes/go-agent/internal/config"
	"github.com/petasbytes/go-agent/internal/llm"
	"github.com/petasbytes/go-agent/internal/session"
	"github.com/petasbytes/go-agent/internal/transcript"
	"github.com/petasbytes/go-agent/memory"
	"github.com/petasbytes/go-agent/tools"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		cmd  command
		arg  string
	}{
		{"", cmdEmpty, ""},
		{"   ", cmdEmpty, ""},
		{"help", cmdHelp, ""},
		{"LIST", cmdList, ""},
		{"new", cmdNew, ""},
		{"exit", cmdExit, ""},
		{"quit", cmdExit, ""},
		{"resume 20250314-092653-7", cmdResume, "20250314-092653-7"},
		{"resume", cmdResume, ""},
		{"help me write a test", cmdTurn, ""},
		{"new ideas for dinner?", cmdTurn, ""},
		{"what's the weather?", cmdTurn, ""},
	}
	for _, tc := range cases {
		cmd, arg := parseCommand(tc.line)
		assert.Equal(t, tc.cmd, cmd, tc.line)
		assert.Equal(t, tc.arg, arg, tc.line)
	}
}

// echoClient answers every request with the last user message.
type echoClient struct{}

func (echoClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.Response{
		Message:      transcript.Message{Role: transcript.RoleAssistant, Content: "echo: " + last.Content},
		FinishReason: "stop",
	}, nil
}

func (echoClient) Stream(context.Context, llm.Request) (*llm.DeltaStream, error) {
	return nil, errors.New("not used")
}

func TestChatLoop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFileStore(t.TempDir())
	var buf bytes.Buffer
	c := &chat{
		cfg:     &config.Config{Model: "m", MaxIterations: 4},
		client:  echoClient{},
		manager: session.NewManager(store, session.Options{SystemPrompt: "sys", Tools: tools.Options{}}),
		out:     newOutput(&buf),
		log:     zap.NewNop(),
	}
	defer c.shutdown()

	s, err := c.manager.New(ctx)
	require.NoError(t, err)
	c.bind(s)

	in := strings.NewReader("hello\nlist\nresume nope\nnew\nresume " + s.ID + "\nexit\nnever reached\n")
	require.NoError(t, c.loop(ctx, in))

	out := buf.String()
	assert.Contains(t, out, "echo: hello")
	assert.Contains(t, out, s.ID)
	assert.Contains(t, out, "session not found")
	assert.NotContains(t, out, "never reached")
	assert.Equal(t, 3, s.Transcript.Len())

	_, history, ok := strings.Cut(out, "history:\n")
	require.True(t, ok, out)
	assert.True(t, strings.HasPrefix(history, "[system] sys\n[user] hello\n[assistant] echo: hello\n"), history)
	assert.Equal(t, s.ID, c.manager.Current().ID)
}

// scriptClient replays responses in order, then answers "done".
type scriptClient struct {
	responses []*llm.Response
}

func (c *scriptClient) Complete(context.Context, llm.Request) (*llm.Response, error) {
	if len(c.responses) == 0 {
		return &llm.Response{Message: transcript.Message{Role: transcript.RoleAssistant, Content: "done"}, FinishReason: "stop"}, nil
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r, nil
}

func (c *scriptClient) Stream(context.Context, llm.Request) (*llm.DeltaStream, error) {
	return nil, errors.New("not used")
}

func toolCall(id, name, args string) transcript.ToolCall {
	return transcript.ToolCall{ID: id, Type: "function", Function: transcript.FunctionCall{Name: name, Arguments: args}}
}

func TestChatLoop_PrintsToolResultsAndPlanSteps(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	client := &scriptClient{responses: []*llm.Response{{
		Message: transcript.Message{Role: transcript.RoleAssistant, ToolCalls: []transcript.ToolCall{
			toolCall("c1", "createPlan", `{"title":"ship","steps":["build","test"]}`),
			toolCall("c2", "updatePlanStep", `{"index":2,"status":"in_progress"}`),
			toolCall("c3", "updatePlanStep", `{"index":9,"status":"completed"}`),
		}},
		FinishReason: llm.FinishToolCalls,
	}}}
	c := &chat{
		cfg:     &config.Config{Model: "m", MaxIterations: 4},
		client:  client,
		manager: session.NewManager(memory.NewFileStore(t.TempDir()), session.Options{SystemPrompt: "sys"}),
		out:     newOutput(&buf),
		log:     zap.NewNop(),
	}
	defer c.shutdown()

	s, err := c.manager.New(ctx)
	require.NoError(t, err)
	c.bind(s)
	require.NoError(t, c.loop(ctx, strings.NewReader("plan it\nexit\n")))

	out := buf.String()
	assert.Contains(t, out, "<- createPlan")
	assert.Contains(t, out, "plan created")
	assert.Contains(t, out, "== step 2 started (updatePlanStep)")
	assert.Contains(t, out, "<- updatePlanStep")
	assert.Contains(t, out, "== step 2 finished (updatePlanStep)")
	assert.Contains(t, out, "!! updatePlanStep: tool updatePlanStep failed: index 9 out of range 1..2")
	assert.Contains(t, out, "== step 9 finished (updatePlanStep)")
	assert.NotContains(t, out, "step 0")
	assert.Contains(t, out, "done")

	started := strings.Index(out, "== step 2 started")
	call := strings.Index(out, "-> updatePlanStep")
	finished := strings.Index(out, "== step 2 finished")
	assert.True(t, started < call && call < finished, out)
}

func TestPlanStep(t *testing.T) {
	cases := []struct {
		call transcript.ToolCall
		step int
		ok   bool
	}{
		{toolCall("a", "updatePlanStep", `{"index":3}`), 3, true},
		{toolCall("a", "updatePlanStep", `{"index":2.7}`), 2, true},
		{toolCall("a", "updatePlanStep", `{"index":0}`), 0, false},
		{toolCall("a", "updatePlanStep", `not json`), 0, false},
		{toolCall("a", "getPlan", `{"index":3}`), 0, false},
	}
	for _, tc := range cases {
		step, ok := planStep(tc.call)
		assert.Equal(t, tc.ok, ok, tc.call.Function.Arguments)
		if tc.ok {
			assert.Equal(t, tc.step, step)
		}
	}
}

func TestOutput_History(t *testing.T) {
	var buf bytes.Buffer
	o := newOutput(&buf)

	o.history(nil)
	assert.Equal(t, "history is empty\n", buf.String())

	buf.Reset()
	o.history([]transcript.Message{
		{Role: transcript.RoleUser, Content: "read it"},
		{Role: transcript.RoleAssistant, ToolCalls: []transcript.ToolCall{toolCall("c1", "readFile", "{}")}},
		{Role: transcript.RoleTool, ToolCallID: "c1", Content: "contents"},
	})
	assert.Equal(t, "history:\n[user] read it\n[assistant] (tool calls: readFile)\n[tool] contents\n", buf.String())
}

func TestEcho_CutsOnRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", maxToolEcho+5)
	got := echo(s)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", maxToolEcho)+"...", got)

	assert.Equal(t, "a b", echo("a\n\t b"))
}

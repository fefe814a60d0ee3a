// Package llm issues request/response cycles against a remote chat model.
//
// Two providers are supported: any OpenAI-compatible chat-completions
// endpoint (complete and streaming), and the Anthropic Messages API
// (complete only). Both speak the transcript.Message shape; provider
// specifics stay inside this package.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/petasbytes/go-agent/internal/transcript"
)

// FinishToolCalls is the finish reason that signals the model wants tools run.
const FinishToolCalls = "tool_calls"

// ErrStreamUnsupported is returned by providers without a streaming decoder.
var ErrStreamUnsupported = errors.New("llm: streaming not supported by this provider")

// Tool is a function schema exposed to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is one model call: the full transcript plus the tool catalog.
type Request struct {
	Model    string
	Messages []transcript.Message
	Tools    []Tool
}

// Response is the first choice of a completed model call.
type Response struct {
	Message      transcript.Message
	FinishReason string
}

// WantsTools reports whether the finish indicator signals tool use.
func (r *Response) WantsTools() bool {
	return r != nil && r.FinishReason == FinishToolCalls
}

// Client is implemented by every provider.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (*DeltaStream, error)
}

// RequestError wraps any network, HTTP or top-level decode failure of a model call.
type RequestError struct {
	Provider string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

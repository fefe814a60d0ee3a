package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/go-agent/internal/transcript"
)

const (
	DefaultAnthropicModel = string(anthropic.ModelClaude3_7SonnetLatest)
	anthropicMaxTokens    = 1024
)

// Anthropic adapts the Messages API to the chat-completions transcript shape.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic returns a client using the API key from the env unless o.APIKey is set.
func NewAnthropic(o Options) *Anthropic {
	opts := []option.RequestOption{option.WithMaxRetries(o.MaxRetries)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	return &Anthropic{client: anthropic.NewClient(opts...)}
}

func (c *Anthropic) Complete(ctx context.Context, req Request) (*Response, error) {
	params := anthropicParams(req)
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &RequestError{Provider: "anthropic", Err: err}
	}

	out := transcript.Message{Role: transcript.RoleAssistant}
	var text []string
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				text = append(text, v.Text)
			}
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through as the call arguments
			out.ToolCalls = append(out.ToolCalls, transcript.ToolCall{
				ID:       v.ID,
				Type:     "function",
				Function: transcript.FunctionCall{Name: v.Name, Arguments: v.JSON.Input.Raw()},
			})
		}
	}
	out.Content = strings.Join(text, "\n")

	finish := string(msg.StopReason)
	if finish == "tool_use" {
		finish = FinishToolCalls
	}
	return &Response{Message: out, FinishReason: finish}, nil
}

// Stream is not implemented for the Messages API event format.
func (c *Anthropic) Stream(context.Context, Request) (*DeltaStream, error) {
	return nil, ErrStreamUnsupported
}

func anthropicParams(req Request) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(anthropicMaxTokens),
	}

	var results []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(results) > 0 {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range req.Messages {
		if m.Role == transcript.RoleTool {
			// Consecutive tool messages become one user message of tool_result blocks.
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
			continue
		}
		flush()
		switch m.Role {
		case transcript.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case transcript.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				input := json.RawMessage(call.Function.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    call.ID,
					Name:  call.Function.Name,
					Input: input,
				}})
			}
			if len(blocks) == 0 {
				continue // the API rejects an assistant turn without content
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	flush()

	for _, t := range req.Tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.Parameters["properties"],
			Required:   requiredFields(t.Parameters["required"]),
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}
	return params
}

func requiredFields(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, x := range r {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

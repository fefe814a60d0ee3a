package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/petasbytes/go-agent/internal/transcript"
)

// Options configure a provider client.
type Options struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	HTTPClient *http.Client
}

// OpenAI talks to any OpenAI-compatible chat-completions endpoint.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI builds a client. Empty BaseURL/APIKey fall back to the SDK's
// environment defaults (OPENAI_BASE_URL, OPENAI_API_KEY).
func NewOpenAI(o Options) *OpenAI {
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
	return &OpenAI{client: openai.NewClient(opts...)}
}

func (c *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openAIParams(req))
	if err != nil {
		return nil, &RequestError{Provider: "openai", Err: err}
	}
	if len(completion.Choices) == 0 {
		return nil, &RequestError{Provider: "openai", Err: errors.New("response has no choices")}
	}
	choice := completion.Choices[0]
	msg := transcript.Message{Role: transcript.RoleAssistant, Content: choice.Message.Content}
	for _, call := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, transcript.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: transcript.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return &Response{Message: msg, FinishReason: string(choice.FinishReason)}, nil
}

// Stream posts the request with stream=true and decodes the raw event
// stream itself; the caller must Close the returned stream.
func (c *OpenAI) Stream(ctx context.Context, req Request) (*DeltaStream, error) {
	var raw *http.Response
	err := c.client.Post(ctx, "chat/completions", openAIParams(req), &raw, option.WithJSONSet("stream", true))
	if err != nil {
		return nil, &RequestError{Provider: "openai", Err: err}
	}
	if raw == nil || raw.Body == nil {
		return nil, &RequestError{Provider: "openai", Err: errors.New("empty streaming response")}
	}
	if raw.StatusCode/100 != 2 {
		raw.Body.Close()
		return nil, &RequestError{Provider: "openai", Err: fmt.Errorf("unexpected status %s", raw.Status)}
	}
	return NewDeltaStream(raw.Body), nil
}

func openAIParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		params.Messages = append(params.Messages, openAIMessage(m))
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.Parameters),
				},
			},
		})
	}
	return params
}

func openAIMessage(m transcript.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case transcript.RoleSystem:
		return openai.SystemMessage(m.Content)
	case transcript.RoleTool:
		return openai.ToolMessage(m.Content, m.ToolCallID)
	case transcript.RoleAssistant:
		var out openai.ChatCompletionMessageParamUnion
		if m.Content != "" || !m.HasToolCalls() {
			out = openai.AssistantMessage(m.Content)
		} else {
			out = openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{}}
		}
		for _, call := range m.ToolCalls {
			out.OfAssistant.ToolCalls = append(out.OfAssistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      call.Function.Name,
						Arguments: call.Function.Arguments,
					},
				},
			})
		}
		return out
	default:
		return openai.UserMessage(m.Content)
	}
}

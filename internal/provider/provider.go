// Package provider selects and builds the model client for a configured provider.
package provider

import (
	"fmt"

	"github.com/petasbytes/go-agent/internal/llm"
)

const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
)

// DefaultOpenAIModel is used when no model is configured for the openai provider.
const DefaultOpenAIModel = "gpt-5-nano"

// New returns a client for name using the API key from o or the env.
func New(name string, o llm.Options) (llm.Client, error) {
	switch name {
	case "", OpenAI:
		return llm.NewOpenAI(o), nil
	case Anthropic:
		return llm.NewAnthropic(o), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(name string) string {
	if name == Anthropic {
		return llm.DefaultAnthropicModel
	}
	return DefaultOpenAIModel
}

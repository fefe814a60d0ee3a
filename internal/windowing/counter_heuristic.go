package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/go-agent/internal/transcript"
)

// TokenCounter estimates the input-token cost of messages.
type TokenCounter interface {
	CountMessage(m transcript.Message) int
	CountGroup(g Group, all []transcript.Message) int
}

// messageOverhead is charged once per message and once per tool call.
const messageOverhead = 4

// HeuristicCounter charges one token per rune of content, tool name and
// tool arguments, plus messageOverhead. It is deterministic, not accurate.
type HeuristicCounter struct{}

func (HeuristicCounter) CountMessage(m transcript.Message) int {
	n := messageOverhead + utf8.RuneCountInString(m.Content)
	for _, tc := range m.ToolCalls {
		n += messageOverhead + utf8.RuneCountInString(tc.Function.Name) + utf8.RuneCountInString(tc.Function.Arguments)
	}
	return n
}

func (h HeuristicCounter) CountGroup(g Group, all []transcript.Message) int {
	n := 0
	for _, m := range all[g.Start:min(g.End, len(all))] {
		n += h.CountMessage(m)
	}
	return n
}

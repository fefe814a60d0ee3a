// Package windowing picks the suffix of a transcript that fits a token
// budget without splitting a tool exchange.
package windowing

import "github.com/petasbytes/go-agent/internal/transcript"

type GroupKind int

const (
	GroupSingleton GroupKind = iota
	// GroupPair is an assistant tool-call message plus all of its results.
	GroupPair
)

// Group is the span msgs[Start:End].
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// GroupBlocks splits msgs into the atomic units of a send window. An
// assistant message with tool calls forms a pair with the run of tool
// messages right after it only when that run answers exactly its call ids,
// in any order. Everything else, including a broken exchange, is a singleton.
func GroupBlocks(msgs []transcript.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if end, ok := exchangeEnd(msgs, i); ok {
			groups = append(groups, Group{Kind: GroupPair, Start: i, End: end})
			i = end
			continue
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// exchangeEnd reports where the complete tool exchange opened at msgs[i] ends.
func exchangeEnd(msgs []transcript.Message, i int) (int, bool) {
	if msgs[i].Role != transcript.RoleAssistant || !msgs[i].HasToolCalls() {
		return 0, false
	}
	pending := make(map[string]bool, len(msgs[i].ToolCalls))
	for _, c := range msgs[i].ToolCalls {
		if c.ID != "" {
			pending[c.ID] = true
		}
	}
	end := i + 1
	for ; end < len(msgs) && msgs[end].Role == transcript.RoleTool; end++ {
		id := msgs[end].ToolCallID
		if id == "" {
			continue
		}
		if _, issued := pending[id]; !issued {
			return 0, false // answers a call this message never made
		}
		pending[id] = false
	}
	if end == i+1 {
		return 0, false
	}
	for _, open := range pending {
		if open {
			return 0, false
		}
	}
	return end, true
}

// brokenExchange reports whether g is a tool-call message left unpaired.
func brokenExchange(g Group, msgs []transcript.Message) bool {
	m := msgs[g.Start]
	return g.Kind == GroupSingleton && m.Role == transcript.RoleAssistant && m.HasToolCalls()
}

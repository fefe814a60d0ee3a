package windowing

import "github.com/petasbytes/go-agent/internal/transcript"

// Stats describes one PrepareSendWindow call. Total counts only what was
// included, the pinned system message among it.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int // the pinned system message is not a group
	SkippedGroups    int
	OverBudgetNewest bool // the newest group alone does not fit
	BrokenExchanges  int  // tool-call messages whose results are incomplete
}

// PrepareSendWindow returns the oldest-to-newest messages that fit budget.
// A leading system message is always kept and charged first; whole groups
// are then taken newest first until the next one would not fit. When even
// the newest group does not fit, or budget <= 0, the window is empty.
func PrepareSendWindow(msgs []transcript.Message, budget int, c TokenCounter) ([]transcript.Message, Stats) {
	stats := Stats{Budget: budget}
	if len(msgs) == 0 {
		return nil, stats
	}

	var pinned []transcript.Message
	rest := msgs
	if msgs[0].Role == transcript.RoleSystem {
		pinned, rest = msgs[:1], msgs[1:]
	}
	groups := GroupBlocks(rest)
	for _, g := range groups {
		if brokenExchange(g, rest) {
			stats.BrokenExchanges++
		}
	}
	stats.SkippedGroups = len(groups)

	if budget <= 0 {
		stats.OverBudgetNewest = len(groups) > 0
		return nil, stats
	}

	total := 0
	for _, m := range pinned {
		total += c.CountMessage(m)
	}
	from := len(rest)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], rest)
		if total+cost > budget {
			break
		}
		total += cost
		from = groups[gi].Start
		stats.IncludedGroups++
	}
	if stats.IncludedGroups == 0 && len(groups) > 0 {
		stats.OverBudgetNewest = true
		return nil, stats
	}

	stats.Total = total
	stats.SkippedGroups -= stats.IncludedGroups
	window := make([]transcript.Message, 0, len(pinned)+len(rest)-from)
	window = append(window, pinned...)
	return append(window, rest[from:]...), stats
}

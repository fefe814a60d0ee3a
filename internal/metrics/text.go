// Package metrics derives size features from text so telemetry can describe
// inputs and request windows without retaining their content.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/go-agent/internal/transcript"
)

type Features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// CountFeatures measures s. Words split on Unicode whitespace; an empty
// string has zero lines, anything else has one more line than it has '\n'.
func CountFeatures(s string) Features {
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
	}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}

func (f Features) Add(o Features) Features {
	return Features{
		Bytes: f.Bytes + o.Bytes,
		Runes: f.Runes + o.Runes,
		Words: f.Words + o.Words,
		Lines: f.Lines + o.Lines,
	}
}

// Window summarizes the messages sent in one model request.
type Window struct {
	Messages    int      `json:"messages"`
	ToolCalls   int      `json:"tool_calls"`
	ToolResults int      `json:"tool_results"`
	Text        Features `json:"text"` // message content plus call arguments
}

func CountWindow(msgs []transcript.Message) Window {
	w := Window{Messages: len(msgs)}
	for _, m := range msgs {
		w.Text = w.Text.Add(CountFeatures(m.Content))
		if m.Role == transcript.RoleTool {
			w.ToolResults++
		}
		for _, c := range m.ToolCalls {
			w.ToolCalls++
			w.Text = w.Text.Add(CountFeatures(c.Function.Arguments))
		}
	}
	return w
}

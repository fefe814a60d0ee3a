package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/petasbytes/go-agent/internal/transcript"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	toolStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// maxToolEcho bounds how much of a tool call's arguments is echoed.
const maxToolEcho = 120

type output struct {
	w        io.Writer
	renderer *glamour.TermRenderer // nil when w is not a terminal
}

func newOutput(w io.Writer) *output {
	o := &output{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		o.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(terminalWidth(f)),
		)
	}
	return o
}

func terminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w < 40 {
		return 80
	}
	return w - 4
}

func (o *output) prompt() {
	fmt.Fprint(o.w, userStyle.Render("You")+": ")
}

func (o *output) assistantLabel() {
	fmt.Fprint(o.w, assistantStyle.Render("Agent")+": ")
}

func (o *output) delta(s string) {
	fmt.Fprint(o.w, s)
}

func (o *output) endStream() {
	fmt.Fprintln(o.w)
}

// answer prints a final reply, rendered as markdown on a terminal.
func (o *output) answer(text string) {
	if o.renderer != nil {
		if rendered, err := o.renderer.Render(text); err == nil {
			fmt.Fprintln(o.w, assistantStyle.Render("Agent")+":")
			fmt.Fprint(o.w, rendered)
			return
		}
	}
	o.assistantLabel()
	fmt.Fprintln(o.w, text)
}

func (o *output) tool(name, args string) {
	fmt.Fprintln(o.w, toolStyle.Render(fmt.Sprintf("  -> %s %s", name, echo(args))))
}

func (o *output) toolResult(name, result string) {
	fmt.Fprintln(o.w, toolStyle.Render(fmt.Sprintf("  <- %s %s", name, echo(result))))
}

func (o *output) stepStarted(step int, name string) {
	fmt.Fprintln(o.w, toolStyle.Render(fmt.Sprintf("  == step %d started (%s)", step, name)))
}

func (o *output) stepFinished(step int, name string) {
	fmt.Fprintln(o.w, toolStyle.Render(fmt.Sprintf("  == step %d finished (%s)", step, name)))
}

// history prints every message of a resumed session as "[role] content".
func (o *output) history(msgs []transcript.Message) {
	if len(msgs) == 0 {
		o.info("history is empty")
		return
	}
	o.info("history:")
	for _, m := range msgs {
		content := m.Content
		if content == "" && m.HasToolCalls() {
			names := make([]string, 0, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				names = append(names, c.Function.Name)
			}
			content = "(tool calls: " + strings.Join(names, ", ") + ")"
		}
		fmt.Fprintf(o.w, "[%s] %s\n", m.Role, content)
	}
}

// echo collapses whitespace and keeps at most maxToolEcho runes.
func echo(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxToolEcho {
		return s
	}
	return string([]rune(s)[:maxToolEcho]) + "..."
}

func (o *output) toolFailed(name, result string) {
	first, _, _ := strings.Cut(result, "\n")
	fmt.Fprintln(o.w, warnStyle.Render(fmt.Sprintf("  !! %s: %s", name, first)))
}

func (o *output) info(s string) {
	fmt.Fprintln(o.w, s)
}

func (o *output) warn(s string) {
	fmt.Fprintln(o.w, warnStyle.Render(s))
}

func (o *output) error(err error) {
	fmt.Fprintln(o.w, errorStyle.Render("error: ")+err.Error())
}

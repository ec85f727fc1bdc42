package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

// renderMarkdown renders a task note as terminal markdown. Falls back
// to the raw input if rendering fails.
func renderMarkdown(input string, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithWordWrap(width),
		glamour.WithStandardStyle("dark"),
	)
	if err != nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	return strings.TrimRight(out, "\n")
}

// wrapNote wraps plain note text at width when wrapping is enabled,
// otherwise returns it untouched.
func wrapNote(input string, width int, wrap bool) string {
	if !wrap || width <= 0 {
		return input
	}
	return wordwrap.String(input, width)
}

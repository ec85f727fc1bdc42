// Package tui is the interactive frame editor: a bubbletea program with
// track, tracks-overview, inbox and recent views over a shared editing
// session.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("237")).
			Bold(true)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	PendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	TagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("108"))

	IDStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("243"))

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)
)

var stateStyles = map[model.TaskState]lipgloss.Style{
	model.Todo:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	model.Active:  lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true),
	model.Blocked: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	model.Done:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	model.Parked:  lipgloss.NewStyle().Foreground(lipgloss.Color("137")),
}

func stateStyle(st model.TaskState) lipgloss.Style {
	if s, ok := stateStyles[st]; ok {
		return s
	}
	return StatusStyle
}

// keyDesc pairs a key with its description for footer help lines.
type keyDesc struct {
	Key  string
	Desc string
}

func renderKeyHelpLine(keys []keyDesc) string {
	parts := make([]string, len(keys))
	for i, kd := range keys {
		parts[i] = HelpKeyStyle.Render(kd.Key) + " " + HelpDescStyle.Render(kd.Desc)
	}
	return strings.Join(parts, HelpDescStyle.Render(" • "))
}

// renderOverlayCard wraps a prompt in a bordered card with key help.
func renderOverlayCard(title, body string, keys []keyDesc) string {
	lines := []string{
		TitleStyle.Render(title),
		"",
		StatusStyle.Render(body),
		"",
		renderKeyHelpLine(keys),
	}
	return CardStyle.Width(60).Render(strings.Join(lines, "\n"))
}

func renderHelpOverlay(view string) string {
	var rows [][2]string
	switch view {
	case viewTracks:
		rows = [][2]string{
			{"j/k", "move cursor"},
			{"g/G", "top / bottom"},
			{"1-9", "open track"},
			{"J/K", "reorder track"},
			{"C", "set cc-focus"},
			{"tab", "next view"},
			{"?", "help"},
			{"Q Q", "quit"},
		}
	case viewInbox:
		rows = [][2]string{
			{"j/k", "move cursor"},
			{"g/G", "top / bottom"},
			{"a", "add item"},
			{"e", "edit title"},
			{"t", "triage into track"},
			{"d", "delete item"},
			{"tab", "next view"},
			{"?", "help"},
			{"Q Q", "quit"},
		}
	case viewRecent:
		rows = [][2]string{
			{"j/k", "move cursor"},
			{"g/G", "top / bottom"},
			{"enter", "reopen task"},
			{"tab", "next view"},
			{"?", "help"},
			{"Q Q", "quit"},
		}
	default:
		rows = [][2]string{
			{"j/k", "move up/down"},
			{"h/l", "collapse / expand"},
			{"g/G", "top / bottom"},
			{"space", "cycle state"},
			{"x", "mark done"},
			{"b", "toggle blocked"},
			{"~", "toggle parked"},
			{"e", "edit title"},
			{"a", "add task"},
			{"o", "insert after cursor"},
			{"p", "push to top"},
			{"A", "add subtask"},
			{"m", "move mode"},
			{"D", "delete task"},
			{"1-9", "track N"},
			{"tab", "next track"},
			{"0/`", "tracks overview"},
			{"i", "inbox"},
			{"r", "recent"},
			{"/", "search"},
			{"z/u", "undo"},
			{"Z", "redo"},
			{"?", "help"},
			{"Q Q", "quit"},
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Key Bindings"))
	b.WriteString("\n\n")
	for _, r := range rows {
		key := HelpKeyStyle.Render(padRight(r[0], 8))
		b.WriteString(key)
		b.WriteString(HelpDescStyle.Render(r[1]))
		b.WriteString("\n")
	}
	return CardStyle.Width(44).Render(strings.TrimRight(b.String(), "\n"))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}

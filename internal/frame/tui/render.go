package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

// View implements tea.Model.
func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.view {
	case viewTracks:
		b.WriteString(m.renderTracksView())
	case viewInbox:
		b.WriteString(m.renderInboxView())
	case viewRecent:
		b.WriteString(m.renderRecentView())
	default:
		b.WriteString(m.renderTrackView(width))
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusRow())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	if overlay := m.renderOverlay(); overlay != "" {
		b.WriteString("\n")
		b.WriteString(overlay)
	}
	return b.String()
}

func (m *Model) renderHeader() string {
	p := m.sess.Project
	name := p.Config.Project.Name

	trackLabel := "Track"
	if track := p.Track(m.activeTrack); track != nil {
		trackLabel = track.Title
	}
	tabs := []struct {
		view  string
		label string
	}{
		{viewTrack, trackLabel},
		{viewTracks, "Tracks"},
		{viewInbox, "Inbox"},
		{viewRecent, "Recent"},
	}

	parts := make([]string, len(tabs))
	for i, tab := range tabs {
		if tab.view == m.view {
			parts[i] = TitleStyle.Render(tab.label)
		} else {
			parts[i] = LabelStyle.Render(tab.label)
		}
	}
	return SubtitleStyle.Render(name) + "  " + strings.Join(parts, LabelStyle.Render(" | "))
}

var sectionLabels = map[model.SectionKind]string{
	model.SectionBacklog: "Backlog",
	model.SectionParked:  "Parked",
	model.SectionDone:    "Done",
}

func (m *Model) renderTrackView(width int) string {
	track := m.sess.Project.Track(m.activeTrack)
	if track == nil {
		return LabelStyle.Render("(no tracks configured)")
	}

	rows := m.taskRows()
	if len(rows) == 0 {
		return LabelStyle.Render("(no tasks)")
	}

	expanded := m.expandedFor(m.activeTrack)
	var b strings.Builder
	var lastSection model.SectionKind = -1
	for i, row := range rows {
		if row.section != lastSection {
			if lastSection != -1 {
				b.WriteString("\n")
			}
			b.WriteString(SubtitleStyle.Render(sectionLabels[row.section]))
			b.WriteString("\n")
			lastSection = row.section
		}
		b.WriteString(m.renderTaskLine(row, i == m.cursor, expanded))
		b.WriteString("\n")
	}

	if row, ok := m.cursorRow(); ok {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(row.task, width))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderTaskLine(row taskRow, selected bool, expanded map[string]bool) string {
	task := row.task

	marker := "  "
	if len(task.Subtasks) > 0 {
		if expanded[task.ID] {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}

	line := strings.Repeat("  ", row.depth) + marker
	line += fmt.Sprintf("[%c] ", task.State.CheckboxChar())
	if task.ID != "" {
		line += task.ID + " "
	}
	line += task.Title
	for _, tag := range task.Tags {
		line += " #" + tag
	}

	if m.sess.HasPendingMove(m.activeTrack, task.ID) {
		line += PendingStyle.Render(" *")
	}
	if selected {
		return SelectedStyle.Render(line)
	}
	return stateStyle(task.State).Render(line)
}

// renderDetail shows the cursor task's metadata and note below the list.
func (m *Model) renderDetail(task *model.Task, width int) string {
	var lines []string
	head := fmt.Sprintf("[%c] ", task.State.CheckboxChar())
	if task.ID != "" {
		head += IDStyle.Render(task.ID) + " "
	}
	head += task.Title
	lines = append(lines, head)

	if len(task.Tags) > 0 {
		tags := make([]string, len(task.Tags))
		for i, tag := range task.Tags {
			tags[i] = "#" + tag
		}
		lines = append(lines, TagStyle.Render(strings.Join(tags, " ")))
	}
	if deps := task.Deps(); len(deps) > 0 {
		lines = append(lines, LabelStyle.Render("dep: ")+strings.Join(deps, ", "))
	}
	if spec := task.Spec(); spec != "" {
		lines = append(lines, LabelStyle.Render("spec: ")+spec)
	}
	for _, ref := range task.Refs() {
		lines = append(lines, LabelStyle.Render("ref: ")+ref)
	}
	if added := task.Added(); added != "" {
		lines = append(lines, LabelStyle.Render("added: ")+added)
	}
	if resolved := task.Resolved(); resolved != "" {
		lines = append(lines, LabelStyle.Render("resolved: ")+resolved)
	}
	if note := task.Note(); note != "" {
		rendered := renderMarkdown(wrapNote(note, width-4, m.noteWrap()), width-4)
		if rendered == "" {
			rendered = note
		}
		lines = append(lines, rendered)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) noteWrap() bool {
	if m.ui.NoteWrapOverride != nil {
		return *m.ui.NoteWrapOverride
	}
	return m.sess.Project.Config.UI.NoteWrap
}

func (m *Model) renderTracksView() string {
	tracks := m.activeTracksAndRest()
	if len(tracks) == 0 {
		return LabelStyle.Render("(no tracks)")
	}

	focus := m.sess.Project.Config.Agent.CCFocus
	var b strings.Builder
	for i, tc := range tracks {
		stats := ops.TrackStats{}
		if track := m.sess.Project.Track(tc.ID); track != nil {
			stats = ops.TaskCounts(track)
		}
		line := fmt.Sprintf("%d. %s (%s)  %d open, %d done", i+1, tc.Name, tc.ID,
			stats.Todo+stats.Active+stats.Blocked, stats.Done)
		if tc.State == "shelved" {
			line += "  [shelved]"
		}
		if tc.ID == focus {
			line += "  cc"
		}
		if i == m.tracksCursor {
			line = SelectedStyle.Render(line)
		} else {
			line = StatusStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderInboxView() string {
	inbox := m.sess.Project.Inbox
	if inbox == nil || len(inbox.Items) == 0 {
		return LabelStyle.Render("(inbox is empty)")
	}

	var b strings.Builder
	for i, item := range inbox.Items {
		line := "- " + item.Title
		for _, tag := range item.Tags {
			line += " #" + tag
		}
		if i == m.inboxCursor {
			line = SelectedStyle.Render(line)
		} else {
			line = StatusStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		for _, body := range item.Body {
			b.WriteString(LabelStyle.Render("    " + body))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderRecentView() string {
	entries := m.collectRecent()
	if len(entries) == 0 {
		return LabelStyle.Render("(nothing completed yet)")
	}

	var b strings.Builder
	lastDate := ""
	for i, e := range entries {
		if e.resolved != lastDate {
			if lastDate != "" {
				b.WriteString("\n")
			}
			b.WriteString(SubtitleStyle.Render(e.resolved))
			b.WriteString("\n")
			lastDate = e.resolved
		}
		line := fmt.Sprintf("  [x] %s %s (%s)", e.taskID, e.title, e.trackID)
		if m.sess.HasPendingMove(e.trackID, e.taskID) {
			line += PendingStyle.Render(" *")
		}
		if i == m.recentCursor {
			line = SelectedStyle.Render(line)
		} else {
			line = stateStyle(model.Done).Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderStatusRow() string {
	pending := m.pendingStatus(time.Now())
	switch {
	case pending != "" && m.status != "":
		return PendingStyle.Render(pending) + "  " + StatusStyle.Render(m.status)
	case pending != "":
		return PendingStyle.Render(pending)
	default:
		return StatusStyle.Render(m.status)
	}
}

func (m *Model) renderFooter() string {
	var keys []keyDesc
	switch m.view {
	case viewTracks:
		keys = []keyDesc{
			{"j/k", "move"}, {"enter", "open"}, {"J/K", "reorder"},
			{"C", "cc-focus"}, {"tab", "next view"}, {"?", "help"},
		}
	case viewInbox:
		keys = []keyDesc{
			{"j/k", "move"}, {"a", "add"}, {"t", "triage"},
			{"d", "delete"}, {"tab", "next view"}, {"?", "help"},
		}
	case viewRecent:
		keys = []keyDesc{
			{"j/k", "move"}, {"enter", "reopen"}, {"tab", "next view"}, {"?", "help"},
		}
	default:
		keys = []keyDesc{
			{"j/k", "move"}, {"space", "state"}, {"x", "done"},
			{"a", "add"}, {"e", "edit"}, {"/", "search"}, {"?", "help"},
		}
	}
	return renderKeyHelpLine(keys)
}

func (m *Model) renderOverlay() string {
	switch {
	case m.showHelp:
		return renderHelpOverlay(m.view)
	case m.confirm != nil:
		return renderOverlayCard("Confirm", m.confirm.prompt, []keyDesc{
			{"y/enter", "confirm"}, {"n/esc", "cancel"},
		})
	case m.conflict != nil:
		body := fmt.Sprintf("%s was changed outside this session; the edit was abandoned.", m.conflict.taskID)
		if m.conflict.buffer != "" {
			body += "\n\nUnsaved text: " + m.conflict.buffer
		}
		return renderOverlayCard("External change", body, []keyDesc{
			{"any key", "dismiss"},
		})
	case m.inputPurpose != inputNone:
		return m.input.View()
	case m.searching:
		return m.renderSearchOverlay()
	case m.triaging:
		return m.renderTriagePicker()
	}
	return ""
}

func (m *Model) renderSearchOverlay() string {
	var b strings.Builder
	b.WriteString(m.search.View())
	b.WriteString("\n")
	shown := 0
	for i, match := range m.matches {
		if shown >= 8 {
			break
		}
		line := "  " + match.label
		if i == m.matchSel {
			line = SelectedStyle.Render(line)
		} else {
			line = StatusStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		shown++
	}
	if len(m.matches) == 0 {
		b.WriteString(LabelStyle.Render("  (no matches)"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderTriagePicker() string {
	tracks := m.activeTracks()
	var lines []string
	for i, tc := range tracks {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, tc.Name, tc.ID))
	}
	return renderOverlayCard("Triage into", strings.Join(lines, "\n"), []keyDesc{
		{"1-9", "pick track"}, {"esc", "cancel"},
	})
}

package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

func (m *Model) handleTrackKey(msg tea.KeyMsg) {
	if m.moveMode {
		m.handleMoveModeKey(msg)
		return
	}

	rows := m.taskRows()

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(rows) > 0 {
			m.cursor = len(rows) - 1
		}
	case key.Matches(msg, m.keys.Left):
		m.collapseOrParent()
	case key.Matches(msg, m.keys.Right):
		m.expandOrChild()
	case key.Matches(msg, m.keys.Search):
		m.openSearch()
	case key.Matches(msg, m.keys.Undo):
		m.undo()
	case key.Matches(msg, m.keys.Redo):
		m.redo()
	case key.Matches(msg, m.keys.Next):
		m.nextTrack()
	default:
		m.handleTrackActionKey(msg)
	}
}

func (m *Model) handleTrackActionKey(msg tea.KeyMsg) {
	switch msg.String() {
	case " ":
		m.applyStateChange(stateCycle)
	case "x":
		m.applyStateChange(stateDone)
	case "b":
		m.applyStateChange(stateBlocked)
	case "~":
		m.applyStateChange(stateParked)
	case "e":
		if row, ok := m.cursorRow(); ok {
			m.inputTaskID = row.task.ID
			m.openInput(inputEditTitle, "title: ", row.task.Title)
		}
	case "a":
		m.openInput(inputAddBottom, "add: ", "")
	case "o", "-":
		m.openInput(inputAddAfter, "add: ", "")
	case "p":
		m.openInput(inputAddTop, "add: ", "")
	case "A":
		if row, ok := m.cursorRow(); ok {
			m.inputTaskID = row.task.ID
			m.openInput(inputAddSubtask, "subtask: ", "")
		}
	case "m":
		if row, ok := m.cursorRow(); ok && row.topLevel && row.section == model.SectionBacklog {
			m.moveMode = true
			m.status = "move mode: j/k reorder, esc done"
		}
	case "D":
		m.confirmDeleteTask()
	case "i":
		m.switchView(viewInbox)
	case "r":
		m.switchView(viewRecent)
	case "0", "`":
		m.switchView(viewTracks)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.switchTrackByNumber(int(msg.String()[0] - '0'))
	case "C":
		m.setCCFocus(m.activeTrack)
	}
}

func (m *Model) handleMoveModeKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "j", "down":
		m.moveCursorTask(1)
	case "k", "up":
		m.moveCursorTask(-1)
	case "esc", "enter", "m":
		m.moveMode = false
		m.status = ""
	}
}

func (m *Model) handleTracksKey(msg tea.KeyMsg) {
	tracks := m.activeTracksAndRest()

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.tracksCursor < len(tracks)-1 {
			m.tracksCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.tracksCursor > 0 {
			m.tracksCursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.tracksCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(tracks) > 0 {
			m.tracksCursor = len(tracks) - 1
		}
	case key.Matches(msg, m.keys.Next):
		m.switchView(viewInbox)
	case key.Matches(msg, m.keys.Undo):
		m.undo()
	case key.Matches(msg, m.keys.Redo):
		m.redo()
	default:
		switch msg.String() {
		case "enter":
			if m.tracksCursor < len(tracks) {
				m.switchTrack(tracks[m.tracksCursor].ID)
			}
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.switchTrackByNumber(int(msg.String()[0] - '0'))
		case "J":
			m.reorderTrack(1)
		case "K":
			m.reorderTrack(-1)
		case "C":
			if m.tracksCursor < len(tracks) {
				m.setCCFocus(tracks[m.tracksCursor].ID)
			}
		case "i":
			m.switchView(viewInbox)
		case "r":
			m.switchView(viewRecent)
		}
	}
}

func (m *Model) handleInboxKey(msg tea.KeyMsg) {
	inbox := m.sess.Project.Inbox
	count := 0
	if inbox != nil {
		count = len(inbox.Items)
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.inboxCursor < count-1 {
			m.inboxCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.inboxCursor > 0 {
			m.inboxCursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.inboxCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		if count > 0 {
			m.inboxCursor = count - 1
		}
	case key.Matches(msg, m.keys.Next):
		m.switchView(viewRecent)
	case key.Matches(msg, m.keys.Back):
		m.switchView(viewTrack)
	case key.Matches(msg, m.keys.Undo):
		m.undo()
	case key.Matches(msg, m.keys.Redo):
		m.redo()
	default:
		switch msg.String() {
		case "a":
			m.openInput(inputInboxAdd, "inbox: ", "")
		case "e":
			if inbox != nil && m.inboxCursor < count {
				m.openInput(inputInboxTitle, "title: ", inbox.Items[m.inboxCursor].Title)
			}
		case "t":
			if count > 0 {
				m.triaging = true
			}
		case "d":
			m.confirmDeleteInboxItem()
		}
	}
}

func (m *Model) handleRecentKey(msg tea.KeyMsg) {
	entries := m.collectRecent()

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.recentCursor < len(entries)-1 {
			m.recentCursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.recentCursor > 0 {
			m.recentCursor--
		}
	case key.Matches(msg, m.keys.Top):
		m.recentCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(entries) > 0 {
			m.recentCursor = len(entries) - 1
		}
	case key.Matches(msg, m.keys.Next):
		m.switchView(viewTrack)
	case key.Matches(msg, m.keys.Back):
		m.switchView(viewTrack)
	case key.Matches(msg, m.keys.Undo):
		m.undo()
	case key.Matches(msg, m.keys.Redo):
		m.redo()
	default:
		switch msg.String() {
		case "enter", "x", "o":
			m.reopenRecent()
		}
	}
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "enter":
		m.commitInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleTriageKey picks a destination track by number.
func (m *Model) handleTriageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := msg.String()
	if s == "esc" {
		m.triaging = false
		return m, nil
	}
	if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		tracks := m.activeTracks()
		n := int(s[0] - '1')
		if n < len(tracks) {
			m.triaging = false
			m.triageInto(tracks[n].ID)
		}
	}
	return m, nil
}

func (m *Model) switchTrackByNumber(n int) {
	tracks := m.activeTracks()
	if n >= 1 && n <= len(tracks) {
		m.switchTrack(tracks[n-1].ID)
	}
}

func (m *Model) collapseOrParent() {
	row, ok := m.cursorRow()
	if !ok {
		return
	}
	expanded := m.expandedFor(m.activeTrack)
	if len(row.task.Subtasks) > 0 && expanded[row.task.ID] {
		delete(expanded, row.task.ID)
		return
	}
	if idx := m.parentRowIndex(row); idx >= 0 {
		m.cursor = idx
	}
}

func (m *Model) expandOrChild() {
	row, ok := m.cursorRow()
	if !ok || len(row.task.Subtasks) == 0 {
		return
	}
	expanded := m.expandedFor(m.activeTrack)
	if !expanded[row.task.ID] {
		expanded[row.task.ID] = true
		return
	}
	m.cursor++
}

func (m *Model) confirmDeleteTask() {
	row, ok := m.cursorRow()
	if !ok {
		return
	}
	taskID := row.task.ID
	m.confirm = &confirmState{
		prompt: fmt.Sprintf("Delete %s %q?", taskID, row.task.Title),
		apply: func(m *Model) {
			m.deleteTask(taskID)
		},
	}
}

func (m *Model) confirmDeleteInboxItem() {
	inbox := m.sess.Project.Inbox
	if inbox == nil || m.inboxCursor >= len(inbox.Items) {
		return
	}
	index := m.inboxCursor
	m.confirm = &confirmState{
		prompt: fmt.Sprintf("Delete inbox item %q?", inbox.Items[index].Title),
		apply: func(m *Model) {
			m.deleteInboxItem(index)
		},
	}
}

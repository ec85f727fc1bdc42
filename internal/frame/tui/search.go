package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// searchMatch is a fuzzy hit over the visible task rows.
type searchMatch struct {
	row   int
	label string
}

func (m *Model) openSearch() {
	m.searching = true
	m.search.SetValue("")
	m.search.Focus()
	m.matchSel = 0
	m.updateMatches()
}

func (m *Model) closeSearch() {
	m.searching = false
	m.search.Blur()
	m.matches = nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeSearch()
		return m, nil
	case "enter":
		if m.matchSel < len(m.matches) {
			m.cursor = m.matches[m.matchSel].row
		}
		if q := strings.TrimSpace(m.search.Value()); q != "" {
			m.ui.PushSearch(q)
		}
		m.closeSearch()
		return m, nil
	case "down", "ctrl+n":
		if m.matchSel < len(m.matches)-1 {
			m.matchSel++
		}
		return m, nil
	case "up", "ctrl+p":
		if m.matchSel > 0 {
			m.matchSel--
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.matchSel = 0
	m.updateMatches()
	return m, cmd
}

// updateMatches fuzzy-filters the visible rows by "ID title" labels.
func (m *Model) updateMatches() {
	rows := m.taskRows()
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = strings.TrimSpace(row.task.ID + " " + row.task.Title)
	}

	query := strings.TrimSpace(m.search.Value())
	if query == "" {
		m.matches = m.matches[:0]
		for i, label := range labels {
			m.matches = append(m.matches, searchMatch{row: i, label: label})
		}
		return
	}

	m.matches = m.matches[:0]
	for _, hit := range fuzzy.Find(query, labels) {
		m.matches = append(m.matches, searchMatch{row: hit.Index, label: labels[hit.Index]})
	}
}

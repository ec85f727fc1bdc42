package tui

import (
	"sort"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

// taskRow is one selectable line in the track view: a task at some
// depth within a section, with collapsed subtrees omitted.
type taskRow struct {
	section  model.SectionKind
	task     *model.Task
	depth    int
	topLevel bool
}

var sectionOrder = []model.SectionKind{
	model.SectionBacklog,
	model.SectionParked,
	model.SectionDone,
}

// taskRows flattens the active track into cursor-addressable rows,
// honoring the expand/collapse state.
func (m *Model) taskRows() []taskRow {
	track := m.sess.Project.Track(m.activeTrack)
	if track == nil {
		return nil
	}
	expanded := m.expandedFor(m.activeTrack)

	var rows []taskRow
	var walk func(task *model.Task, section model.SectionKind, depth int)
	walk = func(task *model.Task, section model.SectionKind, depth int) {
		rows = append(rows, taskRow{
			section:  section,
			task:     task,
			depth:    depth,
			topLevel: depth == 0,
		})
		if expanded[task.ID] {
			for _, sub := range task.Subtasks {
				walk(sub, section, depth+1)
			}
		}
	}
	for _, kind := range sectionOrder {
		for _, task := range track.SectionTasks(kind) {
			walk(task, kind, 0)
		}
	}
	return rows
}

func (m *Model) cursorRow() (taskRow, bool) {
	rows := m.taskRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return taskRow{}, false
	}
	return rows[m.cursor], true
}

// rowIndexOf finds the row for a task ID, or -1.
func (m *Model) rowIndexOf(taskID string) int {
	for i, row := range m.taskRows() {
		if row.task.ID == taskID {
			return i
		}
	}
	return -1
}

// recentEntry is one completed task in the recent view.
type recentEntry struct {
	trackID  string
	taskID   string
	title    string
	resolved string
}

// collectRecent gathers done tasks with resolved dates across active
// tracks, most recent first.
func (m *Model) collectRecent() []recentEntry {
	active := make(map[string]bool)
	for _, tc := range m.sess.Project.Config.Tracks {
		if tc.State == "active" {
			active[tc.ID] = true
		}
	}

	var entries []recentEntry
	for _, lt := range m.sess.Project.Tracks {
		if !active[lt.ID] || lt.Track == nil {
			continue
		}
		for _, task := range lt.Track.DoneTasks() {
			if task.Resolved() == "" {
				continue
			}
			entries = append(entries, recentEntry{
				trackID:  lt.ID,
				taskID:   task.ID,
				title:    task.Title,
				resolved: task.Resolved(),
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].resolved > entries[j].resolved
	})
	return entries
}

// parentRowIndex finds the row index of a task's parent, or -1 when the
// task is top-level.
func (m *Model) parentRowIndex(row taskRow) int {
	track := m.sess.Project.Track(m.activeTrack)
	if track == nil {
		return -1
	}
	loc, ok := ops.FindTaskLocationAnySection(track, row.task.ID)
	if !ok || loc.ParentID == "" {
		return -1
	}
	return m.rowIndexOf(loc.ParentID)
}

package tui

import (
	"fmt"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
	"github.com/joshsegall/frame-sub002/internal/frame/recovery"
	"github.com/joshsegall/frame-sub002/internal/frame/session"
)

type stateAction int

const (
	stateCycle stateAction = iota
	stateDone
	stateBlocked
	stateParked
)

// applyStateChange transitions the cursor task's state, records the
// undo entry, and schedules any grace-period section move the new state
// implies.
func (m *Model) applyStateChange(action stateAction) {
	row, ok := m.cursorRow()
	if !ok {
		return
	}
	task := row.task
	trackID := m.activeTrack
	track := m.sess.Project.Track(trackID)
	if track == nil {
		return
	}

	oldState := task.State
	oldResolved := task.Resolved()

	switch action {
	case stateCycle:
		ops.CycleState(task)
	case stateDone:
		ops.SetDone(task)
	case stateBlocked:
		ops.ToggleBlocked(task)
	case stateParked:
		ops.ToggleParked(task)
	}
	if task.State == oldState {
		return
	}

	// Leaving Done or Parked cancels any queued relocation so the
	// re-trigger restores the prior state instead of stacking a move.
	if oldState == model.Done || oldState == model.Parked {
		m.sess.CancelPendingMove(trackID, task.ID)
	}

	m.sess.Undo.Push(session.StateChange{
		TrackID:     trackID,
		TaskID:      task.ID,
		OldState:    oldState,
		NewState:    task.State,
		OldResolved: oldResolved,
		NewResolved: task.Resolved(),
	})

	switch {
	case task.State == model.Done && ops.IsTopLevelInSection(track, task.ID, model.SectionBacklog):
		m.sess.SchedulePendingMove(session.MoveToDone, trackID, task.ID)
	case task.State == model.Parked && ops.IsTopLevelInSection(track, task.ID, model.SectionBacklog):
		m.sess.SchedulePendingMove(session.MoveToParked, trackID, task.ID)
	case oldState == model.Parked && ops.IsTopLevelInSection(track, task.ID, model.SectionParked):
		m.sess.SchedulePendingMove(session.MoveFromParked, trackID, task.ID)
	}

	m.saveTrack(trackID)
}

// commitInput applies whatever the open text input was collecting.
func (m *Model) commitInput() {
	title := strings.TrimSpace(m.input.Value())
	purpose := m.inputPurpose
	targetID := m.inputTaskID
	m.closeInput()
	if title == "" {
		return
	}

	switch purpose {
	case inputAddBottom, inputAddTop, inputAddAfter:
		m.addTask(purpose, title)
	case inputAddSubtask:
		m.addSubtask(targetID, title)
	case inputEditTitle:
		m.editTitle(targetID, title)
	case inputInboxAdd:
		m.addInboxItem(title)
	case inputInboxTitle:
		m.editInboxTitle(title)
	}
}

func (m *Model) addTask(purpose inputPurpose, title string) {
	trackID := m.activeTrack
	track := m.sess.Project.Track(trackID)
	if track == nil {
		return
	}

	pos := ops.AtBottom()
	switch purpose {
	case inputAddTop:
		pos = ops.AtTop()
	case inputAddAfter:
		if row, ok := m.cursorRow(); ok && row.topLevel && row.section == model.SectionBacklog {
			pos = ops.After(row.task.ID)
		}
	}

	id, err := ops.AddTask(track, title, pos, m.sess.Project.Prefix(trackID))
	if err != nil {
		m.status = err.Error()
		return
	}

	index := 0
	for i, t := range track.BacklogTasks() {
		if t.ID == id {
			index = i
			break
		}
	}
	m.sess.Undo.Push(session.TaskAdd{TrackID: trackID, TaskID: id, PositionIndex: index})
	m.saveTrack(trackID)

	if idx := m.rowIndexOf(id); idx >= 0 {
		m.cursor = idx
	}
	m.status = "added " + id
}

func (m *Model) addSubtask(parentID, title string) {
	trackID := m.activeTrack
	track := m.sess.Project.Track(trackID)
	if track == nil {
		return
	}
	id, err := ops.AddSubtask(track, parentID, title)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.sess.Undo.Push(session.SubtaskAdd{TrackID: trackID, ParentID: parentID, TaskID: id})
	m.expandedFor(trackID)[parentID] = true
	m.saveTrack(trackID)
	if idx := m.rowIndexOf(id); idx >= 0 {
		m.cursor = idx
	}
	m.status = "added " + id
}

func (m *Model) editTitle(taskID, title string) {
	trackID := m.activeTrack
	track := m.sess.Project.Track(trackID)
	if track == nil {
		return
	}
	task := ops.FindTask(track, taskID)
	if task == nil || task.Title == title {
		return
	}
	old := task.Title
	if err := ops.EditTitle(track, taskID, title); err != nil {
		m.status = err.Error()
		return
	}
	m.sess.Undo.Push(session.TitleEdit{TrackID: trackID, TaskID: taskID, OldTitle: old, NewTitle: title})
	m.saveTrack(trackID)
}

func (m *Model) addInboxItem(title string) {
	p := m.sess.Project
	if p.Inbox == nil {
		p.Inbox = &model.Inbox{HeaderLines: []string{"# Inbox", ""}}
	}
	ops.AddInboxItem(p.Inbox, title, nil, nil)
	m.sess.Undo.Push(session.InboxAdd{Index: len(p.Inbox.Items) - 1})
	m.saveInbox()
	m.inboxCursor = len(p.Inbox.Items) - 1
}

func (m *Model) editInboxTitle(title string) {
	inbox := m.sess.Project.Inbox
	if inbox == nil || m.inboxCursor >= len(inbox.Items) {
		return
	}
	item := inbox.Items[m.inboxCursor]
	if item.Title == title {
		return
	}
	old := item.Title
	item.Title = title
	item.MarkDirty()
	m.sess.Undo.Push(session.InboxTitleEdit{Index: m.inboxCursor, OldTitle: old, NewTitle: title})
	m.saveInbox()
}

func (m *Model) deleteInboxItem(index int) {
	inbox := m.sess.Project.Inbox
	if inbox == nil || index < 0 || index >= len(inbox.Items) {
		return
	}
	item := inbox.Items[index]
	inbox.Items = append(inbox.Items[:index], inbox.Items[index+1:]...)
	m.sess.Undo.Push(session.InboxDelete{Index: index, Item: item})
	m.saveInbox()
	m.clampCursors()
}

// triageInto promotes the cursor inbox item into a track's backlog.
func (m *Model) triageInto(trackID string) {
	p := m.sess.Project
	inbox := p.Inbox
	if inbox == nil || m.inboxCursor >= len(inbox.Items) {
		return
	}
	track := p.Track(trackID)
	if track == nil {
		return
	}
	index := m.inboxCursor
	item := inbox.Items[index]

	id, err := ops.Triage(inbox, index, track, ops.AtBottom(), p.Prefix(trackID))
	if err != nil {
		m.status = err.Error()
		return
	}
	m.sess.Undo.Push(session.InboxTriage{
		InboxIndex: index,
		Item:       item,
		TrackID:    trackID,
		TaskID:     id,
	})
	m.saveInbox()
	m.saveTrack(trackID)
	m.clampCursors()
	m.status = fmt.Sprintf("%s → %s", id, trackID)
}

// deleteTask hard-deletes the task under the cursor, logging its source
// to the recovery log first.
func (m *Model) deleteTask(taskID string) {
	trackID := m.activeTrack
	track := m.sess.Project.Track(trackID)
	if track == nil {
		return
	}
	deleted, err := ops.HardDeleteTask(track, taskID, trackID)
	if err != nil {
		m.status = err.Error()
		return
	}
	source := strings.Join(parse.SerializeTasks([]*model.Task{deleted.Task}, 0), "\n")
	recovery.LogTaskDeletion(m.sess.Project.FrameDir, taskID, trackID, source)
	m.saveTrack(trackID)
	m.clampCursors()
	m.status = "deleted " + taskID
}

// moveCursorTask reorders the cursor task within the backlog by delta.
func (m *Model) moveCursorTask(delta int) {
	row, ok := m.cursorRow()
	if !ok || !row.topLevel || row.section != model.SectionBacklog {
		return
	}
	trackID := m.activeTrack
	track := m.sess.Project.Track(trackID)
	tasks := track.BacklogTasks()

	idx := -1
	for i, t := range tasks {
		if t.ID == row.task.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	tgt := idx + delta
	if tgt < 0 || tgt >= len(tasks) {
		return
	}

	var pos ops.InsertPosition
	if delta > 0 {
		pos = ops.After(tasks[tgt].ID)
	} else if tgt == 0 {
		pos = ops.AtTop()
	} else {
		pos = ops.After(tasks[tgt-1].ID)
	}
	if err := ops.MoveTask(track, row.task.ID, pos); err != nil {
		m.status = err.Error()
		return
	}
	m.sess.Undo.Push(session.TaskMove{TrackID: trackID, TaskID: row.task.ID, OldIndex: idx, NewIndex: tgt})
	m.saveTrack(trackID)
	if i := m.rowIndexOf(row.task.ID); i >= 0 {
		m.cursor = i
	}
}

// reorderTrack moves the cursor track within the config by delta and
// rewrites the track table preserving unrelated config text.
func (m *Model) reorderTrack(delta int) {
	tracks := m.activeTracksAndRest()
	if m.tracksCursor >= len(tracks) {
		return
	}
	trackID := tracks[m.tracksCursor].ID

	config := m.sess.Project.Config
	oldIndex := -1
	for i, tc := range config.Tracks {
		if tc.ID == trackID {
			oldIndex = i
			break
		}
	}
	if oldIndex < 0 {
		return
	}
	newIndex := oldIndex + delta
	if newIndex < 0 || newIndex >= len(config.Tracks) {
		return
	}

	if err := m.applyTrackOrder(trackID, newIndex); err != nil {
		m.status = err.Error()
		return
	}
	m.sess.Undo.Push(session.TrackMove{TrackID: trackID, OldIndex: oldIndex, NewIndex: newIndex})
	m.tracksCursor = m.trackCursorFor(trackID)
}

func (m *Model) applyTrackOrder(trackID string, newIndex int) error {
	p := m.sess.Project
	if err := ops.ReorderTracks(&p.Config, trackID, newIndex); err != nil {
		return err
	}
	edit := project.NewConfigEdit(p.ConfigText)
	for _, tc := range p.Config.Tracks {
		edit.RemoveTrack(tc.ID)
	}
	for _, tc := range p.Config.Tracks {
		edit.AddTrack(tc.ID, tc.Name, tc.State, tc.File)
	}
	return p.SaveConfig(edit.String())
}

func (m *Model) trackCursorFor(trackID string) int {
	for i, tc := range m.activeTracksAndRest() {
		if tc.ID == trackID {
			return i
		}
	}
	return 0
}

func (m *Model) setCCFocus(trackID string) {
	p := m.sess.Project
	edit := project.NewConfigEdit(p.ConfigText)
	if err := ops.SetCCFocus(edit, &p.Config, trackID); err != nil {
		m.status = err.Error()
		return
	}
	if err := p.SaveConfig(edit.String()); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "cc-focus: " + trackID
}

// reopenRecent pulls a completed task back toward the backlog with a
// grace period. Triggering it again before the deadline restores the
// original Done state exactly.
func (m *Model) reopenRecent() {
	entries := m.collectRecent()
	if m.recentCursor >= len(entries) {
		return
	}
	e := entries[m.recentCursor]
	track := m.sess.Project.Track(e.trackID)
	if track == nil {
		return
	}
	task := ops.FindTask(track, e.taskID)
	if task == nil {
		return
	}

	if _, pending := m.sess.CancelPendingMove(e.trackID, e.taskID); pending {
		// Pop only this task's record; another reopen may sit on top of
		// the stack.
		restored := false
		if op, ok := m.sess.Undo.PeekUndo(); ok {
			if ro, isReopen := op.(session.Reopen); isReopen && ro.TrackID == e.trackID && ro.TaskID == e.taskID {
				m.sess.Undo.Pop()
				task.State = ro.OldState
				task.MarkDirty()
				restored = true
			}
		}
		if !restored {
			task.State = model.Done
			task.MarkDirty()
		}
		m.saveTrack(e.trackID)
		m.status = "reopen cancelled"
		return
	}

	doneIndex := 0
	for i, t := range track.DoneTasks() {
		if t.ID == e.taskID {
			doneIndex = i
			break
		}
	}
	m.sess.Undo.Push(session.Reopen{
		TrackID:     e.trackID,
		TaskID:      e.taskID,
		OldState:    task.State,
		OldResolved: task.Resolved(),
		DoneIndex:   doneIndex,
	})
	// Resolved date stays until the move commits so Done keeps order.
	task.State = model.Todo
	task.MarkDirty()
	m.sess.SchedulePendingMove(session.MoveToBacklog, e.trackID, e.taskID)
	m.saveTrack(e.trackID)
	m.status = fmt.Sprintf("reopening %s", e.taskID)
}

// undo inverts the most recent operation and navigates to its target.
func (m *Model) undo() {
	if op, ok := m.sess.Undo.PeekUndo(); ok {
		if tm, isMove := op.(session.TrackMove); isMove {
			if _, done := m.sess.Undo.Undo(m.sess.Project); done {
				if err := m.applyTrackOrder(tm.TrackID, tm.OldIndex); err != nil {
					m.status = err.Error()
				}
				m.view = viewTracks
				m.tracksCursor = m.trackCursorFor(tm.TrackID)
			}
			return
		}
		// A reopen whose section move has not committed is reverted in
		// place; the record never applied a move to invert.
		if ro, isReopen := op.(session.Reopen); isReopen {
			if _, pending := m.sess.CancelPendingMove(ro.TrackID, ro.TaskID); pending {
				m.sess.Undo.Pop()
				if track := m.sess.Project.Track(ro.TrackID); track != nil {
					if task := ops.FindTask(track, ro.TaskID); task != nil {
						task.State = ro.OldState
						task.MarkDirty()
					}
				}
				m.saveTrack(ro.TrackID)
				m.view = viewRecent
				return
			}
		}
	}
	triageTrack := m.peekTriageTrack(true)
	m.cancelStalePendingMove(true)
	nav, ok := m.sess.Undo.Undo(m.sess.Project)
	if !ok {
		m.status = "nothing to undo"
		return
	}
	if triageTrack != "" {
		m.saveTrack(triageTrack)
		m.saveInbox()
	}
	m.afterUndoRedo(nav)
}

// peekTriageTrack returns the destination track of a triage record on
// top of the stack; applying one in either direction touches that
// track as well as the inbox.
func (m *Model) peekTriageTrack(isUndo bool) string {
	var op session.Operation
	var ok bool
	if isUndo {
		op, ok = m.sess.Undo.PeekUndo()
	} else {
		op, ok = m.sess.Undo.PeekRedo()
	}
	if !ok {
		return ""
	}
	if tr, isTriage := op.(session.InboxTriage); isTriage {
		return tr.TrackID
	}
	return ""
}

// cancelStalePendingMove drops any queued section move for the task a
// state-change record is about to revert or replay. The move was
// scheduled for a state the task is about to leave.
func (m *Model) cancelStalePendingMove(isUndo bool) {
	var op session.Operation
	var ok bool
	if isUndo {
		op, ok = m.sess.Undo.PeekUndo()
	} else {
		op, ok = m.sess.Undo.PeekRedo()
	}
	if !ok {
		return
	}
	if sc, isState := op.(session.StateChange); isState {
		m.sess.CancelPendingMove(sc.TrackID, sc.TaskID)
	}
}

func (m *Model) redo() {
	if op, ok := m.sess.Undo.PeekRedo(); ok {
		if tm, isMove := op.(session.TrackMove); isMove {
			if _, done := m.sess.Undo.Redo(m.sess.Project); done {
				if err := m.applyTrackOrder(tm.TrackID, tm.NewIndex); err != nil {
					m.status = err.Error()
				}
				m.view = viewTracks
				m.tracksCursor = m.trackCursorFor(tm.TrackID)
			}
			return
		}
	}
	triageTrack := m.peekTriageTrack(false)
	m.cancelStalePendingMove(false)
	top, _ := m.sess.Undo.PeekRedo()
	nav, ok := m.sess.Undo.Redo(m.sess.Project)
	if !ok {
		m.status = "nothing to redo"
		return
	}
	if triageTrack != "" {
		m.saveTrack(triageTrack)
		m.saveInbox()
	}
	if sc, isState := top.(session.StateChange); isState {
		m.schedulePendingForState(sc)
	}
	m.afterUndoRedo(nav)
}

// schedulePendingForState re-queues the section move a replayed state
// change implies, the same way the original keypress did.
func (m *Model) schedulePendingForState(sc session.StateChange) {
	track := m.sess.Project.Track(sc.TrackID)
	if track == nil {
		return
	}
	switch {
	case sc.NewState == model.Done && ops.IsTopLevelInSection(track, sc.TaskID, model.SectionBacklog):
		m.sess.SchedulePendingMove(session.MoveToDone, sc.TrackID, sc.TaskID)
	case sc.NewState == model.Parked && ops.IsTopLevelInSection(track, sc.TaskID, model.SectionBacklog):
		m.sess.SchedulePendingMove(session.MoveToParked, sc.TrackID, sc.TaskID)
	case sc.OldState == model.Parked && ops.IsTopLevelInSection(track, sc.TaskID, model.SectionParked):
		m.sess.SchedulePendingMove(session.MoveFromParked, sc.TrackID, sc.TaskID)
	}
}

// afterUndoRedo saves whatever the operation touched and moves the UI
// to the navigation target.
func (m *Model) afterUndoRedo(nav *session.NavTarget) {
	if nav == nil {
		return
	}
	switch nav.Kind {
	case session.NavInbox:
		m.saveInbox()
		m.view = viewInbox
		if nav.Cursor >= 0 {
			m.inboxCursor = nav.Cursor
		}
	case session.NavRecent:
		if nav.TrackID != "" {
			m.saveTrack(nav.TrackID)
		}
		m.view = viewRecent
	case session.NavTracksView:
		m.view = viewTracks
		m.tracksCursor = m.trackCursorFor(nav.TrackID)
	default:
		if nav.TrackID != "" {
			m.saveTrack(nav.TrackID)
			if nav.TrackID != m.activeTrack {
				m.switchTrack(nav.TrackID)
			} else {
				m.view = viewTrack
			}
		}
		if nav.TaskRemoved {
			if nav.PositionHint >= 0 {
				m.cursor = nav.PositionHint
			}
			m.clampCursors()
		} else if idx := m.rowIndexOf(nav.TaskID); idx >= 0 {
			m.cursor = idx
		}
	}
	m.clampCursors()
}

package session

import (
	"strings"
	"time"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// UndoStack is the session's undo/redo log. Undo pops a record, applies
// its inverse to the in-memory project, and moves it to the redo stack;
// redo reapplies it forward. Neither touches the disk.
type UndoStack struct {
	undo []Operation
	redo []Operation
}

// NewUndoStack returns an empty stack.
func NewUndoStack() *UndoStack {
	return &UndoStack{}
}

// Push records an operation. Clears the redo stack.
func (s *UndoStack) Push(op Operation) {
	s.undo = append(s.undo, op)
	s.redo = nil
}

// PushSyncMarker records an external-change boundary. Undo stops here.
func (s *UndoStack) PushSyncMarker() {
	s.Push(SyncMarker{})
}

// Pop discards the most recent operation without applying its inverse.
// Used when a grace-period action is cancelled and the caller has
// already reverted the in-place state.
func (s *UndoStack) Pop() (Operation, bool) {
	if len(s.undo) == 0 {
		return nil, false
	}
	op := s.undo[len(s.undo)-1]
	if _, marker := op.(SyncMarker); marker {
		return nil, false
	}
	s.undo = s.undo[:len(s.undo)-1]
	return op, true
}

// Empty reports whether there is nothing to undo.
func (s *UndoStack) Empty() bool {
	return len(s.undo) == 0
}

// PeekUndo returns the top of the undo stack without popping.
func (s *UndoStack) PeekUndo() (Operation, bool) {
	if len(s.undo) == 0 {
		return nil, false
	}
	return s.undo[len(s.undo)-1], true
}

// PeekRedo returns the top of the redo stack without popping.
func (s *UndoStack) PeekRedo() (Operation, bool) {
	if len(s.redo) == 0 {
		return nil, false
	}
	return s.redo[len(s.redo)-1], true
}

// Undo inverts the most recent operation. Returns the navigation
// target for the UI, or nil with ok=false when there is nothing to
// undo or the top of the stack is a sync marker.
func (s *UndoStack) Undo(p *project.Project) (*NavTarget, bool) {
	if len(s.undo) == 0 {
		return nil, false
	}
	op := s.undo[len(s.undo)-1]
	if _, marker := op.(SyncMarker); marker {
		return nil, false
	}
	s.undo = s.undo[:len(s.undo)-1]

	nav := NavTargetFor(op, true)
	applyInverse(op, p)
	s.redo = append(s.redo, op)
	return nav, true
}

// Redo reapplies the most recently undone operation.
func (s *UndoStack) Redo(p *project.Project) (*NavTarget, bool) {
	if len(s.redo) == 0 {
		return nil, false
	}
	op := s.redo[len(s.redo)-1]
	if _, marker := op.(SyncMarker); marker {
		return nil, false
	}
	s.redo = s.redo[:len(s.redo)-1]

	nav := NavTargetFor(op, false)
	applyForward(op, p)
	s.undo = append(s.undo, op)
	return nav, true
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// removeFromSection detaches a top-level task by ID and returns it.
func removeFromSection(track *model.Track, kind model.SectionKind, taskID string) (*model.Task, int) {
	sec := track.Section(kind)
	if sec == nil {
		return nil, -1
	}
	for i, t := range sec.Tasks {
		if t.ID == taskID {
			sec.Tasks = append(sec.Tasks[:i], sec.Tasks[i+1:]...)
			return t, i
		}
	}
	return nil, -1
}

func insertIntoSection(track *model.Track, kind model.SectionKind, task *model.Task, index int) {
	sec := track.EnsureSection(kind)
	if index < 0 || index > len(sec.Tasks) {
		index = len(sec.Tasks)
	}
	sec.Tasks = append(sec.Tasks, nil)
	copy(sec.Tasks[index+1:], sec.Tasks[index:])
	sec.Tasks[index] = task
}

func setResolvedMeta(task *model.Task, date string) {
	task.RemoveResolved()
	if date != "" {
		task.SetResolved(date)
	}
}

func applyInverse(op Operation, p *project.Project) {
	switch o := op.(type) {
	case StateChange:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task := ops.FindTask(track, o.TaskID); task != nil {
			task.State = o.OldState
			task.MarkDirty()
			setResolvedMeta(task, o.OldResolved)
		}

	case TitleEdit:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task := ops.FindTask(track, o.TaskID); task != nil {
			task.Title = o.OldTitle
			task.MarkDirty()
		}

	case TaskAdd:
		if track := p.Track(o.TrackID); track != nil {
			removeFromSection(track, model.SectionBacklog, o.TaskID)
		}

	case SubtaskAdd:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		parent := ops.FindTask(track, o.ParentID)
		if parent == nil {
			return
		}
		kept := parent.Subtasks[:0]
		for _, sub := range parent.Subtasks {
			if sub.ID != o.TaskID {
				kept = append(kept, sub)
			}
		}
		parent.Subtasks = kept
		parent.MarkDirty()

	case TaskMove:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task, _ := removeFromSection(track, model.SectionBacklog, o.TaskID); task != nil {
			insertIntoSection(track, model.SectionBacklog, task, o.OldIndex)
		}

	case SectionMove:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task, _ := removeFromSection(track, o.To, o.TaskID); task != nil {
			insertIntoSection(track, o.From, task, o.FromIndex)
		}

	case FieldEdit:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task := ops.FindTask(track, o.TaskID); task != nil {
			applyFieldValue(task, o.Field, o.OldValue)
		}

	case TrackMove:
		// Config reorder is applied by the caller.

	case InboxAdd:
		if p.Inbox != nil && o.Index < len(p.Inbox.Items) {
			p.Inbox.Items = append(p.Inbox.Items[:o.Index], p.Inbox.Items[o.Index+1:]...)
		}

	case InboxDelete:
		if p.Inbox != nil {
			insertInboxItem(p.Inbox, o.Item, o.Index)
		}

	case InboxTitleEdit:
		if item := inboxItem(p, o.Index); item != nil {
			item.Title = o.OldTitle
			item.MarkDirty()
		}

	case InboxTagsEdit:
		if item := inboxItem(p, o.Index); item != nil {
			item.Tags = append([]string(nil), o.OldTags...)
			item.MarkDirty()
		}

	case InboxMove:
		moveInboxItem(p, o.NewIndex, o.OldIndex)

	case InboxTriage:
		if track := p.Track(o.TrackID); track != nil {
			removeFromSection(track, model.SectionBacklog, o.TaskID)
		}
		if p.Inbox != nil {
			insertInboxItem(p.Inbox, o.Item, o.InboxIndex)
		}

	case Reopen:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		task, _ := removeFromSection(track, model.SectionBacklog, o.TaskID)
		if task == nil {
			return
		}
		task.State = o.OldState
		setResolvedMeta(task, o.OldResolved)
		task.MarkDirty()
		insertIntoSection(track, model.SectionDone, task, o.DoneIndex)
	}
}

func applyForward(op Operation, p *project.Project) {
	switch o := op.(type) {
	case StateChange:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task := ops.FindTask(track, o.TaskID); task != nil {
			task.State = o.NewState
			task.MarkDirty()
			setResolvedMeta(task, o.NewResolved)
		}

	case TitleEdit:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task := ops.FindTask(track, o.TaskID); task != nil {
			task.Title = o.NewTitle
			task.MarkDirty()
		}

	case TaskAdd:
		// The original task object was discarded by undo; recreate a
		// bare task under the same ID.
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		task := model.NewTask(model.Todo, "")
		task.ID = o.TaskID
		task.Meta = append(task.Meta, model.Meta{Kind: model.MetaAdded, Text: today()})
		insertIntoSection(track, model.SectionBacklog, task, o.PositionIndex)

	case SubtaskAdd:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		parent := ops.FindTask(track, o.ParentID)
		if parent == nil {
			return
		}
		sub := model.NewTask(model.Todo, "")
		sub.ID = o.TaskID
		sub.Depth = parent.Depth + 1
		sub.Meta = append(sub.Meta, model.Meta{Kind: model.MetaAdded, Text: today()})
		parent.Subtasks = append(parent.Subtasks, sub)
		parent.MarkDirty()

	case TaskMove:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task, _ := removeFromSection(track, model.SectionBacklog, o.TaskID); task != nil {
			insertIntoSection(track, model.SectionBacklog, task, o.NewIndex)
		}

	case SectionMove:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task, _ := removeFromSection(track, o.From, o.TaskID); task != nil {
			insertIntoSection(track, o.To, task, 0)
		}

	case FieldEdit:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		if task := ops.FindTask(track, o.TaskID); task != nil {
			applyFieldValue(task, o.Field, o.NewValue)
		}

	case TrackMove:
		// Config reorder is applied by the caller.

	case InboxAdd:
		if p.Inbox != nil {
			insertInboxItem(p.Inbox, model.NewInboxItem("", nil, nil), o.Index)
		}

	case InboxDelete:
		if p.Inbox != nil && o.Index < len(p.Inbox.Items) {
			p.Inbox.Items = append(p.Inbox.Items[:o.Index], p.Inbox.Items[o.Index+1:]...)
		}

	case InboxTitleEdit:
		if item := inboxItem(p, o.Index); item != nil {
			item.Title = o.NewTitle
			item.MarkDirty()
		}

	case InboxTagsEdit:
		if item := inboxItem(p, o.Index); item != nil {
			item.Tags = append([]string(nil), o.NewTags...)
			item.MarkDirty()
		}

	case InboxMove:
		moveInboxItem(p, o.OldIndex, o.NewIndex)

	case InboxTriage:
		if p.Inbox != nil && o.InboxIndex < len(p.Inbox.Items) {
			p.Inbox.Items = append(p.Inbox.Items[:o.InboxIndex], p.Inbox.Items[o.InboxIndex+1:]...)
		}
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		task := model.NewTask(model.Todo, o.Item.Title)
		task.ID = o.TaskID
		task.Tags = append([]string(nil), o.Item.Tags...)
		task.Meta = append(task.Meta, model.Meta{Kind: model.MetaAdded, Text: today()})
		if body := strings.Join(o.Item.Body, "\n"); body != "" {
			task.Meta = append(task.Meta, model.Meta{Kind: model.MetaNote, Text: body})
		}
		sec := track.EnsureSection(model.SectionBacklog)
		sec.Tasks = append(sec.Tasks, task)

	case Reopen:
		track := p.Track(o.TrackID)
		if track == nil {
			return
		}
		task, _ := removeFromSection(track, model.SectionDone, o.TaskID)
		if task == nil {
			return
		}
		task.State = model.Todo
		task.RemoveResolved()
		task.MarkDirty()
		insertIntoSection(track, model.SectionBacklog, task, 0)
	}
}

// applyFieldValue writes a serialized field value back onto a task.
func applyFieldValue(task *model.Task, field, value string) {
	removeAll := func(kind model.MetaKind) {
		kept := task.Meta[:0]
		for _, m := range task.Meta {
			if m.Kind != kind {
				kept = append(kept, m)
			}
		}
		task.Meta = kept
	}

	switch field {
	case "tags":
		var tags []string
		for _, f := range strings.Fields(value) {
			if tag := strings.TrimPrefix(f, "#"); tag != "" {
				tags = append(tags, tag)
			}
		}
		task.Tags = tags
		task.MarkDirty()
	case "deps":
		removeAll(model.MetaDep)
		var deps []string
		for _, f := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		}) {
			if f = strings.TrimSpace(f); f != "" {
				deps = append(deps, f)
			}
		}
		if len(deps) > 0 {
			task.Meta = append(task.Meta, model.Meta{Kind: model.MetaDep, List: deps})
		}
		task.MarkDirty()
	case "spec":
		removeAll(model.MetaSpec)
		if v := strings.TrimSpace(value); v != "" {
			task.Meta = append(task.Meta, model.Meta{Kind: model.MetaSpec, Text: v})
		}
		task.MarkDirty()
	case "refs":
		removeAll(model.MetaRef)
		var refs []string
		for _, f := range strings.Split(value, ",") {
			if f = strings.TrimSpace(f); f != "" {
				refs = append(refs, f)
			}
		}
		if len(refs) > 0 {
			task.Meta = append(task.Meta, model.Meta{Kind: model.MetaRef, List: refs})
		}
		task.MarkDirty()
	case "note":
		removeAll(model.MetaNote)
		if value != "" {
			task.Meta = append(task.Meta, model.Meta{Kind: model.MetaNote, Text: value})
		}
		task.MarkDirty()
	}
}

func inboxItem(p *project.Project, index int) *model.InboxItem {
	if p.Inbox == nil || index < 0 || index >= len(p.Inbox.Items) {
		return nil
	}
	return p.Inbox.Items[index]
}

func insertInboxItem(inbox *model.Inbox, item *model.InboxItem, index int) {
	if index < 0 || index > len(inbox.Items) {
		index = len(inbox.Items)
	}
	inbox.Items = append(inbox.Items, nil)
	copy(inbox.Items[index+1:], inbox.Items[index:])
	inbox.Items[index] = item
}

func moveInboxItem(p *project.Project, from, to int) {
	if p.Inbox == nil || from < 0 || from >= len(p.Inbox.Items) {
		return
	}
	item := p.Inbox.Items[from]
	p.Inbox.Items = append(p.Inbox.Items[:from], p.Inbox.Items[from+1:]...)
	insertInboxItem(p.Inbox, item, to)
}

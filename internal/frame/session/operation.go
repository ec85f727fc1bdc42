// Package session coordinates an interactive editing session: the
// undo/redo log, grace-period section moves, conflict detection against
// external file changes, and locked saves.
package session

import (
	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// Operation is one reversible edit recorded on the undo stack. Each
// record carries enough prior state to invert itself exactly.
type Operation interface {
	isOperation()
}

// StateChange records a task state transition, including the resolved
// date it added or removed.
type StateChange struct {
	TrackID     string
	TaskID      string
	OldState    model.TaskState
	NewState    model.TaskState
	OldResolved string
	NewResolved string
}

// TitleEdit records a task retitle.
type TitleEdit struct {
	TrackID  string
	TaskID   string
	OldTitle string
	NewTitle string
}

// TaskAdd records a new task and where it was inserted in the Backlog.
type TaskAdd struct {
	TrackID       string
	TaskID        string
	PositionIndex int
}

// SubtaskAdd records a new subtask under a parent.
type SubtaskAdd struct {
	TrackID  string
	ParentID string
	TaskID   string
}

// TaskMove records a reorder within the Backlog.
type TaskMove struct {
	TrackID  string
	TaskID   string
	OldIndex int
	NewIndex int
}

// SectionMove records a task relocation between sections, typically
// committed by an expired grace-period move.
type SectionMove struct {
	TrackID   string
	TaskID    string
	From      model.SectionKind
	To        model.SectionKind
	FromIndex int
}

// FieldEdit records an edit to a detail field: "tags", "deps", "spec",
// "refs" or "note". Values are the field's serialized text form.
type FieldEdit struct {
	TrackID  string
	TaskID   string
	Field    string
	OldValue string
	NewValue string
}

// TrackMove records a track reorder in the tracks list. The config
// reorder itself is applied by the caller, which can inspect the
// record via PeekUndo/PeekRedo.
type TrackMove struct {
	TrackID  string
	OldIndex int
	NewIndex int
}

// InboxAdd records a new inbox item at Index.
type InboxAdd struct {
	Index int
}

// InboxDelete records a deleted inbox item with its full content.
type InboxDelete struct {
	Index int
	Item  *model.InboxItem
}

// InboxTitleEdit records an inbox item retitle.
type InboxTitleEdit struct {
	Index    int
	OldTitle string
	NewTitle string
}

// InboxTagsEdit records an inbox item's tag change.
type InboxTagsEdit struct {
	Index   int
	OldTags []string
	NewTags []string
}

// InboxMove records an inbox reorder.
type InboxMove struct {
	OldIndex int
	NewIndex int
}

// InboxTriage records an item promoted out of the inbox into a track.
type InboxTriage struct {
	InboxIndex int
	Item       *model.InboxItem
	TrackID    string
	TaskID     string
}

// Reopen records a completed task pulled back from Done into the
// Backlog, keeping its exact Done index so undo restores position.
type Reopen struct {
	TrackID     string
	TaskID      string
	OldState    model.TaskState
	OldResolved string
	DoneIndex   int
}

// SyncMarker is pushed after an external file change is absorbed; undo
// cannot cross it.
type SyncMarker struct{}

func (StateChange) isOperation()    {}
func (TitleEdit) isOperation()      {}
func (TaskAdd) isOperation()        {}
func (SubtaskAdd) isOperation()     {}
func (TaskMove) isOperation()       {}
func (SectionMove) isOperation()    {}
func (FieldEdit) isOperation()      {}
func (TrackMove) isOperation()      {}
func (InboxAdd) isOperation()       {}
func (InboxDelete) isOperation()    {}
func (InboxTitleEdit) isOperation() {}
func (InboxTagsEdit) isOperation()  {}
func (InboxMove) isOperation()      {}
func (InboxTriage) isOperation()    {}
func (Reopen) isOperation()         {}
func (SyncMarker) isOperation()     {}

// NavKind says which view an undo/redo should land in.
type NavKind int

const (
	NavTask NavKind = iota
	NavTracksView
	NavInbox
	NavRecent
)

// NavTarget tells the UI where to navigate after undo or redo.
type NavTarget struct {
	Kind    NavKind
	TrackID string
	TaskID  string
	// DetailRegion is "note", "deps", "spec" or "refs" when the target
	// should open in the detail view, "" otherwise.
	DetailRegion string
	// TaskRemoved is set when the navigation target no longer exists
	// (undo of an add); PositionHint is the cursor fallback.
	TaskRemoved  bool
	PositionHint int
	// Cursor is the inbox or recent-view cursor, -1 when unspecified.
	Cursor int
}

func taskNav(trackID, taskID string) *NavTarget {
	return &NavTarget{Kind: NavTask, TrackID: trackID, TaskID: taskID, PositionHint: -1, Cursor: -1}
}

func inboxNav(cursor int) *NavTarget {
	return &NavTarget{Kind: NavInbox, Cursor: cursor, PositionHint: -1}
}

// NavTargetFor derives the navigation target for an operation on undo
// or redo. Returns nil when there is nowhere to go.
func NavTargetFor(op Operation, isUndo bool) *NavTarget {
	switch o := op.(type) {
	case StateChange:
		return taskNav(o.TrackID, o.TaskID)
	case TitleEdit:
		return taskNav(o.TrackID, o.TaskID)
	case TaskMove:
		return taskNav(o.TrackID, o.TaskID)
	case SectionMove:
		return taskNav(o.TrackID, o.TaskID)
	case TaskAdd:
		nav := taskNav(o.TrackID, o.TaskID)
		if isUndo {
			nav.TaskRemoved = true
			nav.PositionHint = o.PositionIndex
		}
		return nav
	case SubtaskAdd:
		if isUndo {
			return taskNav(o.TrackID, o.ParentID)
		}
		return taskNav(o.TrackID, o.TaskID)
	case FieldEdit:
		nav := taskNav(o.TrackID, o.TaskID)
		switch o.Field {
		case "note", "deps", "spec", "refs":
			nav.DetailRegion = o.Field
		}
		return nav
	case TrackMove:
		return &NavTarget{Kind: NavTracksView, TrackID: o.TrackID, PositionHint: -1, Cursor: -1}
	case InboxAdd:
		if isUndo {
			return inboxNav(max(o.Index-1, 0))
		}
		return inboxNav(o.Index)
	case InboxDelete:
		if isUndo {
			return inboxNav(o.Index)
		}
		return inboxNav(max(o.Index-1, 0))
	case InboxTitleEdit:
		return inboxNav(o.Index)
	case InboxTagsEdit:
		return inboxNav(o.Index)
	case InboxMove:
		if isUndo {
			return inboxNav(o.OldIndex)
		}
		return inboxNav(o.NewIndex)
	case InboxTriage:
		if isUndo {
			return inboxNav(o.InboxIndex)
		}
		return taskNav(o.TrackID, o.TaskID)
	case Reopen:
		if isUndo {
			return &NavTarget{Kind: NavRecent, PositionHint: -1, Cursor: -1}
		}
		return taskNav(o.TrackID, o.TaskID)
	}
	return nil
}

// Package ops implements the mutation layer over the parsed model.
// Every operation validates its preconditions before touching anything,
// so a failed call leaves the documents exactly as they were.
package ops

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
)

var (
	ErrNotFound        = errors.New("task not found")
	ErrNoPrefix        = errors.New("no ID prefix configured for track")
	ErrMaxDepth        = errors.New("maximum nesting depth (3) reached")
	ErrInvalidPosition = errors.New("invalid position")
	ErrCycle           = errors.New("reparenting would create a cycle")
	ErrAlreadyTopLevel = errors.New("task is already top-level")
	ErrDepthExceeded   = errors.New("reparenting would exceed maximum nesting depth (3)")
)

// TaskLocation identifies where a task sits in a track tree.
type TaskLocation struct {
	Section      model.SectionKind
	ParentID     string // empty for top-level tasks
	SiblingIndex int
}

// ReparentResult reports what a reparent changed, for undo.
type ReparentResult struct {
	NewRootID   string
	IDMappings  [][2]string // old -> new
	OldLocation TaskLocation
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// ---------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------

// CycleState advances todo -> active -> done -> todo. Blocked and parked
// cycle back to todo.
func CycleState(task *model.Task) {
	var next model.TaskState
	switch task.State {
	case model.Todo:
		next = model.Active
	case model.Active:
		next = model.Done
	default:
		next = model.Todo
	}
	SetState(task, next)
}

// ToggleBlocked sets blocked, or back to todo if already blocked.
func ToggleBlocked(task *model.Task) {
	if task.State == model.Blocked {
		SetState(task, model.Todo)
	} else {
		SetState(task, model.Blocked)
	}
}

// ToggleParked sets parked, or back to todo if already parked.
func ToggleParked(task *model.Task) {
	if task.State == model.Parked {
		SetState(task, model.Todo)
	} else {
		SetState(task, model.Parked)
	}
}

// SetDone marks the task done and stamps the resolved date.
func SetDone(task *model.Task) {
	SetState(task, model.Done)
}

// SetState sets the state directly, handling resolved-date bookkeeping.
// Setting the current state is a no-op.
func SetState(task *model.Task, newState model.TaskState) {
	if task.State == newState {
		return
	}
	wasDone := task.State == model.Done
	task.State = newState
	task.MarkDirty()

	if newState == model.Done {
		removeMeta(task, model.MetaResolved)
		task.Meta = append(task.Meta, model.Meta{Kind: model.MetaResolved, Text: today()})
	} else if wasDone {
		removeMeta(task, model.MetaResolved)
	}
}

// ---------------------------------------------------------------------
// Task CRUD
// ---------------------------------------------------------------------

// InsertKind selects where in a section a task lands.
type InsertKind int

const (
	InsertBottom InsertKind = iota
	InsertTop
	InsertAfter
)

// InsertPosition is a section insertion point.
type InsertPosition struct {
	Kind    InsertKind
	AfterID string
}

// AtBottom appends to the end of the section.
func AtBottom() InsertPosition { return InsertPosition{Kind: InsertBottom} }

// AtTop prepends to the start of the section.
func AtTop() InsertPosition { return InsertPosition{Kind: InsertTop} }

// After inserts after the task with the given ID.
func After(id string) InsertPosition { return InsertPosition{Kind: InsertAfter, AfterID: id} }

// AddTask adds a task to the track's backlog and returns the assigned
// ID. Trailing #tags in the title become tags.
func AddTask(track *model.Track, title string, position InsertPosition, prefix string) (string, error) {
	id := fmt.Sprintf("%s-%03d", prefix, NextIDNumber(track, prefix))

	parsedTitle, tags := parse.ParseTitleAndTags(title)
	task := model.NewTask(model.Todo, parsedTitle)
	task.ID = id
	task.Tags = tags
	task.Meta = append(task.Meta, model.Meta{Kind: model.MetaAdded, Text: today()})

	sec := track.Section(model.SectionBacklog)
	if sec == nil {
		return "", fmt.Errorf("%w: no backlog section", ErrInvalidPosition)
	}
	if err := insertAt(&sec.Tasks, task, position); err != nil {
		return "", err
	}
	return id, nil
}

// AddSubtask appends a subtask under parentID and returns the new ID.
func AddSubtask(track *model.Track, parentID, title string) (string, error) {
	return addSubtask(track, parentID, "", title)
}

// AddSubtaskAfter inserts a subtask after a specific sibling.
func AddSubtaskAfter(track *model.Track, parentID, afterSiblingID, title string) (string, error) {
	return addSubtask(track, parentID, afterSiblingID, title)
}

func addSubtask(track *model.Track, parentID, afterSiblingID, title string) (string, error) {
	parent := FindTask(track, parentID)
	if parent == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, parentID)
	}
	if parent.Depth >= 2 {
		return "", ErrMaxDepth
	}

	subID := fmt.Sprintf("%s.%d", parentID, nextChildNumber(parent))
	parsedTitle, tags := parse.ParseTitleAndTags(title)
	sub := model.NewTask(model.Todo, parsedTitle)
	sub.ID = subID
	sub.Tags = tags
	sub.Depth = parent.Depth + 1
	sub.Meta = append(sub.Meta, model.Meta{Kind: model.MetaAdded, Text: today()})

	insertIdx := len(parent.Subtasks)
	if afterSiblingID != "" {
		for i, t := range parent.Subtasks {
			if t.ID == afterSiblingID {
				insertIdx = i + 1
				break
			}
		}
	}
	parent.Subtasks = append(parent.Subtasks, nil)
	copy(parent.Subtasks[insertIdx+1:], parent.Subtasks[insertIdx:])
	parent.Subtasks[insertIdx] = sub
	parent.MarkDirty()

	return subID, nil
}

// EditTitle replaces a task's title. Trailing #tags in the new title are
// merged into the existing tag set.
func EditTitle(track *model.Track, taskID, newTitle string) error {
	parsedTitle, newTags := parse.ParseTitleAndTags(newTitle)
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	task.Title = parsedTitle
	for _, tag := range newTags {
		if !task.HasTag(tag) {
			task.Tags = append(task.Tags, tag)
		}
	}
	task.MarkDirty()
	return nil
}

// DeleteTask soft-deletes: marks the task done and tags it #wontdo.
func DeleteTask(track *model.Track, taskID string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	SetDone(task)
	if !task.HasTag("wontdo") {
		task.Tags = append(task.Tags, "wontdo")
	}
	task.MarkDirty()
	return nil
}

// ---------------------------------------------------------------------
// Metadata operations
// ---------------------------------------------------------------------

// AddTag adds a tag (leading '#' tolerated).
func AddTag(track *model.Track, taskID, tag string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	tag = strings.TrimPrefix(tag, "#")
	if !task.HasTag(tag) {
		task.Tags = append(task.Tags, tag)
		task.MarkDirty()
	}
	return nil
}

// RemoveTag removes a tag if present.
func RemoveTag(track *model.Track, taskID, tag string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	tag = strings.TrimPrefix(tag, "#")
	kept := task.Tags[:0]
	for _, t := range task.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	if len(kept) != len(task.Tags) {
		task.Tags = kept
		task.MarkDirty()
	}
	return nil
}

// AddDep adds a dependency after validating that the target exists
// somewhere in allTracks.
func AddDep(track *model.Track, taskID, depID string, allTracks []TrackEntry) error {
	if !taskIDExists(depID, allTracks) {
		return fmt.Errorf("%w: dep target %s", ErrNotFound, depID)
	}
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}

	for i := range task.Meta {
		if task.Meta[i].Kind == model.MetaDep {
			for _, d := range task.Meta[i].List {
				if d == depID {
					return nil
				}
			}
			task.Meta[i].List = append(task.Meta[i].List, depID)
			task.MarkDirty()
			return nil
		}
	}
	task.Meta = append(task.Meta, model.Meta{Kind: model.MetaDep, List: []string{depID}})
	task.MarkDirty()
	return nil
}

// RemoveDep removes a dependency; emptied dep entries are dropped.
func RemoveDep(track *model.Track, taskID, depID string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}

	changed := false
	for i := range task.Meta {
		if task.Meta[i].Kind != model.MetaDep {
			continue
		}
		kept := task.Meta[i].List[:0]
		for _, d := range task.Meta[i].List {
			if d != depID {
				kept = append(kept, d)
			}
		}
		if len(kept) != len(task.Meta[i].List) {
			changed = true
		}
		task.Meta[i].List = kept
	}
	keptMeta := task.Meta[:0]
	for _, m := range task.Meta {
		if m.Kind == model.MetaDep && len(m.List) == 0 {
			continue
		}
		keptMeta = append(keptMeta, m)
	}
	task.Meta = keptMeta

	if changed {
		task.MarkDirty()
	}
	return nil
}

// SetNote replaces the task's note; an empty note removes it.
func SetNote(track *model.Track, taskID, noteText string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	removeMeta(task, model.MetaNote)
	if noteText != "" {
		task.Meta = append(task.Meta, model.Meta{Kind: model.MetaNote, Text: noteText})
	}
	task.MarkDirty()
	return nil
}

// AppendNote appends to the task's note, separated by a blank line.
func AppendNote(track *model.Track, taskID, noteText string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	newNote := noteText
	if old := task.Note(); old != "" {
		newNote = old + "\n\n" + noteText
	}
	removeMeta(task, model.MetaNote)
	if newNote != "" {
		task.Meta = append(task.Meta, model.Meta{Kind: model.MetaNote, Text: newNote})
	}
	task.MarkDirty()
	return nil
}

// AddRef adds a file reference.
func AddRef(track *model.Track, taskID, path string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	for i := range task.Meta {
		if task.Meta[i].Kind == model.MetaRef {
			for _, r := range task.Meta[i].List {
				if r == path {
					return nil
				}
			}
			task.Meta[i].List = append(task.Meta[i].List, path)
			task.MarkDirty()
			return nil
		}
	}
	task.Meta = append(task.Meta, model.Meta{Kind: model.MetaRef, List: []string{path}})
	task.MarkDirty()
	return nil
}

// SetSpec replaces the task's spec reference.
func SetSpec(track *model.Track, taskID, spec string) error {
	task := FindTask(track, taskID)
	if task == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	removeMeta(task, model.MetaSpec)
	task.Meta = append(task.Meta, model.Meta{Kind: model.MetaSpec, Text: spec})
	task.MarkDirty()
	return nil
}

// ---------------------------------------------------------------------
// Move operations
// ---------------------------------------------------------------------

// TrackEntry pairs a track ID with its parsed document, preserving
// config order.
type TrackEntry struct {
	ID    string
	Track *model.Track
}

// MoveTask reorders a top-level task within the track's backlog.
func MoveTask(track *model.Track, taskID string, position InsertPosition) error {
	sec := track.Section(model.SectionBacklog)
	if sec == nil {
		return fmt.Errorf("%w: no backlog section", ErrInvalidPosition)
	}
	idx := -1
	for i, t := range sec.Tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	// The target is checked before the task leaves the list; a failed
	// move must not change the backlog.
	if err := validateInsertTarget(sec.Tasks, position, taskID); err != nil {
		return err
	}
	task := sec.Tasks[idx]
	sec.Tasks = append(sec.Tasks[:idx], sec.Tasks[idx+1:]...)
	return insertAt(&sec.Tasks, task, position)
}

// MoveTaskToTrack moves a top-level task to another track's backlog,
// reassigning its ID from the target prefix, renumbering subtasks, and
// rewriting dependency references everywhere. Returns the new ID.
func MoveTaskToTrack(source, target *model.Track, taskID string, position InsertPosition, targetPrefix string, allTracks []TrackEntry) (string, error) {
	srcSec := source.Section(model.SectionBacklog)
	if srcSec == nil {
		return "", fmt.Errorf("%w: no backlog section in source", ErrInvalidPosition)
	}
	idx := -1
	for i, t := range srcSec.Tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	tgtSec := target.Section(model.SectionBacklog)
	if tgtSec == nil {
		return "", fmt.Errorf("%w: no backlog section in target", ErrInvalidPosition)
	}
	// All preconditions hold before the task is touched; a failed move
	// must leave both tracks and the task's ID unchanged.
	if err := validateInsertTarget(tgtSec.Tasks, position, ""); err != nil {
		return "", err
	}

	task := srcSec.Tasks[idx]
	srcSec.Tasks = append(srcSec.Tasks[:idx], srcSec.Tasks[idx+1:]...)

	newID := fmt.Sprintf("%s-%03d", targetPrefix, NextIDNumber(target, targetPrefix))
	oldID := task.ID
	task.ID = newID
	task.MarkDirty()
	RenumberSubtasks(task, newID)

	if err := insertAt(&tgtSec.Tasks, task, position); err != nil {
		return "", err
	}

	if oldID != "" {
		UpdateDepReferences(allTracks, oldID, newID)
	}
	return newID, nil
}

// MoveTaskBetweenSections moves a top-level task with its subtree to the
// top of another section, creating the section if needed. It returns the
// task's index in the source section, or -1 if the task is not top-level
// there.
func MoveTaskBetweenSections(track *model.Track, taskID string, from, to model.SectionKind) int {
	src := track.Section(from)
	if src == nil {
		return -1
	}
	idx := -1
	for i, t := range src.Tasks {
		if t.ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1
	}
	task := src.Tasks[idx]
	src.Tasks = append(src.Tasks[:idx], src.Tasks[idx+1:]...)

	dest := track.EnsureSection(to)
	dest.Tasks = append([]*model.Task{task}, dest.Tasks...)
	return idx
}

// IsTopLevelInSection reports whether taskID is a direct child of a
// section.
func IsTopLevelInSection(track *model.Track, taskID string, section model.SectionKind) bool {
	for _, t := range track.SectionTasks(section) {
		if t.ID == taskID {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------
// Lookup helpers
// ---------------------------------------------------------------------

func removeMeta(task *model.Task, kind model.MetaKind) {
	kept := task.Meta[:0]
	for _, m := range task.Meta {
		if m.Kind != kind {
			kept = append(kept, m)
		}
	}
	task.Meta = kept
}

// NextIDNumber returns max numeric suffix under prefix, plus one.
func NextIDNumber(track *model.Track, prefix string) int {
	max := 0
	FindMaxIDInTrack(track, prefix+"-", &max)
	return max + 1
}

// FindMaxIDInTrack scans every task for IDs like "T-017" under the given
// "T-" prefix and raises max to the highest number seen. Subtask IDs
// count through their top-level component.
func FindMaxIDInTrack(track *model.Track, prefixDash string, max *int) {
	track.WalkTasks(func(task *model.Task) {
		numStr, ok := strings.CutPrefix(task.ID, prefixDash)
		if !ok {
			return
		}
		numPart, _, _ := strings.Cut(numStr, ".")
		if n, err := strconv.Atoi(numPart); err == nil && n > *max {
			*max = n
		}
	})
}

// validateInsertTarget checks an insert-after target against a list
// that has not been mutated yet. skipID excludes the task being moved,
// which will no longer be in the list when the insert happens.
func validateInsertTarget(tasks []*model.Task, position InsertPosition, skipID string) error {
	if position.Kind != InsertAfter {
		return nil
	}
	for _, t := range tasks {
		if skipID != "" && t.ID == skipID {
			continue
		}
		if t.ID == position.AfterID {
			return nil
		}
	}
	return fmt.Errorf("%w: after target %s", ErrNotFound, position.AfterID)
}

func insertAt(tasks *[]*model.Task, task *model.Task, position InsertPosition) error {
	switch position.Kind {
	case InsertBottom:
		*tasks = append(*tasks, task)
	case InsertTop:
		*tasks = append([]*model.Task{task}, *tasks...)
	case InsertAfter:
		idx := -1
		for i, t := range *tasks {
			if t.ID == position.AfterID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: after target %s", ErrNotFound, position.AfterID)
		}
		*tasks = append(*tasks, nil)
		copy((*tasks)[idx+2:], (*tasks)[idx+1:])
		(*tasks)[idx+1] = task
	}
	return nil
}

// FindTask finds a task by ID anywhere in a track, including subtasks.
func FindTask(track *model.Track, taskID string) *model.Task {
	for _, n := range track.Nodes {
		if sec, ok := n.(*model.Section); ok {
			if t := findTaskInList(sec.Tasks, taskID); t != nil {
				return t
			}
		}
	}
	return nil
}

func findTaskInList(tasks []*model.Task, taskID string) *model.Task {
	for _, task := range tasks {
		if task.ID == taskID {
			return task
		}
		if t := findTaskInList(task.Subtasks, taskID); t != nil {
			return t
		}
	}
	return nil
}

// FindTaskAnyTrack finds a task and its track across all tracks.
func FindTaskAnyTrack(tracks []TrackEntry, taskID string) (*model.Task, string) {
	for _, entry := range tracks {
		if t := FindTask(entry.Track, taskID); t != nil {
			return t, entry.ID
		}
	}
	return nil, ""
}

func taskIDExists(taskID string, allTracks []TrackEntry) bool {
	t, _ := FindTaskAnyTrack(allTracks, taskID)
	return t != nil
}

// RenumberSubtasks reassigns subtask IDs positionally under a new
// parent ID.
func RenumberSubtasks(task *model.Task, parentID string) {
	for i, sub := range task.Subtasks {
		newSubID := fmt.Sprintf("%s.%d", parentID, i+1)
		sub.ID = newSubID
		sub.MarkDirty()
		RenumberSubtasks(sub, newSubID)
	}
}

// UpdateDepReferences rewrites dep entries from oldID to newID across
// all tracks.
func UpdateDepReferences(tracks []TrackEntry, oldID, newID string) {
	for _, entry := range tracks {
		UpdateDepReferencesInTrack(entry.Track, oldID, newID)
	}
}

// UpdateDepReferencesInTrack rewrites dep entries within one track.
func UpdateDepReferencesInTrack(track *model.Track, oldID, newID string) {
	track.WalkTasks(func(task *model.Task) {
		changed := false
		for i := range task.Meta {
			if task.Meta[i].Kind != model.MetaDep {
				continue
			}
			for j, d := range task.Meta[i].List {
				if d == oldID {
					task.Meta[i].List[j] = newID
					changed = true
				}
			}
		}
		if changed {
			task.MarkDirty()
		}
	})
}

// ---------------------------------------------------------------------
// Reparenting
// ---------------------------------------------------------------------

// FindTaskLocation locates a task within one section of a track.
func FindTaskLocation(track *model.Track, taskID string, section model.SectionKind) (TaskLocation, bool) {
	tasks := track.SectionTasks(section)
	for i, task := range tasks {
		if task.ID == taskID {
			return TaskLocation{Section: section, SiblingIndex: i}, true
		}
		if loc, ok := findInSubtasks(task, taskID, section); ok {
			return loc, true
		}
	}
	return TaskLocation{}, false
}

func findInSubtasks(parent *model.Task, taskID string, section model.SectionKind) (TaskLocation, bool) {
	if parent.ID == "" {
		return TaskLocation{}, false
	}
	for i, sub := range parent.Subtasks {
		if sub.ID == taskID {
			return TaskLocation{Section: section, ParentID: parent.ID, SiblingIndex: i}, true
		}
		if loc, ok := findInSubtasks(sub, taskID, section); ok {
			return loc, true
		}
	}
	return TaskLocation{}, false
}

// FindTaskLocationAnySection locates a task in any section.
func FindTaskLocationAnySection(track *model.Track, taskID string) (TaskLocation, bool) {
	for _, kind := range []model.SectionKind{model.SectionBacklog, model.SectionParked, model.SectionDone} {
		if loc, ok := FindTaskLocation(track, taskID, kind); ok {
			return loc, true
		}
	}
	return TaskLocation{}, false
}

// RemoveTaskSubtree detaches a task with its subtree and reports where
// it was.
func RemoveTaskSubtree(track *model.Track, taskID string) (*model.Task, TaskLocation, bool) {
	for _, n := range track.Nodes {
		sec, ok := n.(*model.Section)
		if !ok {
			continue
		}
		if task, loc, found := removeFromList(&sec.Tasks, taskID, sec.Kind, ""); found {
			return task, loc, true
		}
	}
	return nil, TaskLocation{}, false
}

func removeFromList(tasks *[]*model.Task, taskID string, section model.SectionKind, parentID string) (*model.Task, TaskLocation, bool) {
	for i, t := range *tasks {
		if t.ID == taskID {
			*tasks = append((*tasks)[:i], (*tasks)[i+1:]...)
			return t, TaskLocation{Section: section, ParentID: parentID, SiblingIndex: i}, true
		}
		if t.ID == "" {
			continue
		}
		if task, loc, found := removeFromList(&t.Subtasks, taskID, section, t.ID); found {
			t.MarkDirty()
			return task, loc, true
		}
	}
	return nil, TaskLocation{}, false
}

// InsertTaskSubtree inserts a detached subtree at a specific location.
// An index past the end appends.
func InsertTaskSubtree(track *model.Track, task *model.Task, parentID string, section model.SectionKind, index int) error {
	task.MarkDirty()
	if parentID == "" {
		sec := track.Section(section)
		if sec == nil {
			return fmt.Errorf("%w: no such section", ErrInvalidPosition)
		}
		if index > len(sec.Tasks) {
			index = len(sec.Tasks)
		}
		sec.Tasks = append(sec.Tasks, nil)
		copy(sec.Tasks[index+1:], sec.Tasks[index:])
		sec.Tasks[index] = task
		return nil
	}
	parent := FindTask(track, parentID)
	if parent == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, parentID)
	}
	if index > len(parent.Subtasks) {
		index = len(parent.Subtasks)
	}
	parent.Subtasks = append(parent.Subtasks, nil)
	copy(parent.Subtasks[index+1:], parent.Subtasks[index:])
	parent.Subtasks[index] = task
	parent.MarkDirty()
	return nil
}

// SetSubtreeDepth rewrites the depth of a subtree rooted at task.
func SetSubtreeDepth(task *model.Task, depth int) {
	task.Depth = depth
	task.MarkDirty()
	for _, sub := range task.Subtasks {
		SetSubtreeDepth(sub, depth+1)
	}
}

// MaxSubtreeDepth returns the deepest descendant level relative to task:
// 0 for a leaf, 1 + max over children otherwise.
func MaxSubtreeDepth(task *model.Task) int {
	if len(task.Subtasks) == 0 {
		return 0
	}
	max := 0
	for _, sub := range task.Subtasks {
		if d := MaxSubtreeDepth(sub); d > max {
			max = d
		}
	}
	return 1 + max
}

// RekeySubtree assigns newID to the task and positional child IDs below
// it, returning every old -> new mapping.
func RekeySubtree(task *model.Task, newID string) [][2]string {
	var mappings [][2]string
	if task.ID != "" {
		mappings = append(mappings, [2]string{task.ID, newID})
	}
	task.ID = newID
	task.MarkDirty()
	for i, sub := range task.Subtasks {
		subNewID := fmt.Sprintf("%s.%d", newID, i+1)
		mappings = append(mappings, RekeySubtree(sub, subNewID)...)
	}
	return mappings
}

// IsDescendantOf reports whether candidateID sits under ancestorID.
func IsDescendantOf(track *model.Track, ancestorID, candidateID string) bool {
	ancestor := FindTask(track, ancestorID)
	if ancestor == nil {
		return false
	}
	return findTaskInList(ancestor.Subtasks, candidateID) != nil
}

// nextChildNumber finds the next free child suffix. Scanning the max
// avoids collisions after deletions: removing .3 from [.1 .2 .3 .4]
// yields .5, not .4.
func nextChildNumber(parent *model.Task) int {
	if parent.ID == "" {
		return len(parent.Subtasks) + 1
	}
	prefix := parent.ID + "."
	max := 0
	for _, sub := range parent.Subtasks {
		suffix, ok := strings.CutPrefix(sub.ID, prefix)
		if !ok || strings.Contains(suffix, ".") {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// ReparentTask moves a task under a new parent, or to top-level when
// newParentID is empty. siblingIndex positions it among its new
// siblings; pass a large value to append. The subtree is rekeyed and dep
// references are rewritten across all tracks.
func ReparentTask(track *model.Track, taskID, newParentID string, siblingIndex int, prefix string, allTracks []TrackEntry) (ReparentResult, error) {
	if _, ok := FindTaskLocationAnySection(track, taskID); !ok {
		return ReparentResult{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}

	if newParentID != "" {
		if newParentID == taskID || IsDescendantOf(track, taskID, newParentID) {
			return ReparentResult{}, ErrCycle
		}
	}

	newDepth := 0
	if newParentID != "" {
		parent := FindTask(track, newParentID)
		if parent == nil {
			return ReparentResult{}, fmt.Errorf("%w: %s", ErrNotFound, newParentID)
		}
		newDepth = parent.Depth + 1
	}

	taskMaxDepth := 0
	if t := FindTask(track, taskID); t != nil {
		taskMaxDepth = MaxSubtreeDepth(t)
	}
	if newDepth+taskMaxDepth > 2 {
		return ReparentResult{}, ErrDepthExceeded
	}

	task, oldLocation, found := RemoveTaskSubtree(track, taskID)
	if !found {
		return ReparentResult{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}

	var newID string
	if newParentID == "" {
		newID = fmt.Sprintf("%s-%03d", prefix, NextIDNumber(track, prefix))
	} else {
		parent := FindTask(track, newParentID)
		newID = fmt.Sprintf("%s.%d", newParentID, nextChildNumber(parent))
	}

	mappings := RekeySubtree(task, newID)
	SetSubtreeDepth(task, newDepth)

	if err := InsertTaskSubtree(track, task, newParentID, oldLocation.Section, siblingIndex); err != nil {
		return ReparentResult{}, err
	}

	for _, m := range mappings {
		UpdateDepReferences(allTracks, m[0], m[1])
		UpdateDepReferencesInTrack(track, m[0], m[1])
	}

	return ReparentResult{NewRootID: newID, IDMappings: mappings, OldLocation: oldLocation}, nil
}

// ---------------------------------------------------------------------
// Hard delete
// ---------------------------------------------------------------------

// DeletedTask carries everything needed to undo a physical delete.
type DeletedTask struct {
	TrackID  string
	Section  model.SectionKind
	ParentID string
	Position int
	Task     *model.Task
}

// HardDeleteTask physically removes a task and its subtree.
func HardDeleteTask(track *model.Track, taskID, trackID string) (DeletedTask, error) {
	loc, ok := FindTaskLocationAnySection(track, taskID)
	if !ok {
		return DeletedTask{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	task, _, found := RemoveTaskSubtree(track, taskID)
	if !found {
		return DeletedTask{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	return DeletedTask{
		TrackID:  trackID,
		Section:  loc.Section,
		ParentID: loc.ParentID,
		Position: loc.SiblingIndex,
		Task:     task,
	}, nil
}

// ReinsertTask restores a previously deleted task at its old position.
func ReinsertTask(track *model.Track, deleted DeletedTask) error {
	return InsertTaskSubtree(track, deleted.Task, deleted.ParentID, deleted.Section, deleted.Position)
}

// CountSubtreeSize counts a task plus all its descendants.
func CountSubtreeSize(task *model.Task) int {
	n := 1
	for _, sub := range task.Subtasks {
		n += CountSubtreeSize(sub)
	}
	return n
}

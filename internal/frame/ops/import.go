package ops

import (
	"errors"
	"fmt"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
)

// ErrNoTasks means the import text held no task lines at all.
var ErrNoTasks = errors.New("no tasks found in import file")

// ImportResult reports what an import added.
type ImportResult struct {
	AssignedIDs []string
	TotalCount  int // includes subtasks
}

// ImportTasks parses markdown text as a task list and inserts the tasks
// into the track's backlog. IDs are assigned from the prefix and added
// dates are stamped where missing. Headers, descriptions, and blank
// lines between task groups are skipped.
func ImportTasks(markdown string, track *model.Track, position InsertPosition, prefix string) (ImportResult, error) {
	lines := parse.SplitLines(markdown)
	tasks := parseAllTasks(lines)
	if len(tasks) == 0 {
		return ImportResult{}, ErrNoTasks
	}

	sec := track.Section(model.SectionBacklog)
	if sec == nil {
		return ImportResult{}, fmt.Errorf("%w: no backlog section", ErrInvalidPosition)
	}
	insertIdx := len(sec.Tasks)
	switch position.Kind {
	case InsertTop:
		insertIdx = 0
	case InsertAfter:
		insertIdx = -1
		for i, t := range sec.Tasks {
			if t.ID == position.AfterID {
				insertIdx = i + 1
				break
			}
		}
		if insertIdx < 0 {
			return ImportResult{}, fmt.Errorf("%w: after target %s", ErrNotFound, position.AfterID)
		}
	}

	nextNum := NextIDNumber(track, prefix)
	date := today()
	result := ImportResult{}

	for _, task := range tasks {
		id := fmt.Sprintf("%s-%03d", prefix, nextNum)
		task.ID = id
		task.Depth = 0
		task.MarkDirty()
		stampAdded(task, date)
		assignImportSubtaskIDs(task, id, date)

		result.AssignedIDs = append(result.AssignedIDs, id)
		result.TotalCount += CountSubtreeSize(task)
		nextNum++
	}

	out := make([]*model.Task, 0, len(sec.Tasks)+len(tasks))
	out = append(out, sec.Tasks[:insertIdx]...)
	out = append(out, tasks...)
	out = append(out, sec.Tasks[insertIdx:]...)
	sec.Tasks = out
	return result, nil
}

// parseAllTasks collects top-level tasks, skipping any non-task content
// between groups.
func parseAllTasks(lines []string) []*model.Task {
	var all []*model.Task
	idx := 0
	for idx < len(lines) {
		if parse.IsTaskLine(lines[idx], 0) {
			tasks, next, _ := parse.ParseTasks(lines, idx, 0, 0)
			all = append(all, tasks...)
			idx = next
		} else {
			idx++
		}
	}
	return all
}

func stampAdded(task *model.Task, date string) {
	if task.Added() != "" {
		return
	}
	task.Meta = append([]model.Meta{{Kind: model.MetaAdded, Text: date}}, task.Meta...)
}

func assignImportSubtaskIDs(task *model.Task, parentID, date string) {
	for i, sub := range task.Subtasks {
		subID := fmt.Sprintf("%s.%d", parentID, i+1)
		sub.ID = subID
		sub.Depth = task.Depth + 1
		sub.MarkDirty()
		stampAdded(sub, date)
		assignImportSubtaskIDs(sub, subID, date)
	}
}

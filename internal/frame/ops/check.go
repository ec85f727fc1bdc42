package ops

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// CheckResult is the structured outcome of a project check, shaped for
// --json output.
type CheckResult struct {
	Valid    bool           `json:"valid"`
	Errors   []CheckError   `json:"errors"`
	Warnings []CheckWarning `json:"warnings"`
}

// CheckError is a problem that should be fixed. Type is one of
// dangling_dep, broken_ref, broken_spec, duplicate_id.
type CheckError struct {
	Type     string   `json:"type"`
	TrackID  string   `json:"track_id,omitempty"`
	TaskID   string   `json:"task_id,omitempty"`
	DepID    string   `json:"dep_id,omitempty"`
	Path     string   `json:"path,omitempty"`
	TrackIDs []string `json:"track_ids,omitempty"`
}

// CheckWarning is a non-critical issue. Type is one of missing_id,
// missing_added_date, missing_resolved_date, done_in_backlog.
type CheckWarning struct {
	Type    string `json:"type"`
	TrackID string `json:"track_id"`
	TaskID  string `json:"task_id,omitempty"`
	Title   string `json:"title,omitempty"`
}

// CheckProject validates the project without modifying it: dep targets
// must exist, ref and spec paths must exist on disk, and task IDs must
// be unique. Missing IDs and dates surface as warnings.
func CheckProject(p *project.Project) CheckResult {
	var result CheckResult

	allIDs := CollectAllTaskIDs(p)
	for _, dup := range findDuplicateIDs(p) {
		result.Errors = append(result.Errors, dup)
	}

	for _, lt := range p.Tracks {
		for _, n := range lt.Track.Nodes {
			sec, ok := n.(*model.Section)
			if !ok {
				continue
			}
			for _, task := range sec.Tasks {
				checkTask(task, lt.ID, sec.Kind, allIDs, p.Root, &result)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func checkTask(task *model.Task, trackID string, section model.SectionKind, allIDs map[string]bool, root string, result *CheckResult) {
	if task.ID == "" {
		result.Warnings = append(result.Warnings, CheckWarning{
			Type: "missing_id", TrackID: trackID, Title: task.Title,
		})
	} else if task.Added() == "" {
		result.Warnings = append(result.Warnings, CheckWarning{
			Type: "missing_added_date", TrackID: trackID, TaskID: task.ID,
		})
	}

	if task.State == model.Done {
		if task.Resolved() == "" {
			result.Warnings = append(result.Warnings, CheckWarning{
				Type: "missing_resolved_date", TrackID: trackID, TaskID: task.ID,
			})
		}
		if section == model.SectionBacklog {
			result.Warnings = append(result.Warnings, CheckWarning{
				Type: "done_in_backlog", TrackID: trackID, TaskID: task.ID,
			})
		}
	}

	for _, m := range task.Meta {
		switch m.Kind {
		case model.MetaDep:
			for _, dep := range m.List {
				if !allIDs[dep] {
					result.Errors = append(result.Errors, CheckError{
						Type: "dangling_dep", TrackID: trackID, TaskID: task.ID, DepID: dep,
					})
				}
			}
		case model.MetaRef:
			for _, ref := range m.List {
				if !pathExists(root, ref) {
					result.Errors = append(result.Errors, CheckError{
						Type: "broken_ref", TrackID: trackID, TaskID: task.ID, Path: ref,
					})
				}
			}
		case model.MetaSpec:
			file, _, _ := strings.Cut(m.Text, "#")
			if !pathExists(root, file) {
				result.Errors = append(result.Errors, CheckError{
					Type: "broken_spec", TrackID: trackID, TaskID: task.ID, Path: m.Text,
				})
			}
		}
	}

	for _, sub := range task.Subtasks {
		checkTask(sub, trackID, section, allIDs, root, result)
	}
}

func pathExists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, rel))
	return err == nil
}

// CollectAllTaskIDs gathers every task ID across all tracks.
func CollectAllTaskIDs(p *project.Project) map[string]bool {
	ids := map[string]bool{}
	for _, lt := range p.Tracks {
		lt.Track.WalkTasks(func(task *model.Task) {
			if task.ID != "" {
				ids[task.ID] = true
			}
		})
	}
	return ids
}

// findDuplicateIDs reports IDs appearing more than once, within or
// across tracks.
func findDuplicateIDs(p *project.Project) []CheckError {
	locations := map[string][]string{}
	var order []string
	for _, lt := range p.Tracks {
		lt.Track.WalkTasks(func(task *model.Task) {
			if task.ID == "" {
				return
			}
			if _, seen := locations[task.ID]; !seen {
				order = append(order, task.ID)
			}
			locations[task.ID] = append(locations[task.ID], lt.ID)
		})
	}

	sort.Strings(order)
	var out []CheckError
	for _, id := range order {
		if tracks := locations[id]; len(tracks) > 1 {
			out = append(out, CheckError{Type: "duplicate_id", TaskID: id, TrackIDs: tracks})
		}
	}
	return out
}

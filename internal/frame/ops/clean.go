package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// CleanResult reports every change made and issue found by a clean
// pass.
type CleanResult struct {
	IDsAssigned        []IDAssignment
	DatesAssigned      []DateAssignment
	DuplicatesResolved []DuplicateResolution
	TasksArchived      []ArchiveRecord
	DanglingDeps       []DanglingDep
	BrokenRefs         []BrokenRef
	Suggestions        []Suggestion
}

// Changed reports whether the pass modified any track.
func (r *CleanResult) Changed() bool {
	return len(r.IDsAssigned) > 0 || len(r.DatesAssigned) > 0 ||
		len(r.DuplicatesResolved) > 0 || len(r.TasksArchived) > 0
}

type IDAssignment struct {
	TrackID    string
	AssignedID string
	Title      string
}

type DateAssignment struct {
	TrackID string
	TaskID  string
	Date    string
}

type DuplicateResolution struct {
	TrackID    string
	OriginalID string
	NewID      string
	Title      string
}

type ArchiveRecord struct {
	TrackID string
	TaskID  string
	Title   string
}

type DanglingDep struct {
	TrackID string
	TaskID  string
	DepID   string
}

// BrokenRef flags a ref or spec path that does not exist. Kind is "ref"
// or "spec".
type BrokenRef struct {
	TrackID string
	TaskID  string
	Path    string
	Kind    string
}

// Suggestion flags a parent whose subtasks are all done.
type Suggestion struct {
	TrackID string
	TaskID  string
}

// EnsureIDsAndDates assigns missing IDs and added dates and resolves
// duplicate IDs, returning the IDs of the tracks it modified so callers
// can save just those.
func EnsureIDsAndDates(p *project.Project) []string {
	var result CleanResult
	modified := map[string]bool{}

	for _, lt := range p.Tracks {
		beforeIDs := len(result.IDsAssigned)
		beforeDates := len(result.DatesAssigned)

		if prefix := p.Prefix(lt.ID); prefix != "" {
			assignMissingIDs(lt.Track, lt.ID, prefix, &result)
		}
		assignMissingDates(lt.Track, lt.ID, &result)

		if len(result.IDsAssigned) > beforeIDs || len(result.DatesAssigned) > beforeDates {
			modified[lt.ID] = true
		}
	}

	beforeDups := len(result.DuplicatesResolved)
	resolveDuplicateIDs(p, &result)
	for _, dup := range result.DuplicatesResolved[beforeDups:] {
		modified[dup.TrackID] = true
	}

	out := make([]string, 0, len(modified))
	for _, lt := range p.Tracks {
		if modified[lt.ID] {
			out = append(out, lt.ID)
		}
	}
	return out
}

// CleanProject runs the full clean pipeline: assign missing IDs and
// dates, resolve duplicate IDs, flag dangling deps and broken paths,
// suggest parent completion, and archive done sections past the
// threshold.
func CleanProject(p *project.Project) CleanResult {
	var result CleanResult

	for _, lt := range p.Tracks {
		if prefix := p.Prefix(lt.ID); prefix != "" {
			assignMissingIDs(lt.Track, lt.ID, prefix, &result)
		}
		assignMissingDates(lt.Track, lt.ID, &result)
	}

	resolveDuplicateIDs(p, &result)

	allIDs := CollectAllTaskIDs(p)
	for _, lt := range p.Tracks {
		validateDeps(lt.Track, lt.ID, allIDs, &result)
		validateRefs(lt.Track, lt.ID, p.Root, &result)
		collectSuggestions(lt.Track, lt.ID, &result)
	}

	archiveDoneTasks(p, &result)

	return result
}

// GenerateActiveMD renders an overview of active tracks' backlogs.
func GenerateActiveMD(p *project.Project) string {
	lines := []string{
		fmt.Sprintf("# %s — Active Tasks", p.Config.Project.Name),
		"",
		"> Auto-generated by `fr clean`. Do not edit.",
		"",
	}

	for _, tc := range p.Config.Tracks {
		if tc.State != "active" {
			continue
		}
		track := p.Track(tc.ID)
		if track == nil {
			continue
		}

		lines = append(lines, "## "+track.Title, "")
		backlog := track.BacklogTasks()
		if len(backlog) == 0 {
			lines = append(lines, "(empty backlog)")
		} else {
			for _, task := range backlog {
				line := fmt.Sprintf("- [%c] ", task.State.CheckboxChar())
				if task.ID != "" {
					line += "`" + task.ID + "` "
				}
				line += task.Title
				for _, tag := range task.Tags {
					line += " #" + tag
				}
				lines = append(lines, line)
			}
		}
		lines = append(lines, "")
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// ---------------------------------------------------------------------
// ID and date assignment
// ---------------------------------------------------------------------

func assignMissingIDs(track *model.Track, trackID, prefix string, result *CleanResult) {
	prefixDash := prefix + "-"
	max := 0
	FindMaxIDInTrack(track, prefixDash, &max)

	for _, n := range track.Nodes {
		sec, ok := n.(*model.Section)
		if !ok {
			continue
		}
		for _, task := range sec.Tasks {
			if task.ID == "" {
				max++
				task.ID = fmt.Sprintf("%s%03d", prefixDash, max)
				task.MarkDirty()
				result.IDsAssigned = append(result.IDsAssigned, IDAssignment{
					TrackID: trackID, AssignedID: task.ID, Title: task.Title,
				})
			}
			assignSubtaskIDs(task, trackID, result)
		}
	}
}

// assignSubtaskIDs fills missing subtask IDs positionally. A parent
// without an ID is skipped; it gets one on the next pass.
func assignSubtaskIDs(parent *model.Task, trackID string, result *CleanResult) {
	if parent.ID == "" {
		return
	}
	for i, sub := range parent.Subtasks {
		if sub.ID == "" {
			sub.ID = fmt.Sprintf("%s.%d", parent.ID, i+1)
			sub.MarkDirty()
			result.IDsAssigned = append(result.IDsAssigned, IDAssignment{
				TrackID: trackID, AssignedID: sub.ID, Title: sub.Title,
			})
		}
		assignSubtaskIDs(sub, trackID, result)
	}
}

func assignMissingDates(track *model.Track, trackID string, result *CleanResult) {
	date := today()
	track.WalkTasks(func(task *model.Task) {
		if task.Added() != "" {
			return
		}
		task.Meta = append([]model.Meta{{Kind: model.MetaAdded, Text: date}}, task.Meta...)
		task.MarkDirty()
		result.DatesAssigned = append(result.DatesAssigned, DateAssignment{
			TrackID: trackID, TaskID: task.ID, Date: date,
		})
	})
}

// ---------------------------------------------------------------------
// Duplicate ID resolution
// ---------------------------------------------------------------------

// resolveDuplicateIDs reassigns repeated IDs. Precedence follows the
// config track order and then document position: the first occurrence
// keeps the ID, later ones get fresh max+1 IDs. Deps keep pointing at
// the keeper, so no dep rewriting is needed.
func resolveDuplicateIDs(p *project.Project, result *CleanResult) {
	type dup struct {
		oldID   string
		trackID string
	}

	seen := map[string]bool{}
	var duplicates []dup
	for _, tc := range p.Config.Tracks {
		track := p.Track(tc.ID)
		if track == nil {
			continue
		}
		track.WalkTasks(func(task *model.Task) {
			if task.ID == "" {
				return
			}
			if seen[task.ID] {
				duplicates = append(duplicates, dup{oldID: task.ID, trackID: tc.ID})
			}
			seen[task.ID] = true
		})
	}
	if len(duplicates) == 0 {
		return
	}

	// Compute a fresh ID per duplicate, accounting for IDs handed out
	// earlier in this batch.
	reassignments := map[string][]string{}
	for _, d := range duplicates {
		prefix := p.Prefix(d.trackID)
		if prefix == "" {
			continue
		}
		prefixDash := prefix + "-"
		track := p.Track(d.trackID)
		if track == nil {
			continue
		}

		max := 0
		FindMaxIDInTrack(track, prefixDash, &max)
		for _, ids := range reassignments {
			for _, newID := range ids {
				numStr, ok := strings.CutPrefix(newID, prefixDash)
				if !ok {
					continue
				}
				numPart, _, _ := strings.Cut(numStr, ".")
				if n, err := strconv.Atoi(numPart); err == nil && n > max {
					max = n
				}
			}
		}

		newID := fmt.Sprintf("%s%03d", prefixDash, max+1)
		reassignments[d.oldID] = append(reassignments[d.oldID], newID)
	}

	// Apply in the same walk order; the first sighting of each ID is
	// the keeper.
	cursors := map[string]int{}
	applied := map[string]bool{}
	for _, tc := range p.Config.Tracks {
		track := p.Track(tc.ID)
		if track == nil {
			continue
		}
		track.WalkTasks(func(task *model.Task) {
			oldID := task.ID
			if oldID == "" || reassignments[oldID] == nil {
				return
			}
			if !applied[oldID] {
				applied[oldID] = true
				return
			}
			cursor := cursors[oldID]
			ids := reassignments[oldID]
			if cursor >= len(ids) {
				return
			}
			task.ID = ids[cursor]
			task.MarkDirty()
			RenumberSubtasks(task, task.ID)
			result.DuplicatesResolved = append(result.DuplicatesResolved, DuplicateResolution{
				TrackID: tc.ID, OriginalID: oldID, NewID: task.ID, Title: task.Title,
			})
			cursors[oldID] = cursor + 1
		})
	}
}

// ---------------------------------------------------------------------
// Validation and suggestions
// ---------------------------------------------------------------------

func validateDeps(track *model.Track, trackID string, allIDs map[string]bool, result *CleanResult) {
	track.WalkTasks(func(task *model.Task) {
		for _, dep := range task.Deps() {
			if !allIDs[dep] {
				result.DanglingDeps = append(result.DanglingDeps, DanglingDep{
					TrackID: trackID, TaskID: task.ID, DepID: dep,
				})
			}
		}
	})
}

func validateRefs(track *model.Track, trackID, root string, result *CleanResult) {
	track.WalkTasks(func(task *model.Task) {
		for _, ref := range task.Refs() {
			if !pathExists(root, ref) {
				result.BrokenRefs = append(result.BrokenRefs, BrokenRef{
					TrackID: trackID, TaskID: task.ID, Path: ref, Kind: "ref",
				})
			}
		}
		if spec := task.Spec(); spec != "" {
			file, _, _ := strings.Cut(spec, "#")
			if !pathExists(root, file) {
				result.BrokenRefs = append(result.BrokenRefs, BrokenRef{
					TrackID: trackID, TaskID: task.ID, Path: spec, Kind: "spec",
				})
			}
		}
	})
}

func collectSuggestions(track *model.Track, trackID string, result *CleanResult) {
	track.WalkTasks(func(task *model.Task) {
		if len(task.Subtasks) == 0 || task.State == model.Done {
			return
		}
		for _, sub := range task.Subtasks {
			if sub.State != model.Done {
				return
			}
		}
		result.Suggestions = append(result.Suggestions, Suggestion{
			TrackID: trackID, TaskID: task.ID,
		})
	})
}

// ---------------------------------------------------------------------
// Archiving
// ---------------------------------------------------------------------

// archiveDoneTasks moves each done section whose serialized form
// exceeds the threshold into frame/archive/<track>.md.
func archiveDoneTasks(p *project.Project, result *CleanResult) {
	if !p.Config.Clean.ArchivePerTrack {
		return
	}
	threshold := p.Config.Clean.DoneThreshold

	for _, lt := range p.Tracks {
		if countDoneSectionLines(lt.Track) <= threshold {
			continue
		}
		archived := extractDoneTasks(lt.Track)
		if len(archived) == 0 {
			continue
		}
		for _, task := range archived {
			result.TasksArchived = append(result.TasksArchived, ArchiveRecord{
				TrackID: lt.ID, TaskID: task.ID, Title: task.Title,
			})
		}

		content := strings.Join(parse.SerializeTasks(archived, 0), "\n")
		archivePath := filepath.Join(p.FrameDir, "archive", lt.ID+".md")
		os.MkdirAll(filepath.Dir(archivePath), 0o755)

		existing, _ := os.ReadFile(archivePath)
		var out string
		if len(existing) == 0 {
			out = fmt.Sprintf("# Archive — %s\n\n%s", lt.ID, content)
		} else {
			out = strings.TrimRight(string(existing), "\n") + "\n" + content
		}
		os.WriteFile(archivePath, []byte(out), 0o644)
	}
}

func countDoneSectionLines(track *model.Track) int {
	return len(parse.SerializeTasks(track.DoneTasks(), 0))
}

func extractDoneTasks(track *model.Track) []*model.Task {
	sec := track.Section(model.SectionDone)
	if sec == nil {
		return nil
	}
	tasks := sec.Tasks
	sec.Tasks = nil
	return tasks
}

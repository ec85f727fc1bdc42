package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
	"github.com/joshsegall/frame-sub002/internal/frame/registry"
)

// loadProject resolves the project root from the global --project-dir
// flag (or the working directory) and loads every track file. Loading
// also registers the project in the user registry and records CLI
// access, so `fr projects` stays current without a separate step.
func loadProject(cmd *cobra.Command) (*project.Project, error) {
	start, _ := cmd.Flags().GetString("project-dir")
	if start == "" {
		start = "."
	}
	root, err := project.Discover(start)
	if err != nil {
		return nil, err
	}
	p, err := project.Load(root)
	if err != nil {
		return nil, err
	}
	registry.Register(p.Config.Project.Name, root)
	registry.TouchCLI(root)
	return p, nil
}

func jsonEnabled(cmd *cobra.Command) bool {
	on, _ := cmd.Flags().GetBool("json")
	return on
}

// withLock acquires the project write lock for the duration of fn.
// Every mutating command goes through here so two processes never
// interleave a read-modify-write on the same track file.
func withLock(p *project.Project, fn func() error) error {
	lock, err := project.AcquireLockDefault(p.FrameDir)
	if err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}

// findTaskTrack locates a task by ID across all tracks and returns the
// task together with the ID of the track that holds it.
func findTaskTrack(p *project.Project, taskID string) (*model.Task, string, error) {
	task, trackID := ops.FindTaskAnyTrack(trackEntries(p), taskID)
	if task == nil {
		return nil, "", fmt.Errorf("task %q not found", taskID)
	}
	return task, trackID, nil
}

func trackEntries(p *project.Project) []ops.TrackEntry {
	entries := make([]ops.TrackEntry, 0, len(p.Tracks))
	for _, lt := range p.Tracks {
		entries = append(entries, ops.TrackEntry{ID: lt.ID, Track: lt.Track})
	}
	return entries
}

// requireTrack resolves a track argument, defaulting to the single
// active track when the project has exactly one.
func requireTrack(p *project.Project, trackID string) (*model.Track, string, error) {
	if trackID == "" {
		var active []string
		for _, tc := range p.Config.Tracks {
			if tc.State == "active" {
				active = append(active, tc.ID)
			}
		}
		if len(active) == 1 {
			trackID = active[0]
		} else {
			return nil, "", fmt.Errorf("multiple tracks; specify one of: %s", strings.Join(active, ", "))
		}
	}
	track := p.Track(trackID)
	if track == nil {
		return nil, "", fmt.Errorf("track %q not found", trackID)
	}
	return track, trackID, nil
}

func activeTrackIDs(p *project.Project) map[string]bool {
	active := make(map[string]bool)
	for _, tc := range p.Config.Tracks {
		if tc.State == "active" {
			active[tc.ID] = true
		}
	}
	return active
}

// hasUnresolvedDeps reports whether any dependency of the task points
// at a task that exists and is not done. Dangling deps do not block.
func hasUnresolvedDeps(p *project.Project, task *model.Task) bool {
	entries := trackEntries(p)
	for _, depID := range task.Deps() {
		dep, _ := ops.FindTaskAnyTrack(entries, depID)
		if dep != nil && dep.State != model.Done {
			return true
		}
	}
	return false
}

// insertPosition maps the --top/--after flags to a placement.
func insertPosition(top bool, after string) ops.InsertPosition {
	switch {
	case top:
		return ops.AtTop()
	case after != "":
		return ops.After(after)
	default:
		return ops.AtBottom()
	}
}

// confirm prompts on stdin and accepts y/yes (case-insensitive).
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/n] ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

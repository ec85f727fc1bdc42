package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// filterTasks prunes a task tree to tasks matching the state and tag
// filters. A parent that does not match itself is kept when any of its
// subtasks survive, so matches stay visible in context.
func filterTasks(tasks []*model.Task, state *model.TaskState, tag string) []*model.Task {
	var out []*model.Task
	for _, task := range tasks {
		kept := filterTasks(task.Subtasks, state, tag)
		matches := true
		if state != nil && task.State != *state {
			matches = false
		}
		if tag != "" && !task.HasTag(tag) {
			matches = false
		}
		if !matches && len(kept) == 0 {
			continue
		}
		copied := *task
		if matches {
			copied.Subtasks = task.Subtasks
		} else {
			copied.Subtasks = kept
		}
		out = append(out, &copied)
	}
	return out
}

func listTrackTasks(track *model.Track, state *model.TaskState, tag string) (backlog, parked, done []*model.Task) {
	backlog = filterTasks(track.BacklogTasks(), state, tag)
	parked = filterTasks(track.ParkedTasks(), state, tag)
	if state != nil && *state == model.Done {
		done = filterTasks(track.DoneTasks(), state, tag)
	}
	return backlog, parked, done
}

func runList(cmd *cobra.Command, p *project.Project, trackArg, stateArg, tagArg string, all bool) error {
	var state *model.TaskState
	if stateArg != "" {
		parsed, err := parseTaskState(stateArg)
		if err != nil {
			return err
		}
		state = &parsed
	}

	var tracks []project.LoadedTrack
	if trackArg != "" {
		lt := p.TrackFile(trackArg)
		if lt == nil {
			return fmt.Errorf("track %q not found", trackArg)
		}
		tracks = []project.LoadedTrack{*lt}
	} else {
		active := activeTrackIDs(p)
		for _, lt := range p.Tracks {
			if all || active[lt.ID] {
				tracks = append(tracks, lt)
			}
		}
	}

	if jsonEnabled(cmd) {
		payload := []trackTaskJSON{}
		for _, lt := range tracks {
			backlog, parked, done := listTrackTasks(lt.Track, state, tagArg)
			for _, group := range [][]*model.Task{backlog, parked, done} {
				for _, task := range group {
					payload = append(payload, trackTaskJSON{Track: lt.ID, taskJSON: toTaskJSON(task)})
				}
			}
		}
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	first := true
	for _, lt := range tracks {
		backlog, parked, done := listTrackTasks(lt.Track, state, tagArg)
		if trackArg == "" && len(backlog) == 0 && len(parked) == 0 && len(done) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(out)
		}
		first = false
		fmt.Fprintln(out, formatTrackHeader(lt.Track, lt.ID))
		var b strings.Builder
		formatTaskTree(&b, backlog, 0)
		if len(parked) > 0 {
			b.WriteString("-- Parked --\n")
			formatTaskTree(&b, parked, 0)
		}
		if len(done) > 0 {
			b.WriteString("-- Done --\n")
			formatTaskTree(&b, done, 0)
		}
		if b.Len() == 0 {
			b.WriteString("(no tasks)\n")
		}
		fmt.Fprint(out, b.String())
	}
	if first {
		fmt.Fprintln(out, "(no tasks)")
	}
	return nil
}

func ListCmd() *cobra.Command {
	var stateArg, tagArg string
	var all bool
	cmd := &cobra.Command{
		Use:   "list [track]",
		Short: "List tasks, optionally filtered by track, state, or tag",
		Args:  wrapArgs("list", cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("list", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			trackArg := ""
			if len(args) > 0 {
				trackArg = args[0]
			}
			return runList(cmd, p, trackArg, stateArg, tagArg, all)
		},
	}
	cmd.Flags().StringVar(&stateArg, "state", "", "Filter by state (todo, active, blocked, done, parked)")
	cmd.Flags().StringVar(&tagArg, "tag", "", "Filter by tag")
	cmd.Flags().BoolVar(&all, "all", false, "Include shelved tracks")
	return cmd
}

// collectAncestorIDs derives the ancestor chain of a dotted subtask ID:
// "CORE-001.1.2" has ancestors CORE-001 and CORE-001.1.
func collectAncestorIDs(taskID string) []string {
	var ancestors []string
	for i, c := range taskID {
		if c == '.' {
			ancestors = append(ancestors, taskID[:i])
		}
	}
	return ancestors
}

func ShowCmd() *cobra.Command {
	var withContext bool
	var render bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its full metadata",
		Args:  wrapArgs("show", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("show", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			task, trackID, err := findTaskTrack(p, args[0])
			if err != nil {
				return err
			}
			if jsonEnabled(cmd) {
				return writeJSON(cmd, trackTaskJSON{Track: trackID, taskJSON: toTaskJSON(task)})
			}
			out := cmd.OutOrStdout()
			track := p.Track(trackID)
			fmt.Fprintln(out, formatTrackHeader(track, trackID))
			if withContext {
				indent := 0
				for _, ancestorID := range collectAncestorIDs(task.ID) {
					if ancestor, _, err := findTaskTrack(p, ancestorID); err == nil {
						fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", indent), formatTaskLine(ancestor))
						indent++
					}
				}
			}
			var noteRenderer func(string) string
			if render {
				noteRenderer = renderNoteMarkdown
			}
			fmt.Fprint(out, formatTaskDetail(task, noteRenderer))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withContext, "context", false, "Show ancestor tasks above the task")
	cmd.Flags().BoolVar(&render, "render", false, "Render the note as markdown")
	return cmd
}

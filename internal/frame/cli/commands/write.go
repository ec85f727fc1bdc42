package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// mutateTrack runs fn against the track holding taskID under the
// project lock and saves the track afterwards.
func mutateTrack(p *project.Project, taskID string, fn func(track *model.Track, trackID string) error) error {
	_, trackID, err := findTaskTrack(p, taskID)
	if err != nil {
		return err
	}
	return withLock(p, func() error {
		if err := fn(p.Track(trackID), trackID); err != nil {
			return err
		}
		return p.SaveTrack(trackID)
	})
}

func addTask(cmd *cobra.Command, trackArg string, titleWords []string, pos ops.InsertPosition, foundFrom string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	track, trackID, err := requireTrack(p, trackArg)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(titleWords, " "))
	if title == "" {
		return fmt.Errorf("empty title")
	}
	return withLock(p, func() error {
		newID, err := ops.AddTask(track, title, pos, p.Prefix(trackID))
		if err != nil {
			return err
		}
		if foundFrom != "" {
			if err := ops.SetNote(track, newID, "Found while working on "+foundFrom); err != nil {
				return err
			}
		}
		if err := p.SaveTrack(trackID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), newID)
		return nil
	})
}

func AddCmd() *cobra.Command {
	var after, foundFrom string
	cmd := &cobra.Command{
		Use:   "add <track> <title...>",
		Short: "Add a task to the bottom of a track's backlog",
		Args:  wrapArgs("add", cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("add", err)
				}
			}()
			return addTask(cmd, args[0], args[1:], insertPosition(false, after), foundFrom)
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "Insert after the given task ID")
	cmd.Flags().StringVar(&foundFrom, "found-from", "", "Record the task this one was found from")
	return cmd
}

func PushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <track> <title...>",
		Short: "Add a task to the top of a track's backlog",
		Args:  wrapArgs("push", cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("push", err)
				}
			}()
			return addTask(cmd, args[0], args[1:], ops.AtTop(), "")
		},
	}
	return cmd
}

func SubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub <id> <title...>",
		Short: "Add a subtask under a task",
		Args:  wrapArgs("sub", cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("sub", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("empty title")
			}
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				newID, err := ops.AddSubtask(track, args[0], title)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), newID)
				return nil
			})
		},
	}
	return cmd
}

// setTaskState applies a state change, moving a top-level backlog task
// into the Done section when it completes.
func setTaskState(cmd *cobra.Command, taskID string, state model.TaskState) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	return mutateTrack(p, taskID, func(track *model.Track, trackID string) error {
		task := ops.FindTask(track, taskID)
		ops.SetState(task, state)
		if state == model.Done && ops.IsTopLevelInSection(track, taskID, model.SectionBacklog) {
			ops.MoveTaskBetweenSections(track, taskID, model.SectionBacklog, model.SectionDone)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s → %s\n", taskID, stateName(state))
		return nil
	})
}

func StateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state <id> <state>",
		Short: "Set a task's state",
		Args:  wrapArgs("state", cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("state", err)
				}
			}()
			state, err := parseTaskState(args[1])
			if err != nil {
				return err
			}
			return setTaskState(cmd, args[0], state)
		},
	}
	return cmd
}

func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Mark a task active",
		Args:  wrapArgs("start", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("start", err)
				}
			}()
			return setTaskState(cmd, args[0], model.Active)
		},
	}
	return cmd
}

func DoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  wrapArgs("done", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("done", err)
				}
			}()
			return setTaskState(cmd, args[0], model.Done)
		},
	}
	return cmd
}

func TagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <id> add|rm <tag>",
		Short: "Add or remove a tag on a task",
		Args:  wrapArgs("tag", cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("tag", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				switch args[1] {
				case "add":
					return ops.AddTag(track, args[0], args[2])
				case "rm":
					return ops.RemoveTag(track, args[0], args[2])
				default:
					return fmt.Errorf("expected add or rm, got %q", args[1])
				}
			})
		},
	}
	return cmd
}

func DepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep <id> add|rm <dep-id>",
		Short: "Add or remove a dependency on a task",
		Args:  wrapArgs("dep", cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("dep", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				switch args[1] {
				case "add":
					return ops.AddDep(track, args[0], args[2], trackEntries(p))
				case "rm":
					return ops.RemoveDep(track, args[0], args[2])
				default:
					return fmt.Errorf("expected add or rm, got %q", args[1])
				}
			})
		},
	}
	return cmd
}

func NoteCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "note <id> <text...>",
		Short: "Append to a task's note",
		Args:  wrapArgs("note", cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("note", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				if replace {
					return ops.SetNote(track, args[0], text)
				}
				return ops.AppendNote(track, args[0], text)
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace the existing note instead of appending")
	return cmd
}

func RefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ref <id> <path>",
		Short: "Add a file reference to a task",
		Args:  wrapArgs("ref", cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("ref", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				return ops.AddRef(track, args[0], args[1])
			})
		},
	}
	return cmd
}

func SpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec <id> <path>",
		Short: "Set a task's spec path",
		Args:  wrapArgs("spec", cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("spec", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				return ops.SetSpec(track, args[0], args[1])
			})
		},
	}
	return cmd
}

func TitleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "title <id> <title...>",
		Short: "Rename a task",
		Args:  wrapArgs("title", cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("title", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("empty title")
			}
			return mutateTrack(p, args[0], func(track *model.Track, trackID string) error {
				return ops.EditTitle(track, args[0], title)
			})
		},
	}
	return cmd
}

package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

// numericPosition converts a 1-based backlog position into a placement
// among the top-level tasks, ignoring the task being moved.
func numericPosition(track *model.Track, taskID string, n int) (ops.InsertPosition, error) {
	if n < 1 {
		return ops.InsertPosition{}, fmt.Errorf("position must be 1 or greater")
	}
	var others []*model.Task
	for _, task := range track.BacklogTasks() {
		if task.ID != taskID {
			others = append(others, task)
		}
	}
	switch {
	case n == 1:
		return ops.AtTop(), nil
	case n > len(others):
		return ops.AtBottom(), nil
	default:
		return ops.After(others[n-2].ID), nil
	}
}

func MvCmd() *cobra.Command {
	var top, promote bool
	var after, targetTrack, parent string
	cmd := &cobra.Command{
		Use:   "mv <id> [position]",
		Short: "Move a task within or between tracks",
		Args:  wrapArgs("mv", cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("mv", err)
				}
			}()
			if promote && parent != "" {
				return fmt.Errorf("--promote and --parent are mutually exclusive")
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			taskID := args[0]
			_, trackID, err := findTaskTrack(p, taskID)
			if err != nil {
				return err
			}
			track := p.Track(trackID)
			out := cmd.OutOrStdout()

			if targetTrack != "" {
				target := p.Track(targetTrack)
				if target == nil {
					return fmt.Errorf("track %q not found", targetTrack)
				}
				pos := insertPosition(top, after)
				return withLock(p, func() error {
					newID, err := ops.MoveTaskToTrack(track, target, taskID, pos, p.Prefix(targetTrack), trackEntries(p))
					if err != nil {
						return err
					}
					if err := p.SaveTrack(trackID); err != nil {
						return err
					}
					if err := p.SaveTrack(targetTrack); err != nil {
						return err
					}
					fmt.Fprintf(out, "%s → %s (%s)\n", taskID, newID, targetTrack)
					return nil
				})
			}

			if promote {
				loc, ok := ops.FindTaskLocationAnySection(track, taskID)
				if !ok {
					return fmt.Errorf("task %q not found", taskID)
				}
				if loc.ParentID == "" {
					return ops.ErrAlreadyTopLevel
				}
				parentLoc, ok := ops.FindTaskLocationAnySection(track, loc.ParentID)
				if !ok {
					return fmt.Errorf("task %q not found", loc.ParentID)
				}
				return withLock(p, func() error {
					result, err := ops.ReparentTask(track, taskID, parentLoc.ParentID, parentLoc.SiblingIndex+1, p.Prefix(trackID), trackEntries(p))
					if err != nil {
						return err
					}
					if err := p.SaveAllTracks(); err != nil {
						return err
					}
					fmt.Fprintf(out, "%s → %s\n", taskID, result.NewRootID)
					return nil
				})
			}

			if parent != "" {
				parentTask := ops.FindTask(track, parent)
				if parentTask == nil {
					return fmt.Errorf("task %q not found on track %q", parent, trackID)
				}
				return withLock(p, func() error {
					result, err := ops.ReparentTask(track, taskID, parent, len(parentTask.Subtasks), p.Prefix(trackID), trackEntries(p))
					if err != nil {
						return err
					}
					if err := p.SaveAllTracks(); err != nil {
						return err
					}
					fmt.Fprintf(out, "%s → %s\n", taskID, result.NewRootID)
					return nil
				})
			}

			pos := insertPosition(top, after)
			if len(args) == 2 {
				n, convErr := strconv.Atoi(args[1])
				if convErr != nil {
					return fmt.Errorf("invalid position %q", args[1])
				}
				pos, err = numericPosition(track, taskID, n)
				if err != nil {
					return err
				}
			}
			return withLock(p, func() error {
				if err := ops.MoveTask(track, taskID, pos); err != nil {
					return err
				}
				return p.SaveTrack(trackID)
			})
		},
	}
	cmd.Flags().BoolVar(&top, "top", false, "Move to the top of the backlog")
	cmd.Flags().StringVar(&after, "after", "", "Move after the given task ID")
	cmd.Flags().StringVar(&targetTrack, "track", "", "Move to another track")
	cmd.Flags().BoolVar(&promote, "promote", false, "Promote a subtask one level up")
	cmd.Flags().StringVar(&parent, "parent", "", "Reparent under the given task ID")
	return cmd
}

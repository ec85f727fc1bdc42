package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
	"github.com/joshsegall/frame-sub002/internal/frame/recovery"
)

func printCleanResult(cmd *cobra.Command, result ops.CleanResult) {
	out := cmd.OutOrStdout()
	printed := false
	section := func(title string) {
		if printed {
			fmt.Fprintln(out)
		}
		printed = true
		fmt.Fprintf(out, "%s:\n", title)
	}

	if len(result.IDsAssigned) > 0 {
		section("IDs assigned")
		for _, a := range result.IDsAssigned {
			fmt.Fprintf(out, "  [%s] %s %s\n", a.TrackID, a.AssignedID, a.Title)
		}
	}
	if len(result.DatesAssigned) > 0 {
		section("Dates assigned")
		for _, d := range result.DatesAssigned {
			fmt.Fprintf(out, "  [%s] %s added: %s\n", d.TrackID, d.TaskID, d.Date)
		}
	}
	if len(result.DuplicatesResolved) > 0 {
		section("Duplicate IDs resolved")
		for _, d := range result.DuplicatesResolved {
			fmt.Fprintf(out, "  [%s] %s → %s %s\n", d.TrackID, d.OriginalID, d.NewID, d.Title)
		}
	}
	if len(result.TasksArchived) > 0 {
		section("Tasks archived")
		for _, a := range result.TasksArchived {
			fmt.Fprintf(out, "  [%s] %s %s\n", a.TrackID, a.TaskID, a.Title)
		}
	}
	if len(result.DanglingDeps) > 0 {
		section("Dangling dependencies")
		for _, d := range result.DanglingDeps {
			fmt.Fprintf(out, "  [%s] %s depends on %s, which does not exist\n", d.TrackID, d.TaskID, d.DepID)
		}
	}
	if len(result.BrokenRefs) > 0 {
		section("Broken references")
		for _, r := range result.BrokenRefs {
			fmt.Fprintf(out, "  [%s] %s %s does not exist: %s\n", r.TrackID, r.TaskID, r.Kind, r.Path)
		}
	}
	if len(result.Suggestions) > 0 {
		section("Suggestions")
		for _, s := range result.Suggestions {
			fmt.Fprintf(out, "  [%s] %s has all subtasks done; consider marking it done\n", s.TrackID, s.TaskID)
		}
	}

	if !printed {
		fmt.Fprintln(out, "✓ project is clean")
	}
}

// previewArchive reports the tasks a real clean pass would move to the
// archive, without touching the done sections.
func previewArchive(p *project.Project, result *ops.CleanResult) {
	if !p.Config.Clean.ArchivePerTrack {
		return
	}
	for _, lt := range p.Tracks {
		done := lt.Track.DoneTasks()
		if len(parse.SerializeTasks(done, 0)) <= p.Config.Clean.DoneThreshold {
			continue
		}
		for _, task := range done {
			result.TasksArchived = append(result.TasksArchived, ops.ArchiveRecord{
				TrackID: lt.ID, TaskID: task.ID, Title: task.Title,
			})
		}
	}
}

func CleanCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Assign missing IDs and dates, archive done tasks, report problems",
		Args:  wrapArgs("clean", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("clean", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}

			if dryRun {
				p.Config.Clean.ArchivePerTrack = false
				result := ops.CleanProject(p)
				p.Config.Clean.ArchivePerTrack = true
				previewArchive(p, &result)
				printCleanResult(cmd, result)
				fmt.Fprintln(cmd.OutOrStdout(), "(dry run — no changes written)")
				return nil
			}

			return withLock(p, func() error {
				result := ops.CleanProject(p)
				if result.Changed() {
					if err := p.SaveAllTracks(); err != nil {
						return err
					}
				}
				activePath := filepath.Join(p.FrameDir, "ACTIVE.md")
				if err := os.WriteFile(activePath, []byte(ops.GenerateActiveMD(p)), 0o644); err != nil {
					return err
				}
				printCleanResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without writing changes")
	return cmd
}

func ImportCmd() *cobra.Command {
	var trackArg, after string
	var top bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a markdown file",
		Args:  wrapArgs("import", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("import", err)
				}
			}()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			track, trackID, err := requireTrack(p, trackArg)
			if err != nil {
				return err
			}
			pos := insertPosition(top, after)
			return withLock(p, func() error {
				result, err := ops.ImportTasks(string(data), track, pos, p.Prefix(trackID))
				if err != nil {
					return err
				}
				if err := p.SaveTrack(trackID); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "imported %d tasks (%d including subtasks)\n", len(result.AssignedIDs), result.TotalCount)
				for _, id := range result.AssignedIDs {
					fmt.Fprintf(out, "  %s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&trackArg, "track", "", "Target track")
	cmd.Flags().BoolVar(&top, "top", false, "Insert at the top of the backlog")
	cmd.Flags().StringVar(&after, "after", "", "Insert after the given task ID")
	return cmd
}

func DeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Permanently delete tasks",
		Args:  wrapArgs("delete", cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("delete", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				if _, _, err := findTaskTrack(p, id); err != nil {
					return err
				}
			}
			if !yes {
				prompt := fmt.Sprintf("Delete %d task(s)?", len(args))
				if !confirm(cmd, prompt) {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			return withLock(p, func() error {
				modified := make(map[string]bool)
				for _, id := range args {
					_, trackID, err := findTaskTrack(p, id)
					if err != nil {
						return err
					}
					track := p.Track(trackID)
					deleted, err := ops.HardDeleteTask(track, id, trackID)
					if err != nil {
						return err
					}
					source := strings.Join(parse.SerializeTasks([]*model.Task{deleted.Task}, 0), "\n")
					recovery.LogTaskDeletion(p.FrameDir, id, trackID, source)
					modified[trackID] = true
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				}
				for trackID := range modified {
					if err := p.SaveTrack(trackID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

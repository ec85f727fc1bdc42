package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

func TrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage tracks",
	}
	cmd.AddCommand(
		trackNewCmd(),
		trackStateCmd("shelve", "Shelve a track", ops.ShelveTrack),
		trackStateCmd("activate", "Activate a shelved track", ops.ActivateTrack),
		trackArchiveCmd(),
		trackDeleteCmd(),
		trackMvCmd(),
		trackCCFocusCmd(),
		trackRenameCmd(),
	)
	return cmd
}

// saveConfigEdit applies a config edit and refreshes the in-memory text.
func saveConfigEdit(p *project.Project, edit *project.ConfigEdit) error {
	text := edit.String()
	if err := p.SaveConfig(text); err != nil {
		return err
	}
	p.ConfigText = text
	return nil
}

func trackNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <id> <name...>",
		Short: "Create a new track",
		Args:  wrapArgs("track new", cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track new", err)
				}
			}()
			if err := validateTrackID(args[0]); err != nil {
				return err
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			return withLock(p, func() error {
				edit := project.NewConfigEdit(p.ConfigText)
				if _, err := ops.NewTrack(p.FrameDir, edit, &p.Config, args[0], name); err != nil {
					return err
				}
				if err := saveConfigEdit(p, edit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created track %s (%s)\n", args[0], p.Prefix(args[0]))
				return nil
			})
		},
	}
	return cmd
}

func trackStateCmd(verb, short string, apply func(*project.ConfigEdit, *model.ProjectConfig, string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  wrapArgs("track "+verb, cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track "+verb, err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return withLock(p, func() error {
				edit := project.NewConfigEdit(p.ConfigText)
				if err := apply(edit, &p.Config, args[0]); err != nil {
					return err
				}
				if err := saveConfigEdit(p, edit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%sd track %s\n", verb, args[0])
				return nil
			})
		},
	}
	return cmd
}

func trackArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a track and move its file aside",
		Args:  wrapArgs("track archive", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track archive", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			tc := p.Config.TrackByID(args[0])
			if tc == nil {
				return fmt.Errorf("track %q not found", args[0])
			}
			file := tc.File
			return withLock(p, func() error {
				edit := project.NewConfigEdit(p.ConfigText)
				if err := ops.ArchiveTrack(edit, &p.Config, args[0]); err != nil {
					return err
				}
				if err := ops.ArchiveTrackFile(p.FrameDir, args[0], file); err != nil {
					return err
				}
				if err := saveConfigEdit(p, edit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archived track %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func trackDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an empty track",
		Args:  wrapArgs("track delete", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track delete", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			trackID := args[0]
			if track := p.Track(trackID); track != nil {
				if !ops.IsTrackEmpty(p.FrameDir, track, trackID) {
					n := ops.TotalTaskCount(track)
					return fmt.Errorf("track %q has %d tasks. Use `fr track archive` instead.", trackID, n)
				}
			}
			return withLock(p, func() error {
				edit := project.NewConfigEdit(p.ConfigText)
				if err := ops.DeleteTrack(p.FrameDir, edit, &p.Config, trackID); err != nil {
					return err
				}
				if err := saveConfigEdit(p, edit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted track %s\n", trackID)
				return nil
			})
		},
	}
	return cmd
}

func trackMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <id> <position>",
		Short: "Reorder a track in the config",
		Args:  wrapArgs("track mv", cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track mv", err)
				}
			}()
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 1 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			return withLock(p, func() error {
				if err := ops.ReorderTracks(&p.Config, args[0], pos-1); err != nil {
					return err
				}
				edit := project.NewConfigEdit(p.ConfigText)
				for _, tc := range p.Config.Tracks {
					edit.RemoveTrack(tc.ID)
				}
				for _, tc := range p.Config.Tracks {
					edit.AddTrack(tc.ID, tc.Name, tc.State, tc.File)
				}
				return saveConfigEdit(p, edit)
			})
		},
	}
	return cmd
}

func trackCCFocusCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "cc-focus [id]",
		Short: "Show or set the cc-focus track",
		Args:  wrapArgs("track cc-focus", cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track cc-focus", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if clear {
				return withLock(p, func() error {
					edit := project.NewConfigEdit(p.ConfigText)
					edit.ClearCCFocus()
					p.Config.Agent.CCFocus = ""
					if err := saveConfigEdit(p, edit); err != nil {
						return err
					}
					fmt.Fprintln(out, "cc-focus cleared")
					return nil
				})
			}
			if len(args) == 0 {
				if p.Config.Agent.CCFocus == "" {
					fmt.Fprintln(out, "(no cc-focus track)")
				} else {
					fmt.Fprintln(out, p.Config.Agent.CCFocus)
				}
				return nil
			}
			return withLock(p, func() error {
				edit := project.NewConfigEdit(p.ConfigText)
				if err := ops.SetCCFocus(edit, &p.Config, args[0]); err != nil {
					return err
				}
				if err := saveConfigEdit(p, edit); err != nil {
					return err
				}
				fmt.Fprintf(out, "cc-focus: %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the cc-focus track")
	return cmd
}

func trackRenameCmd() *cobra.Command {
	var newName, newID, newPrefix string
	var dryRun, yes bool
	cmd := &cobra.Command{
		Use:   "rename <id>",
		Short: "Rename a track's name, id, or ID prefix",
		Args:  wrapArgs("track rename", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("track rename", err)
				}
			}()
			if newName == "" && newID == "" && newPrefix == "" {
				return fmt.Errorf("nothing to rename: pass --name, --id, or --prefix")
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			trackID := args[0]
			if p.Config.TrackByID(trackID) == nil {
				return fmt.Errorf("track %q not found", trackID)
			}
			out := cmd.OutOrStdout()

			if newPrefix != "" {
				return renamePrefix(cmd, p, trackID, newPrefix, dryRun, yes)
			}

			return withLock(p, func() error {
				edit := project.NewConfigEdit(p.ConfigText)
				if newName != "" {
					edit.UpdateTrackName(trackID, newName)
					p.Config.TrackByID(trackID).Name = newName
					fmt.Fprintf(out, "renamed track %s to %q\n", trackID, newName)
				}
				if newID != "" {
					if err := validateTrackID(newID); err != nil {
						return err
					}
					if err := ops.RenameTrackID(p.FrameDir, edit, &p.Config, trackID, newID); err != nil {
						return err
					}
					if lt := p.TrackFile(trackID); lt != nil {
						lt.ID = newID
						lt.File = "tracks/" + newID + ".md"
					}
					fmt.Fprintf(out, "renamed track %s to %s\n", trackID, newID)
				}
				return saveConfigEdit(p, edit)
			})
		},
	}
	cmd.Flags().StringVar(&newName, "name", "", "New display name")
	cmd.Flags().StringVar(&newID, "id", "", "New track ID")
	cmd.Flags().StringVar(&newPrefix, "prefix", "", "New task ID prefix")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// renamePrefix rewrites every task ID under a track's prefix, including
// dep references on other tracks and the track's archive file.
func renamePrefix(cmd *cobra.Command, p *project.Project, trackID, newPrefix string, dryRun, yes bool) error {
	out := cmd.OutOrStdout()
	oldPrefix := p.Prefix(trackID)
	if oldPrefix == "" {
		return fmt.Errorf("track %q has no ID prefix configured", trackID)
	}
	if oldPrefix == newPrefix {
		return fmt.Errorf("prefix is already %q", oldPrefix)
	}

	impact := ops.PrefixRenameImpact(trackEntries(p), trackID, oldPrefix)

	fmt.Fprintf(out, "Renaming prefix %s → %s:\n", oldPrefix, newPrefix)
	if track := p.Track(trackID); track != nil {
		fmt.Fprintf(out, "  %d task IDs on track %s\n", ops.TotalTaskCount(track), trackID)
	}
	if impact > 0 {
		fmt.Fprintf(out, "  %d dep references on other tracks\n", impact)
	}

	if dryRun {
		fmt.Fprintln(out, "(dry run — no changes written)")
		return nil
	}
	if !yes && !confirm(cmd, "Proceed?") {
		fmt.Fprintln(out, "aborted")
		return nil
	}

	return withLock(p, func() error {
		result, err := ops.RenameTrackPrefix(&p.Config, p.Tracks, trackID, oldPrefix, newPrefix)
		if err != nil {
			return err
		}
		archived, err := ops.RenameArchivePrefix(p.FrameDir, trackID, oldPrefix, newPrefix)
		if err != nil {
			return err
		}
		if err := p.SaveAllTracks(); err != nil {
			return err
		}
		edit := project.NewConfigEdit(p.ConfigText)
		edit.SetPrefix(trackID, newPrefix)
		if err := saveConfigEdit(p, edit); err != nil {
			return err
		}
		fmt.Fprintf(out, "renamed %d task IDs", result.TasksRenamed)
		if result.DepsUpdated > 0 {
			fmt.Fprintf(out, ", %d deps across %d other tracks", result.DepsUpdated, result.TracksAffected)
		}
		if archived > 0 {
			fmt.Fprintf(out, ", %d archived tasks", archived)
		}
		fmt.Fprintln(out)
		return nil
	})
}

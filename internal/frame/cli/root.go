// Package cli wires up the fr command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/cli/commands"
	"github.com/joshsegall/frame-sub002/internal/frame/tui"
)

func Execute() error {
	setupLogging()
	root := newRootCommand()
	return root.Execute()
}

func newRootCommand() *cobra.Command {
	var jsonOut bool
	var projectDir string
	root := &cobra.Command{
		Use:           "fr",
		Short:         "Plain-text task backlog in markdown files",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := projectDir
			if dir == "" {
				dir = "."
			}
			return tui.Run(dir)
		},
	}
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print JSON output where supported")
	root.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", "", "Run as if started in this directory")
	root.AddCommand(
		commands.InitCmd(),
		commands.ListCmd(),
		commands.ShowCmd(),
		commands.ReadyCmd(),
		commands.BlockedCmd(),
		commands.SearchCmd(),
		commands.InboxCmd(),
		commands.TracksCmd(),
		commands.StatsCmd(),
		commands.RecentCmd(),
		commands.DepsCmd(),
		commands.CheckCmd(),
		commands.AddCmd(),
		commands.PushCmd(),
		commands.SubCmd(),
		commands.StateCmd(),
		commands.StartCmd(),
		commands.DoneCmd(),
		commands.TagCmd(),
		commands.DepCmd(),
		commands.NoteCmd(),
		commands.RefCmd(),
		commands.SpecCmd(),
		commands.TitleCmd(),
		commands.MvCmd(),
		commands.TriageCmd(),
		commands.TrackCmd(),
		commands.CleanCmd(),
		commands.ImportCmd(),
		commands.DeleteCmd(),
		commands.ProjectsCmd(),
		commands.RecoveryCmd(),
	)
	return root
}

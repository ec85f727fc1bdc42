package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/recovery"
)

func RecoveryCmd() *cobra.Command {
	var limit int
	var sinceArg string
	cmd := &cobra.Command{
		Use:   "recovery",
		Short: "Show the recovery log",
		Args:  wrapArgs("recovery", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("recovery", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			var since time.Time
			if sinceArg != "" {
				since, err = time.Parse("2006-01-02", sinceArg)
				if err != nil {
					return fmt.Errorf("invalid --since date %q (expected YYYY-MM-DD)", sinceArg)
				}
			}
			entries := recovery.ReadEntries(p.FrameDir, limit, since)

			if jsonEnabled(cmd) {
				type fieldJSON struct {
					Key   string `json:"key"`
					Value string `json:"value"`
				}
				type entryJSON struct {
					Timestamp   string      `json:"timestamp"`
					Category    string      `json:"category"`
					Description string      `json:"description"`
					Fields      []fieldJSON `json:"fields,omitempty"`
					Body        string      `json:"body,omitempty"`
				}
				payload := []entryJSON{}
				for _, e := range entries {
					ej := entryJSON{
						Timestamp:   e.Timestamp.Format(time.RFC3339),
						Category:    string(e.Category),
						Description: e.Description,
						Body:        e.Body,
					}
					for _, f := range e.Fields {
						ej.Fields = append(ej.Fields, fieldJSON{Key: f.Key, Value: f.Value})
					}
					payload = append(payload, ej)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "(recovery log is empty)")
				return nil
			}
			for i, e := range entries {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s  [%s] %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Category, e.Description)
				for _, f := range e.Fields {
					fmt.Fprintf(out, "  %s: %s\n", f.Key, f.Value)
				}
				if e.Body != "" {
					for _, line := range strings.Split(strings.TrimRight(e.Body, "\n"), "\n") {
						fmt.Fprintf(out, "  | %s\n", line)
					}
				}
			}
			if summary, ok := recovery.Summarize(p.FrameDir); ok && summary.EntryCount > len(entries) {
				fmt.Fprintf(out, "\n(%d of %d entries; use --limit to see more)\n", len(entries), summary.EntryCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of entries to show")
	cmd.Flags().StringVar(&sinceArg, "since", "", "Only entries on or after this date (YYYY-MM-DD)")
	cmd.AddCommand(recoveryPruneCmd(), recoveryPathCmd())
	return cmd
}

func recoveryPruneCmd() *cobra.Command {
	var beforeArg string
	var all bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old recovery log entries",
		Args:  wrapArgs("recovery prune", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("recovery prune", err)
				}
			}()
			if beforeArg == "" && !all {
				return fmt.Errorf("pass --before DATE or --all")
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			var before time.Time
			if beforeArg != "" {
				before, err = time.Parse("2006-01-02", beforeArg)
				if err != nil {
					return fmt.Errorf("invalid --before date %q (expected YYYY-MM-DD)", beforeArg)
				}
			}
			pruned, err := recovery.Prune(p.FrameDir, before, all)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries\n", pruned)
			return nil
		},
	}
	cmd.Flags().StringVar(&beforeArg, "before", "", "Remove entries before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every entry")
	return cmd
}

func recoveryPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the recovery log path",
		Args:  wrapArgs("recovery path", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("recovery path", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), recovery.LogPath(p.FrameDir))
			return nil
		},
	}
}

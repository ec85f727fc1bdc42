package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

func TracksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List configured tracks",
		Args:  wrapArgs("tracks", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("tracks", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}

			if jsonEnabled(cmd) {
				payload := []trackInfoJSON{}
				for _, tc := range p.Config.Tracks {
					info := trackInfoJSON{
						ID:      tc.ID,
						Name:    tc.Name,
						State:   tc.State,
						CCFocus: tc.ID == p.Config.Agent.CCFocus,
					}
					if track := p.Track(tc.ID); track != nil {
						info.Stats = toStatsJSON(ops.TaskCounts(track))
					}
					payload = append(payload, info)
				}
				return writeJSON(cmd, payload)
			}

			nameW, idW, pfxW := 0, 0, 0
			for _, tc := range p.Config.Tracks {
				nameW = max(nameW, len(tc.Name))
				idW = max(idW, len(tc.ID))
				pfxW = max(pfxW, len(p.Prefix(tc.ID)))
			}

			out := cmd.OutOrStdout()
			groups := []struct {
				label string
				state string
			}{
				{"Active", "active"},
				{"Shelved", "shelved"},
				{"Archived", "archived"},
			}
			first := true
			for _, g := range groups {
				var rows []model.TrackConfig
				for _, tc := range p.Config.Tracks {
					if tc.State == g.state {
						rows = append(rows, tc)
					}
				}
				if len(rows) == 0 {
					continue
				}
				if !first {
					fmt.Fprintln(out)
				}
				first = false
				fmt.Fprintf(out, "%s:\n", g.label)
				for _, tc := range rows {
					marker := ""
					if tc.ID == p.Config.Agent.CCFocus {
						marker = "  cc"
					}
					fmt.Fprintf(out, "  %-*s  %-*s  %-*s  %s%s\n",
						nameW, tc.Name, idW, tc.ID, pfxW, p.Prefix(tc.ID), tc.File, marker)
				}
			}
			if first {
				fmt.Fprintln(out, "(no tracks)")
			}
			return nil
		},
	}
	return cmd
}

func StatsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts per track",
		Args:  wrapArgs("stats", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("stats", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}

			type row struct {
				id    string
				stats ops.TrackStats
			}
			var rows []row
			var totals ops.TrackStats
			for _, tc := range p.Config.Tracks {
				if tc.State == "archived" {
					continue
				}
				if tc.State == "shelved" && !all {
					continue
				}
				track := p.Track(tc.ID)
				if track == nil {
					continue
				}
				stats := ops.TaskCounts(track)
				rows = append(rows, row{tc.ID, stats})
				totals.Todo += stats.Todo
				totals.Active += stats.Active
				totals.Blocked += stats.Blocked
				totals.Done += stats.Done
				totals.Parked += stats.Parked
			}

			if jsonEnabled(cmd) {
				payload := struct {
					Tracks map[string]trackStatsJSON `json:"tracks"`
					Totals trackStatsJSON            `json:"totals"`
				}{Tracks: make(map[string]trackStatsJSON), Totals: toStatsJSON(totals)}
				for _, r := range rows {
					payload.Tracks[r.id] = toStatsJSON(r.stats)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			idW := len("Total")
			for _, r := range rows {
				idW = max(idW, len(r.id))
			}
			fmt.Fprintf(out, "%-*s  %4s %4s %4s %4s %4s  %5s\n", idW, "track", "[ ]", "[>]", "[-]", "[x]", "[~]", "total")
			for _, r := range rows {
				fmt.Fprintf(out, "%-*s  %4d %4d %4d %4d %4d  %5d\n",
					idW, r.id, r.stats.Todo, r.stats.Active, r.stats.Blocked, r.stats.Done, r.stats.Parked, r.stats.Total())
			}
			fmt.Fprintf(out, "%-*s  %4d %4d %4d %4d %4d  %5d\n",
				idW, "Total", totals.Todo, totals.Active, totals.Blocked, totals.Done, totals.Parked, totals.Total())
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include shelved tracks")
	return cmd
}

type recentEntry struct {
	trackID  string
	task     *model.Task
	resolved string
}

func RecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently completed tasks grouped by date",
		Args:  wrapArgs("recent", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("recent", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}

			active := activeTrackIDs(p)
			var entries []recentEntry
			for _, lt := range p.Tracks {
				if !active[lt.ID] {
					continue
				}
				for _, task := range lt.Track.DoneTasks() {
					resolved := task.Resolved()
					if resolved == "" {
						continue
					}
					entries = append(entries, recentEntry{lt.ID, task, resolved})
				}
			}
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].resolved > entries[j].resolved
			})
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			if jsonEnabled(cmd) {
				payload := []trackTaskJSON{}
				for _, e := range entries {
					payload = append(payload, trackTaskJSON{Track: e.trackID, taskJSON: toTaskJSON(e.task)})
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "(no completed tasks)")
				return nil
			}
			lastDate := ""
			for _, e := range entries {
				if e.resolved != lastDate {
					if lastDate != "" {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "%s\n", e.resolved)
					lastDate = e.resolved
				}
				fmt.Fprintf(out, "  %s (%s)\n", formatTaskLine(e.task), e.trackID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of tasks to show")
	return cmd
}

func checkErrorMessage(ce ops.CheckError) string {
	switch ce.Type {
	case "dangling_dep":
		return fmt.Sprintf("[%s] %s depends on %s, which does not exist", ce.TrackID, ce.TaskID, ce.DepID)
	case "broken_ref":
		return fmt.Sprintf("[%s] %s ref does not exist: %s", ce.TrackID, ce.TaskID, ce.Path)
	case "broken_spec":
		return fmt.Sprintf("[%s] %s spec does not exist: %s", ce.TrackID, ce.TaskID, ce.Path)
	case "duplicate_id":
		return fmt.Sprintf("duplicate id %s in tracks: %s", ce.TaskID, strings.Join(ce.TrackIDs, ", "))
	default:
		return fmt.Sprintf("[%s] %s: %s", ce.TrackID, ce.TaskID, ce.Type)
	}
}

func checkWarningMessage(cw ops.CheckWarning) string {
	switch cw.Type {
	case "missing_id":
		return fmt.Sprintf("[%s] task %q has no id", cw.TrackID, cw.Title)
	case "missing_added_date":
		return fmt.Sprintf("[%s] %s has no added date", cw.TrackID, cw.TaskID)
	case "missing_resolved_date":
		return fmt.Sprintf("[%s] %s is done but has no resolved date", cw.TrackID, cw.TaskID)
	case "done_in_backlog":
		return fmt.Sprintf("[%s] %s is done but still in the backlog", cw.TrackID, cw.TaskID)
	default:
		return fmt.Sprintf("[%s] %s: %s", cw.TrackID, cw.TaskID, cw.Type)
	}
}

func CheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate project integrity",
		Args:  wrapArgs("check", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("check", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			result := ops.CheckProject(p)

			if jsonEnabled(cmd) {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			if len(result.Errors) > 0 {
				fmt.Fprintln(out, "Errors:")
				for _, ce := range result.Errors {
					fmt.Fprintf(out, "  %s\n", checkErrorMessage(ce))
				}
			}
			if len(result.Warnings) > 0 {
				if len(result.Errors) > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, "Warnings:")
				for _, cw := range result.Warnings {
					fmt.Fprintf(out, "  %s\n", checkWarningMessage(cw))
				}
			}
			if result.Valid {
				fmt.Fprintln(out, "✓ project is valid")
				return nil
			}
			fmt.Fprintln(out, "✗ project has errors")
			return nil
		},
	}
	return cmd
}

package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// collectReady gathers every todo task whose dependencies are all
// resolved, walking subtasks too.
func collectReady(p *project.Project, tasks []*model.Task, tag string, ready *[]*model.Task) {
	for _, task := range tasks {
		if task.State == model.Todo && !hasUnresolvedDeps(p, task) {
			if tag == "" || task.HasTag(tag) {
				*ready = append(*ready, task)
			}
		}
		collectReady(p, task.Subtasks, tag, ready)
	}
}

func ReadyCmd() *cobra.Command {
	var ccOnly bool
	var trackArg, tagArg string
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List tasks that are ready to start",
		Args:  wrapArgs("ready", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("ready", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}

			trackFilter := trackArg
			tagFilter := tagArg
			focusTrack := ""
			if ccOnly {
				focusTrack = p.Config.Agent.CCFocus
				if focusTrack == "" {
					return fmt.Errorf("no cc-focus track configured")
				}
				trackFilter = focusTrack
				tagFilter = "cc"
			}

			active := activeTrackIDs(p)
			type trackReady struct {
				trackID string
				track   *model.Track
				tasks   []*model.Task
			}
			var results []trackReady
			for _, lt := range p.Tracks {
				if trackFilter != "" {
					if lt.ID != trackFilter {
						continue
					}
				} else if !active[lt.ID] {
					continue
				}
				var ready []*model.Task
				collectReady(p, lt.Track.BacklogTasks(), tagFilter, &ready)
				if len(ready) > 0 {
					results = append(results, trackReady{lt.ID, lt.Track, ready})
				}
			}

			if jsonEnabled(cmd) {
				payload := struct {
					FocusTrack string          `json:"focus_track,omitempty"`
					Tasks      []trackTaskJSON `json:"tasks"`
				}{FocusTrack: focusTrack, Tasks: []trackTaskJSON{}}
				for _, r := range results {
					for _, task := range r.tasks {
						payload.Tasks = append(payload.Tasks, trackTaskJSON{Track: r.trackID, taskJSON: toTaskJSON(task)})
					}
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "(no ready tasks)")
				return nil
			}
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, formatTrackHeader(r.track, r.trackID))
				for _, task := range r.tasks {
					fmt.Fprintln(out, formatTaskLine(task))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ccOnly, "cc", false, "Only cc-tagged tasks on the cc-focus track")
	cmd.Flags().StringVar(&trackArg, "track", "", "Limit to one track")
	cmd.Flags().StringVar(&tagArg, "tag", "", "Filter by tag")
	return cmd
}

func collectBlocked(p *project.Project, tasks []*model.Task, blocked *[]*model.Task) {
	for _, task := range tasks {
		if task.State == model.Blocked {
			*blocked = append(*blocked, task)
		}
		collectBlocked(p, task.Subtasks, blocked)
	}
}

func BlockedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "List blocked tasks with their blocking dependencies",
		Args:  wrapArgs("blocked", cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("blocked", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			active := activeTrackIDs(p)
			entries := trackEntries(p)

			type blockedHit struct {
				trackID string
				task    *model.Task
			}
			var hits []blockedHit
			for _, lt := range p.Tracks {
				if !active[lt.ID] {
					continue
				}
				var blocked []*model.Task
				collectBlocked(p, lt.Track.BacklogTasks(), &blocked)
				for _, task := range blocked {
					hits = append(hits, blockedHit{lt.ID, task})
				}
			}

			if jsonEnabled(cmd) {
				payload := []trackTaskJSON{}
				for _, h := range hits {
					payload = append(payload, trackTaskJSON{Track: h.trackID, taskJSON: toTaskJSON(h.task)})
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "(no blocked tasks)")
				return nil
			}
			for _, h := range hits {
				line := formatTaskLine(h.task)
				var blocking []string
				for _, depID := range h.task.Deps() {
					dep, _ := ops.FindTaskAnyTrack(entries, depID)
					if dep == nil || dep.State != model.Done {
						blocking = append(blocking, depID)
					}
				}
				if len(blocking) > 0 {
					line += fmt.Sprintf(" (blocked by: %s)", strings.Join(blocking, ", "))
				}
				fmt.Fprintf(out, "[%s] %s\n", h.trackID, line)
			}
			return nil
		},
	}
	return cmd
}

func SearchCmd() *cobra.Command {
	var trackArg string
	var includeArchive bool
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search tasks and the inbox by regular expression",
		Args:  wrapArgs("search", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("search", err)
				}
			}()
			re, err := regexp.Compile("(?i)" + args[0])
			if err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}

			hits := ops.SearchTasks(p, re, trackArg)
			seen := make(map[string]bool)
			out := cmd.OutOrStdout()
			found := false

			type searchHitJSON struct {
				Track string   `json:"track"`
				ID    string   `json:"id"`
				Title string   `json:"title"`
				State string   `json:"state"`
				Tags  []string `json:"tags,omitempty"`
			}
			var payload []searchHitJSON

			for _, hit := range hits {
				key := hit.TrackID + "\x00" + hit.TaskID
				if seen[key] {
					continue
				}
				seen[key] = true
				track := p.Track(hit.TrackID)
				task := ops.FindTask(track, hit.TaskID)
				if task == nil {
					continue
				}
				found = true
				if jsonEnabled(cmd) {
					payload = append(payload, searchHitJSON{
						Track: hit.TrackID,
						ID:    task.ID,
						Title: task.Title,
						State: stateName(task.State),
						Tags:  task.Tags,
					})
					continue
				}
				fmt.Fprintf(out, "[%s] %s\n", hit.TrackID, formatTaskLine(task))
			}

			if trackArg == "" && p.Inbox != nil {
				for _, hit := range ops.SearchInbox(p.Inbox, re) {
					item := p.Inbox.Items[hit.ItemIndex]
					found = true
					if jsonEnabled(cmd) {
						payload = append(payload, searchHitJSON{
							Track: fmt.Sprintf("inbox:%d", hit.ItemIndex+1),
							Title: item.Title,
							Tags:  item.Tags,
						})
						continue
					}
					line := fmt.Sprintf("[inbox:%d] %s", hit.ItemIndex+1, item.Title)
					for _, tag := range item.Tags {
						line += " #" + tag
					}
					fmt.Fprintln(out, line)
				}
			}

			if includeArchive {
				archiveHits, err := searchArchive(p, re, trackArg)
				if err != nil {
					return err
				}
				for _, hit := range archiveHits {
					found = true
					if jsonEnabled(cmd) {
						payload = append(payload, searchHitJSON{
							Track: "archive:" + hit.trackID,
							ID:    hit.task.ID,
							Title: hit.task.Title,
							State: stateName(hit.task.State),
							Tags:  hit.task.Tags,
						})
						continue
					}
					fmt.Fprintf(out, "[archive:%s] %s\n", hit.trackID, formatTaskLine(hit.task))
				}
			}

			if jsonEnabled(cmd) {
				if payload == nil {
					payload = []searchHitJSON{}
				}
				return writeJSON(cmd, payload)
			}
			if !found {
				fmt.Fprintln(out, "(no matches)")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&trackArg, "track", "", "Limit to one track")
	cmd.Flags().BoolVarP(&includeArchive, "archive", "a", false, "Include archived tasks")
	return cmd
}

type archiveHit struct {
	trackID string
	task    *model.Task
}

// searchArchive scans per-track archive files for tasks matching the
// pattern in their ID, title, or tags.
func searchArchive(p *project.Project, re *regexp.Regexp, trackFilter string) ([]archiveHit, error) {
	archiveDir := filepath.Join(p.FrameDir, "archive")
	files, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var hits []archiveHit
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
			continue
		}
		trackID := strings.TrimSuffix(f.Name(), ".md")
		if trackFilter != "" && trackID != trackFilter {
			continue
		}
		data, err := os.ReadFile(filepath.Join(archiveDir, f.Name()))
		if err != nil {
			return nil, err
		}
		archived, _ := parse.ParseTrack(string(data))
		archived.WalkTasks(func(task *model.Task) {
			if re.MatchString(task.ID) || re.MatchString(task.Title) {
				hits = append(hits, archiveHit{trackID, task})
				return
			}
			for _, tag := range task.Tags {
				if re.MatchString(tag) {
					hits = append(hits, archiveHit{trackID, task})
					return
				}
			}
		})
	}
	return hits, nil
}

func DepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <id>",
		Short: "Show the dependency tree of a task",
		Args:  wrapArgs("deps", cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if err != nil {
					err = wrapCommandError("deps", err)
				}
			}()
			p, err := loadProject(cmd)
			if err != nil {
				return err
			}
			task, _, err := findTaskTrack(p, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatTaskLine(task))
			seen := map[string]bool{task.ID: true}
			printDepTree(out, p, task, 1, seen)
			return nil
		},
	}
	return cmd
}

func printDepTree(out io.Writer, p *project.Project, task *model.Task, depth int, seen map[string]bool) {
	entries := trackEntries(p)
	indent := strings.Repeat("  ", depth)
	for _, depID := range task.Deps() {
		dep, _ := ops.FindTaskAnyTrack(entries, depID)
		switch {
		case dep == nil:
			fmt.Fprintf(out, "%s└─ %s (not found)\n", indent, depID)
		case seen[depID]:
			fmt.Fprintf(out, "%s└─ %s (circular)\n", indent, depID)
		default:
			seen[depID] = true
			fmt.Fprintf(out, "%s└─ %s\n", indent, formatTaskLine(dep))
			printDepTree(out, p, dep, depth+1, seen)
		}
	}
}

package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

type taskJSON struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	State    string     `json:"state"`
	Tags     []string   `json:"tags,omitempty"`
	Deps     []string   `json:"deps,omitempty"`
	Spec     string     `json:"spec,omitempty"`
	Refs     []string   `json:"refs,omitempty"`
	Note     string     `json:"note,omitempty"`
	Added    string     `json:"added,omitempty"`
	Resolved string     `json:"resolved,omitempty"`
	Subtasks []taskJSON `json:"subtasks,omitempty"`
}

type trackTaskJSON struct {
	Track string `json:"track"`
	taskJSON
}

type trackStatsJSON struct {
	Active  int `json:"active"`
	Blocked int `json:"blocked"`
	Todo    int `json:"todo"`
	Parked  int `json:"parked"`
	Done    int `json:"done"`
}

type trackInfoJSON struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	State   string         `json:"state"`
	CCFocus bool           `json:"cc_focus"`
	Stats   trackStatsJSON `json:"stats"`
}

type inboxItemJSON struct {
	Index int      `json:"index"`
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
	Body  []string `json:"body,omitempty"`
}

func toTaskJSON(task *model.Task) taskJSON {
	tj := taskJSON{
		ID:       task.ID,
		Title:    task.Title,
		State:    stateName(task.State),
		Tags:     task.Tags,
		Deps:     task.Deps(),
		Spec:     task.Spec(),
		Refs:     task.Refs(),
		Note:     task.Note(),
		Added:    task.Added(),
		Resolved: task.Resolved(),
	}
	for _, sub := range task.Subtasks {
		tj.Subtasks = append(tj.Subtasks, toTaskJSON(sub))
	}
	return tj
}

func toStatsJSON(stats ops.TrackStats) trackStatsJSON {
	return trackStatsJSON{
		Active:  stats.Active,
		Blocked: stats.Blocked,
		Todo:    stats.Todo,
		Parked:  stats.Parked,
		Done:    stats.Done,
	}
}

func stateName(state model.TaskState) string {
	switch state {
	case model.Active:
		return "active"
	case model.Blocked:
		return "blocked"
	case model.Done:
		return "done"
	case model.Parked:
		return "parked"
	default:
		return "todo"
	}
}

func parseTaskState(s string) (model.TaskState, error) {
	switch strings.ToLower(s) {
	case "todo":
		return model.Todo, nil
	case "active":
		return model.Active, nil
	case "blocked":
		return model.Blocked, nil
	case "done":
		return model.Done, nil
	case "parked":
		return model.Parked, nil
	default:
		return model.Todo, fmt.Errorf("unknown state %q (expected: todo, active, blocked, done, parked)", s)
	}
}

// formatTaskLine renders "[c] ID Title #tag1 #tag2".
func formatTaskLine(task *model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%c]", task.State.CheckboxChar())
	if task.ID != "" {
		b.WriteByte(' ')
		b.WriteString(task.ID)
	}
	b.WriteByte(' ')
	b.WriteString(task.Title)
	for _, tag := range task.Tags {
		b.WriteString(" #")
		b.WriteString(tag)
	}
	return b.String()
}

// formatTaskTree renders a task list with subtasks indented two spaces
// per level.
func formatTaskTree(b *strings.Builder, tasks []*model.Task, indent int) {
	for _, task := range tasks {
		b.WriteString(strings.Repeat("  ", indent))
		b.WriteString(formatTaskLine(task))
		b.WriteByte('\n')
		formatTaskTree(b, task.Subtasks, indent+1)
	}
}

// formatTaskDetail renders the full metadata view used by `fr show`.
func formatTaskDetail(task *model.Task, renderNote func(string) string) string {
	var b strings.Builder
	b.WriteString(formatTaskLine(task))
	b.WriteByte('\n')
	if added := task.Added(); added != "" {
		fmt.Fprintf(&b, "added: %s\n", added)
	}
	if resolved := task.Resolved(); resolved != "" {
		fmt.Fprintf(&b, "resolved: %s\n", resolved)
	}
	if deps := task.Deps(); len(deps) > 0 {
		fmt.Fprintf(&b, "dep: %s\n", strings.Join(deps, ", "))
	}
	if spec := task.Spec(); spec != "" {
		fmt.Fprintf(&b, "spec: %s\n", spec)
	}
	for _, ref := range task.Refs() {
		fmt.Fprintf(&b, "ref: %s\n", ref)
	}
	if note := task.Note(); note != "" {
		b.WriteString("note:\n")
		if renderNote != nil {
			b.WriteString(renderNote(note))
			if !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
		} else {
			for _, line := range strings.Split(note, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}
	if len(task.Subtasks) > 0 {
		b.WriteString("\nsubtasks:\n")
		formatTaskTree(&b, task.Subtasks, 1)
	}
	return b.String()
}

// renderNoteMarkdown runs a note through glamour for `fr show --render`.
// Renderer failures fall back to the raw note text.
func renderNoteMarkdown(note string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return note
	}
	out, err := r.Render(note)
	if err != nil {
		return note
	}
	return strings.TrimRight(out, "\n")
}

func formatTrackHeader(track *model.Track, trackID string) string {
	return fmt.Sprintf("== %s (%s) ==", track.Title, trackID)
}

package tui

import (
	"strings"
	"testing"

	"github.com/joshsegall/frame-sub002/internal/frame/ops"
)

func TestEditTitleCommits(t *testing.T) {
	m, dir := newTestModel(t)
	press(t, m, "e")
	if m.inputPurpose != inputEditTitle {
		t.Fatal("expected title input open")
	}
	typeText(t, m, " v2")
	press(t, m, "enter")

	track := m.sess.Project.Track("main")
	task := ops.FindTask(track, "M-001")
	if task.Title != "Write the parser v2" {
		t.Fatalf("unexpected title %q", task.Title)
	}
	if !strings.Contains(readTrackFile(t, dir, "main.md"), "Write the parser v2") {
		t.Fatal("expected title persisted")
	}
}

func TestEditTitleEscCancels(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "e")
	typeText(t, m, " scrapped")
	press(t, m, "esc")

	track := m.sess.Project.Track("main")
	if got := ops.FindTask(track, "M-001").Title; got != "Write the parser" {
		t.Fatalf("esc should leave title unchanged, got %q", got)
	}
	if m.inputPurpose != inputNone {
		t.Fatal("expected input closed")
	}
}

func TestAddTaskAtBottom(t *testing.T) {
	m, dir := newTestModel(t)
	press(t, m, "a")
	typeText(t, m, "Profile the hot path")
	press(t, m, "enter")

	track := m.sess.Project.Track("main")
	tasks := track.BacklogTasks()
	last := tasks[len(tasks)-1]
	if last.ID != "M-011" || last.Title != "Profile the hot path" {
		t.Fatalf("unexpected new task %s %q", last.ID, last.Title)
	}
	if row, _ := m.cursorRow(); row.task.ID != "M-011" {
		t.Fatalf("expected cursor on new task, got %s", row.task.ID)
	}
	if !strings.Contains(readTrackFile(t, dir, "main.md"), "M-011") {
		t.Fatal("expected new task persisted")
	}
}

func TestPushAddsAtTop(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "p")
	typeText(t, m, "Urgent fix")
	press(t, m, "enter")

	track := m.sess.Project.Track("main")
	if got := track.BacklogTasks()[0].Title; got != "Urgent fix" {
		t.Fatalf("expected new task at top, got %q", got)
	}
}

func TestInsertAfterCursor(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "j", "o")
	typeText(t, m, "Follow-up")
	press(t, m, "enter")

	track := m.sess.Project.Track("main")
	tasks := track.BacklogTasks()
	if tasks[2].Title != "Follow-up" {
		t.Fatalf("expected insert after M-002, got order %q %q %q %q",
			tasks[0].ID, tasks[1].ID, tasks[2].Title, tasks[3].ID)
	}
}

func TestAddSubtask(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "A")
	typeText(t, m, "Handle tabs")
	press(t, m, "enter")

	track := m.sess.Project.Track("main")
	parent := ops.FindTask(track, "M-001")
	if len(parent.Subtasks) != 1 || parent.Subtasks[0].ID != "M-001.1" {
		t.Fatalf("expected subtask M-001.1, got %+v", parent.Subtasks)
	}
	if row, _ := m.cursorRow(); row.task.ID != "M-001.1" {
		t.Fatal("expected cursor on new subtask with parent expanded")
	}
}

func TestMoveModeReordersBacklog(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "m", "j", "esc")

	track := m.sess.Project.Track("main")
	tasks := track.BacklogTasks()
	if tasks[0].ID != "M-002" || tasks[1].ID != "M-001" {
		t.Fatalf("expected M-001 moved down, got %s %s", tasks[0].ID, tasks[1].ID)
	}
	if row, _ := m.cursorRow(); row.task.ID != "M-001" {
		t.Fatal("expected cursor to follow the moved task")
	}
}

func TestDeleteTaskWithConfirm(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "G")
	row, _ := m.cursorRow()
	if row.task.ID != "M-000" {
		t.Fatalf("expected cursor on M-000, got %s", row.task.ID)
	}
	press(t, m, "D")
	if m.confirm == nil {
		t.Fatal("expected confirm prompt")
	}
	press(t, m, "y")

	track := m.sess.Project.Track("main")
	if ops.FindTask(track, "M-000") != nil {
		t.Fatal("expected task deleted")
	}
}

func TestDeleteDeclinedKeepsTask(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "D", "n")

	track := m.sess.Project.Track("main")
	if ops.FindTask(track, "M-001") == nil {
		t.Fatal("expected task kept after declining")
	}
}

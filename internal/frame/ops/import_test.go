package ops

import (
	"errors"
	"testing"
)

func TestImportBottom(t *testing.T) {
	track := triageTrack(t)
	md := "- [ ] Imported task one #ready\n" +
		"- [ ] Imported task two #design\n" +
		"- [ ] Imported task three\n"

	result, err := ImportTasks(md, track, AtBottom(), "T")
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []string{"T-003", "T-004", "T-005"}
	if len(result.AssignedIDs) != 3 {
		t.Fatalf("assigned = %v", result.AssignedIDs)
	}
	for i, want := range wantIDs {
		if result.AssignedIDs[i] != want {
			t.Errorf("assigned[%d] = %q, want %q", i, result.AssignedIDs[i], want)
		}
	}
	if result.TotalCount != 3 {
		t.Errorf("total = %d", result.TotalCount)
	}

	backlog := track.BacklogTasks()
	if len(backlog) != 5 {
		t.Fatalf("backlog = %d", len(backlog))
	}
	if backlog[2].Title != "Imported task one" || !backlog[2].HasTag("ready") {
		t.Errorf("first import = %+v", backlog[2])
	}
	if backlog[2].Added() == "" {
		t.Error("imported task should get an added date")
	}
}

func TestImportWithSubtasks(t *testing.T) {
	track := triageTrack(t)
	md := "- [ ] Parent task #ready\n" +
		"  - [ ] Sub one\n" +
		"  - [ ] Sub two\n" +
		"- [ ] Another top-level task\n"

	result, err := ImportTasks(md, track, AtBottom(), "T")
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalCount != 4 {
		t.Errorf("total = %d, want 4 including subtasks", result.TotalCount)
	}
	parent := FindTask(track, "T-003")
	if parent == nil || len(parent.Subtasks) != 2 {
		t.Fatalf("parent = %+v", parent)
	}
	if parent.Subtasks[0].ID != "T-003.1" || parent.Subtasks[1].ID != "T-003.2" {
		t.Errorf("subtask ids = %v", subtaskIDs(parent))
	}
	if parent.Subtasks[0].Depth != 1 {
		t.Errorf("subtask depth = %d", parent.Subtasks[0].Depth)
	}
}

func TestImportSkipsHeadersAndProse(t *testing.T) {
	track := triageTrack(t)
	md := "# Tasks to import\n" +
		"\n" +
		"Some description text here.\n" +
		"\n" +
		"- [ ] Task after header #bug\n" +
		"- [ ] Second task after header\n"

	result, err := ImportTasks(md, track, AtBottom(), "T")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.AssignedIDs) != 2 {
		t.Errorf("assigned = %v", result.AssignedIDs)
	}
}

func TestImportKeepsExistingMetadata(t *testing.T) {
	track := triageTrack(t)
	md := "- [ ] Task with existing metadata\n" +
		"  - added: 2025-01-15\n" +
		"  - note: Some existing note\n" +
		"- [ ] Task without metadata\n"

	if _, err := ImportTasks(md, track, AtBottom(), "T"); err != nil {
		t.Fatal(err)
	}
	withMeta := FindTask(track, "T-003")
	if withMeta.Added() != "2025-01-15" {
		t.Errorf("added = %q, existing date must survive", withMeta.Added())
	}
	if withMeta.Note() != "Some existing note" {
		t.Errorf("note = %q", withMeta.Note())
	}
}

func TestImportBlankLinesBetweenGroups(t *testing.T) {
	track := triageTrack(t)
	md := "- [ ] First group task one\n" +
		"- [ ] First group task two\n" +
		"\n" +
		"- [ ] Second group task\n"

	result, err := ImportTasks(md, track, AtBottom(), "T")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.AssignedIDs) != 3 {
		t.Errorf("assigned = %v", result.AssignedIDs)
	}
}

func TestImportTopAndAfter(t *testing.T) {
	track := triageTrack(t)
	if _, err := ImportTasks("- [ ] On top\n", track, AtTop(), "T"); err != nil {
		t.Fatal(err)
	}
	if got := track.BacklogTasks()[0].Title; got != "On top" {
		t.Errorf("top import landed at %q", got)
	}

	if _, err := ImportTasks("- [ ] After first\n", track, After("T-001"), "T"); err != nil {
		t.Fatal(err)
	}
	backlog := track.BacklogTasks()
	if backlog[2].Title != "After first" {
		t.Errorf("order = %v", backlogIDs(track))
	}
}

func TestImportErrors(t *testing.T) {
	track := triageTrack(t)

	if _, err := ImportTasks("just prose, no tasks\n", track, AtBottom(), "T"); !errors.Is(err, ErrNoTasks) {
		t.Errorf("err = %v, want ErrNoTasks", err)
	}
	if _, err := ImportTasks("- [ ] x\n", track, After("T-999"), "T"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

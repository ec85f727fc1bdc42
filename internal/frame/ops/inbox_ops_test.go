package ops

import (
	"errors"
	"strings"
	"testing"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
)

func sampleInbox(t *testing.T) *model.Inbox {
	t.Helper()
	inbox, dropped := parse.ParseInbox(
		"# Inbox\n" +
			"\n" +
			"- Parser crash on empty blocks #bug\n" +
			"  Saw this when testing.\n" +
			"\n" +
			"- Think about perform semantics #design\n" +
			"\n" +
			"- Quick note\n")
	if len(dropped) != 0 {
		t.Fatalf("fixture dropped: %v", dropped)
	}
	return inbox
}

func triageTrack(t *testing.T) *model.Track {
	t.Helper()
	track, _ := parse.ParseTrack(
		"# Test\n" +
			"\n" +
			"## Backlog\n" +
			"\n" +
			"- [ ] `T-001` First task\n" +
			"- [ ] `T-002` Second task\n" +
			"\n" +
			"## Done\n")
	return track
}

func TestAddInboxItem(t *testing.T) {
	inbox := sampleInbox(t)
	AddInboxItem(inbox, "New item", []string{"bug"}, []string{"Details here."})
	if len(inbox.Items) != 4 {
		t.Fatalf("items = %d", len(inbox.Items))
	}
	item := inbox.Items[3]
	if item.Title != "New item" || len(item.Tags) != 1 || item.Tags[0] != "bug" {
		t.Errorf("item = %+v", item)
	}
	if len(item.Body) != 1 || item.Body[0] != "Details here." {
		t.Errorf("body = %v", item.Body)
	}
}

func TestTriageBottom(t *testing.T) {
	inbox := sampleInbox(t)
	track := triageTrack(t)

	id, err := Triage(inbox, 0, track, AtBottom(), "T")
	if err != nil {
		t.Fatal(err)
	}
	if id != "T-003" {
		t.Errorf("id = %q", id)
	}
	if len(inbox.Items) != 2 {
		t.Errorf("inbox items = %d", len(inbox.Items))
	}
	tasks := track.BacklogTasks()
	if len(tasks) != 3 {
		t.Fatalf("backlog = %d", len(tasks))
	}
	triaged := tasks[2]
	if triaged.Title != "Parser crash on empty blocks" || !triaged.HasTag("bug") {
		t.Errorf("triaged = %+v", triaged)
	}
	if !strings.Contains(triaged.Note(), "Saw this") {
		t.Errorf("note = %q, body should carry over", triaged.Note())
	}
	if triaged.Added() == "" {
		t.Error("triaged task should get an added date")
	}
}

func TestTriageTopAndAfter(t *testing.T) {
	inbox := sampleInbox(t)
	track := triageTrack(t)

	if _, err := Triage(inbox, 1, track, AtTop(), "T"); err != nil {
		t.Fatal(err)
	}
	if got := track.BacklogTasks()[0].Title; got != "Think about perform semantics" {
		t.Errorf("top task = %q", got)
	}

	if _, err := Triage(inbox, 1, track, After("T-001"), "T"); err != nil {
		t.Fatal(err)
	}
	if got := track.BacklogTasks()[2].Title; got != "Quick note" {
		t.Errorf("after task = %q", got)
	}
}

func TestTriageNoBodyNoNote(t *testing.T) {
	inbox := sampleInbox(t)
	track := triageTrack(t)

	if _, err := Triage(inbox, 2, track, AtBottom(), "T"); err != nil {
		t.Fatal(err)
	}
	tasks := track.BacklogTasks()
	if got := tasks[2].Note(); got != "" {
		t.Errorf("note = %q, want none", got)
	}
}

func TestTriageFailuresPreserveInbox(t *testing.T) {
	inbox := sampleInbox(t)

	noBacklog, _ := parse.ParseTrack("# Test\n\n## Done\n")
	if _, err := Triage(inbox, 0, noBacklog, AtBottom(), "T"); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("err = %v, want ErrInvalidPosition", err)
	}
	if len(inbox.Items) != 3 {
		t.Fatal("failed triage consumed an inbox item")
	}

	track := triageTrack(t)
	if _, err := Triage(inbox, 0, track, After("NONEXISTENT"), "T"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(inbox.Items) != 3 {
		t.Fatal("failed triage consumed an inbox item")
	}

	if _, err := Triage(inbox, 10, track, AtBottom(), "T"); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("err = %v, want ErrInvalidPosition", err)
	}
	if len(inbox.Items) != 3 || inbox.Items[0].Title != "Parser crash on empty blocks" {
		t.Fatal("inbox changed after out-of-range triage")
	}
}

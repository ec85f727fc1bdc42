package parse

import (
	"strings"
	"testing"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

const complexTrack = `# Effect System

> Design and implement the algebraic effect system for Lace.

## Backlog

- [>] ` + "`EFF-014`" + ` Implement effect inference for closures #ready
  - added: 2025-05-10
  - dep: EFF-003
  - note:
    The inference must unify effect rows across closure boundaries.

    See the handler desugaring notes:
    ` + "```lace" + `
    handle(e) { ... } with {
      op(x, resume) -> resume(x + 1)
    }
    ` + "```" + `
  - [ ] ` + "`EFF-014.1`" + ` Add effect variables
  - [>] ` + "`EFF-014.2`" + ` Unify effect rows #cc
    - [ ] ` + "`EFF-014.2.1`" + ` Row polymorphism
    - [ ] ` + "`EFF-014.2.2`" + ` Scoped labels
  - [ ] ` + "`EFF-014.3`" + ` Test with nested closures
- [ ] ` + "`EFF-015`" + ` Effect handler optimization pass #ready
  - dep: EFF-014
- [-] ` + "`EFF-012`" + ` Effect-aware DCE #core
  - dep: EFF-014, INFRA-003

## Parked

- [~] ` + "`EFF-020`" + ` Higher-order effect handlers #research

## Done

- [x] ` + "`EFF-003`" + ` Implement effect handler desugaring #ready
  - resolved: 2025-05-14
- [x] ` + "`EFF-001`" + ` Effect syntax in parser
  - resolved: 2025-05-02`

const inboxFixture = `# Inbox

- Parser crashes on empty effect block #bug
  Saw this when testing with empty ` + "`handle {}`" + ` blocks.
  Stack trace points to parser/effect.rs line 142.

- Think about whether ` + "`perform`" + ` should be an expression or statement
  #design
  If it is an expression, we get composability:
  ` + "```lace" + `
  let x = perform Ask() + 1
  ` + "```" + `

- Follow up on handler ergonomics
  #cc-added #bug

- Read the Koka paper on named handlers #research

- Sketch the effect row unification algorithm
  Start from the closure case.

  Then generalize to handler stacks.`

func TestRoundTripComplexTrack(t *testing.T) {
	track, dropped := ParseTrack(complexTrack)
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped lines: %v", dropped)
	}
	out := SerializeTrack(track)
	if out != complexTrack {
		t.Errorf("round trip mismatch:\n--- got ---\n%s\n--- want ---\n%s", out, complexTrack)
	}
}

func TestRoundTripEmptySections(t *testing.T) {
	source := "# Empty Track\n\n## Backlog\n\n## Parked\n\n## Done"
	track, _ := ParseTrack(source)
	if out := SerializeTrack(track); out != source {
		t.Errorf("round trip mismatch: %q", out)
	}
}

func TestRoundTripUnknownSectionStaysLiteral(t *testing.T) {
	source := "# Track\n\n## Notes\n\nFree-form text under an unknown header.\n\n## Backlog\n\n- [ ] `T-001` A task"
	track, _ := ParseTrack(source)
	if out := SerializeTrack(track); out != source {
		t.Errorf("round trip mismatch:\n%s", out)
	}
	if got := len(track.BacklogTasks()); got != 1 {
		t.Errorf("expected 1 backlog task, got %d", got)
	}
}

func TestRoundTripInbox(t *testing.T) {
	inbox, dropped := ParseInbox(inboxFixture)
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped lines: %v", dropped)
	}
	if out := SerializeInbox(inbox); out != inboxFixture {
		t.Errorf("round trip mismatch:\n--- got ---\n%s", out)
	}
}

func TestInboxParseCorrectness(t *testing.T) {
	inbox, _ := ParseInbox(inboxFixture)
	if len(inbox.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(inbox.Items))
	}
	if inbox.Items[0].Title != "Parser crashes on empty effect block" {
		t.Errorf("bad title: %q", inbox.Items[0].Title)
	}
	if len(inbox.Items[0].Tags) != 1 || inbox.Items[0].Tags[0] != "bug" {
		t.Errorf("bad tags: %v", inbox.Items[0].Tags)
	}
	if len(inbox.Items[0].Body) == 0 {
		t.Error("first item lost its body")
	}
	if body := strings.Join(inbox.Items[1].Body, "\n"); !strings.Contains(body, "```lace") {
		t.Errorf("second item lost code fence: %q", body)
	}
	if len(inbox.Items[2].Tags) != 2 || inbox.Items[2].Tags[0] != "cc-added" || inbox.Items[2].Tags[1] != "bug" {
		t.Errorf("continuation tags wrong: %v", inbox.Items[2].Tags)
	}
	if len(inbox.Items[3].Body) != 0 {
		t.Errorf("fourth item should have no body: %v", inbox.Items[3].Body)
	}
	if len(inbox.Items[4].Body) == 0 {
		t.Error("fifth item lost its multiline body")
	}
}

// The core property: rewriting a subtask changes only that subtask's
// lines. Parent, siblings, and unrelated tasks stay byte-identical.
func TestSelectiveRewriteOnlyDirtySubtaskChanges(t *testing.T) {
	source := "# Test Track\n" +
		"\n" +
		"## Backlog\n" +
		"\n" +
		"- [>] `T-001` Parent task\n" +
		"  - added: 2025-05-10\n" +
		"  - dep: T-000\n" +
		"  - [ ] `T-001.1` First subtask\n" +
		"  - [ ] `T-001.2` Second subtask\n" +
		"  - [ ] `T-001.3` Third subtask\n" +
		"- [ ] `T-002` Unrelated task\n" +
		"  - added: 2025-05-11\n" +
		"\n" +
		"## Done"

	track, _ := ParseTrack(source)
	sub := track.BacklogTasks()[0].Subtasks[1]
	if sub.ID != "T-001.2" {
		t.Fatalf("unexpected subtask: %q", sub.ID)
	}
	sub.State = model.Done
	sub.MarkDirty()

	got := SerializeTrack(track)
	want := strings.Replace(source,
		"  - [ ] `T-001.2` Second subtask",
		"  - [x] `T-001.2` Second subtask", 1)
	if got != want {
		t.Errorf("selective rewrite leaked:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestSerializeDirtyTaskCanonical(t *testing.T) {
	task := model.NewTask(model.Active, "Implement effect inference")
	task.ID = "EFF-014"
	task.Tags = []string{"core", "cc"}
	task.Meta = []model.Meta{
		{Kind: model.MetaAdded, Text: "2025-05-10"},
		{Kind: model.MetaDep, List: []string{"EFF-003", "EFF-007"}},
		{Kind: model.MetaNote, Text: "First line.\n\nSecond paragraph."},
	}

	lines := SerializeTasks([]*model.Task{task}, 0)
	want := []string{
		"- [>] `EFF-014` Implement effect inference #core #cc",
		"  - added: 2025-05-10",
		"  - dep: EFF-003, EFF-007",
		"  - note:",
		"    First line.",
		"",
		"    Second paragraph.",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSerializeInboxCanonical(t *testing.T) {
	inbox := &model.Inbox{
		HeaderLines: []string{"# Inbox", ""},
		Items: []*model.InboxItem{
			model.NewInboxItem("First idea", []string{"bug"}, []string{"Some detail."}),
			model.NewInboxItem("Second idea", nil, nil),
		},
	}
	want := "# Inbox\n\n- First idea #bug\n  Some detail.\n\n- Second idea"
	if got := SerializeInbox(inbox); got != want {
		t.Errorf("got:\n%q\nwant:\n%q", got, want)
	}
}

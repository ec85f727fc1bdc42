package parse

import (
	"reflect"
	"strings"
	"testing"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

func toLines(s string) []string {
	return strings.Split(s, "\n")
}

func TestParseMinimalTask(t *testing.T) {
	tasks, _, _ := ParseTasks(toLines("- [ ] Fix parser crash on empty blocks"), 0, 0, 0)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].State != model.Todo {
		t.Errorf("expected todo state, got %v", tasks[0].State)
	}
	if tasks[0].ID != "" {
		t.Errorf("expected no id, got %q", tasks[0].ID)
	}
	if tasks[0].Title != "Fix parser crash on empty blocks" {
		t.Errorf("bad title: %q", tasks[0].Title)
	}
	if len(tasks[0].Tags) != 0 {
		t.Errorf("expected no tags, got %v", tasks[0].Tags)
	}
}

func TestParseTaskWithIDAndTags(t *testing.T) {
	tasks, _, _ := ParseTasks(toLines("- [ ] `EFF-003` Implement effect handler desugaring #core #cc"), 0, 0, 0)
	if tasks[0].ID != "EFF-003" {
		t.Errorf("bad id: %q", tasks[0].ID)
	}
	if tasks[0].Title != "Implement effect handler desugaring" {
		t.Errorf("bad title: %q", tasks[0].Title)
	}
	if !reflect.DeepEqual(tasks[0].Tags, []string{"core", "cc"}) {
		t.Errorf("bad tags: %v", tasks[0].Tags)
	}
}

func TestParseTaskStates(t *testing.T) {
	cases := []struct {
		ch   byte
		want model.TaskState
	}{
		{' ', model.Todo},
		{'>', model.Active},
		{'-', model.Blocked},
		{'x', model.Done},
		{'~', model.Parked},
	}
	for _, tc := range cases {
		tasks, _, _ := ParseTasks(toLines("- ["+string(tc.ch)+"] Test task"), 0, 0, 0)
		if tasks[0].State != tc.want {
			t.Errorf("checkbox %q: expected %v, got %v", tc.ch, tc.want, tasks[0].State)
		}
	}
}

func TestParseTaskWithMetadata(t *testing.T) {
	input := toLines("- [>] `EFF-014` Implement effect inference #core\n" +
		"  - added: 2025-05-10\n" +
		"  - dep: EFF-003\n" +
		"  - spec: doc/spec/effects.md#closure-effects\n" +
		"  - ref: doc/design/effect-handlers-v2.md")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	meta := tasks[0].Meta
	if len(meta) != 4 {
		t.Fatalf("expected 4 metadata entries, got %d", len(meta))
	}
	if meta[0].Kind != model.MetaAdded || meta[0].Text != "2025-05-10" {
		t.Errorf("bad added: %+v", meta[0])
	}
	if meta[1].Kind != model.MetaDep || !reflect.DeepEqual(meta[1].List, []string{"EFF-003"}) {
		t.Errorf("bad dep: %+v", meta[1])
	}
	if meta[2].Kind != model.MetaSpec || meta[2].Text != "doc/spec/effects.md#closure-effects" {
		t.Errorf("bad spec: %+v", meta[2])
	}
	if meta[3].Kind != model.MetaRef || !reflect.DeepEqual(meta[3].List, []string{"doc/design/effect-handlers-v2.md"}) {
		t.Errorf("bad ref: %+v", meta[3])
	}
}

func TestParseSubtasks(t *testing.T) {
	input := toLines("- [>] `EFF-014` Implement effect inference #core\n" +
		"  - added: 2025-05-10\n" +
		"  - [ ] `EFF-014.1` Add effect variables\n" +
		"  - [>] `EFF-014.2` Unify effect rows #cc\n" +
		"  - [ ] `EFF-014.3` Test with nested closures")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	if len(tasks[0].Subtasks) != 3 {
		t.Fatalf("expected 3 subtasks, got %d", len(tasks[0].Subtasks))
	}
	if tasks[0].Subtasks[0].ID != "EFF-014.1" {
		t.Errorf("bad subtask id: %q", tasks[0].Subtasks[0].ID)
	}
	if !reflect.DeepEqual(tasks[0].Subtasks[1].Tags, []string{"cc"}) {
		t.Errorf("bad subtask tags: %v", tasks[0].Subtasks[1].Tags)
	}
	if tasks[0].Subtasks[2].State != model.Todo {
		t.Errorf("bad subtask state: %v", tasks[0].Subtasks[2].State)
	}
}

func TestParseNoteBlock(t *testing.T) {
	input := toLines("- [ ] `EFF-014` Test task\n" +
		"  - note:\n" +
		"    Found while working on EFF-002.\n" +
		"    \n" +
		"    The desugaring needs to handle three cases:\n" +
		"     1. Simple perform\n" +
		"     2. Single-shot resumption")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	if len(tasks[0].Meta) != 1 {
		t.Fatalf("expected 1 metadata entry, got %d", len(tasks[0].Meta))
	}
	note := tasks[0].Note()
	if !strings.Contains(note, "Found while working") {
		t.Errorf("note missing first paragraph: %q", note)
	}
	if !strings.Contains(note, "three cases") {
		t.Errorf("note missing second paragraph: %q", note)
	}
	if !strings.Contains(note, " 1. Simple perform") {
		t.Errorf("note lost relative indentation: %q", note)
	}
}

func TestParseNoteWithCodeFence(t *testing.T) {
	input := toLines("- [ ] `EFF-014` Test task\n" +
		"  - note:\n" +
		"    See the Koka paper:\n" +
		"    ```lace\n" +
		"    handle(e) { ... } with {\n" +
		"      op(x, resume) -> resume(x + 1)\n" +
		"    }\n" +
		"    ```")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	note := tasks[0].Note()
	if !strings.Contains(note, "```lace") || !strings.Contains(note, "handle(e)") {
		t.Errorf("note lost code fence content: %q", note)
	}
}

func TestParseMultipleDeps(t *testing.T) {
	input := toLines("- [-] `EFF-012` Effect-aware DCE #core\n  - dep: EFF-014, INFRA-003")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	if !reflect.DeepEqual(tasks[0].Deps(), []string{"EFF-014", "INFRA-003"}) {
		t.Errorf("bad deps: %v", tasks[0].Deps())
	}
}

func TestThreeLevelNesting(t *testing.T) {
	input := toLines("- [>] `EFF-014` Top level\n" +
		"  - [>] `EFF-014.2` Second level #cc\n" +
		"    - [ ] `EFF-014.2.1` Third level\n" +
		"    - [ ] `EFF-014.2.2` Third level 2")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	if len(tasks[0].Subtasks) != 1 {
		t.Fatalf("expected 1 subtask, got %d", len(tasks[0].Subtasks))
	}
	if len(tasks[0].Subtasks[0].Subtasks) != 2 {
		t.Fatalf("expected 2 sub-subtasks, got %d", len(tasks[0].Subtasks[0].Subtasks))
	}
	if tasks[0].Subtasks[0].Subtasks[0].ID != "EFF-014.2.1" {
		t.Errorf("bad third-level id: %q", tasks[0].Subtasks[0].Subtasks[0].ID)
	}
}

func TestBlankLinesBetweenNoteAndSubtasks(t *testing.T) {
	input := toLines("- [ ] `T-001` Parent task\n" +
		"  - note:\n" +
		"    Some note content\n" +
		"\n" +
		"\n" +
		"  - [ ] `T-001.1` First subtask\n" +
		"  - [ ] `T-001.2` Second subtask")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if len(tasks[0].Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(tasks[0].Subtasks))
	}
	if !strings.Contains(tasks[0].Note(), "Some note content") {
		t.Errorf("note lost: %q", tasks[0].Note())
	}
}

func TestBlankLineBetweenEmptyNoteAndMetadata(t *testing.T) {
	input := toLines("- [ ] `T-001` Task\n" +
		"  - note:\n" +
		"\n" +
		"  - spec: some-file.md\n" +
		"  - dep: T-002")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	meta := tasks[0].Meta
	if len(meta) != 3 {
		t.Fatalf("expected note+spec+dep, got %d entries", len(meta))
	}
	if meta[0].Kind != model.MetaNote || meta[0].Text != "" {
		t.Errorf("expected empty note, got %+v", meta[0])
	}
	if meta[1].Kind != model.MetaSpec || meta[1].Text != "some-file.md" {
		t.Errorf("bad spec: %+v", meta[1])
	}
	if meta[2].Kind != model.MetaDep || !reflect.DeepEqual(meta[2].List, []string{"T-002"}) {
		t.Errorf("bad dep: %+v", meta[2])
	}
}

func TestBlankLinesBetweenSiblingTasks(t *testing.T) {
	input := toLines("- [ ] `T-001` First task\n" +
		"  - added: 2025-01-01\n" +
		"\n" +
		"- [ ] `T-002` Second task")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "T-001" || tasks[1].ID != "T-002" {
		t.Errorf("bad ids: %q %q", tasks[0].ID, tasks[1].ID)
	}
}

func TestBlankLinesBeforeSectionHeaderStop(t *testing.T) {
	input := toLines("- [ ] `T-001` First task\n\n## Done")
	tasks, next, _ := ParseTasks(input, 0, 0, 0)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if next != 1 {
		t.Errorf("expected parsing to stop at the blank line, stopped at %d", next)
	}
}

func TestParseTitleAndTagsEdgeCases(t *testing.T) {
	title, tags := ParseTitleAndTags("Fix parser crash")
	if title != "Fix parser crash" || len(tags) != 0 {
		t.Errorf("plain title: got %q %v", title, tags)
	}

	title, tags = ParseTitleAndTags("#core #cc")
	if title != "" || !reflect.DeepEqual(tags, []string{"core", "cc"}) {
		t.Errorf("tag-only: got %q %v", title, tags)
	}

	title, tags = ParseTitleAndTags("Fix #3 parser crash #bug")
	if title != "Fix #3 parser crash" || !reflect.DeepEqual(tags, []string{"bug"}) {
		t.Errorf("mid-title hash: got %q %v", title, tags)
	}
}

func TestParentSourceExcludesSubtasks(t *testing.T) {
	input := toLines("- [>] `T-001` Parent task\n" +
		"  - added: 2025-05-10\n" +
		"  - [ ] `T-001.1` First subtask\n" +
		"  - [ ] `T-001.2` Second subtask")
	tasks, _, _ := ParseTasks(input, 0, 0, 0)

	parent := tasks[0]
	if len(parent.Source) != 2 {
		t.Fatalf("parent source should be task line + added, got %d lines", len(parent.Source))
	}
	if parent.Source[0] != "- [>] `T-001` Parent task" || parent.Source[1] != "  - added: 2025-05-10" {
		t.Errorf("bad parent source: %v", parent.Source)
	}

	if len(parent.Subtasks) != 2 {
		t.Fatalf("expected 2 subtasks, got %d", len(parent.Subtasks))
	}
	sub := parent.Subtasks[0]
	if len(sub.Source) != 1 || sub.Source[0] != "  - [ ] `T-001.1` First subtask" {
		t.Errorf("bad subtask source: %v", sub.Source)
	}
}

func TestOrphanedDeeperContentReportedDropped(t *testing.T) {
	input := toLines("- [ ] `T-001` First task\n" +
		"      - [ ] orphaned deep task\n" +
		"- [ ] `T-002` Second task")
	tasks, _, dropped := ParseTasks(input, 0, 0, 0)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if len(tasks[0].Source) != 2 {
		// The stray line sits inside the first task's verbatim span.
		t.Errorf("expected stray line kept in task source, got %v (dropped %v)", tasks[0].Source, dropped)
	}
}

package tui

import (
	"strings"
	"testing"
)

func TestSearchJumpsToMatch(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "/")
	typeText(t, m, "importer")
	press(t, m, "enter")

	row, ok := m.cursorRow()
	if !ok || row.task.ID != "M-003" {
		t.Fatalf("expected cursor on M-003, got %+v", row)
	}
	if m.searching {
		t.Fatal("expected search closed after enter")
	}
	if m.ui.LastSearch != "importer" {
		t.Fatalf("expected search recorded, got %q", m.ui.LastSearch)
	}
}

func TestSearchEscLeavesCursor(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "/")
	typeText(t, m, "importer")
	press(t, m, "esc")

	if m.cursor != 0 {
		t.Fatalf("expected cursor unchanged, got %d", m.cursor)
	}
	if m.searching {
		t.Fatal("expected search closed after esc")
	}
}

func TestSearchOverlayListsMatches(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "/")
	typeText(t, m, "parser")

	view := m.View()
	if !strings.Contains(view, "M-001 Write the parser") {
		t.Fatalf("expected match listed, got:\n%s", view)
	}
	if strings.Contains(view, "M-010") {
		t.Fatal("did not expect non-matching task in overlay")
	}
}

func TestSearchNoMatches(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "/")
	typeText(t, m, "zzzzqq")

	if !strings.Contains(m.View(), "(no matches)") {
		t.Fatal("expected empty-result notice")
	}
}

func TestSearchHistoryDeduplicates(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 2; i++ {
		press(t, m, "/")
		typeText(t, m, "parser")
		press(t, m, "enter")
	}
	if len(m.ui.SearchHistory) != 1 {
		t.Fatalf("expected one history entry, got %d", len(m.ui.SearchHistory))
	}
}

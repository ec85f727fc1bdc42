package recovery

import (
	"os"
	"strings"
	"testing"
	"time"
)

func makeEntry(cat Category, desc, body string) Entry {
	return Entry{
		Timestamp:   time.Now().UTC(),
		Category:    cat,
		Description: desc,
		Fields: []Field{
			{Key: "Source", Value: "tracks/test.md"},
			{Key: "Context", Value: `section "Backlog"`},
		},
		Body: body,
	}
}

func TestEntryMarkdown(t *testing.T) {
	e := makeEntry(CategoryParser, "dropped lines", "some content")
	md := e.Markdown()

	if !strings.HasPrefix(md, "## ") {
		t.Errorf("expected header line, got %q", md)
	}
	for _, want := range []string{
		"parser: dropped lines",
		"Source: tracks/test.md",
		"```text",
		"some content",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if !strings.HasSuffix(md, "---\n") {
		t.Errorf("expected trailing rule, got %q", md)
	}
}

func TestEntryMarkdownNoBody(t *testing.T) {
	e := makeEntry(CategoryWrite, "stale write", "")
	if strings.Contains(e.Markdown(), "```") {
		t.Error("empty body should not produce a code fence")
	}
}

func TestLogAndRead(t *testing.T) {
	dir := t.TempDir()

	Log(dir, makeEntry(CategoryParser, "first", "body one"))
	Log(dir, makeEntry(CategoryConflict, "second", "body two"))

	data, err := os.ReadFile(LogPath(dir))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.HasPrefix(string(data), "<!-- frame recovery log") {
		t.Error("log should start with the file header")
	}
	if strings.Count(string(data), "<!-- frame recovery log") != 1 {
		t.Error("header should be written once")
	}

	entries := ReadEntries(dir, 0, time.Time{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Most recent first.
	if entries[0].Description != "second" {
		t.Errorf("expected most recent entry first, got %q", entries[0].Description)
	}
	if entries[1].Category != CategoryParser {
		t.Errorf("category = %q, want parser", entries[1].Category)
	}
	if entries[1].Body != "body one" {
		t.Errorf("body = %q", entries[1].Body)
	}
	if len(entries[1].Fields) != 2 || entries[1].Fields[0].Key != "Source" {
		t.Errorf("fields not preserved: %+v", entries[1].Fields)
	}
}

func TestReadEntriesMissingLog(t *testing.T) {
	if got := ReadEntries(t.TempDir(), 0, time.Time{}); got != nil {
		t.Errorf("expected nil for missing log, got %v", got)
	}
}

func TestReadEntriesLimit(t *testing.T) {
	dir := t.TempDir()
	for _, desc := range []string{"a", "b", "c", "d"} {
		Log(dir, makeEntry(CategoryWrite, desc, ""))
	}

	entries := ReadEntries(dir, 2, time.Time{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Description != "d" || entries[1].Description != "c" {
		t.Errorf("limit should keep the most recent entries: %q, %q",
			entries[0].Description, entries[1].Description)
	}
}

func TestReadEntriesSince(t *testing.T) {
	dir := t.TempDir()

	old := makeEntry(CategoryParser, "old", "")
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	Log(dir, old)
	Log(dir, makeEntry(CategoryParser, "recent", ""))

	entries := ReadEntries(dir, 0, time.Now().UTC().Add(-time.Hour))
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Description != "recent" {
		t.Errorf("got %q", entries[0].Description)
	}
}

func TestLogTaskDeletion(t *testing.T) {
	dir := t.TempDir()
	LogTaskDeletion(dir, "T-042", "main", "- [ ] `T-042` Doomed task #old\n")

	entries := ReadEntries(dir, 0, time.Time{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Category != CategoryDelete {
		t.Errorf("category = %q", e.Category)
	}
	if e.Description != "task T-042 deleted" {
		t.Errorf("description = %q", e.Description)
	}
	var gotTask, gotTrack string
	for _, f := range e.Fields {
		switch f.Key {
		case "Task":
			gotTask = f.Value
		case "Track":
			gotTrack = f.Value
		}
	}
	if gotTask != "T-042" || gotTrack != "main" {
		t.Errorf("fields Task=%q Track=%q", gotTask, gotTrack)
	}
	if !strings.Contains(e.Body, "Doomed task") {
		t.Errorf("body should hold the task source, got %q", e.Body)
	}
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()

	if _, ok := Summarize(dir); ok {
		t.Error("expected no summary for a missing log")
	}

	oldest := makeEntry(CategoryParser, "oldest", "")
	oldest.Timestamp = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	Log(dir, oldest)
	Log(dir, makeEntry(CategoryWrite, "later", ""))

	sum, ok := Summarize(dir)
	if !ok {
		t.Fatal("expected a summary")
	}
	if sum.EntryCount != 2 {
		t.Errorf("count = %d", sum.EntryCount)
	}
	if !sum.Oldest.Equal(oldest.Timestamp) {
		t.Errorf("oldest = %v, want %v", sum.Oldest, oldest.Timestamp)
	}
}

func TestPruneAll(t *testing.T) {
	dir := t.TempDir()
	Log(dir, makeEntry(CategoryParser, "one", ""))
	Log(dir, makeEntry(CategoryParser, "two", ""))

	removed, err := Prune(dir, time.Time{}, true)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	data, _ := os.ReadFile(LogPath(dir))
	if string(data) != fileHeader {
		t.Errorf("log should contain only the header after prune --all:\n%s", data)
	}
	if got := ReadEntries(dir, 0, time.Time{}); len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}

func TestPruneBefore(t *testing.T) {
	dir := t.TempDir()

	old := makeEntry(CategoryDelete, "stale", "old body")
	old.Timestamp = time.Now().UTC().AddDate(0, 0, -60)
	Log(dir, old)
	Log(dir, makeEntry(CategoryDelete, "fresh", "new body"))

	removed, err := Prune(dir, time.Now().UTC().AddDate(0, 0, -PruneAgeDays), false)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	entries := ReadEntries(dir, 0, time.Time{})
	if len(entries) != 1 || entries[0].Description != "fresh" {
		t.Fatalf("expected only the fresh entry, got %+v", entries)
	}

	data, _ := os.ReadFile(LogPath(dir))
	if !strings.HasPrefix(string(data), "<!-- frame recovery log") {
		t.Error("prune should preserve the file header")
	}
	if strings.Contains(string(data), "old body") {
		t.Error("pruned entry body should be gone")
	}
}

func TestPruneMissingLog(t *testing.T) {
	removed, err := Prune(t.TempDir(), time.Time{}, false)
	if err != nil || removed != 0 {
		t.Errorf("missing log: removed=%d err=%v", removed, err)
	}
}

func TestParseEntriesIgnoresGarbage(t *testing.T) {
	content := fileHeader +
		"## not a valid header\n\nStray: field\n\n---\n" +
		"## 2026-02-01T12:00:00Z — parser: real entry\n\nSource: tracks/a.md\n\n---\n"

	entries := parseEntries(content)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Description != "real entry" {
		t.Errorf("got %q", entries[0].Description)
	}
}

func TestParseEntryHeader(t *testing.T) {
	ts, cat, desc, ok := parseEntryHeader("2026-03-04T05:06:07Z — conflict: concurrent edit on main")
	if !ok {
		t.Fatal("expected header to parse")
	}
	if cat != CategoryConflict {
		t.Errorf("category = %q", cat)
	}
	if desc != "concurrent edit on main" {
		t.Errorf("description = %q", desc)
	}
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ts, want)
	}

	if _, _, _, ok := parseEntryHeader("2026-03-04T05:06:07Z — bogus: nope"); ok {
		t.Error("unknown category should not parse")
	}
	if _, _, _, ok := parseEntryHeader("not a timestamp — parser: x"); ok {
		t.Error("bad timestamp should not parse")
	}
}

func TestBodyRoundTripMultiline(t *testing.T) {
	dir := t.TempDir()
	body := "- [ ] `T-001` First line\n  note: second line\n  - [ ] `T-001.1` Child"
	Log(dir, makeEntry(CategoryDelete, "subtree", body))

	entries := ReadEntries(dir, 0, time.Time{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Body != body {
		t.Errorf("body round trip:\ngot  %q\nwant %q", entries[0].Body, body)
	}
}

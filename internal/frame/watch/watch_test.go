package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func waitForEvent(t *testing.T, w *Watcher, contains string) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, evt := range w.Poll() {
			for _, p := range evt.Paths {
				if strings.Contains(p, contains) {
					return true
				}
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func setupFrameDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "tracks"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestWatcherSeesTrackEdits(t *testing.T) {
	dir := setupFrameDir(t)
	w, err := Start(dir)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, "tracks", "main.md")
	if err := os.WriteFile(path, []byte("# Main\n\n## Backlog\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitForEvent(t, w, "main.md") {
		t.Error("expected an event for tracks/main.md")
	}
}

func TestWatcherSeesConfigEdits(t *testing.T) {
	dir := setupFrameDir(t)
	w, err := Start(dir)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "project.toml"), []byte("[project]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitForEvent(t, w, "project.toml") {
		t.Error("expected an event for project.toml")
	}
}

func TestWatcherIgnoresLockAndState(t *testing.T) {
	dir := setupFrameDir(t)
	w, err := Start(dir)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	os.WriteFile(filepath.Join(dir, ".lock"), []byte("pid=1\n"), 0o644)
	os.WriteFile(filepath.Join(dir, ".state.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	time.Sleep(200 * time.Millisecond)
	if events := w.Poll(); len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestRelevant(t *testing.T) {
	w := &Watcher{frameDir: "/proj/frame"}

	cases := []struct {
		path string
		want bool
	}{
		{"/proj/frame/tracks/main.md", true},
		{"/proj/frame/project.toml", true},
		{"/proj/frame/inbox.md", true},
		{"/proj/frame/archive/main.md", true},
		{"/proj/frame/.lock", false},
		{"/proj/frame/.state.json", false},
		{"/proj/frame/.recovery.log", false},
		{"/elsewhere/file.md", false},
	}
	for _, c := range cases {
		if got := w.relevant(c.path); got != c.want {
			t.Errorf("relevant(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestPollEmptyWithoutChanges(t *testing.T) {
	dir := setupFrameDir(t)
	w, err := Start(dir)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Close()

	if events := w.Poll(); len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempRegistry(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "frame", "projects.yaml")
}

func TestReadMissingFile(t *testing.T) {
	reg := ReadFrom(tempRegistry(t))
	if len(reg.Projects) != 0 {
		t.Errorf("expected empty registry, got %d projects", len(reg.Projects))
	}
}

func TestRegisterAndRead(t *testing.T) {
	path := tempRegistry(t)

	if !RegisterIn(path, "test-proj", "/tmp/test") {
		t.Error("first registration should be new")
	}

	reg := ReadFrom(path)
	if len(reg.Projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(reg.Projects))
	}
	if reg.Projects[0].Name != "test-proj" || reg.Projects[0].Path != "/tmp/test" {
		t.Errorf("entry = %+v", reg.Projects[0])
	}
}

func TestRegisterDuplicatePathUpdatesName(t *testing.T) {
	path := tempRegistry(t)

	RegisterIn(path, "proj", "/tmp/test")
	if RegisterIn(path, "proj-renamed", "/tmp/test") {
		t.Error("re-registration should not be new")
	}

	reg := ReadFrom(path)
	if len(reg.Projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(reg.Projects))
	}
	if reg.Projects[0].Name != "proj-renamed" {
		t.Errorf("name = %q, want proj-renamed", reg.Projects[0].Name)
	}
}

func TestRemoveByName(t *testing.T) {
	path := tempRegistry(t)
	RegisterIn(path, "my-proj", "/tmp/my-proj")

	removed, err := RemoveFrom(path, "my-proj")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed == nil || removed.Name != "my-proj" {
		t.Fatalf("removed = %+v", removed)
	}
	if reg := ReadFrom(path); len(reg.Projects) != 0 {
		t.Errorf("expected empty registry after remove")
	}
}

func TestRemoveByPath(t *testing.T) {
	path := tempRegistry(t)
	RegisterIn(path, "a", "/srv/projects/a")
	RegisterIn(path, "b", "/srv/projects/b")

	removed, err := RemoveFrom(path, "/srv/projects/a")
	if err != nil || removed == nil {
		t.Fatalf("remove by path: removed=%v err=%v", removed, err)
	}
	reg := ReadFrom(path)
	if len(reg.Projects) != 1 || reg.Projects[0].Name != "b" {
		t.Errorf("registry after remove = %+v", reg.Projects)
	}
}

func TestRemoveNotFound(t *testing.T) {
	removed, err := RemoveFrom(tempRegistry(t), "nonexistent")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != nil {
		t.Errorf("expected nil, got %+v", removed)
	}
}

func TestRemoveAmbiguousName(t *testing.T) {
	path := tempRegistry(t)
	RegisterIn(path, "same", "/tmp/one")
	RegisterIn(path, "same", "/tmp/two")

	if _, err := RemoveFrom(path, "same"); err == nil {
		t.Error("expected an error for ambiguous name")
	}
}

func TestCorruptedRegistryBackup(t *testing.T) {
	path := tempRegistry(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("projects: [not: valid: yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := ReadFrom(path)
	if len(reg.Projects) != 0 {
		t.Errorf("expected empty registry, got %d projects", len(reg.Projects))
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("expected backup file: %v", err)
	}
}

func TestRoundTripTimestamps(t *testing.T) {
	path := tempRegistry(t)

	now := time.Now().UTC().Truncate(time.Second)
	reg := &Registry{Projects: []Entry{{
		Name:            "test",
		Path:            "/tmp/test",
		LastAccessedTUI: &now,
	}}}
	if err := WriteTo(path, reg); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded := ReadFrom(path)
	if len(loaded.Projects) != 1 {
		t.Fatalf("expected 1 project")
	}
	e := loaded.Projects[0]
	if e.LastAccessedTUI == nil || !e.LastAccessedTUI.Equal(now) {
		t.Errorf("last_accessed_tui = %v, want %v", e.LastAccessedTUI, now)
	}
	if e.LastAccessedCLI != nil {
		t.Errorf("last_accessed_cli should stay unset, got %v", e.LastAccessedCLI)
	}
}

func TestAbbreviatePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	if got := AbbreviatePath(filepath.Join(home, "code", "frame")); got != "~/code/frame" {
		t.Errorf("got %q", got)
	}
	if got := AbbreviatePath("/opt/frame"); got != "/opt/frame" {
		t.Errorf("non-home path should pass through, got %q", got)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	cases := []struct {
		t    time.Time
		want string
	}{
		{now, "just now"},
		{now.Add(-5 * time.Minute), "5 min ago"},
		{now.Add(-3 * time.Hour), "3 hr ago"},
		{now.Add(-25 * time.Hour), "yesterday"},
		{now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{now.Add(-15 * 24 * time.Hour), "2 weeks ago"},
		{now.Add(-90 * 24 * time.Hour), "3 months ago"},
	}
	for _, c := range cases {
		if got := RelativeTime(c.t); got != c.want {
			t.Errorf("RelativeTime(%v) = %q, want %q", now.Sub(c.t), got, c.want)
		}
	}
}

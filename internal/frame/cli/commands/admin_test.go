package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTracksGroupsByState(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, TracksCmd())
	activeIdx := strings.Index(out, "Active:")
	shelvedIdx := strings.Index(out, "Shelved:")
	if activeIdx < 0 || shelvedIdx < 0 || shelvedIdx < activeIdx {
		t.Fatalf("missing or misordered groups:\n%s", out)
	}
	mainLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "tracks/main.md") {
			mainLine = line
		}
	}
	if !strings.Contains(mainLine, "cc") {
		t.Fatalf("cc marker missing from %q", mainLine)
	}
}

func TestTracksJSON(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, TracksCmd(), "--json")
	var payload []struct {
		ID      string `json:"id"`
		State   string `json:"state"`
		CCFocus bool   `json:"cc_focus"`
		Stats   struct {
			Todo int `json:"todo"`
			Done int `json:"done"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(payload) != 2 || payload[0].ID != "main" || !payload[0].CCFocus {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload[0].Stats.Todo != 1 || payload[0].Stats.Done != 1 {
		t.Fatalf("unexpected stats: %+v", payload[0].Stats)
	}
}

func TestStatsTable(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, StatsCmd())
	if strings.Contains(out, "side") {
		t.Fatalf("shelved track included without --all:\n%s", out)
	}
	if !strings.Contains(out, "Total") {
		t.Fatalf("totals row missing:\n%s", out)
	}
	out = runCmd(t, dir, StatsCmd(), "--all")
	if !strings.Contains(out, "side") {
		t.Fatalf("--all should include shelved tracks:\n%s", out)
	}
}

func TestRecentGroupsByDate(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, RecentCmd())
	if !strings.Contains(out, "2025-02-01") {
		t.Fatalf("date group missing:\n%s", out)
	}
	if !strings.Contains(out, "  [x] M-000 Bootstrap the repo (main)") {
		t.Fatalf("task line missing:\n%s", out)
	}
}

func TestCheckReportsWarnings(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, CheckCmd())
	if !strings.Contains(out, "✓ project is valid") {
		t.Fatalf("expected valid project:\n%s", out)
	}
	// M-003 has no added date
	if !strings.Contains(out, "M-003 has no added date") {
		t.Fatalf("missing-date warning absent:\n%s", out)
	}
}

func TestCheckFindsDanglingDep(t *testing.T) {
	dir := newTestProject(t)
	path := filepath.Join(dir, "frame", "tracks", "main.md")
	content := strings.Replace(testTrack, "- added: 2025-03-01", "- added: 2025-03-01\n  - dep: M-999", 1)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, dir, CheckCmd())
	if !strings.Contains(out, "✗ project has errors") {
		t.Fatalf("expected errors:\n%s", out)
	}
	if !strings.Contains(out, "M-001 depends on M-999") {
		t.Fatalf("dangling dep not reported:\n%s", out)
	}
}

func TestCleanAssignsDates(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, CleanCmd())
	if !strings.Contains(out, "Dates assigned:") {
		t.Fatalf("expected date assignment:\n%s", out)
	}
	content := readTrackFile(t, dir, "main.md")
	if !strings.Contains(content, "M-003") || strings.Count(content, "added:") < 3 {
		t.Fatalf("dates not written:\n%s", content)
	}
	if _, err := os.Stat(filepath.Join(dir, "frame", "ACTIVE.md")); err != nil {
		t.Fatalf("ACTIVE.md not written: %v", err)
	}
}

func TestCleanDryRunWritesNothing(t *testing.T) {
	dir := newTestProject(t)
	before := readTrackFile(t, dir, "main.md")
	out := runCmd(t, dir, CleanCmd(), "--dry-run")
	if !strings.Contains(out, "(dry run — no changes written)") {
		t.Fatalf("dry-run marker missing:\n%s", out)
	}
	if readTrackFile(t, dir, "main.md") != before {
		t.Fatal("dry run modified the track file")
	}
	if _, err := os.Stat(filepath.Join(dir, "frame", "ACTIVE.md")); err == nil {
		t.Fatal("dry run wrote ACTIVE.md")
	}
}

func TestImportCountsSubtasks(t *testing.T) {
	dir := newTestProject(t)
	src := filepath.Join(dir, "plan.md")
	md := "- [ ] Build the exporter\n  - [ ] Pick a format\n- [ ] Document it\n"
	if err := os.WriteFile(src, []byte(md), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, dir, ImportCmd(), src)
	if !strings.Contains(out, "imported 2 tasks (3 including subtasks)") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	content := readTrackFile(t, dir, "main.md")
	if !strings.Contains(content, "Build the exporter") || !strings.Contains(content, "Pick a format") {
		t.Fatalf("imported tasks missing:\n%s", content)
	}
}

func TestTrackNewCreatesFileAndConfig(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, TrackCmd(), "new", "infra", "Infra", "Work")
	if !strings.Contains(out, "created track infra") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "frame", "tracks", "infra.md")); err != nil {
		t.Fatalf("track file missing: %v", err)
	}
	config, err := os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(config), `id = "infra"`) || !strings.Contains(string(config), `name = "Infra Work"`) {
		t.Fatalf("config not updated:\n%s", config)
	}
}

func TestTrackShelveAndActivate(t *testing.T) {
	dir := newTestProject(t)
	runCmd(t, dir, TrackCmd(), "shelve", "main")
	config, _ := os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if !strings.Contains(string(config), `state = "shelved"`) {
		t.Fatalf("track not shelved:\n%s", config)
	}
	runCmd(t, dir, TrackCmd(), "activate", "side")
	config, _ = os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if strings.Contains(string(config), `state = "shelved"`) && !strings.Contains(string(config), "side") {
		t.Fatalf("side not activated:\n%s", config)
	}
}

func TestTrackDeleteRefusesNonEmpty(t *testing.T) {
	dir := newTestProject(t)
	_, err := tryCmd(t, dir, TrackCmd(), "delete", "main")
	if err == nil || !strings.Contains(err.Error(), "has 5 tasks") {
		t.Fatalf("expected task-count error, got %v", err)
	}
}

func TestTrackDeleteRemovesEmptyTrack(t *testing.T) {
	dir := newTestProject(t)
	empty := "# Side\n\n## Backlog\n\n## Parked\n\n## Done\n"
	if err := os.WriteFile(filepath.Join(dir, "frame", "tracks", "side.md"), []byte(empty), 0o644); err != nil {
		t.Fatal(err)
	}
	runCmd(t, dir, TrackCmd(), "delete", "side")
	if _, err := os.Stat(filepath.Join(dir, "frame", "tracks", "side.md")); !os.IsNotExist(err) {
		t.Fatal("track file still exists")
	}
	config, _ := os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if strings.Contains(string(config), `id = "side"`) {
		t.Fatalf("track still configured:\n%s", config)
	}
}

func TestTrackArchiveMovesFile(t *testing.T) {
	dir := newTestProject(t)
	runCmd(t, dir, TrackCmd(), "archive", "side")
	if _, err := os.Stat(filepath.Join(dir, "frame", "archive", "_tracks", "side.md")); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
	config, _ := os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if !strings.Contains(string(config), `state = "archived"`) {
		t.Fatalf("track not marked archived:\n%s", config)
	}
}

func TestTrackCCFocus(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, TrackCmd(), "cc-focus")
	if strings.TrimSpace(out) != "main" {
		t.Fatalf("expected main, got %q", out)
	}
	runCmd(t, dir, TrackCmd(), "cc-focus", "side")
	out = runCmd(t, dir, TrackCmd(), "cc-focus")
	if strings.TrimSpace(out) != "side" {
		t.Fatalf("expected side, got %q", out)
	}
	runCmd(t, dir, TrackCmd(), "cc-focus", "--clear")
	out = runCmd(t, dir, TrackCmd(), "cc-focus")
	if !strings.Contains(out, "(no cc-focus track)") {
		t.Fatalf("focus not cleared: %q", out)
	}
}

func TestTrackRenamePrefixDryRun(t *testing.T) {
	dir := newTestProject(t)
	before := readTrackFile(t, dir, "main.md")
	out := runCmd(t, dir, TrackCmd(), "rename", "main", "--prefix", "CORE", "--dry-run")
	if !strings.Contains(out, "Renaming prefix M → CORE:") {
		t.Fatalf("summary missing:\n%s", out)
	}
	if !strings.Contains(out, "(dry run — no changes written)") {
		t.Fatalf("dry-run marker missing:\n%s", out)
	}
	if readTrackFile(t, dir, "main.md") != before {
		t.Fatal("dry run modified the track")
	}
}

func TestTrackRenamePrefixRewritesIDs(t *testing.T) {
	dir := newTestProject(t)
	runCmd(t, dir, TrackCmd(), "rename", "main", "--prefix", "CORE", "--yes")
	content := readTrackFile(t, dir, "main.md")
	if !strings.Contains(content, "CORE-001 Wire up the parser") || strings.Contains(content, "M-001") {
		t.Fatalf("IDs not rewritten:\n%s", content)
	}
	if !strings.Contains(content, "dep: CORE-001") {
		t.Fatalf("dep not rewritten:\n%s", content)
	}
	config, _ := os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if !strings.Contains(string(config), `main = "CORE"`) {
		t.Fatalf("prefix table not updated:\n%s", config)
	}
}

func TestTrackRenameID(t *testing.T) {
	dir := newTestProject(t)
	runCmd(t, dir, TrackCmd(), "rename", "side", "--id", "spare")
	if _, err := os.Stat(filepath.Join(dir, "frame", "tracks", "spare.md")); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	config, _ := os.ReadFile(filepath.Join(dir, "frame", "project.toml"))
	if !strings.Contains(string(config), `id = "spare"`) || strings.Contains(string(config), `id = "side"`) {
		t.Fatalf("config not rewritten:\n%s", config)
	}
}

func TestInitCreatesProject(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	work := filepath.Join(dir, "my-new-thing")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	out := runCmd(t, work, InitCmd(), "--track", "core:Core Engine")
	if !strings.Contains(out, "[>] frame initialized") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	config, err := os.ReadFile(filepath.Join(work, "frame", "project.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(config), `name = "My New Thing"`) {
		t.Fatalf("inferred name missing:\n%s", config)
	}
	if !strings.Contains(string(config), `core = "COR"`) {
		t.Fatalf("prefix missing:\n%s", config)
	}
	track, err := os.ReadFile(filepath.Join(work, "frame", "tracks", "core.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(track), "# Core Engine\n") {
		t.Fatalf("track template wrong:\n%s", track)
	}
}

func TestInitRefusesExisting(t *testing.T) {
	dir := newTestProject(t)
	_, err := tryCmd(t, dir, InitCmd())
	if err == nil || !strings.Contains(err.Error(), "frame/ already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}
}

func TestInitUpdatesGitignore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	runCmd(t, dir, InitCmd(), "--name", "Repo")
	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"frame/.state.json", "frame/.lock", "frame/.recovery.log"} {
		if !strings.Contains(string(ignore), want) {
			t.Fatalf("missing %q in .gitignore:\n%s", want, ignore)
		}
	}
}

func TestProjectsListAfterAccess(t *testing.T) {
	dir := newTestProject(t)
	runCmd(t, dir, ListCmd())
	out := runCmd(t, dir, ProjectsCmd())
	if !strings.Contains(out, "Demo") {
		t.Fatalf("project not registered:\n%s", out)
	}
	out = runCmd(t, dir, ProjectsCmd(), "remove", "Demo")
	if !strings.Contains(out, "removed Demo") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	out = runCmd(t, dir, ProjectsCmd())
	if !strings.Contains(out, "(no registered projects)") {
		t.Fatalf("project still listed:\n%s", out)
	}
}

func TestProjectsAddVerifiesConfig(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, ProjectsCmd(), "add", dir)
	if !strings.Contains(out, "registered Demo") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	_, err := tryCmd(t, dir, ProjectsCmd(), "add", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "not a frame project") {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestRecoveryListAndPrune(t *testing.T) {
	dir := newTestProject(t)
	runCmd(t, dir, DeleteCmd(), "M-003", "--yes")
	out := runCmd(t, dir, RecoveryCmd())
	if !strings.Contains(out, "[delete] task M-003 deleted") {
		t.Fatalf("entry missing:\n%s", out)
	}
	if !strings.Contains(out, "| - [-] M-003 Ship the importer") {
		t.Fatalf("body missing:\n%s", out)
	}
	out = runCmd(t, dir, RecoveryCmd(), "prune", "--all")
	if !strings.Contains(out, "pruned 1 entries") {
		t.Fatalf("unexpected prune output:\n%s", out)
	}
	out = runCmd(t, dir, RecoveryCmd())
	if !strings.Contains(out, "(recovery log is empty)") {
		t.Fatalf("log not pruned:\n%s", out)
	}
}

func TestRecoveryPath(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, RecoveryCmd(), "path")
	if !strings.HasSuffix(strings.TrimSpace(out), filepath.Join("frame", ".recovery.log")) {
		t.Fatalf("unexpected path %q", out)
	}
}

func TestListJSON(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, ListCmd(), "--json")
	var payload []struct {
		Track string `json:"track"`
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(payload) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(payload))
	}
	if payload[0].Track != "main" || payload[0].ID != "M-001" {
		t.Fatalf("unexpected first task: %+v", payload[0])
	}
}

func TestShowJSON(t *testing.T) {
	dir := newTestProject(t)
	out := runCmd(t, dir, ShowCmd(), "M-002", "--json")
	var payload struct {
		Track string   `json:"track"`
		ID    string   `json:"id"`
		State string   `json:"state"`
		Deps  []string `json:"deps"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if payload.Track != "main" || payload.State != "active" || len(payload.Deps) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

package tui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

const testConfig = `[project]
name = "Demo"

[agent]
cc_focus = "main"

[[tracks]]
id = "main"
name = "Main"
state = "active"
file = "tracks/main.md"

[[tracks]]
id = "side"
name = "Side"
state = "active"
file = "tracks/side.md"

[ids.prefixes]
main = "M"
side = "S"
`

const testMainTrack = `# Main

## Backlog

- [ ] ` + "`M-001`" + ` Write the parser #core
  - added: 2025-03-01
- [>] ` + "`M-002`" + ` Wire the serializer
  - dep: M-001
  - added: 2025-03-02
  - [ ] ` + "`M-002.1`" + ` Cover edge cases
- [ ] ` + "`M-003`" + ` Ship the importer
  - added: 2025-03-03

## Parked

- [~] ` + "`M-010`" + ` Investigate themes
  - added: 2025-02-20

## Done

- [x] ` + "`M-000`" + ` Bootstrap the repo
  - added: 2025-02-01
  - resolved: 2025-02-05
`

const testSideTrack = `# Side

## Backlog

- [ ] ` + "`S-001`" + ` Sketch the roadmap
  - added: 2025-03-04

## Parked

## Done
`

const testInbox = `# Inbox

- Try the new linter #tooling

- Benchmark the parser
  Needs a baseline first.
`

func newTestModel(t *testing.T) (*Model, string) {
	t.Helper()
	dir := t.TempDir()
	frameDir := filepath.Join(dir, "frame")
	if err := os.MkdirAll(filepath.Join(frameDir, "tracks"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"project.toml":   testConfig,
		"inbox.md":       testInbox,
		"tracks/main.md": testMainTrack,
		"tracks/side.md": testSideTrack,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(frameDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := project.Load(dir)
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	return NewModel(p), dir
}

// reopenModel loads the project fresh, as a new run would.
func reopenModel(t *testing.T, dir string) (*Model, string) {
	t.Helper()
	p, err := project.Load(dir)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	return NewModel(p), dir
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, s := range keys {
		var msg tea.KeyMsg
		switch s {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		m.Update(msg)
	}
}

// typeText sends text a rune at a time, as a terminal would.
func typeText(t *testing.T, m *Model, text string) {
	t.Helper()
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func readTrackFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "frame", "tracks", name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

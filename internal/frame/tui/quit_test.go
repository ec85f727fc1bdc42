package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshsegall/frame-sub002/internal/frame/state"
)

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestCtrlCQuitsAndPersistsState(t *testing.T) {
	m, dir := newTestModel(t)
	press(t, m, "j")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Fatal("expected quit command")
	}

	st, ok := state.Read(dir + "/frame")
	if !ok {
		t.Fatal("expected state file written")
	}
	if st.View != "track" || st.ActiveTrack != "main" {
		t.Fatalf("unexpected state view=%s track=%s", st.View, st.ActiveTrack)
	}
	if ts := st.Track("main"); ts.Cursor != 1 {
		t.Fatal("expected cursor persisted")
	}
}

func TestDoublePressQuit(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "Q")
	if m.status != "press Q again to quit" {
		t.Fatalf("unexpected status %q", m.status)
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Q")})
	if !isQuit(cmd) {
		t.Fatal("expected second Q to quit")
	}
}

func TestQuitDisarmedByOtherKey(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "Q", "j", "Q")
	if m.quitArmed != true {
		t.Fatal("expected Q re-armed after interruption")
	}
	if m.cursor != 1 {
		t.Fatalf("expected intervening key handled, got cursor %d", m.cursor)
	}
}

func TestStateRestoredOnRestart(t *testing.T) {
	m, dir := newTestModel(t)
	press(t, m, "j", "j")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	m2, _ := reopenModel(t, dir)
	if m2.cursor != 2 {
		t.Fatalf("expected cursor restored, got %d", m2.cursor)
	}
	if m2.activeTrack != "main" {
		t.Fatalf("expected active track restored, got %s", m2.activeTrack)
	}
}

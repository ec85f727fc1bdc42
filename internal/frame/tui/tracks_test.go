package tui

import (
	"strings"
	"testing"
)

func TestTracksViewShowsStats(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "0")

	view := m.View()
	if !strings.Contains(view, "1. Main (main)  4 open, 1 done") {
		t.Fatalf("expected main stats line, got:\n%s", view)
	}
	if !strings.Contains(view, "2. Side (side)  1 open, 0 done") {
		t.Fatal("expected side stats line")
	}
	if !strings.Contains(view, "cc") {
		t.Fatal("expected cc-focus marker")
	}
}

func TestTracksEnterOpensTrack(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "0", "j", "enter")

	if m.view != viewTrack || m.activeTrack != "side" {
		t.Fatalf("expected side track open, got view=%s track=%s", m.view, m.activeTrack)
	}
}

func TestTracksReorderRewritesConfig(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "0", "J")

	p := m.sess.Project
	if p.Config.Tracks[0].ID != "side" || p.Config.Tracks[1].ID != "main" {
		t.Fatalf("expected side first, got %s %s", p.Config.Tracks[0].ID, p.Config.Tracks[1].ID)
	}
	sideAt := strings.Index(p.ConfigText, `id = "side"`)
	mainAt := strings.Index(p.ConfigText, `id = "main"`)
	if sideAt < 0 || mainAt < 0 || sideAt > mainAt {
		t.Fatal("expected config text reordered")
	}
	if m.tracksCursor != 1 {
		t.Fatalf("expected cursor to follow track, got %d", m.tracksCursor)
	}
}

func TestTracksReorderUndo(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "0", "J", "z")

	p := m.sess.Project
	if p.Config.Tracks[0].ID != "main" || p.Config.Tracks[1].ID != "side" {
		t.Fatalf("expected original order, got %s %s", p.Config.Tracks[0].ID, p.Config.Tracks[1].ID)
	}
	mainAt := strings.Index(p.ConfigText, `id = "main"`)
	sideAt := strings.Index(p.ConfigText, `id = "side"`)
	if mainAt > sideAt {
		t.Fatal("expected config text restored")
	}
}

func TestTracksSetCCFocus(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "0", "j", "C")

	p := m.sess.Project
	if p.Config.Agent.CCFocus != "side" {
		t.Fatalf("expected cc_focus side, got %q", p.Config.Agent.CCFocus)
	}
	if !strings.Contains(p.ConfigText, `cc_focus = "side"`) {
		t.Fatal("expected config text updated")
	}
}

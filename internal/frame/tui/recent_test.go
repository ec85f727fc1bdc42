package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/session"
)

func TestRecentViewListsResolvedTasks(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "r")

	view := m.View()
	if !strings.Contains(view, "2025-02-05") {
		t.Fatalf("expected date group header, got:\n%s", view)
	}
	if !strings.Contains(view, "M-000") || !strings.Contains(view, "Bootstrap the repo") {
		t.Fatal("expected the done task listed")
	}
}

func TestReopenKeepsResolvedUntilCommit(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "r", "enter")

	track := m.sess.Project.Track("main")
	task := ops.FindTask(track, "M-000")
	if task.State != model.Todo {
		t.Fatalf("expected todo, got %v", task.State)
	}
	if task.Resolved() != "2025-02-05" {
		t.Fatalf("expected resolved date kept, got %q", task.Resolved())
	}
	if !m.sess.HasPendingMove("main", "M-000") {
		t.Fatal("expected queued move to backlog")
	}
	if len(track.DoneTasks()) != 1 {
		t.Fatal("expected task still in done until commit")
	}
}

func TestReopenAgainCancels(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "r", "enter", "enter")

	track := m.sess.Project.Track("main")
	task := ops.FindTask(track, "M-000")
	if task.State != model.Done {
		t.Fatalf("expected done restored, got %v", task.State)
	}
	if task.Resolved() != "2025-02-05" {
		t.Fatalf("expected resolved date intact, got %q", task.Resolved())
	}
	if m.sess.HasPendingMove("main", "M-000") {
		t.Fatal("expected queued move cancelled")
	}
	if m.status != "reopen cancelled" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestReopenCommitsOnTick(t *testing.T) {
	m, dir := newTestModel(t)
	press(t, m, "r", "enter")
	m.Update(tickMsg(time.Now().Add(6 * time.Second)))

	track := m.sess.Project.Track("main")
	backlog := track.BacklogTasks()
	if len(backlog) != 4 || backlog[0].ID != "M-000" {
		t.Fatalf("expected M-000 at top of backlog, got %d tasks", len(backlog))
	}
	if backlog[0].Resolved() != "" {
		t.Fatal("expected resolved date stripped on commit")
	}
	if len(track.DoneTasks()) != 0 {
		t.Fatal("expected done section empty")
	}
	if !strings.Contains(readTrackFile(t, dir, "main.md"), "- [ ] `M-000`") {
		t.Fatal("expected reopened task persisted as open")
	}
}

func TestCancelFirstOfTwoPendingReopens(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "x")
	m.Update(tickMsg(time.Now().Add(6 * time.Second)))

	// Newest resolved sorts first: M-001 (today) then M-000.
	press(t, m, "r", "enter", "j", "enter", "k", "enter")

	track := m.sess.Project.Track("main")
	if got := ops.FindTask(track, "M-001").State; got != model.Done {
		t.Fatalf("expected cancelled reopen restored to done, got %v", got)
	}
	if m.sess.HasPendingMove("main", "M-001") {
		t.Fatal("expected first reopen's move cancelled")
	}
	if got := ops.FindTask(track, "M-000").State; got != model.Todo {
		t.Fatalf("expected second reopen untouched, got %v", got)
	}
	if !m.sess.HasPendingMove("main", "M-000") {
		t.Fatal("expected second reopen still queued")
	}
	op, ok := m.sess.Undo.PeekUndo()
	if !ok {
		t.Fatal("expected undo record kept")
	}
	if ro, isReopen := op.(session.Reopen); !isReopen || ro.TaskID != "M-000" {
		t.Fatalf("expected the other task's record on top, got %T %+v", op, op)
	}
}

func TestReopenUndoBeforeCommitRestoresDone(t *testing.T) {
	m, _ := newTestModel(t)
	press(t, m, "r", "enter", "z")

	track := m.sess.Project.Track("main")
	task := ops.FindTask(track, "M-000")
	if task.State != model.Done {
		t.Fatalf("expected done restored by undo, got %v", task.State)
	}
	if m.sess.HasPendingMove("main", "M-000") {
		t.Fatal("expected queued move cancelled by undo")
	}
	if len(track.DoneTasks()) != 1 {
		t.Fatal("expected task still in done")
	}
}

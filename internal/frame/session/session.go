package session

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/ops"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
	"github.com/joshsegall/frame-sub002/internal/frame/recovery"
)

// MoveGracePeriod is how long a section move stays pending before it
// commits. Re-triggering the same action within the window cancels it.
const MoveGracePeriod = 5 * time.Second

// PendingMoveKind is the kind of deferred section relocation.
type PendingMoveKind int

const (
	// MoveToDone relocates a task marked done in the Backlog.
	MoveToDone PendingMoveKind = iota
	// MoveToBacklog relocates a reopened task out of Done. The
	// resolved date is kept until the move commits so Done stays
	// sorted during the grace period.
	MoveToBacklog
	// MoveToParked relocates a task parked in the Backlog.
	MoveToParked
	// MoveFromParked relocates an unparked task back to the Backlog.
	MoveFromParked
)

// PendingMove is a deferred section relocation with its deadline.
type PendingMove struct {
	Kind     PendingMoveKind
	TrackID  string
	TaskID   string
	Deadline time.Time
}

// EditTarget identifies a task with an edit in progress, used for
// conflict detection when external changes arrive.
type EditTarget struct {
	TrackID string
	TaskID  string
}

// Session owns the mutable state of one interactive editing session.
// It is single-threaded: the event loop calls into it once per tick.
type Session struct {
	Project *project.Project
	Undo    *UndoStack

	pendingMoves []PendingMove
	trackMTimes  map[string]time.Time
	lockTimeout  time.Duration
}

// New wraps a loaded project in a session, recording the current
// on-disk mtimes so later external changes can be told apart from our
// own writes.
func New(p *project.Project) *Session {
	s := &Session{
		Project:     p,
		Undo:        NewUndoStack(),
		trackMTimes: make(map[string]time.Time),
		lockTimeout: project.DefaultLockTimeout,
	}
	for _, lt := range p.Tracks {
		if info, err := os.Stat(filepath.Join(p.FrameDir, lt.File)); err == nil {
			s.trackMTimes[lt.ID] = info.ModTime()
		}
	}
	return s
}

// PendingMoves returns the queued moves, soonest deadline not
// guaranteed first.
func (s *Session) PendingMoves() []PendingMove {
	return s.pendingMoves
}

// HasPendingMove reports whether the task has a queued section move.
func (s *Session) HasPendingMove(trackID, taskID string) bool {
	for _, pm := range s.pendingMoves {
		if pm.TrackID == trackID && pm.TaskID == taskID {
			return true
		}
	}
	return false
}

// SchedulePendingMove queues a section move to commit after the grace
// period.
func (s *Session) SchedulePendingMove(kind PendingMoveKind, trackID, taskID string) {
	s.pendingMoves = append(s.pendingMoves, PendingMove{
		Kind:     kind,
		TrackID:  trackID,
		TaskID:   taskID,
		Deadline: time.Now().Add(MoveGracePeriod),
	})
}

// CancelPendingMove removes a task's queued move and returns it.
func (s *Session) CancelPendingMove(trackID, taskID string) (PendingMove, bool) {
	for i, pm := range s.pendingMoves {
		if pm.TrackID == trackID && pm.TaskID == taskID {
			s.pendingMoves = append(s.pendingMoves[:i], s.pendingMoves[i+1:]...)
			return pm, true
		}
	}
	return PendingMove{}, false
}

// FlushExpired commits every pending move whose deadline has passed.
// Returns the IDs of modified tracks.
func (s *Session) FlushExpired(now time.Time) []string {
	var expired []PendingMove
	kept := s.pendingMoves[:0]
	for _, pm := range s.pendingMoves {
		if now.Before(pm.Deadline) {
			kept = append(kept, pm)
		} else {
			expired = append(expired, pm)
		}
	}
	s.pendingMoves = kept
	return s.executeMoves(expired)
}

// FlushAll commits every pending move immediately. Used on view change
// and quit. Returns the IDs of modified tracks.
func (s *Session) FlushAll() []string {
	all := s.pendingMoves
	s.pendingMoves = nil
	return s.executeMoves(all)
}

func (s *Session) executeMoves(moves []PendingMove) []string {
	var modified []string
	for _, pm := range moves {
		if s.executePendingMove(pm) && !contains(modified, pm.TrackID) {
			modified = append(modified, pm.TrackID)
		}
	}
	return modified
}

func (s *Session) executePendingMove(pm PendingMove) bool {
	track := s.Project.Track(pm.TrackID)
	if track == nil {
		return false
	}
	switch pm.Kind {
	case MoveToDone:
		sourceIndex := ops.MoveTaskBetweenSections(track, pm.TaskID, model.SectionBacklog, model.SectionDone)
		if sourceIndex < 0 {
			return false
		}
		s.Undo.Push(SectionMove{
			TrackID:   pm.TrackID,
			TaskID:    pm.TaskID,
			From:      model.SectionBacklog,
			To:        model.SectionDone,
			FromIndex: sourceIndex,
		})
	case MoveToBacklog:
		// The Reopen record already covers full reversal; no extra
		// undo entry.
		if ops.MoveTaskBetweenSections(track, pm.TaskID, model.SectionDone, model.SectionBacklog) < 0 {
			return false
		}
		if task := ops.FindTask(track, pm.TaskID); task != nil {
			task.RemoveResolved()
			task.MarkDirty()
		}
	case MoveToParked:
		sourceIndex := ops.MoveTaskBetweenSections(track, pm.TaskID, model.SectionBacklog, model.SectionParked)
		if sourceIndex < 0 {
			return false
		}
		s.Undo.Push(SectionMove{
			TrackID:   pm.TrackID,
			TaskID:    pm.TaskID,
			From:      model.SectionBacklog,
			To:        model.SectionParked,
			FromIndex: sourceIndex,
		})
	case MoveFromParked:
		sourceIndex := ops.MoveTaskBetweenSections(track, pm.TaskID, model.SectionParked, model.SectionBacklog)
		if sourceIndex < 0 {
			return false
		}
		s.Undo.Push(SectionMove{
			TrackID:   pm.TrackID,
			TaskID:    pm.TaskID,
			From:      model.SectionParked,
			To:        model.SectionBacklog,
			FromIndex: sourceIndex,
		})
	}
	return true
}

// SaveTrack writes a track under the project lock and records the new
// mtime so the write is not mistaken for an external change.
func (s *Session) SaveTrack(trackID string) error {
	lock, err := project.AcquireLock(s.Project.FrameDir, s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := s.Project.SaveTrack(trackID); err != nil {
		return err
	}
	if lt := s.Project.TrackFile(trackID); lt != nil {
		if info, statErr := os.Stat(filepath.Join(s.Project.FrameDir, lt.File)); statErr == nil {
			s.trackMTimes[trackID] = info.ModTime()
		}
	}
	return nil
}

// SaveInbox writes the inbox under the project lock.
func (s *Session) SaveInbox() error {
	lock, err := project.AcquireLock(s.Project.FrameDir, s.lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.Project.SaveInbox()
}

// TrackChangedOnDisk reports whether the track file has been modified
// since the session last loaded or saved it.
func (s *Session) TrackChangedOnDisk(trackID string) bool {
	lt := s.Project.TrackFile(trackID)
	if lt == nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.Project.FrameDir, lt.File))
	if err != nil {
		return false
	}
	known, ok := s.trackMTimes[trackID]
	if !ok {
		return true
	}
	return info.ModTime().After(known)
}

// ReloadChangedFiles re-reads the given files from disk and swaps the
// parsed results into the project. If a task currently being edited
// was modified or removed externally, its ID is returned as a
// conflict. Absorbed changes are fenced off with a sync marker so undo
// cannot cross them.
func (s *Session) ReloadChangedFiles(paths []string, editing *EditTarget) (string, bool) {
	conflict := ""

	for _, path := range paths {
		name := filepath.Base(path)

		if name == "inbox.md" {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			inbox, dropped := parse.ParseInbox(string(data))
			s.Project.Inbox = inbox
			s.Project.InboxDropped = dropped
			s.logDropped("inbox.md", dropped)
			continue
		}
		if name == "project.toml" {
			// Config changes need a full re-init; handled by the caller.
			continue
		}

		trackID := s.trackForFile(name)
		if trackID == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		newTrack, dropped := parse.ParseTrack(string(data))
		s.logDropped(name, dropped)

		if editing != nil && editing.TrackID == trackID {
			if old := s.Project.Track(trackID); old != nil {
				oldTask := ops.FindTask(old, editing.TaskID)
				newTask := ops.FindTask(newTrack, editing.TaskID)
				switch {
				case oldTask != nil && newTask == nil:
					conflict = editing.TaskID
				case oldTask != nil && newTask != nil && oldTask.Title != newTask.Title:
					conflict = editing.TaskID
				}
			}
		}

		if lt := s.Project.TrackFile(trackID); lt != nil {
			lt.Track = newTrack
			lt.Dropped = dropped
		}
		if info, statErr := os.Stat(path); statErr == nil {
			s.trackMTimes[trackID] = info.ModTime()
		}
	}

	// Externally added tasks may lack IDs or added dates.
	for _, trackID := range ops.EnsureIDsAndDates(s.Project) {
		s.SaveTrack(trackID)
	}

	s.Undo.PushSyncMarker()
	return conflict, conflict != ""
}

func (s *Session) trackForFile(fileName string) string {
	for _, tc := range s.Project.Config.Tracks {
		if tc.File == fileName || strings.HasSuffix(tc.File, "/"+fileName) {
			return tc.ID
		}
	}
	return ""
}

func (s *Session) logDropped(source string, dropped []string) {
	if len(dropped) == 0 {
		return
	}
	recovery.Log(s.Project.FrameDir, recovery.Entry{
		Timestamp:   time.Now().UTC(),
		Category:    recovery.CategoryParser,
		Description: "dropped lines on reload",
		Fields:      []recovery.Field{{Key: "Source", Value: source}},
		Body:        strings.Join(dropped, "\n"),
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

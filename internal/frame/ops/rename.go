package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// TotalTaskCount counts every task in the track, subtasks included.
func TotalTaskCount(track *model.Track) int {
	n := 0
	track.WalkTasks(func(*model.Task) { n++ })
	return n
}

// IsTrackEmpty reports whether a track can be deleted: no live tasks
// and no archived tasks under archive/<trackID>.md.
func IsTrackEmpty(frameDir string, track *model.Track, trackID string) bool {
	if TotalTaskCount(track) > 0 {
		return false
	}
	data, err := os.ReadFile(filepath.Join(frameDir, "archive", trackID+".md"))
	if err != nil {
		return true
	}
	archived, _ := parse.ParseTrack(string(data))
	return TotalTaskCount(archived) == 0
}

// DeleteTrack removes an empty track: its config entry, its ID prefix,
// and its file. Callers check emptiness with IsTrackEmpty first.
func DeleteTrack(frameDir string, edit *project.ConfigEdit, config *model.ProjectConfig, trackID string) error {
	tc := config.TrackByID(trackID)
	if tc == nil {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	file := tc.File

	edit.RemoveTrack(trackID)
	edit.RemovePrefix(trackID)
	for i, c := range config.Tracks {
		if c.ID == trackID {
			config.Tracks = append(config.Tracks[:i], config.Tracks[i+1:]...)
			break
		}
	}
	delete(config.IDs.Prefixes, trackID)

	if err := os.Remove(filepath.Join(frameDir, file)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ArchiveTrackFile moves an archived track's file out of tracks/ into
// archive/_tracks/ so listings stop picking it up.
func ArchiveTrackFile(frameDir, trackID, file string) error {
	src := filepath.Join(frameDir, file)
	if _, err := os.Stat(src); err != nil {
		return nil
	}
	destDir := filepath.Join(frameDir, "archive", "_tracks")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.Rename(src, filepath.Join(destDir, trackID+".md"))
}

// RenameTrackID changes a track's ID: the config entry, the prefix
// table key, and the track file name all follow.
func RenameTrackID(frameDir string, edit *project.ConfigEdit, config *model.ProjectConfig, oldID, newID string) error {
	tc := config.TrackByID(oldID)
	if tc == nil {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, oldID)
	}
	if config.TrackByID(newID) != nil {
		return fmt.Errorf("%w: %s", ErrTrackExists, newID)
	}

	oldFile := tc.File
	newFile := "tracks/" + newID + ".md"
	if err := os.Rename(filepath.Join(frameDir, oldFile), filepath.Join(frameDir, newFile)); err != nil && !os.IsNotExist(err) {
		return err
	}

	edit.UpdateTrackID(oldID, newID)
	edit.RenamePrefixKey(oldID, newID)
	tc.ID = newID
	tc.File = newFile
	if pfx, ok := config.IDs.Prefixes[oldID]; ok {
		delete(config.IDs.Prefixes, oldID)
		config.IDs.Prefixes[newID] = pfx
	}
	if config.Agent.CCFocus == oldID {
		config.Agent.CCFocus = newID
		edit.SetCCFocus(newID)
	}
	return nil
}

// PrefixRenameResult reports the scope of a bulk prefix rename.
type PrefixRenameResult struct {
	TasksRenamed   int
	DepsUpdated    int
	TracksAffected int
}

// PrefixRenameImpact counts the task IDs in the given track that carry
// the prefix and would be rewritten.
func PrefixRenameImpact(tracks []TrackEntry, trackID, oldPrefix string) int {
	count := 0
	oldDash := oldPrefix + "-"
	for _, te := range tracks {
		if te.ID != trackID {
			continue
		}
		te.Track.WalkTasks(func(t *model.Task) {
			if strings.HasPrefix(t.ID, oldDash) {
				count++
			}
		})
	}
	return count
}

// RenameTrackPrefix rewrites every task ID in the track from oldPrefix
// to newPrefix and fixes dep references in every other track. The
// config prefix table is updated in memory; persisting it is the
// caller's job.
func RenameTrackPrefix(config *model.ProjectConfig, tracks []project.LoadedTrack, trackID, oldPrefix, newPrefix string) (PrefixRenameResult, error) {
	var result PrefixRenameResult
	if oldPrefix == newPrefix {
		return result, nil
	}
	oldDash := oldPrefix + "-"
	newDash := newPrefix + "-"

	var target *model.Track
	for _, lt := range tracks {
		if lt.ID == trackID {
			target = lt.Track
			break
		}
	}
	if target == nil {
		return result, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}

	var renames [][2]string
	target.WalkTasks(func(t *model.Task) {
		if !strings.HasPrefix(t.ID, oldDash) {
			return
		}
		newID := newDash + strings.TrimPrefix(t.ID, oldDash)
		renames = append(renames, [2]string{t.ID, newID})
		t.ID = newID
		t.MarkDirty()
		result.TasksRenamed++
	})

	for _, lt := range tracks {
		touched := false
		for _, r := range renames {
			n := rewriteDeps(lt.Track, r[0], r[1])
			if lt.ID != trackID && n > 0 {
				result.DepsUpdated += n
				touched = true
			}
		}
		if touched {
			result.TracksAffected++
		}
	}

	config.IDs.Prefixes[trackID] = newPrefix
	return result, nil
}

func rewriteDeps(track *model.Track, oldID, newID string) int {
	n := 0
	track.WalkTasks(func(t *model.Task) {
		for mi := range t.Meta {
			if t.Meta[mi].Kind != model.MetaDep {
				continue
			}
			for li, dep := range t.Meta[mi].List {
				if dep == oldID {
					t.Meta[mi].List[li] = newID
					t.MarkDirty()
					n++
				}
			}
		}
	})
	return n
}

// RenameArchivePrefix rewrites archived task IDs under the new prefix.
// Returns how many IDs changed.
func RenameArchivePrefix(frameDir, trackID, oldPrefix, newPrefix string) (int, error) {
	path := filepath.Join(frameDir, "archive", trackID+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	archived, _ := parse.ParseTrack(string(data))
	count := 0
	oldDash := oldPrefix + "-"
	newDash := newPrefix + "-"
	archived.WalkTasks(func(t *model.Task) {
		if strings.HasPrefix(t.ID, oldDash) {
			t.ID = newDash + strings.TrimPrefix(t.ID, oldDash)
			t.MarkDirty()
			count++
		}
	})
	if count == 0 {
		return 0, nil
	}

	if err := os.WriteFile(path, []byte(parse.SerializeTrack(archived)), 0o644); err != nil {
		return 0, err
	}
	return count, nil
}

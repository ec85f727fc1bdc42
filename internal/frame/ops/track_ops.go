package ops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

var (
	ErrTrackExists       = errors.New("track ID already exists")
	ErrTrackNotFound     = errors.New("track not found")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// NewTrack creates the track file, registers it in the config, and
// assigns an ID prefix. Returns the parsed empty track.
func NewTrack(frameDir string, edit *project.ConfigEdit, config *model.ProjectConfig, trackID, name string) (*model.Track, error) {
	if config.TrackByID(trackID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrTrackExists, trackID)
	}

	file := "tracks/" + trackID + ".md"
	fullPath := filepath.Join(frameDir, file)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, err
	}
	content := fmt.Sprintf("# %s\n\n## Backlog\n\n## Done\n", name)
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return nil, err
	}

	existing := make([]string, 0, len(config.IDs.Prefixes))
	for _, p := range config.IDs.Prefixes {
		existing = append(existing, p)
	}
	prefix := GeneratePrefix(trackID, existing)

	edit.AddTrack(trackID, name, "active", file)
	edit.SetPrefix(trackID, prefix)
	config.Tracks = append(config.Tracks, model.TrackConfig{
		ID: trackID, Name: name, State: "active", File: file,
	})
	if config.IDs.Prefixes == nil {
		config.IDs.Prefixes = map[string]string{}
	}
	config.IDs.Prefixes[trackID] = prefix

	track, _ := parse.ParseTrack(content)
	return track, nil
}

// ShelveTrack marks a track shelved. Archived tracks cannot be shelved.
func ShelveTrack(edit *project.ConfigEdit, config *model.ProjectConfig, trackID string) error {
	tc := config.TrackByID(trackID)
	if tc == nil {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	if tc.State == "archived" {
		return fmt.Errorf("%w: cannot shelve an archived track", ErrInvalidTransition)
	}
	tc.State = "shelved"
	edit.UpdateTrackState(trackID, "shelved")
	return nil
}

// ActivateTrack marks a track active.
func ActivateTrack(edit *project.ConfigEdit, config *model.ProjectConfig, trackID string) error {
	tc := config.TrackByID(trackID)
	if tc == nil {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	tc.State = "active"
	edit.UpdateTrackState(trackID, "active")
	return nil
}

// ArchiveTrack marks a track archived.
func ArchiveTrack(edit *project.ConfigEdit, config *model.ProjectConfig, trackID string) error {
	tc := config.TrackByID(trackID)
	if tc == nil {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	tc.State = "archived"
	edit.UpdateTrackState(trackID, "archived")
	return nil
}

// ReorderTracks moves an active track to newPosition, counted among
// active tracks only. Shelved and archived entries keep their spots.
func ReorderTracks(config *model.ProjectConfig, trackID string, newPosition int) error {
	currentIdx := -1
	for i, tc := range config.Tracks {
		if tc.ID == trackID {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	if config.Tracks[currentIdx].State != "active" {
		return fmt.Errorf("%w: can only reorder active tracks", ErrInvalidTransition)
	}

	activeCount := 0
	for _, tc := range config.Tracks {
		if tc.State == "active" {
			activeCount++
		}
	}
	if newPosition >= activeCount {
		return fmt.Errorf("%w: position %d out of range (0..%d)", ErrInvalidPosition, newPosition, activeCount)
	}

	tc := config.Tracks[currentIdx]
	config.Tracks = append(config.Tracks[:currentIdx], config.Tracks[currentIdx+1:]...)

	var activeIndices []int
	for i, t := range config.Tracks {
		if t.State == "active" {
			activeIndices = append(activeIndices, i)
		}
	}
	insertIdx := len(config.Tracks)
	if newPosition < len(activeIndices) {
		insertIdx = activeIndices[newPosition]
	} else if len(activeIndices) > 0 {
		insertIdx = activeIndices[len(activeIndices)-1] + 1
	}

	config.Tracks = append(config.Tracks, model.TrackConfig{})
	copy(config.Tracks[insertIdx+1:], config.Tracks[insertIdx:])
	config.Tracks[insertIdx] = tc
	return nil
}

// SetCCFocus points the agent focus at an active track.
func SetCCFocus(edit *project.ConfigEdit, config *model.ProjectConfig, trackID string) error {
	tc := config.TrackByID(trackID)
	if tc == nil {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	if tc.State != "active" {
		return fmt.Errorf("%w: cc-focus must be an active track", ErrInvalidTransition)
	}
	config.Agent.CCFocus = trackID
	edit.SetCCFocus(trackID)
	return nil
}

// GeneratePrefix derives an uppercase ID prefix from a track ID: the
// first three letters of the last hyphen-separated segment. On
// collision with an existing prefix, characters from earlier segments
// are prepended until unique.
func GeneratePrefix(trackID string, existing []string) string {
	segments := strings.Split(trackID, "-")
	last := segments[len(segments)-1]

	base := strings.ToUpper(truncate(last, 3))
	if !contains(existing, base) {
		return base
	}

	var earlier strings.Builder
	for _, seg := range segments[:len(segments)-1] {
		earlier.WriteString(seg)
	}
	pool := earlier.String()
	for i := 1; i <= len(pool); i++ {
		candidate := strings.ToUpper(truncate(pool[:i]+last, 3))
		if !contains(existing, candidate) {
			return candidate
		}
	}

	return strings.ToUpper(truncate(strings.ReplaceAll(trackID, "-", ""), 3))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// TrackStats counts tasks by state across every section, subtasks
// included.
type TrackStats struct {
	Active  int
	Blocked int
	Todo    int
	Parked  int
	Done    int
}

// Total returns the overall task count.
func (s TrackStats) Total() int {
	return s.Active + s.Blocked + s.Todo + s.Parked + s.Done
}

// TaskCounts tallies a track's tasks by state.
func TaskCounts(track *model.Track) TrackStats {
	var stats TrackStats
	track.WalkTasks(func(task *model.Task) {
		switch task.State {
		case model.Active:
			stats.Active++
		case model.Blocked:
			stats.Blocked++
		case model.Todo:
			stats.Todo++
		case model.Parked:
			stats.Parked++
		case model.Done:
			stats.Done++
		}
	})
	return stats
}

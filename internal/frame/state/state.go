// Package state persists TUI session state to frame/.state.json so a
// reopened project restores the previous view, cursor, and search
// history.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MaxSearchHistory caps the persisted search history length.
const MaxSearchHistory = 200

// UIState is the persisted TUI state.
type UIState struct {
	// View is the current view name: "track", "tracks", "inbox" or
	// "recent".
	View        string                  `json:"view"`
	ActiveTrack string                  `json:"active_track,omitempty"`
	Tracks      map[string]TrackUIState `json:"tracks,omitempty"`
	LastSearch  string                  `json:"last_search,omitempty"`
	// NoteWrapOverride, when set, overrides the config's note_wrap for
	// the session.
	NoteWrapOverride *bool    `json:"note_wrap_override,omitempty"`
	SearchHistory    []string `json:"search_history,omitempty"`
}

// TrackUIState is the cursor and fold state for one track view.
type TrackUIState struct {
	Cursor       int             `json:"cursor,omitempty"`
	Expanded     map[string]bool `json:"expanded,omitempty"`
	ScrollOffset int             `json:"scroll_offset,omitempty"`
}

func statePath(frameDir string) string {
	return filepath.Join(frameDir, ".state.json")
}

// Read loads frame/.state.json. A missing or malformed file yields
// (nil, false).
func Read(frameDir string) (*UIState, bool) {
	data, err := os.ReadFile(statePath(frameDir))
	if err != nil {
		return nil, false
	}
	var st UIState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false
	}
	return &st, true
}

// Write saves the state to frame/.state.json.
func Write(frameDir string, st *UIState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statePath(frameDir), data, 0o644)
}

// Track returns the per-track state for id, creating it if needed.
func (s *UIState) Track(id string) *TrackUIState {
	if s.Tracks == nil {
		s.Tracks = make(map[string]TrackUIState)
	}
	ts := s.Tracks[id]
	return &ts
}

// SetTrack stores per-track state for id.
func (s *UIState) SetTrack(id string, ts TrackUIState) {
	if s.Tracks == nil {
		s.Tracks = make(map[string]TrackUIState)
	}
	s.Tracks[id] = ts
}

// PushSearch records a search pattern at the front of the history,
// dropping duplicates and clamping to MaxSearchHistory.
func (s *UIState) PushSearch(pattern string) {
	if pattern == "" {
		return
	}
	s.LastSearch = pattern
	history := []string{pattern}
	for _, p := range s.SearchHistory {
		if p != pattern {
			history = append(history, p)
		}
	}
	if len(history) > MaxSearchHistory {
		history = history[:MaxSearchHistory]
	}
	s.SearchHistory = history
}

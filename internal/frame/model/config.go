package model

// ProjectConfig mirrors project.toml.
type ProjectConfig struct {
	Project ProjectSection `toml:"project"`
	Agent   AgentSection   `toml:"agent"`
	Tracks  []TrackConfig  `toml:"tracks"`
	Clean   CleanSection   `toml:"clean"`
	IDs     IDsSection     `toml:"ids"`
	UI      UISection      `toml:"ui"`
}

type ProjectSection struct {
	Name string `toml:"name"`
}

type AgentSection struct {
	CCFocus string `toml:"cc_focus"`
	CCOnly  bool   `toml:"cc_only"`
}

// TrackConfig is one [[tracks]] entry. State is active, shelved, or
// archived.
type TrackConfig struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	State string `toml:"state"`
	File  string `toml:"file"`
}

type CleanSection struct {
	AutoClean       bool `toml:"auto_clean"`
	DoneThreshold   int  `toml:"done_threshold"`
	DoneRetain      int  `toml:"done_retain"`
	ArchivePerTrack bool `toml:"archive_per_track"`
}

type IDsSection struct {
	Prefixes map[string]string `toml:"prefixes"`
}

type UISection struct {
	NoteWrap  bool              `toml:"note_wrap"`
	TagColors map[string]string `toml:"tag_colors"`
}

// DefaultConfig returns the config used when fields are absent.
func DefaultConfig() ProjectConfig {
	return ProjectConfig{
		Clean: CleanSection{
			AutoClean:       true,
			DoneThreshold:   100,
			DoneRetain:      10,
			ArchivePerTrack: true,
		},
		IDs: IDsSection{Prefixes: map[string]string{}},
		UI:  UISection{NoteWrap: true},
	}
}

// TrackByID returns the [[tracks]] entry with the given ID, or nil.
func (c *ProjectConfig) TrackByID(id string) *TrackConfig {
	for i := range c.Tracks {
		if c.Tracks[i].ID == id {
			return &c.Tracks[i]
		}
	}
	return nil
}

// ActiveTracks returns the IDs of tracks in the active state, in config
// order.
func (c *ProjectConfig) ActiveTracks() []string {
	var out []string
	for _, t := range c.Tracks {
		if t.State == "active" {
			out = append(out, t.ID)
		}
	}
	return out
}

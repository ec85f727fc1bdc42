// Package project handles discovery and IO for a frame/ directory: the
// project.toml config, track files, the inbox, locking, and the
// recovery log.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/parse"
)

var ErrNotAProject = errors.New("not a frame project: no frame/ directory found")

// LoadedTrack pairs a track's config entry with its parsed document.
type LoadedTrack struct {
	ID      string
	File    string
	Track   *model.Track
	Dropped []string
}

// Project is a fully loaded frame project.
type Project struct {
	Root         string
	FrameDir     string
	Config       model.ProjectConfig
	ConfigText   string
	Tracks       []LoadedTrack
	Inbox        *model.Inbox
	InboxDropped []string
}

// Discover walks up from start looking for a frame/ directory with a
// project.toml inside.
func Discover(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		frameDir := filepath.Join(current, "frame")
		if info, err := os.Stat(frameDir); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(frameDir, "project.toml")); err == nil {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotAProject
		}
		current = parent
	}
}

// Load reads the whole project from root: config, every configured
// track file that exists, and the inbox if present.
func Load(root string) (*Project, error) {
	frameDir := filepath.Join(root, "frame")
	if info, err := os.Stat(frameDir); err != nil || !info.IsDir() {
		return nil, ErrNotAProject
	}

	configPath := filepath.Join(frameDir, "project.toml")
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}
	config := model.DefaultConfig()
	if _, err := toml.Decode(string(configBytes), &config); err != nil {
		return nil, fmt.Errorf("parse project.toml: %w", err)
	}

	p := &Project{
		Root:       root,
		FrameDir:   frameDir,
		Config:     config,
		ConfigText: string(configBytes),
	}

	for _, tc := range config.Tracks {
		trackPath := filepath.Join(frameDir, tc.File)
		data, err := os.ReadFile(trackPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", trackPath, err)
		}
		track, dropped := parse.ParseTrack(string(data))
		p.Tracks = append(p.Tracks, LoadedTrack{
			ID:      tc.ID,
			File:    tc.File,
			Track:   track,
			Dropped: dropped,
		})
	}

	inboxPath := filepath.Join(frameDir, "inbox.md")
	if data, err := os.ReadFile(inboxPath); err == nil {
		p.Inbox, p.InboxDropped = parse.ParseInbox(string(data))
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", inboxPath, err)
	}

	return p, nil
}

// Track returns the loaded track with the given ID, or nil.
func (p *Project) Track(id string) *model.Track {
	for _, lt := range p.Tracks {
		if lt.ID == id {
			return lt.Track
		}
	}
	return nil
}

// TrackFile returns the loaded entry for a track ID, or nil.
func (p *Project) TrackFile(id string) *LoadedTrack {
	for i := range p.Tracks {
		if p.Tracks[i].ID == id {
			return &p.Tracks[i]
		}
	}
	return nil
}

// Prefix returns the configured ID prefix for a track, or "".
func (p *Project) Prefix(trackID string) string {
	return p.Config.IDs.Prefixes[trackID]
}

// SaveTrack serializes a track and writes it atomically, with a
// trailing newline.
func (p *Project) SaveTrack(trackID string) error {
	lt := p.TrackFile(trackID)
	if lt == nil {
		return fmt.Errorf("unknown track: %s", trackID)
	}
	content := parse.SerializeTrack(lt.Track)
	return writeFileAtomic(filepath.Join(p.FrameDir, lt.File), []byte(content+"\n"))
}

// SaveAllTracks writes every loaded track.
func (p *Project) SaveAllTracks() error {
	for _, lt := range p.Tracks {
		if err := p.SaveTrack(lt.ID); err != nil {
			return err
		}
	}
	return nil
}

// SaveInbox serializes and atomically writes inbox.md.
func (p *Project) SaveInbox() error {
	if p.Inbox == nil {
		return nil
	}
	content := parse.SerializeInbox(p.Inbox)
	return writeFileAtomic(filepath.Join(p.FrameDir, "inbox.md"), []byte(content+"\n"))
}

// SaveConfig writes edited config text back to project.toml and keeps
// the in-memory copy in sync.
func (p *Project) SaveConfig(text string) error {
	if err := writeFileAtomic(filepath.Join(p.FrameDir, "project.toml"), []byte(text)); err != nil {
		return err
	}
	p.ConfigText = text
	config := model.DefaultConfig()
	if _, err := toml.Decode(text, &config); err != nil {
		return fmt.Errorf("parse edited project.toml: %w", err)
	}
	p.Config = config
	return nil
}

// writeFileAtomic writes via a temp file in the same directory and
// renames it into place, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".frame-write-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Package registry tracks known frame projects in a per-user file at
// ~/.config/frame/projects.yaml so the CLI and TUI can list and open
// projects from anywhere.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Entry is a single registered project.
type Entry struct {
	Name            string     `yaml:"name"`
	Path            string     `yaml:"path"`
	LastAccessedTUI *time.Time `yaml:"last_accessed_tui,omitempty"`
	LastAccessedCLI *time.Time `yaml:"last_accessed_cli,omitempty"`
}

// Registry is the full project list.
type Registry struct {
	Projects []Entry `yaml:"projects"`
}

// Path returns the registry file location, honoring XDG_CONFIG_HOME.
func Path() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "/"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "frame", "projects.yaml")
}

// ReadFrom loads the registry at path. A missing file yields an empty
// registry; a corrupted file is backed up as .bak and replaced.
func ReadFrom(path string) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Registry{}
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		bak := path + ".bak"
		if copyErr := os.WriteFile(bak, data, 0o644); copyErr == nil {
			log.Warn("could not parse project registry, backed up",
				"path", path, "backup", bak, "err", err)
		} else {
			log.Warn("could not parse project registry", "path", path, "err", err)
		}
		return &Registry{}
	}
	return &reg
}

// Read loads the registry from the default location.
func Read() *Registry {
	return ReadFrom(Path())
}

// WriteTo saves the registry at path, creating parent directories.
func WriteTo(path string, reg *Registry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode project registry: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Write saves the registry to the default location.
func Write(reg *Registry) error {
	return WriteTo(Path(), reg)
}

// RegisterIn adds a project to the registry at regPath. If the path is
// already registered the name is refreshed instead. Returns true for a
// new registration.
func RegisterIn(regPath, name, absPath string) bool {
	reg := ReadFrom(regPath)
	for i := range reg.Projects {
		if reg.Projects[i].Path == absPath {
			reg.Projects[i].Name = name
			WriteTo(regPath, reg)
			return false
		}
	}
	reg.Projects = append(reg.Projects, Entry{Name: name, Path: absPath})
	WriteTo(regPath, reg)
	return true
}

// Register adds a project to the default registry.
func Register(name, absPath string) bool {
	return RegisterIn(Path(), name, absPath)
}

// TouchTUI stamps last_accessed_tui for the project at absPath.
func TouchTUI(absPath string) {
	touch(absPath, func(e *Entry, now time.Time) { e.LastAccessedTUI = &now })
}

// TouchCLI stamps last_accessed_cli for the project at absPath.
func TouchCLI(absPath string) {
	touch(absPath, func(e *Entry, now time.Time) { e.LastAccessedCLI = &now })
}

func touch(absPath string, set func(*Entry, time.Time)) {
	regPath := Path()
	reg := ReadFrom(regPath)
	for i := range reg.Projects {
		if reg.Projects[i].Path == absPath {
			set(&reg.Projects[i], time.Now().UTC())
			WriteTo(regPath, reg)
			return
		}
	}
}

// RemoveFrom drops a project from the registry at regPath, matched by
// path or by name. Returns the removed entry, or nil when nothing
// matched. An ambiguous name (shared by several projects) is an error.
func RemoveFrom(regPath, nameOrPath string) (*Entry, error) {
	reg := ReadFrom(regPath)

	remove := func(idx int) *Entry {
		removed := reg.Projects[idx]
		reg.Projects = append(reg.Projects[:idx], reg.Projects[idx+1:]...)
		WriteTo(regPath, reg)
		return &removed
	}

	if abs, err := filepath.Abs(nameOrPath); err == nil {
		for i, e := range reg.Projects {
			if e.Path == abs {
				return remove(i), nil
			}
		}
	}
	for i, e := range reg.Projects {
		if e.Path == nameOrPath {
			return remove(i), nil
		}
	}

	var matches []int
	for i, e := range reg.Projects {
		if e.Name == nameOrPath {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return remove(matches[0]), nil
	default:
		return nil, fmt.Errorf("ambiguous: %d projects named %q, specify by path instead",
			len(matches), nameOrPath)
	}
}

// Remove drops a project from the default registry.
func Remove(nameOrPath string) (*Entry, error) {
	return RemoveFrom(Path(), nameOrPath)
}

// AbbreviatePath replaces a leading $HOME with ~ for display.
func AbbreviatePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, home); ok {
		return "~" + rest
	}
	return path
}

// RelativeTime renders a timestamp as a short "ago" string.
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hr ago", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	switch {
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days/7 < 5:
		return fmt.Sprintf("%d weeks ago", days/7)
	default:
		return fmt.Sprintf("%d months ago", days/30)
	}
}

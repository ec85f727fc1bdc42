// Package watch observes a project's frame/ directory for external
// edits so open sessions can reload changed files.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Event reports tracked files that changed on disk.
type Event struct {
	Paths []string
}

// Watcher watches frame/ and its subdirectories for changes to .md and
// .toml files. Lock and state files are ignored.
type Watcher struct {
	fw       *fsnotify.Watcher
	frameDir string
	events   chan Event
	done     chan struct{}
}

// Start begins watching frameDir and its subdirectories.
func Start(frameDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fw:       fw,
		frameDir: frameDir,
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}

	// fsnotify is not recursive; register every subdirectory.
	err = filepath.WalkDir(frameDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if evt.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					w.fw.Add(evt.Name)
					continue
				}
			}
			if !w.relevant(evt.Name) {
				continue
			}
			select {
			case w.events <- Event{Paths: []string{evt.Name}}:
			default:
				// Queue full; a pending event already forces a reload.
			}
		case <-w.fw.Errors:
		}
	}
}

// relevant reports whether a change to path should trigger a reload.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.frameDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	name := filepath.Base(path)
	if name == ".lock" || name == ".state.json" {
		return false
	}
	switch filepath.Ext(path) {
	case ".md", ".toml":
		return true
	}
	return false
}

// Poll drains all queued events without blocking.
func (w *Watcher) Poll() []Event {
	var events []Event
	for {
		select {
		case evt := <-w.events:
			events = append(events, evt)
		default:
			return events
		}
	}
}

// Events exposes the event stream for select-based consumers.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.fw.Close()
}

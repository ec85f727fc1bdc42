package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshsegall/frame-sub002/internal/frame/watch"
)

// watchMsg carries file paths changed externally.
type watchMsg struct {
	paths []string
}

// watchCmd blocks on the watcher's event stream and converts the next
// event into a message. Re-issued after each watchMsg is handled.
func watchCmd(w *watch.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-w.Events()
		if !ok {
			return nil
		}
		paths := evt.Paths
		// Fold any queued backlog into the same reload.
		for _, more := range w.Poll() {
			paths = append(paths, more.Paths...)
		}
		return watchMsg{paths: paths}
	}
}

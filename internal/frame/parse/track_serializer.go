package parse

import (
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// SerializeTrack renders a track back to markdown. Literal nodes emit
// verbatim; sections emit their header lines, tasks, and trailing blank
// lines.
func SerializeTrack(track *model.Track) string {
	var lines []string
	for _, node := range track.Nodes {
		switch n := node.(type) {
		case *model.Literal:
			lines = append(lines, n.Lines...)
		case *model.Section:
			lines = append(lines, n.HeaderLines...)
			lines = append(lines, SerializeTasks(n.Tasks, 0)...)
			lines = append(lines, n.TrailingLines...)
		}
	}
	return strings.Join(lines, "\n")
}

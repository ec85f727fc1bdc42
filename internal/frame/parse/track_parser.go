package parse

import (
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// ParseTrack parses a track file. The second return value lists lines
// the parser could not attribute to any node; they will not survive a
// rewrite and callers should report them.
func ParseTrack(source string) (*model.Track, []string) {
	lines := SplitLines(source)

	track := &model.Track{}
	var dropped []string
	var literalBuf []string

	flushLiteral := func() {
		if len(literalBuf) > 0 {
			track.Nodes = append(track.Nodes, &model.Literal{Lines: literalBuf})
			literalBuf = nil
		}
	}

	idx := 0
	for idx < len(lines) {
		line := lines[idx]
		trimmed := strings.TrimSpace(line)

		// Track title. The line stays in the literal stream so it
		// round-trips untouched.
		if strings.HasPrefix(trimmed, "# ") && !strings.HasPrefix(trimmed, "## ") {
			flushLiteral()
			track.Title = trimmed[2:]
			literalBuf = append(literalBuf, line)
			idx++
			continue
		}

		if desc, ok := strings.CutPrefix(trimmed, "> "); ok {
			flushLiteral()
			track.Description = desc
			literalBuf = append(literalBuf, line)
			idx++
			continue
		}

		if name, ok := strings.CutPrefix(trimmed, "## "); ok {
			if kind, known := model.SectionKindFromHeader(strings.TrimSpace(name)); known {
				flushLiteral()

				headerLines := []string{line}
				idx++
				for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
					headerLines = append(headerLines, lines[idx])
					idx++
				}

				tasks, next, taskDropped := ParseTasks(lines, idx, 0, 0)
				dropped = append(dropped, taskDropped...)
				idx = next

				var trailing []string
				for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
					trailing = append(trailing, lines[idx])
					idx++
				}

				track.Nodes = append(track.Nodes, &model.Section{
					Kind:          kind,
					HeaderLines:   headerLines,
					Tasks:         tasks,
					TrailingLines: trailing,
				})
				continue
			}
			// Unknown section header is literal text.
		}

		literalBuf = append(literalBuf, line)
		idx++
	}

	flushLiteral()
	return track, dropped
}

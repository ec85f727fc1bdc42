package parse

import (
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// ParseInbox parses inbox.md: header lines, then items separated by
// blank lines. Each item is a `- ` line with optional trailing `#tags`,
// optional tag-only continuation lines, and an indented body. The second
// return value lists lines the parser had to skip.
func ParseInbox(source string) (*model.Inbox, []string) {
	lines := SplitLines(source)

	inbox := &model.Inbox{}
	var dropped []string
	idx := 0

	for idx < len(lines) {
		if strings.HasPrefix(strings.TrimSpace(lines[idx]), "- ") {
			break
		}
		inbox.HeaderLines = append(inbox.HeaderLines, lines[idx])
		idx++
	}

	for idx < len(lines) {
		line := lines[idx]
		trimmed := strings.TrimSpace(line)

		titleContent, isItem := strings.CutPrefix(trimmed, "- ")
		if !isItem {
			if trimmed != "" {
				dropped = append(dropped, line)
			}
			idx++
			continue
		}

		itemStart := idx
		title, tags := ParseTitleAndTags(titleContent)
		idx++

		// Tag-only continuation lines before the body.
		for idx < len(lines) {
			cont := lines[idx]
			contTrimmed := strings.TrimSpace(cont)
			if contTrimmed == "" || (!strings.HasPrefix(cont, " ") && strings.HasPrefix(contTrimmed, "- ")) {
				break
			}
			if !isTagOnlyLine(contTrimmed) {
				break
			}
			for _, word := range strings.Fields(contTrimmed) {
				if tag, ok := strings.CutPrefix(word, "#"); ok && tag != "" {
					tags = append(tags, tag)
				}
			}
			idx++
		}

		// Body lines until a terminal blank line or the next item.
		// Fenced code keeps blank lines and task-like lines inside the
		// body.
		var bodyLines []string
		inFence := false
		for idx < len(lines) {
			bodyLine := lines[idx]
			bodyTrimmed := strings.TrimSpace(bodyLine)

			if strings.HasPrefix(bodyTrimmed, "```") {
				inFence = !inFence
			}

			if !inFence {
				if bodyTrimmed == "" {
					if hasContinuationAtIndent(lines, idx+1, 1) {
						bodyLines = append(bodyLines, "")
						idx++
						continue
					}
					break
				}
				if strings.HasPrefix(bodyTrimmed, "- ") && !strings.HasPrefix(bodyLine, " ") {
					break
				}
			}

			bodyLines = append(bodyLines, stripBodyIndent(bodyLine))
			idx++
		}

		// The blank lines after an item belong to its verbatim span.
		for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
			idx++
		}

		inbox.Items = append(inbox.Items, &model.InboxItem{
			Title:  title,
			Tags:   tags,
			Body:   bodyLines,
			Source: append([]string(nil), lines[itemStart:idx]...),
		})
	}

	return inbox, dropped
}

// isTagOnlyLine reports whether the line consists entirely of `#tag`
// words.
func isTagOnlyLine(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	for _, word := range strings.Fields(trimmed) {
		if !strings.HasPrefix(word, "#") || len(word) < 2 {
			return false
		}
	}
	return true
}

// stripBodyIndent removes the two-space item indent if present.
func stripBodyIndent(line string) string {
	return strings.TrimPrefix(line, "  ")
}

package parse

import (
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// maxDepth is the nesting limit: top-level, subtask, sub-subtask.
const maxDepth = 3

// ParseTasks parses task lines starting at start, expecting tasks at the
// given indent level. It returns the parsed tasks, the index of the line
// where parsing stopped, and any non-blank lines it had to skip over.
func ParseTasks(lines []string, start, indent, depth int) ([]*model.Task, int, []string) {
	var tasks []*model.Task
	var dropped []string
	idx := start

	for idx < len(lines) {
		line := lines[idx]

		if ti, ok := taskIndent(line); ok {
			if ti == indent {
				task, next := parseSingleTask(lines, idx, indent, depth)
				tasks = append(tasks, task)
				idx = next
			} else if ti < indent {
				// Dedented, this nesting level is finished.
				break
			} else {
				// Deeper than expected and not under a task above.
				dropped = append(dropped, line)
				idx++
			}
		} else {
			// Blank lines and orphaned deeper-indent content can appear
			// between tasks (after multi-line notes with trailing blanks,
			// or leftovers from earlier parse errors). Skip past them only
			// when more tasks at our indent follow.
			blank := strings.TrimSpace(line) == ""
			if (blank || countIndent(line) > indent) && hasMoreTasksAtIndent(lines, idx+1, indent) {
				if !blank {
					dropped = append(dropped, line)
				}
				idx++
				continue
			}
			break
		}
	}

	return tasks, idx, dropped
}

// parseSingleTask parses one task together with its metadata and
// subtasks. The task's captured source covers the task line and its
// metadata only; subtasks capture their own lines so that rewriting one
// does not reformat the parent.
func parseSingleTask(lines []string, start, indent, depth int) (*model.Task, int) {
	state, id, title, tags := parseTaskLine(lines[start], indent)

	task := &model.Task{
		State: state,
		ID:    id,
		Title: title,
		Tags:  tags,
		Depth: depth,
	}

	idx := start + 1
	metaIndent := indent + 2

	for idx < len(lines) {
		line := lines[idx]

		// A task line at or above the metadata indent ends the metadata.
		if ti, ok := taskIndent(line); ok && ti <= metaIndent {
			break
		}

		if isMetadataLine(line, metaIndent) {
			meta, next := parseMetadata(lines, idx, metaIndent)
			task.Meta = append(task.Meta, meta)
			idx = next
			continue
		}

		if li := countIndent(line); li > indent && strings.TrimSpace(line) != "" {
			// Stray deeper-indent content; keep it inside the task's
			// verbatim span.
			idx++
			continue
		}

		// Blank line. Consume it only if metadata or a subtask follows,
		// which happens after multi-line notes with trailing blanks and
		// after empty notes.
		if strings.TrimSpace(line) == "" {
			peek := idx + 1
			for peek < len(lines) && strings.TrimSpace(lines[peek]) == "" {
				peek++
			}
			if peek < len(lines) {
				if ti, ok := taskIndent(lines[peek]); isMetadataLine(lines[peek], metaIndent) || (ok && ti == metaIndent) {
					idx++
					continue
				}
			}
		}

		break
	}

	task.Source = append([]string(nil), lines[start:idx]...)

	if idx < len(lines) {
		if ti, ok := taskIndent(lines[idx]); ok && ti == metaIndent && depth+1 < maxDepth {
			subtasks, next, _ := ParseTasks(lines, idx, metaIndent, depth+1)
			task.Subtasks = subtasks
			idx = next
		}
	}

	return task, idx
}

// parseTaskLine splits `- [x] `ID` Title text #tag1 #tag2`.
func parseTaskLine(line string, indent int) (model.TaskState, string, string, []string) {
	content := line[indent:]

	state := model.Todo
	if strings.HasPrefix(content, "- [") && len(content) > 3 {
		if s, ok := model.StateFromCheckbox(content[3]); ok {
			state = s
		}
	}

	// Skip past `- [X]` and the following space.
	after := content
	if len(after) >= 5 {
		after = after[5:]
	} else {
		after = ""
	}
	after = strings.TrimPrefix(after, " ")

	// Optional backticked ID.
	var id string
	if rest, ok := strings.CutPrefix(after, "`"); ok {
		if end := strings.IndexByte(rest, '`'); end >= 0 {
			id = rest[:end]
			after = strings.TrimPrefix(rest[end+1:], " ")
		}
	}

	title, tags := ParseTitleAndTags(after)
	return state, id, title, tags
}

// ParseTitleAndTags splits a string into title text and trailing `#tag`
// tokens. Tag-like tokens in the middle of the title stay in the title.
func ParseTitleAndTags(s string) (string, []string) {
	s = strings.TrimRight(s, " \t")
	if s == "" {
		return "", nil
	}

	var tags []string
	remaining := s

	for {
		trimmed := strings.TrimRight(remaining, " \t")
		if trimmed == "" {
			break
		}

		lastSpace := strings.LastIndexByte(trimmed, ' ')
		lastWord := trimmed
		if lastSpace >= 0 {
			lastWord = trimmed[lastSpace+1:]
		}
		tag, ok := strings.CutPrefix(lastWord, "#")
		if !ok || tag == "" || strings.Contains(tag, "#") {
			break
		}
		tags = append(tags, tag)
		if lastSpace >= 0 {
			remaining = trimmed[:lastSpace]
		} else {
			remaining = ""
		}
	}

	for i, j := 0, len(tags)-1; i < j; i, j = i+1, j-1 {
		tags[i], tags[j] = tags[j], tags[i]
	}
	return strings.TrimRight(remaining, " \t"), tags
}

// taskIndent reports whether line is a task line (`- [c] ` at some
// indent) and at which indent.
// IsTaskLine reports whether line holds a task checkbox at exactly the
// given indent.
func IsTaskLine(line string, indent int) bool {
	ti, ok := taskIndent(line)
	return ok && ti == indent
}

func taskIndent(line string) (int, bool) {
	indent := countIndent(line)
	content := line[indent:]
	if strings.HasPrefix(content, "- [") && len(content) >= 5 && content[4] == ']' {
		return indent, true
	}
	return 0, false
}

// hasMoreTasksAtIndent looks past blank lines and deeper-indent content
// for another task at the given indent.
func hasMoreTasksAtIndent(lines []string, start, indent int) bool {
	for _, line := range lines[min(start, len(lines)):] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if countIndent(line) > indent {
			continue
		}
		ti, ok := taskIndent(line)
		return ok && ti == indent
	}
	return false
}

// isMetadataLine reports whether line is `- key: ...` with a recognized
// key at exactly the given indent.
func isMetadataLine(line string, indent int) bool {
	if countIndent(line) != indent {
		return false
	}
	content := strings.TrimLeft(line[indent:], " ")
	if !strings.HasPrefix(content, "- ") {
		return false
	}
	key, _, found := strings.Cut(content[2:], ":")
	return found && isMetadataKey(strings.TrimSpace(key))
}

func isMetadataKey(key string) bool {
	switch key {
	case "dep", "ref", "spec", "note", "added", "resolved":
		return true
	}
	return false
}

// parseMetadata parses one metadata entry; multi-line notes consume
// their block.
func parseMetadata(lines []string, idx, indent int) (model.Meta, int) {
	content := strings.TrimLeft(lines[idx][indent:], " ")
	key, valuePart, _ := strings.Cut(content[2:], ":")
	key = strings.TrimSpace(key)
	value := strings.TrimSpace(valuePart)

	switch key {
	case "dep":
		return model.Meta{Kind: model.MetaDep, List: splitCommaList(value)}, idx + 1
	case "ref":
		return model.Meta{Kind: model.MetaRef, List: splitCommaList(value)}, idx + 1
	case "spec":
		return model.Meta{Kind: model.MetaSpec, Text: value}, idx + 1
	case "added":
		return model.Meta{Kind: model.MetaAdded, Text: value}, idx + 1
	case "resolved":
		return model.Meta{Kind: model.MetaResolved, Text: value}, idx + 1
	case "note":
		if value != "" {
			return model.Meta{Kind: model.MetaNote, Text: value}, idx + 1
		}
		text, next := parseNoteBlock(lines, idx+1, indent+2)
		return model.Meta{Kind: model.MetaNote, Text: text}, next
	default:
		// Unknown key folds into a note.
		return model.Meta{Kind: model.MetaNote, Text: key + ": " + value}, idx + 1
	}
}

func splitCommaList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseNoteBlock collects a multi-line note at blockIndent, keeping
// blank lines that have a continuation and passing through fenced code
// untouched.
func parseNoteBlock(lines []string, start, blockIndent int) (string, int) {
	var noteLines []string
	idx := start
	inFence := false

	for idx < len(lines) {
		line := lines[idx]
		lineIndent := countIndent(line)

		if inFence {
			noteLines = append(noteLines, stripBlockIndent(line, blockIndent))
			if strings.HasPrefix(strings.TrimSpace(line), "```") && idx != start {
				if lineIndent >= blockIndent && strings.HasPrefix(strings.TrimLeft(line[blockIndent:], " "), "```") {
					inFence = false
				}
			}
			idx++
			continue
		}

		if strings.TrimSpace(line) == "" {
			if hasContinuationAtIndent(lines, idx+1, blockIndent) {
				noteLines = append(noteLines, "")
				idx++
				continue
			}
			break
		}

		if lineIndent < blockIndent {
			break
		}

		stripped := stripBlockIndent(line, blockIndent)
		if strings.HasPrefix(strings.TrimLeft(stripped, " "), "```") {
			inFence = true
		}
		noteLines = append(noteLines, stripped)
		idx++
	}

	for len(noteLines) > 0 && noteLines[len(noteLines)-1] == "" {
		noteLines = noteLines[:len(noteLines)-1]
	}

	return strings.Join(noteLines, "\n"), idx
}

// stripBlockIndent removes the block indent, preserving any deeper
// relative indentation.
func stripBlockIndent(line string, blockIndent int) string {
	if len(line) >= blockIndent {
		return line[blockIndent:]
	}
	if strings.TrimSpace(line) == "" {
		return ""
	}
	return strings.TrimLeft(line, " ")
}

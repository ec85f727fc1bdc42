package project

import (
	"fmt"
	"strings"
)

// ConfigEdit applies targeted edits to project.toml text, leaving every
// untouched line byte-for-byte intact. Comments, blank lines, and key
// order survive edits the decoder would normalize away.
type ConfigEdit struct {
	lines []string
}

// NewConfigEdit wraps config text for editing.
func NewConfigEdit(text string) *ConfigEdit {
	return &ConfigEdit{lines: strings.Split(text, "\n")}
}

// String returns the edited config text.
func (e *ConfigEdit) String() string {
	return strings.Join(e.lines, "\n")
}

// SetCCFocus sets agent.cc_focus, creating the [agent] table if needed.
func (e *ConfigEdit) SetCCFocus(trackID string) {
	e.setSectionKey("agent", "cc_focus", trackID)
}

// ClearCCFocus removes agent.cc_focus if present.
func (e *ConfigEdit) ClearCCFocus() {
	start, end, ok := e.sectionRange("agent")
	if !ok {
		return
	}
	for i := start + 1; i < end; i++ {
		if keyOf(e.lines[i]) == "cc_focus" {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			return
		}
	}
}

// AddTrack appends a [[tracks]] entry after the last one, or at the end
// of the file when none exist.
func (e *ConfigEdit) AddTrack(id, name, state, file string) {
	entry := []string{
		"[[tracks]]",
		fmt.Sprintf("id = %q", id),
		fmt.Sprintf("name = %q", name),
		fmt.Sprintf("state = %q", state),
		fmt.Sprintf("file = %q", file),
	}
	insert := e.contentEnd()
	if _, blockEnd, ok := e.lastTrackBlock(); ok {
		insert = blockEnd
	}
	e.insertBlock(insert, entry)
}

// RemoveTrack deletes the [[tracks]] entry with the given id, along
// with the blank line preceding it.
func (e *ConfigEdit) RemoveTrack(trackID string) {
	start, end, ok := e.trackBlock(trackID)
	if !ok {
		return
	}
	for start > 0 && strings.TrimSpace(e.lines[start-1]) == "" {
		start--
	}
	e.lines = append(e.lines[:start], e.lines[end:]...)
}

// UpdateTrackState rewrites the state key of one track entry.
func (e *ConfigEdit) UpdateTrackState(trackID, newState string) {
	e.setTrackKey(trackID, "state", newState)
}

// UpdateTrackName rewrites the name key of one track entry.
func (e *ConfigEdit) UpdateTrackName(trackID, newName string) {
	e.setTrackKey(trackID, "name", newName)
}

// UpdateTrackID rewrites a track's id and its derived file path.
func (e *ConfigEdit) UpdateTrackID(oldID, newID string) {
	start, end, ok := e.trackBlock(oldID)
	if !ok {
		return
	}
	for i := start; i < end; i++ {
		switch keyOf(e.lines[i]) {
		case "id":
			e.lines[i] = fmt.Sprintf("id = %q", newID)
		case "file":
			e.lines[i] = fmt.Sprintf("file = %q", "tracks/"+newID+".md")
		}
	}
}

// SetPrefix sets an entry in [ids.prefixes], creating the section if
// needed.
func (e *ConfigEdit) SetPrefix(trackID, prefix string) {
	e.setSectionKey("ids.prefixes", trackID, prefix)
}

// RemovePrefix deletes an entry from [ids.prefixes].
func (e *ConfigEdit) RemovePrefix(trackID string) {
	e.removeSectionKey("ids.prefixes", trackID)
}

// RenamePrefixKey moves a prefix entry to a new key, keeping its value.
func (e *ConfigEdit) RenamePrefixKey(oldKey, newKey string) {
	start, end, ok := e.sectionRange("ids.prefixes")
	if !ok {
		return
	}
	for i := start + 1; i < end; i++ {
		if keyOf(e.lines[i]) == oldKey {
			_, value, found := strings.Cut(e.lines[i], "=")
			if !found {
				return
			}
			e.lines[i] = newKey + " =" + value
			return
		}
	}
}

// SetTagColor sets an entry in [ui.tag_colors], creating the section if
// needed.
func (e *ConfigEdit) SetTagColor(tag, hexColor string) {
	e.setSectionKey("ui.tag_colors", tag, hexColor)
}

// ClearTagColor deletes an entry from [ui.tag_colors].
func (e *ConfigEdit) ClearTagColor(tag string) {
	e.removeSectionKey("ui.tag_colors", tag)
}

// ---------------------------------------------------------------------
// Line-level mechanics
// ---------------------------------------------------------------------

// keyOf extracts the bare key from a `key = value` line, or "".
func keyOf(line string) string {
	key, _, found := strings.Cut(line, "=")
	if !found {
		return ""
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "#") || strings.HasPrefix(key, "[") {
		return ""
	}
	return key
}

func isHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "[")
}

// sectionRange locates a [header] table. start is the header line; end
// is the first line of the next table or the content end.
func (e *ConfigEdit) sectionRange(header string) (int, int, bool) {
	want := "[" + header + "]"
	for i, line := range e.lines {
		if strings.TrimSpace(line) != want {
			continue
		}
		end := len(e.lines)
		for j := i + 1; j < len(e.lines); j++ {
			if isHeader(e.lines[j]) {
				end = j
				break
			}
		}
		return i, end, true
	}
	return 0, 0, false
}

// trackBlock locates the [[tracks]] table whose id key matches trackID.
func (e *ConfigEdit) trackBlock(trackID string) (int, int, bool) {
	want := fmt.Sprintf("%q", trackID)
	for i := 0; i < len(e.lines); i++ {
		if strings.TrimSpace(e.lines[i]) != "[[tracks]]" {
			continue
		}
		end := len(e.lines)
		for j := i + 1; j < len(e.lines); j++ {
			if isHeader(e.lines[j]) {
				end = j
				break
			}
		}
		for j := i + 1; j < end; j++ {
			if keyOf(e.lines[j]) == "id" {
				_, value, _ := strings.Cut(e.lines[j], "=")
				if strings.TrimSpace(value) == want {
					return i, end, true
				}
			}
		}
		i = end - 1
	}
	return 0, 0, false
}

func (e *ConfigEdit) lastTrackBlock() (int, int, bool) {
	start, end, found := 0, 0, false
	for i := 0; i < len(e.lines); i++ {
		if strings.TrimSpace(e.lines[i]) != "[[tracks]]" {
			continue
		}
		blockEnd := len(e.lines)
		for j := i + 1; j < len(e.lines); j++ {
			if isHeader(e.lines[j]) {
				blockEnd = j
				break
			}
		}
		start, end, found = i, blockEnd, true
		i = blockEnd - 1
	}
	if found {
		end = trimBlankEnd(e.lines, start, end)
	}
	return start, end, found
}

// contentEnd is the index just past the last non-blank line.
func (e *ConfigEdit) contentEnd() int {
	return trimBlankEnd(e.lines, 0, len(e.lines))
}

func trimBlankEnd(lines []string, start, end int) int {
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return end
}

// insertBlock inserts a blank-line-separated block at index.
func (e *ConfigEdit) insertBlock(index int, block []string) {
	withSep := append([]string{""}, block...)
	out := make([]string, 0, len(e.lines)+len(withSep))
	out = append(out, e.lines[:index]...)
	out = append(out, withSep...)
	out = append(out, e.lines[index:]...)
	e.lines = out
}

// setSectionKey sets key = "value" inside [header], replacing an
// existing key line or appending the key, creating the section at the
// end of the file when missing.
func (e *ConfigEdit) setSectionKey(header, key, value string) {
	start, end, ok := e.sectionRange(header)
	if !ok {
		e.insertBlock(e.contentEnd(), []string{
			"[" + header + "]",
			fmt.Sprintf("%s = %q", key, value),
		})
		return
	}
	for i := start + 1; i < end; i++ {
		if keyOf(e.lines[i]) == key {
			e.lines[i] = fmt.Sprintf("%s = %q", key, value)
			return
		}
	}
	insert := trimBlankEnd(e.lines, start, end)
	e.lines = append(e.lines, "")
	copy(e.lines[insert+1:], e.lines[insert:])
	e.lines[insert] = fmt.Sprintf("%s = %q", key, value)
}

func (e *ConfigEdit) removeSectionKey(header, key string) {
	start, end, ok := e.sectionRange(header)
	if !ok {
		return
	}
	for i := start + 1; i < end; i++ {
		if keyOf(e.lines[i]) == key {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			return
		}
	}
}

// setTrackKey rewrites one key within a track's [[tracks]] entry.
func (e *ConfigEdit) setTrackKey(trackID, key, value string) {
	start, end, ok := e.trackBlock(trackID)
	if !ok {
		return
	}
	for i := start + 1; i < end; i++ {
		if keyOf(e.lines[i]) == key {
			e.lines[i] = fmt.Sprintf("%s = %q", key, value)
			return
		}
	}
	insert := trimBlankEnd(e.lines, start, end)
	e.lines = append(e.lines, "")
	copy(e.lines[insert+1:], e.lines[insert:])
	e.lines[insert] = fmt.Sprintf("%s = %q", key, value)
}

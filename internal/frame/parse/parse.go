// Package parse reads and writes the frame file formats. Parsing is
// lossless: every line of input is either attributed to a model node
// (which remembers its verbatim source) or reported back as dropped.
// Serializing an unmodified document reproduces the input byte for byte.
package parse

import "strings"

// SplitLines splits source text into lines the way the parsers expect:
// a single trailing newline does not produce a final empty line.
func SplitLines(source string) []string {
	if source == "" {
		return nil
	}
	source = strings.TrimSuffix(source, "\n")
	return strings.Split(source, "\n")
}

// countIndent counts leading spaces.
func countIndent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// hasContinuationAtIndent checks whether content continues at or beyond
// minIndent after a run of blank lines. Both the note parser and the
// inbox body parser use it to decide whether a blank line separates
// paragraphs or ends the block.
func hasContinuationAtIndent(lines []string, afterBlank, minIndent int) bool {
	for _, line := range lines[min(afterBlank, len(lines)):] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return countIndent(line) >= minIndent
	}
	return false
}

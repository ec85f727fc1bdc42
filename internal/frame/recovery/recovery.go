// Package recovery maintains the append-only recovery log at
// frame/.recovery.log. The log captures data that could not be saved
// through the normal write path (parser drops, conflicting edits,
// failed writes, deleted task bodies) so nothing is silently lost.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// maxLogSize is the size at which an append attempts an inline trim.
const maxLogSize = 1 << 20

// PruneAgeDays is the default age before entries are prunable.
const PruneAgeDays = 30

// BurstLimit caps recovery entries per operation before aborting.
const BurstLimit = 20

// fileHeader is written at the top of a fresh recovery log.
const fileHeader = `<!-- frame recovery log — append-only error recovery data
     This file captures data that Frame couldn't save normally.
     If something went missing, check here.
     View with: frame recovery
     Prune old entries: frame recovery prune
     Safe to delete if empty or stale. -->

---
`

// Category classifies a recovery entry.
type Category string

const (
	CategoryParser   Category = "parser"
	CategoryConflict Category = "conflict"
	CategoryWrite    Category = "write"
	CategoryDelete   Category = "delete"
)

func parseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryParser, CategoryConflict, CategoryWrite, CategoryDelete:
		return Category(s), true
	}
	return "", false
}

// Field is an ordered Key: value pair attached to an entry.
type Field struct {
	Key   string
	Value string
}

// Entry is a single block in the recovery log.
type Entry struct {
	Timestamp   time.Time
	Category    Category
	Description string
	Fields      []Field
	Body        string
}

// Summary describes the state of the recovery log.
type Summary struct {
	EntryCount int
	Oldest     time.Time
}

// LogPath returns the path of the recovery log under frameDir.
func LogPath(frameDir string) string {
	return filepath.Join(frameDir, ".recovery.log")
}

// Markdown renders the entry as a log block: a header line with the
// UTC timestamp, category and description, the Key: value fields, the
// body in a fenced text block, and a closing rule.
func (e *Entry) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s — %s: %s\n\n",
		e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), e.Category, e.Description)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	if e.Body != "" {
		b.WriteString("\n```text\n")
		b.WriteString(e.Body)
		if !strings.HasSuffix(e.Body, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("```\n")
	}
	b.WriteString("\n---\n")
	return b.String()
}

// Log appends an entry to the recovery log. Failures are reported as
// warnings rather than returned; the recovery log must never block the
// operation that produced the entry.
func Log(frameDir string, entry Entry) {
	if err := appendEntry(frameDir, entry); err != nil {
		log.Warn("could not write to recovery log", "err", err)
	}
}

func appendEntry(frameDir string, entry Entry) error {
	path := LogPath(frameDir)

	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		tryInlineTrim(path)
	}

	needsHeader := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		needsHeader = false
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if needsHeader {
		if _, err := file.WriteString(fileHeader); err != nil {
			return err
		}
	}
	_, err = file.WriteString(entry.Markdown())
	return err
}

// tryInlineTrim drops entries older than PruneAgeDays when the log has
// outgrown maxLogSize. It takes a non-blocking flock and gives up
// silently if another process holds it.
func tryInlineTrim(path string) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return
	}
	defer file.Close()

	if syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB) != nil {
		return
	}
	defer syscall.Flock(int(file.Fd()), syscall.LOCK_UN)

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -PruneAgeDays)
	trimmed := pruneEntriesBefore(string(data), cutoff)
	if len(trimmed) < len(data) {
		os.WriteFile(path, []byte(trimmed), 0o644)
	}
}

// LogTaskDeletion records a hard-deleted task's source so it can be
// restored by hand if the deletion was a mistake.
func LogTaskDeletion(frameDir, taskID, trackID, taskSource string) {
	Log(frameDir, Entry{
		Timestamp:   time.Now().UTC(),
		Category:    CategoryDelete,
		Description: fmt.Sprintf("task %s deleted", taskID),
		Fields: []Field{
			{Key: "Task", Value: taskID},
			{Key: "Track", Value: trackID},
		},
		Body: taskSource,
	})
}

// ReadEntries returns entries from the log, most recent first. A zero
// since reads everything; limit <= 0 means no limit.
func ReadEntries(frameDir string, limit int, since time.Time) []Entry {
	data, err := os.ReadFile(LogPath(frameDir))
	if err != nil {
		return nil
	}

	entries := parseEntries(string(data))

	if !since.IsZero() {
		kept := entries[:0]
		for _, e := range entries {
			if !e.Timestamp.Before(since) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	// Entries parse oldest-first; keep the most recent n.
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// Summarize reports the entry count and oldest timestamp, or false if
// the log is absent or empty.
func Summarize(frameDir string) (Summary, bool) {
	data, err := os.ReadFile(LogPath(frameDir))
	if err != nil {
		return Summary{}, false
	}
	entries := parseEntries(string(data))
	if len(entries) == 0 {
		return Summary{}, false
	}
	return Summary{EntryCount: len(entries), Oldest: entries[0].Timestamp}, true
}

func parseEntries(content string) []Entry {
	var entries []Entry
	lines := strings.Split(content, "\n")

	for i := 0; i < len(lines); i++ {
		header, ok := strings.CutPrefix(lines[i], "## ")
		if !ok {
			continue
		}
		ts, cat, desc, ok := parseEntryHeader(header)
		if !ok {
			continue
		}

		var fields []Field
		var body strings.Builder
		inCode := false

		for i++; i < len(lines); i++ {
			line := lines[i]
			if !inCode && line == "---" {
				break
			}
			if !inCode && strings.HasPrefix(line, "## ") {
				// Next entry with no closing rule; back up so the
				// outer loop sees it.
				i--
				break
			}
			if inCode {
				if line == "```" {
					inCode = false
					continue
				}
				if body.Len() > 0 {
					body.WriteByte('\n')
				}
				body.WriteString(line)
				continue
			}
			if strings.HasPrefix(line, "```") {
				inCode = true
				continue
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if key, value, found := strings.Cut(trimmed, ": "); found {
				fields = append(fields, Field{Key: key, Value: value})
			}
		}

		entries = append(entries, Entry{
			Timestamp:   ts,
			Category:    cat,
			Description: desc,
			Fields:      fields,
			Body:        body.String(),
		})
	}
	return entries
}

// parseEntryHeader splits "<timestamp> — <category>: <description>".
func parseEntryHeader(header string) (time.Time, Category, string, bool) {
	tsStr, rest, found := strings.Cut(header, " — ")
	if !found {
		return time.Time{}, "", "", false
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return time.Time{}, "", "", false
	}
	catStr, desc, found := strings.Cut(rest, ": ")
	if !found {
		return time.Time{}, "", "", false
	}
	cat, ok := parseCategory(catStr)
	if !ok {
		return time.Time{}, "", "", false
	}
	return ts.UTC(), cat, desc, true
}

// Prune removes entries from the log and returns how many were
// dropped. With all set everything goes; otherwise entries older than
// before (or PruneAgeDays ago when before is zero) are removed.
func Prune(frameDir string, before time.Time, all bool) (int, error) {
	path := LogPath(frameDir)
	if _, err := os.Stat(path); err != nil {
		return 0, nil
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	locked := false
	for i := 0; i < 10; i++ {
		if syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB) == nil {
			locked = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !locked {
		return 0, fmt.Errorf("recovery log is in use, try again later")
	}
	defer syscall.Flock(int(file.Fd()), syscall.LOCK_UN)

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content := string(data)

	if all {
		count := len(parseEntries(content))
		if err := os.WriteFile(path, []byte(fileHeader), 0o644); err != nil {
			return 0, err
		}
		return count, nil
	}

	cutoff := before
	if cutoff.IsZero() {
		cutoff = time.Now().UTC().AddDate(0, 0, -PruneAgeDays)
	}

	originalCount := len(parseEntries(content))
	trimmed := pruneEntriesBefore(content, cutoff)
	newCount := len(parseEntries(trimmed))

	if err := os.WriteFile(path, []byte(trimmed), 0o644); err != nil {
		return 0, err
	}
	return originalCount - newCount, nil
}

// pruneEntriesBefore drops entries timestamped before cutoff from the
// raw log text, preserving the file header.
func pruneEntriesBefore(content string, cutoff time.Time) string {
	var result strings.Builder
	var current strings.Builder
	var currentTS time.Time
	haveTS := false
	inHeader := true

	flush := func() {
		if haveTS && !currentTS.Before(cutoff) {
			result.WriteString(current.String())
		}
		current.Reset()
	}

	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		if inHeader {
			result.WriteString(line)
			result.WriteByte('\n')
			if line == "---" {
				inHeader = false
			}
			continue
		}
		if stripped, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			ts, _, _, ok := parseEntryHeader(stripped)
			currentTS, haveTS = ts, ok
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	return result.String()
}

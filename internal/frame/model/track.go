package model

import "strings"

// SectionKind is one of the three recognized track sections.
type SectionKind int

const (
	SectionBacklog SectionKind = iota
	SectionParked
	SectionDone
)

// Header returns the canonical section header text.
func (k SectionKind) Header() string {
	switch k {
	case SectionParked:
		return "## Parked"
	case SectionDone:
		return "## Done"
	default:
		return "## Backlog"
	}
}

func (k SectionKind) String() string {
	switch k {
	case SectionParked:
		return "parked"
	case SectionDone:
		return "done"
	default:
		return "backlog"
	}
}

// SectionKindFromHeader matches a `## ` header case-insensitively.
func SectionKindFromHeader(name string) (SectionKind, bool) {
	switch strings.ToLower(name) {
	case "backlog":
		return SectionBacklog, true
	case "parked":
		return SectionParked, true
	case "done":
		return SectionDone, true
	}
	return SectionBacklog, false
}

// TrackNode is either a Literal run of lines or a Section.
type TrackNode interface {
	trackNode()
}

// Literal is a run of lines the parser does not interpret. It is emitted
// back verbatim.
type Literal struct {
	Lines []string
}

func (*Literal) trackNode() {}

// Section is one of the recognized `##` sections. HeaderLines holds the
// header line and any blank lines that followed it; TrailingLines holds
// blank lines after the last task.
type Section struct {
	Kind          SectionKind
	HeaderLines   []string
	Tasks         []*Task
	TrailingLines []string
}

func (*Section) trackNode() {}

// Track is one parsed track file.
type Track struct {
	Title       string
	Description string
	Nodes       []TrackNode
}

// Section returns the section of the given kind, or nil.
func (t *Track) Section(kind SectionKind) *Section {
	for _, n := range t.Nodes {
		if s, ok := n.(*Section); ok && s.Kind == kind {
			return s
		}
	}
	return nil
}

// SectionTasks returns the tasks of the given section, or nil.
func (t *Track) SectionTasks(kind SectionKind) []*Task {
	if s := t.Section(kind); s != nil {
		return s.Tasks
	}
	return nil
}

// BacklogTasks returns the Backlog section's tasks.
func (t *Track) BacklogTasks() []*Task { return t.SectionTasks(SectionBacklog) }

// ParkedTasks returns the Parked section's tasks.
func (t *Track) ParkedTasks() []*Task { return t.SectionTasks(SectionParked) }

// DoneTasks returns the Done section's tasks.
func (t *Track) DoneTasks() []*Task { return t.SectionTasks(SectionDone) }

// EnsureSection returns the section of the given kind, creating it if
// missing. A created section is inserted so that Backlog precedes Parked
// precedes Done among the sections that exist.
func (t *Track) EnsureSection(kind SectionKind) *Section {
	if s := t.Section(kind); s != nil {
		return s
	}
	sec := &Section{
		Kind:        kind,
		HeaderLines: []string{kind.Header(), ""},
	}

	// Insert before the first section with a greater kind.
	insertAt := len(t.Nodes)
	for i, n := range t.Nodes {
		if s, ok := n.(*Section); ok && s.Kind > kind {
			insertAt = i
			break
		}
	}
	t.Nodes = append(t.Nodes, nil)
	copy(t.Nodes[insertAt+1:], t.Nodes[insertAt:])
	t.Nodes[insertAt] = sec
	return sec
}

// WalkTasks visits every task in every section, depth-first.
func (t *Track) WalkTasks(visit func(*Task)) {
	for _, n := range t.Nodes {
		if s, ok := n.(*Section); ok {
			walkTasks(s.Tasks, visit)
		}
	}
}

func walkTasks(tasks []*Task, visit func(*Task)) {
	for _, task := range tasks {
		visit(task)
		walkTasks(task.Subtasks, visit)
	}
}

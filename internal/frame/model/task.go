package model

// TaskState is the lifecycle state of a task, encoded in its checkbox.
type TaskState int

const (
	Todo TaskState = iota
	Active
	Blocked
	Done
	Parked
)

// CheckboxChar returns the character written between the brackets.
func (s TaskState) CheckboxChar() byte {
	switch s {
	case Active:
		return '>'
	case Blocked:
		return '-'
	case Done:
		return 'x'
	case Parked:
		return '~'
	default:
		return ' '
	}
}

// StateFromCheckbox maps a checkbox character back to a state.
func StateFromCheckbox(c byte) (TaskState, bool) {
	switch c {
	case ' ':
		return Todo, true
	case '>':
		return Active, true
	case '-':
		return Blocked, true
	case 'x':
		return Done, true
	case '~':
		return Parked, true
	}
	return Todo, false
}

func (s TaskState) String() string {
	switch s {
	case Active:
		return "active"
	case Blocked:
		return "blocked"
	case Done:
		return "done"
	case Parked:
		return "parked"
	default:
		return "todo"
	}
}

// ParseState parses a state name as typed on the command line.
func ParseState(name string) (TaskState, bool) {
	switch name {
	case "todo":
		return Todo, true
	case "active":
		return Active, true
	case "blocked":
		return Blocked, true
	case "done":
		return Done, true
	case "parked":
		return Parked, true
	}
	return Todo, false
}

// MetaKind identifies a metadata entry.
type MetaKind int

const (
	MetaDep MetaKind = iota
	MetaRef
	MetaSpec
	MetaNote
	MetaAdded
	MetaResolved
)

// Meta is one metadata bullet under a task. Dep and Ref entries carry a
// list; the other kinds carry a single text value.
type Meta struct {
	Kind MetaKind
	List []string
	Text string
}

// Key returns the metadata key as written in the file.
func (m Meta) Key() string {
	switch m.Kind {
	case MetaDep:
		return "dep"
	case MetaRef:
		return "ref"
	case MetaSpec:
		return "spec"
	case MetaNote:
		return "note"
	case MetaAdded:
		return "added"
	default:
		return "resolved"
	}
}

// Task is a single backlog entry. Source holds the verbatim lines this
// task was parsed from (the task line plus its metadata, not subtasks);
// while Dirty is false those lines are emitted unchanged on serialize.
type Task struct {
	State    TaskState
	ID       string
	Title    string
	Tags     []string
	Meta     []Meta
	Subtasks []*Task
	Depth    int

	Source []string
	Dirty  bool
}

// NewTask builds a task that has never been serialized.
func NewTask(state TaskState, title string) *Task {
	return &Task{State: state, Title: title, Dirty: true}
}

// MarkDirty discards the captured source so the task is regenerated.
func (t *Task) MarkDirty() {
	t.Dirty = true
	t.Source = nil
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

func (t *Task) findMeta(kind MetaKind) *Meta {
	for i := range t.Meta {
		if t.Meta[i].Kind == kind {
			return &t.Meta[i]
		}
	}
	return nil
}

// Deps returns the task's dependency IDs.
func (t *Task) Deps() []string {
	var out []string
	for _, m := range t.Meta {
		if m.Kind == MetaDep {
			out = append(out, m.List...)
		}
	}
	return out
}

// Refs returns the task's file references.
func (t *Task) Refs() []string {
	var out []string
	for _, m := range t.Meta {
		if m.Kind == MetaRef {
			out = append(out, m.List...)
		}
	}
	return out
}

// Note returns the task's note text, or "".
func (t *Task) Note() string {
	if m := t.findMeta(MetaNote); m != nil {
		return m.Text
	}
	return ""
}

// Spec returns the task's spec reference, or "".
func (t *Task) Spec() string {
	if m := t.findMeta(MetaSpec); m != nil {
		return m.Text
	}
	return ""
}

// Added returns the added date, or "".
func (t *Task) Added() string {
	if m := t.findMeta(MetaAdded); m != nil {
		return m.Text
	}
	return ""
}

// Resolved returns the resolved date, or "".
func (t *Task) Resolved() string {
	if m := t.findMeta(MetaResolved); m != nil {
		return m.Text
	}
	return ""
}

// SetResolved sets or replaces the resolved date.
func (t *Task) SetResolved(date string) {
	if m := t.findMeta(MetaResolved); m != nil {
		m.Text = date
		return
	}
	t.Meta = append(t.Meta, Meta{Kind: MetaResolved, Text: date})
}

// RemoveResolved drops the resolved date if present.
func (t *Task) RemoveResolved() {
	out := t.Meta[:0]
	for _, m := range t.Meta {
		if m.Kind != MetaResolved {
			out = append(out, m)
		}
	}
	t.Meta = out
}

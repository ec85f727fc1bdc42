package parse

import (
	"fmt"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// SerializeTasks renders tasks to markdown lines at the given indent.
func SerializeTasks(tasks []*model.Task, indent int) []string {
	var lines []string
	for _, task := range tasks {
		serializeTask(task, indent, &lines)
	}
	return lines
}

// serializeTask emits one task. A clean task's own content (task line
// plus metadata) is the captured source verbatim; a dirty task is
// rendered canonically. Subtasks always recurse independently so a
// rewrite stays local to the node that changed.
func serializeTask(task *model.Task, indent int, lines *[]string) {
	if !task.Dirty && task.Source != nil {
		*lines = append(*lines, task.Source...)
		for _, sub := range task.Subtasks {
			serializeTask(sub, indent+2, lines)
		}
		return
	}

	indentStr := strings.Repeat(" ", indent)

	var b strings.Builder
	fmt.Fprintf(&b, "%s- [%c]", indentStr, task.State.CheckboxChar())
	if task.ID != "" {
		fmt.Fprintf(&b, " `%s`", task.ID)
	}
	b.WriteByte(' ')
	b.WriteString(task.Title)
	for _, tag := range task.Tags {
		fmt.Fprintf(&b, " #%s", tag)
	}
	*lines = append(*lines, b.String())

	metaIndent := strings.Repeat(" ", indent+2)
	for _, meta := range task.Meta {
		switch meta.Kind {
		case model.MetaAdded, model.MetaResolved, model.MetaSpec:
			*lines = append(*lines, fmt.Sprintf("%s- %s: %s", metaIndent, meta.Key(), meta.Text))
		case model.MetaDep, model.MetaRef:
			*lines = append(*lines, fmt.Sprintf("%s- %s: %s", metaIndent, meta.Key(), strings.Join(meta.List, ", ")))
		case model.MetaNote:
			if strings.Contains(meta.Text, "\n") {
				*lines = append(*lines, metaIndent+"- note:")
				blockIndent := strings.Repeat(" ", indent+4)
				for _, noteLine := range strings.Split(meta.Text, "\n") {
					if noteLine == "" {
						*lines = append(*lines, "")
					} else {
						*lines = append(*lines, blockIndent+noteLine)
					}
				}
			} else {
				*lines = append(*lines, metaIndent+"- note: "+meta.Text)
			}
		}
	}

	for _, sub := range task.Subtasks {
		serializeTask(sub, indent+2, lines)
	}
}

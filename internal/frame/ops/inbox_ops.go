package ops

import (
	"fmt"
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// AddInboxItem appends a new item to the inbox.
func AddInboxItem(inbox *model.Inbox, title string, tags []string, body []string) {
	item := model.NewInboxItem(title, tags, body)
	inbox.Items = append(inbox.Items, item)
}

// Triage removes the inbox item at index (0-based) and turns it into a
// backlog task in the given track. The item's body becomes the task's
// note. The destination is validated before the inbox is touched, so a
// failed triage never loses the item. Returns the new task ID.
func Triage(inbox *model.Inbox, index int, track *model.Track, position InsertPosition, prefix string) (string, error) {
	if index < 0 || index >= len(inbox.Items) {
		return "", fmt.Errorf("%w: inbox index %d out of range", ErrInvalidPosition, index)
	}

	sec := track.Section(model.SectionBacklog)
	if sec == nil {
		return "", fmt.Errorf("%w: no backlog section", ErrInvalidPosition)
	}
	if position.Kind == InsertAfter {
		found := false
		for _, t := range sec.Tasks {
			if t.ID == position.AfterID {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: after target %s", ErrNotFound, position.AfterID)
		}
	}

	item := inbox.Items[index]
	inbox.Items = append(inbox.Items[:index], inbox.Items[index+1:]...)

	id := fmt.Sprintf("%s-%03d", prefix, NextIDNumber(track, prefix))
	task := model.NewTask(model.Todo, item.Title)
	task.ID = id
	task.Tags = item.Tags
	task.Meta = append(task.Meta, model.Meta{Kind: model.MetaAdded, Text: today()})
	if body := strings.Join(item.Body, "\n"); body != "" {
		task.Meta = append(task.Meta, model.Meta{Kind: model.MetaNote, Text: body})
	}

	if err := insertAt(&sec.Tasks, task, position); err != nil {
		return "", err
	}
	return id, nil
}

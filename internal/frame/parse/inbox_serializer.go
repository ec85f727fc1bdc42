package parse

import (
	"strings"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
)

// SerializeInbox renders the inbox back to markdown. Clean items emit
// their verbatim source; dirty items render canonically with a blank
// line between items.
func SerializeInbox(inbox *model.Inbox) string {
	var lines []string
	lines = append(lines, inbox.HeaderLines...)

	for i, item := range inbox.Items {
		if !item.Dirty && item.Source != nil {
			lines = append(lines, item.Source...)
			continue
		}

		titleLine := "- " + item.Title
		for _, tag := range item.Tags {
			titleLine += " #" + tag
		}
		lines = append(lines, titleLine)

		for _, bodyLine := range item.Body {
			if bodyLine == "" {
				lines = append(lines, "")
			} else {
				lines = append(lines, "  "+bodyLine)
			}
		}

		if i < len(inbox.Items)-1 {
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}

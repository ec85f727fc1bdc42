package model

// InboxItem is one captured idea. Body lines have their two-space item
// indent stripped. Source spans the item's verbatim lines including the
// blank lines that followed it.
type InboxItem struct {
	Title string
	Tags  []string
	Body  []string

	Source []string
	Dirty  bool
}

// NewInboxItem builds an item that has never been serialized.
func NewInboxItem(title string, tags []string, body []string) *InboxItem {
	return &InboxItem{Title: title, Tags: tags, Body: body, Dirty: true}
}

// MarkDirty discards the captured source so the item is regenerated.
func (it *InboxItem) MarkDirty() {
	it.Dirty = true
	it.Source = nil
}

// Inbox is the parsed inbox.md: any header lines before the first item,
// then the items in file order.
type Inbox struct {
	HeaderLines []string
	Items       []*InboxItem
}

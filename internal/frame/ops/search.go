package ops

import (
	"regexp"

	"github.com/joshsegall/frame-sub002/internal/frame/model"
	"github.com/joshsegall/frame-sub002/internal/frame/project"
)

// MatchField names the task or inbox field a search hit landed in.
type MatchField string

const (
	MatchID    MatchField = "id"
	MatchTitle MatchField = "title"
	MatchTag   MatchField = "tag"
	MatchNote  MatchField = "note"
	MatchDep   MatchField = "dep"
	MatchRef   MatchField = "ref"
	MatchSpec  MatchField = "spec"
	MatchBody  MatchField = "body"
)

// Span is a byte range of a match within the field's text.
type Span struct {
	Start int
	End   int
}

// SearchHit is one matching field of one task.
type SearchHit struct {
	TrackID string
	TaskID  string
	Field   MatchField
	Spans   []Span
}

// InboxSearchHit is one matching field of one inbox item.
type InboxSearchHit struct {
	ItemIndex int
	Field     MatchField
	Spans     []Span
}

func findMatches(re *regexp.Regexp, text string) []Span {
	var spans []Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}

// SearchTasks searches task fields across the project. With a track
// filter only that track is searched, whatever its state; otherwise
// only active tracks are.
func SearchTasks(p *project.Project, re *regexp.Regexp, trackFilter string) []SearchHit {
	var hits []SearchHit
	for _, lt := range p.Tracks {
		if trackFilter != "" {
			if lt.ID != trackFilter {
				continue
			}
		} else {
			tc := p.Config.TrackByID(lt.ID)
			if tc == nil || tc.State != "active" {
				continue
			}
		}
		SearchTrack(re, lt.Track, lt.ID, &hits)
	}
	return hits
}

// SearchTrack appends hits for every task in one track.
func SearchTrack(re *regexp.Regexp, track *model.Track, trackID string, hits *[]SearchHit) {
	for _, n := range track.Nodes {
		if sec, ok := n.(*model.Section); ok {
			for _, task := range sec.Tasks {
				searchTask(re, task, trackID, hits)
			}
		}
	}
}

func searchTask(re *regexp.Regexp, task *model.Task, trackID string, hits *[]SearchHit) {
	add := func(field MatchField, text string) {
		if spans := findMatches(re, text); len(spans) > 0 {
			*hits = append(*hits, SearchHit{
				TrackID: trackID,
				TaskID:  task.ID,
				Field:   field,
				Spans:   spans,
			})
		}
	}

	add(MatchID, task.ID)
	add(MatchTitle, task.Title)
	for _, tag := range task.Tags {
		add(MatchTag, tag)
	}
	for _, m := range task.Meta {
		switch m.Kind {
		case model.MetaNote:
			add(MatchNote, m.Text)
		case model.MetaDep:
			for _, d := range m.List {
				add(MatchDep, d)
			}
		case model.MetaRef:
			for _, r := range m.List {
				add(MatchRef, r)
			}
		case model.MetaSpec:
			add(MatchSpec, m.Text)
		}
	}

	for _, sub := range task.Subtasks {
		searchTask(re, sub, trackID, hits)
	}
}

// SearchInbox searches inbox items by title, tags, and body text.
func SearchInbox(inbox *model.Inbox, re *regexp.Regexp) []InboxSearchHit {
	var hits []InboxSearchHit
	for i, item := range inbox.Items {
		add := func(field MatchField, text string) {
			if spans := findMatches(re, text); len(spans) > 0 {
				hits = append(hits, InboxSearchHit{ItemIndex: i, Field: field, Spans: spans})
			}
		}
		add(MatchTitle, item.Title)
		for _, tag := range item.Tags {
			add(MatchTag, tag)
		}
		for _, line := range item.Body {
			add(MatchBody, line)
		}
	}
	return hits
}

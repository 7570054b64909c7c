// Package selection picks the issues worth notifying about and shapes them
// into a notification payload. Everything here is free of side effects.
package selection

import (
	"net/url"
	"sort"
	"strings"

	"github.com/petr-muller/planesync/internal/planesync/plane"
)

const (
	// DefaultTitle is the title of the notification card
	DefaultTitle = "Top Priority Plane Issues"

	// MaxEntries caps the number of issues in a payload
	MaxEntries = 10
)

// Entry is one row of the notification
type Entry struct {
	IssueID  string `json:"issue_id" yaml:"issue_id"`
	Priority string `json:"priority" yaml:"priority"`
	Title    string `json:"title" yaml:"title"`
	State    string `json:"state" yaml:"state"`
	URL      string `json:"url" yaml:"url"`
}

// Payload is the content of a notification
type Payload struct {
	Title   string  `json:"title" yaml:"title"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// IssueIDs returns the ids of the issues in the payload, in order
func (p Payload) IssueIDs() []string {
	ids := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		ids = append(ids, e.IssueID)
	}
	return ids
}

// LinkFunc builds the URL of an issue
type LinkFunc func(issue plane.Issue) string

// IssueLinker returns a LinkFunc pointing at the Plane web application
func IssueLinker(appURL, workspace, projectID string) LinkFunc {
	return func(issue plane.Issue) string {
		return IssueURL(appURL, workspace, projectID, issue.ID)
	}
}

// IssueURL builds <appURL>/<workspace>/projects/<projectID>/issues/<issueID>
func IssueURL(appURL, workspace, projectID, issueID string) string {
	return strings.Join([]string{
		strings.TrimRight(appURL, "/"),
		url.PathEscape(workspace),
		"projects",
		url.PathEscape(projectID),
		"issues",
		url.PathEscape(issueID),
	}, "/")
}

// Select builds the payload with the default title
func Select(issues []plane.Issue, states []plane.State, link LinkFunc) Payload {
	return SelectWithTitle(DefaultTitle, issues, states, link)
}

// SelectWithTitle keeps the issues in open states (backlog, unstarted, started),
// orders them by priority and then by state sequence, and keeps the first
// MaxEntries. Issues referencing an unknown state are dropped. Ties keep the
// input order.
func SelectWithTitle(title string, issues []plane.Issue, states []plane.State, link LinkFunc) Payload {
	byID := make(map[string]plane.State, len(states))
	for _, s := range states {
		if _, seen := byID[s.ID]; !seen {
			byID[s.ID] = s
		}
	}

	open := make([]plane.Issue, 0, len(issues))
	for _, issue := range issues {
		state, ok := byID[issue.State]
		if !ok || !state.Group.Open() {
			continue
		}
		open = append(open, issue)
	}

	sort.SliceStable(open, func(i, j int) bool {
		ri, rj := open[i].Priority.Rank(), open[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return byID[open[i].State].Sequence < byID[open[j].State].Sequence
	})

	if len(open) > MaxEntries {
		open = open[:MaxEntries]
	}

	payload := Payload{Title: title, Entries: make([]Entry, 0, len(open))}
	for _, issue := range open {
		payload.Entries = append(payload.Entries, Entry{
			IssueID:  issue.ID,
			Priority: strings.ToUpper(string(issue.Priority)),
			Title:    issue.Name,
			State:    byID[issue.State].Name,
			URL:      link(issue),
		})
	}
	return payload
}

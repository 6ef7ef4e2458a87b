package site

import (
	"fmt"
	"strings"
)

// Route is an opaque key identifying a content location.
type Route string

// GlobalRoute is the sentinel route for website-wide (global tier) content.
const GlobalRoute Route = "global"

// RouteKind classifies a route by its position in the containment hierarchy.
type RouteKind string

const (
	// RouteKindIssue is an individual issue route: journal/<code>/issue/<id>
	RouteKindIssue RouteKind = "issue"

	// RouteKindJournal is a journal route: journal/<code>
	RouteKindJournal RouteKind = "journal"

	// RouteKindGlobal is the GlobalRoute sentinel
	RouteKindGlobal RouteKind = "global"
)

const (
	journalSegment = "journal"
	issueSegment   = "issue"
)

// JournalRoute builds the route of a journal.
func JournalRoute(code string) Route {
	return Route(journalSegment + "/" + strings.ToLower(code))
}

// IssueRoute builds the route of an individual issue of a journal.
func IssueRoute(code, issueID string) Route {
	return Route(fmt.Sprintf("%s/%s/%s/%s", journalSegment, strings.ToLower(code), issueSegment, strings.ToLower(issueID)))
}

// ParseRoute normalizes and validates a route key.
// Input is trimmed, lowercased and stripped of a trailing slash.
func ParseRoute(s string) (Route, error) {
	norm := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "/")
	r := Route(norm)
	if r.Kind() == "" {
		return "", fmt.Errorf("invalid route %q: expected %q, %q or %q",
			s, "journal/<code>", "journal/<code>/issue/<id>", GlobalRoute)
	}
	return r, nil
}

// Kind classifies the route. Malformed routes return "".
func (r Route) Kind() RouteKind {
	if r == GlobalRoute {
		return RouteKindGlobal
	}
	parts := strings.Split(string(r), "/")
	switch {
	case len(parts) == 2 && parts[0] == journalSegment && validSegment(parts[1]):
		return RouteKindJournal
	case len(parts) == 4 && parts[0] == journalSegment && validSegment(parts[1]) &&
		parts[2] == issueSegment && validSegment(parts[3]):
		return RouteKindIssue
	default:
		return ""
	}
}

// Valid reports whether the route is well-formed.
func (r Route) Valid() bool {
	return r.Kind() != ""
}

// Journal returns the journal route containing r. A journal route returns itself;
// the global route has no journal and returns "".
func (r Route) Journal() Route {
	switch r.Kind() {
	case RouteKindJournal:
		return r
	case RouteKindIssue:
		return JournalRoute(r.JournalCode())
	default:
		return ""
	}
}

// JournalCode returns the journal code of an issue or journal route.
func (r Route) JournalCode() string {
	switch r.Kind() {
	case RouteKindJournal, RouteKindIssue:
		return strings.Split(string(r), "/")[1]
	default:
		return ""
	}
}

// IssueID returns the issue id of an issue route.
func (r Route) IssueID() string {
	if r.Kind() != RouteKindIssue {
		return ""
	}
	return strings.Split(string(r), "/")[3]
}

// Contains reports whether other lies inside r's scope (r itself included).
func (r Route) Contains(other Route) bool {
	switch r.Kind() {
	case RouteKindGlobal:
		return other.Valid()
	case RouteKindJournal:
		return other.Journal() == r
	case RouteKindIssue:
		return other == r
	default:
		return false
	}
}

func (r Route) String() string {
	return string(r)
}

func validSegment(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case (c == '-' || c == '_' || c == '.') && i > 0:
		default:
			return false
		}
	}
	return true
}

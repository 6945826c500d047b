package selectors

import (
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoCardSelector is returned when no candidate matches the card container.
// Without a card container no product can be reliably identified, so this is
// fatal for the scrape session.
var ErrNoCardSelector = errors.New("no card container selector matched the page")

// Queryable is the minimal DOM surface discovery needs: how many elements a
// selector matches in the current scope. Implemented by the playwright page
// adapter in the scraper package and by GoqueryScope below.
type Queryable interface {
	CountMatches(selector string) (int, error)
}

// Resolved is the per-session discovery result: the candidate that actually
// matched, per field. Discarded at session end, never shared across sessions.
type Resolved map[string]string

// FindWorkingSelector tries the primary selector for a field, then each
// fallback in order, and returns the first candidate with at least one match.
// Returns "" when nothing matches; the caller decides whether that field is
// optional or fatal.
func FindWorkingSelector(q Queryable, field string, set SelectorSet) string {
	for _, candidate := range set.Candidates(field) {
		count, err := q.CountMatches(candidate)
		if err != nil {
			continue
		}
		if count > 0 {
			return candidate
		}
	}
	return ""
}

// Discover resolves every field of a selector set against the current DOM
// snapshot. A missing card container is fatal; missing field selectors are
// left out of the result and treated as optional by extraction.
func Discover(q Queryable, set SelectorSet) (Resolved, error) {
	resolved := Resolved{}

	card := FindWorkingSelector(q, FieldCard, set)
	if card == "" {
		return nil, ErrNoCardSelector
	}
	resolved[FieldCard] = card

	for _, field := range []string{
		FieldName, FieldPrice, FieldCommission, FieldImage,
		FieldLink, FieldCategory, FieldTemperature,
	} {
		if sel := FindWorkingSelector(q, field, set); sel != "" {
			resolved[field] = sel
		}
	}

	return resolved, nil
}

// GoqueryScope adapts a goquery selection to Queryable. Used by the fetch
// strategy and by tests running against synthetic HTML.
type GoqueryScope struct {
	Selection *goquery.Selection
}

// NewGoqueryScope wraps a parsed document's root selection.
func NewGoqueryScope(doc *goquery.Document) GoqueryScope {
	return GoqueryScope{Selection: doc.Selection}
}

func (g GoqueryScope) CountMatches(selector string) (int, error) {
	return g.Selection.Find(selector).Length(), nil
}

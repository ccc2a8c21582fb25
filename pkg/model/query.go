package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// CultureAll is the culture choice meaning "no filter"
const CultureAll = "All"

// DefaultTone is the initial tone (casual side) used when none is given
const DefaultTone = 0.3

// Cultures is the list of culture filters offered to users
var Cultures = []string{
	CultureAll,
	"China",
	"India",
	"Japan",
	"USA",
	"France",
	"Germany",
	"Brazil",
	"Saudi Arabia",
	"South Africa",
}

// Query is a single user question about a phrase, idiom, joke or gesture
type Query struct {
	RawText       string
	CultureFilter string // empty means no filter
	Tone          float64
}

// NewQuery validates and normalizes user input into a Query.
// CultureAll and blank culture are both stored as no filter.
func NewQuery(rawText, culture string, tone float64) (*Query, error) {
	raw := strings.TrimSpace(rawText)
	if raw == "" {
		return nil, ErrEmptyQuery
	}
	if tone < 0 || tone > 1 {
		return nil, goerr.Wrap(ErrInvalidTone, "invalid tone", goerr.V("tone", tone))
	}

	culture = strings.TrimSpace(culture)
	if culture == CultureAll {
		culture = ""
	}

	return &Query{
		RawText:       raw,
		CultureFilter: culture,
		Tone:          tone,
	}, nil
}

// HasCulture reports whether a culture filter is set
func (q *Query) HasCulture() bool {
	return q.CultureFilter != ""
}

// Effective returns the text used for retrieval and local answering
func (q *Query) Effective() string {
	if !q.HasCulture() {
		return q.RawText
	}
	return q.RawText + " in " + q.CultureFilter
}

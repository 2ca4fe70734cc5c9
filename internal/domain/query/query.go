package query

import "strings"

// Query holds the optional criteria of a recommendation request plus the result cap.
// Criteria are trimmed; a whitespace-only criterion counts as not provided.
type Query struct {
	title     string
	category  string
	secondary string
	topN      int
}

// New creates a Query. topN is not range-checked here: bounds are a shell concern.
func New(title, category, secondary string, topN int) Query {
	return Query{
		title:     strings.TrimSpace(title),
		category:  strings.TrimSpace(category),
		secondary: strings.TrimSpace(secondary),
		topN:      topN,
	}
}

// Title returns the title criterion.
func (q Query) Title() string { return q.title }

// Category returns the genre/difficulty criterion.
func (q Query) Category() string { return q.category }

// Secondary returns the author/publisher criterion.
func (q Query) Secondary() string { return q.secondary }

// TopN returns the result cap.
func (q Query) TopN() int { return q.topN }

// IsDefault reports whether every text criterion is empty (the browse path).
func (q Query) IsDefault() bool {
	return q.title == "" && q.category == "" && q.secondary == ""
}

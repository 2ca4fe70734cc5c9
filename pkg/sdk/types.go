package shelfrec

import "time"

// Domain names a recommendation domain.
type Domain string

// Supported domains.
const (
	Books   Domain = "books"
	Courses Domain = "courses"
	Movies  Domain = "movies"
)

// Query holds the optional criteria of a recommendation request.
// Zero TopN lets the server apply the domain default.
type Query struct {
	Title     string
	Category  string
	Secondary string
	TopN      int
}

// DomainStatus reports whether a domain can serve recommendations.
type DomainStatus struct {
	Name      string     `json:"name"`
	Available bool       `json:"available"`
	Items     int        `json:"items"`
	Source    string     `json:"source,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Item is one ranked record. Fields holds strings and float64 numbers keyed
// by source column name.
type Item struct {
	Rank   int            `json:"rank"`
	Fields map[string]any `json:"fields"`
	Image  string         `json:"image,omitempty"`
}

// Text returns a field as a string, or "" when absent or numeric.
func (it Item) Text(name string) string {
	s, _ := it.Fields[name].(string)
	return s
}

// Number returns a numeric field, or 0 when absent or textual.
func (it Item) Number(name string) float64 {
	f, _ := it.Fields[name].(float64)
	return f
}

// Recommendations is a ranked result.
type Recommendations struct {
	Domain          string   `json:"domain"`
	Path            string   `json:"path"`
	FuzzyCandidates int      `json:"fuzzy_candidates"`
	Count           int      `json:"count"`
	Columns         []string `json:"columns"`
	Items           []Item   `json:"items"`
	Message         string   `json:"message,omitempty"`
	Query           struct {
		Title     string `json:"title,omitempty"`
		Category  string `json:"category,omitempty"`
		Secondary string `json:"secondary,omitempty"`
		TopN      int    `json:"top_n"`
	} `json:"query"`
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type domainList struct {
	Domains []DomainStatus `json:"domains"`
}

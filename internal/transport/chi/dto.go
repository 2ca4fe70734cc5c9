package chi

import (
	"net/url"
	"time"

	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
	"github.com/kailas-cloud/shelfrec/internal/repository/export"
	catalogsuc "github.com/kailas-cloud/shelfrec/internal/usecase/catalogs"
)

// noMatchesMessage accompanies an empty result.
const noMatchesMessage = "no items match the current filters"

// DomainStatus describes one domain in GET /api/v1/domains.
type DomainStatus struct {
	Name      string     `json:"name"`
	Available bool       `json:"available"`
	Items     int        `json:"items"`
	Source    string     `json:"source,omitempty"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// DomainList is the body of GET /api/v1/domains.
type DomainList struct {
	Domains []DomainStatus `json:"domains"`
}

// QueryEcho repeats the normalized criteria of a request.
type QueryEcho struct {
	Title     string `json:"title,omitempty"`
	Category  string `json:"category,omitempty"`
	Secondary string `json:"secondary,omitempty"`
	TopN      int    `json:"top_n"`
}

// Item is one ranked record. Fields maps column names to strings or numbers.
type Item struct {
	Rank   int            `json:"rank"`
	Fields map[string]any `json:"fields"`
	Image  string         `json:"image,omitempty"`
}

// Recommendations is the body of GET /api/v1/{domain}/recommendations and of
// each stream event.
type Recommendations struct {
	Domain          string    `json:"domain"`
	Query           QueryEcho `json:"query"`
	Path            string    `json:"path"`
	FuzzyCandidates int       `json:"fuzzy_candidates"`
	Count           int       `json:"count"`
	Columns         []string  `json:"columns"`
	Items           []Item    `json:"items"`
	Message         string    `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func statusToDTO(st catalogsuc.Status) DomainStatus {
	out := DomainStatus{
		Name:      string(st.Kind),
		Available: st.Available,
		Items:     st.Items,
		Source:    st.Source,
	}
	if !st.LoadedAt.IsZero() {
		t := st.LoadedAt
		out.LoadedAt = &t
	}
	if st.Err != nil {
		out.Error = safeDomainMessage(st.Err)
		if out.Error == "internal error" {
			out.Error = "dataset not loaded"
		}
	}
	return out
}

func resultToDTO(d descriptor.Descriptor, res result.Result) Recommendations {
	q := res.Query()
	columns := export.Header(d, res)
	numeric := numericFields(d)

	items := make([]Item, 0, res.Len())
	for i, it := range res.Items() {
		items = append(items, itemToDTO(d, it, i+1, columns, numeric))
	}

	out := Recommendations{
		Domain: string(res.Kind()),
		Query: QueryEcho{
			Title:     q.Title(),
			Category:  q.Category(),
			Secondary: q.Secondary(),
			TopN:      q.TopN(),
		},
		Path:            string(res.Path()),
		FuzzyCandidates: res.FuzzyCandidates(),
		Count:           res.Len(),
		Columns:         columns,
		Items:           items,
	}
	if res.IsEmpty() {
		out.Message = noMatchesMessage
	}
	return out
}

func itemToDTO(
	d descriptor.Descriptor, it *catalog.Item, rank int,
	columns []string, numeric map[string]bool,
) Item {
	fields := make(map[string]any, len(columns))
	for _, c := range columns {
		if numeric[c] {
			fields[c] = it.Number(c)
		} else {
			fields[c] = it.Text(c)
		}
	}

	out := Item{Rank: rank, Fields: fields}
	if d.HasImage() {
		out.Image = imageLink(d, it.Text(d.ImageField))
	}
	return out
}

// imageLink points at the image endpoint of the domain, which always answers
// with a PNG even when src is empty.
func imageLink(d descriptor.Descriptor, src string) string {
	v := url.Values{}
	if src != "" {
		v.Set("src", src)
	}
	link := "/api/v1/" + string(d.Kind) + "/image"
	if enc := v.Encode(); enc != "" {
		link += "?" + enc
	}
	return link
}

func numericFields(d descriptor.Descriptor) map[string]bool {
	out := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Type != descriptor.Text {
			out[f.Name] = true
		}
	}
	return out
}

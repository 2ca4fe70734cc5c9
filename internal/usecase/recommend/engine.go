package recommend

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
)

// Engine filters and ranks a catalog. It holds no state between calls, so a
// single Engine serves every domain and request.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine { return &Engine{} }

// Recommend applies q to cat using the field mapping of d.
//
// Empty catalog and no-match outcomes are empty Results, never errors.
// Filters run in a fixed order (title, category, secondary), each narrowing
// the working set.
func (e *Engine) Recommend(cat *catalog.Catalog, d descriptor.Descriptor, q query.Query) result.Result {
	if cat.Len() == 0 {
		return result.New(d.Kind, q, nil, nil, result.PathEmpty, 0)
	}
	if !d.HasSecondary() && q.Secondary() != "" {
		q = query.New(q.Title(), q.Category(), "", q.TopN())
	}

	working := cat.All()

	if q.IsDefault() {
		return result.New(d.Kind, q, topN(working, d, q.TopN()), cat.Columns(), result.PathBrowse, 0)
	}

	fuzzy := 0
	if q.Title() != "" {
		working, fuzzy = filterTitle(working, d, q)
	}
	if q.Category() != "" {
		working = filterContains(working, d.CategoryFields, q.Category())
	}
	if q.Secondary() != "" {
		working = filterContains(working, d.SecondaryFields, q.Secondary())
	}

	if len(working) == 0 {
		return result.New(d.Kind, q, nil, cat.Columns(), result.PathFiltered, fuzzy)
	}
	return result.New(d.Kind, q, topN(working, d, q.TopN()), cat.Columns(), result.PathFiltered, fuzzy)
}

// filterTitle selects substring matches on any title field. When they number
// fewer than topN, fuzzy candidates from the whole pre-filter set are unioned
// in after them. Returns the narrowed set and the number of fuzzy-only additions.
func filterTitle(items []*catalog.Item, d descriptor.Descriptor, q query.Query) ([]*catalog.Item, int) {
	substring := filterContains(items, d.TitleFields, q.Title())
	if len(substring) >= q.TopN() {
		return substring, 0
	}

	seen := make(map[*catalog.Item]struct{}, len(substring))
	for _, it := range substring {
		seen[it] = struct{}{}
	}

	merged := substring
	added := 0
	for _, it := range fuzzyMatches(items, d.TitleFields[0], q.Title(), fuzzyCandidateFactor*q.TopN()) {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		merged = append(merged, it)
		added++
	}
	return merged, added
}

// filterContains keeps items where any of fields contains needle, case-insensitively.
func filterContains(items []*catalog.Item, fields []string, needle string) []*catalog.Item {
	needle = strings.ToLower(needle)
	out := make([]*catalog.Item, 0, len(items))
	for _, it := range items {
		for _, f := range fields {
			if strings.Contains(it.Lower(f), needle) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// topN stable-sorts items by rating (then tie-break) descending and keeps at most n.
func topN(items []*catalog.Item, d descriptor.Descriptor, n int) []*catalog.Item {
	if n <= 0 {
		return nil
	}
	ranked := append([]*catalog.Item(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].Number(d.RatingField), ranked[j].Number(d.RatingField)
		if ri != rj {
			return ri > rj
		}
		if d.TieBreakField == "" {
			return false
		}
		return ranked[i].Number(d.TieBreakField) > ranked[j].Number(d.TieBreakField)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

package result

import (
	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
)

// Path tells which branch of the engine produced a result.
type Path string

// Engine paths.
const (
	PathEmpty    Path = "empty_catalog"
	PathBrowse   Path = "browse"
	PathFiltered Path = "filtered"
)

// Result is the ranked, size-bounded outcome of a query against a catalog.
type Result struct {
	kind    kind.Kind
	query   query.Query
	items   []*catalog.Item
	columns []string
	path    Path
	fuzzy   int
}

// New creates a Result. fuzzy is the number of fuzzy-only candidates added by
// the title filter before ranking.
func New(
	k kind.Kind, q query.Query, items []*catalog.Item,
	columns []string, path Path, fuzzy int,
) Result {
	return Result{kind: k, query: q, items: items, columns: columns, path: path, fuzzy: fuzzy}
}

// Kind returns the domain.
func (r Result) Kind() kind.Kind { return r.kind }

// Query returns the query that produced the result.
func (r Result) Query() query.Query { return r.query }

// Items returns the ranked items.
func (r Result) Items() []*catalog.Item { return r.items }

// Columns returns the source column order of the catalog.
func (r Result) Columns() []string { return r.columns }

// Len returns the number of items.
func (r Result) Len() int { return len(r.items) }

// IsEmpty reports the "no matches" state.
func (r Result) IsEmpty() bool { return len(r.items) == 0 }

// Path returns the engine branch.
func (r Result) Path() Path { return r.path }

// FuzzyCandidates returns how many fuzzy-only matches joined the title filter.
func (r Result) FuzzyCandidates() int { return r.fuzzy }

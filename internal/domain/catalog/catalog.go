package catalog

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
)

// Row is one loaded record before normalization into an Item.
type Row struct {
	Text    map[string]string
	Numbers map[string]float64
}

// Item is a single catalog record. Items are only built by New, which keeps
// the lowercase search variants in sync with their source fields.
type Item struct {
	pos     int
	text    map[string]string
	numbers map[string]float64
	lower   map[string]string
}

// Position returns the item's index in its catalog.
func (it *Item) Position() int { return it.pos }

// Text returns a text field, or "" when absent.
func (it *Item) Text(name string) string { return it.text[name] }

// Lower returns the precomputed lowercase variant of a searchable text field.
func (it *Item) Lower(name string) string { return it.lower[name] }

// Number returns a numeric field, or 0 when absent.
func (it *Item) Number(name string) float64 { return it.numbers[name] }

// Has reports whether the item carries the named field.
func (it *Item) Has(name string) bool {
	if _, ok := it.text[name]; ok {
		return true
	}
	_, ok := it.numbers[name]
	return ok
}

// Value renders a field as a string for export.
func (it *Item) Value(name string) string {
	if v, ok := it.numbers[name]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return it.text[name]
}

// Catalog is an ordered, read-only collection of Items for one domain.
type Catalog struct {
	kind    kind.Kind
	columns []string
	items   []Item
}

// New builds a Catalog, deriving lowercase variants for every searchable field.
// columns is the source column order, used for export.
func New(k kind.Kind, columns []string, rows []Row, searchable []string) *Catalog {
	items := make([]Item, len(rows))
	for i, r := range rows {
		lower := make(map[string]string, len(searchable))
		for _, f := range searchable {
			lower[f] = strings.ToLower(r.Text[f])
		}
		items[i] = Item{pos: i, text: r.Text, numbers: r.Numbers, lower: lower}
	}
	return &Catalog{kind: k, columns: append([]string(nil), columns...), items: items}
}

// Kind returns the catalog's domain.
func (c *Catalog) Kind() kind.Kind { return c.kind }

// Columns returns the source column order.
func (c *Catalog) Columns() []string { return c.columns }

// Len returns the number of items. A nil catalog has zero items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// At returns the item at position i.
func (c *Catalog) At(i int) *Item { return &c.items[i] }

// All returns pointers to every item in catalog order.
func (c *Catalog) All() []*Item {
	out := make([]*Item, c.Len())
	for i := range out {
		out[i] = &c.items[i]
	}
	return out
}

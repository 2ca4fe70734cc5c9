// Package descriptor holds the per-domain field mappings that parameterize
// the shared recommendation engine and the dataset loader.
package descriptor

import (
	"fmt"

	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
)

// FieldType controls how the loader coerces a column.
type FieldType int

// Field type constants.
const (
	Text FieldType = iota
	Number
	// Enrollment is parsed with catalog.ParseEnrollment ("5.3k" -> 5300).
	Enrollment
)

// Field describes one column of a domain dataset.
type Field struct {
	Name string
	Type FieldType
	// Default fills missing text values. Numbers always fill with 0.
	Default string
	// FallbackFrom fills a missing value from another column of the same row.
	FallbackFrom string
	// Required columns must be present in the source header.
	Required bool
	// Optional columns are left out entirely when the header lacks them.
	Optional bool
}

// Size is an image target size in pixels.
type Size struct {
	Width  int
	Height int
}

// Descriptor maps a domain onto the generic engine.
type Descriptor struct {
	Kind kind.Kind
	// TitleFields are matched by substring; the first is the raw title used for fuzzy scoring.
	TitleFields []string
	// CategoryFields are matched by the category criterion (genre or difficulty).
	CategoryFields []string
	// SecondaryFields are matched by the secondary criterion; empty disables it.
	SecondaryFields []string
	RatingField     string
	// TieBreakField, when set, orders items with equal rating (descending).
	TieBreakField string
	// ImageField is empty for domains without artwork.
	ImageField   string
	ImageCaption string
	ImageSize    Size
	// RatingScale is the maximum of RatingField.
	RatingScale float64
	Fields      []Field
	// DisplayColumns lead the export header, remaining source columns follow.
	DisplayColumns []string
	DefaultTopN    int
}

// Searchable returns every text field the engine case-folds.
func (d Descriptor) Searchable() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{d.TitleFields, d.CategoryFields, d.SecondaryFields} {
		for _, f := range group {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// RequiredColumns returns the columns a dataset header must contain.
func (d Descriptor) RequiredColumns() []string {
	var out []string
	for _, f := range d.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// HasSecondary reports whether the domain supports the secondary criterion.
func (d Descriptor) HasSecondary() bool { return len(d.SecondaryFields) > 0 }

// HasImage reports whether items carry artwork.
func (d Descriptor) HasImage() bool { return d.ImageField != "" }

// For returns the descriptor of a domain.
func For(k kind.Kind) (Descriptor, error) {
	switch k {
	case kind.Books:
		return Books(), nil
	case kind.Courses:
		return Courses(), nil
	case kind.Movies:
		return Movies(), nil
	default:
		return Descriptor{}, fmt.Errorf("no descriptor for domain %q", k)
	}
}

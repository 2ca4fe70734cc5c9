package catalogs

import (
	"context"
	"io"

	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
)

// Loader reads a domain dataset from a file or a stream.
type Loader interface {
	Load(ctx context.Context, k kind.Kind, path string) (*catalog.Catalog, error)
	Parse(ctx context.Context, k kind.Kind, r io.Reader) (*catalog.Catalog, error)
}

package health

import (
	"context"

	"github.com/kailas-cloud/shelfrec/internal/usecase/catalogs"
)

// CachePinger checks image cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// CatalogReporter reports per-domain dataset availability.
type CatalogReporter interface {
	Status() []catalogs.Status
}

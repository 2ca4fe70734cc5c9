package recommend

import (
	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
)

// CatalogSource resolves the loaded catalog of a domain.
type CatalogSource interface {
	Catalog(k kind.Kind) (*catalog.Catalog, error)
}

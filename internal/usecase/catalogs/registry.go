// Package catalogs keeps the loaded catalog of every domain and tracks which
// domains are usable. A domain that fails to load never affects the others.
package catalogs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/logger"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
)

// SourceUpload marks a catalog replaced through Replace.
const SourceUpload = "upload"

var errNotConfigured = errors.New("no dataset configured")

// Status describes the availability of one domain.
type Status struct {
	Kind      kind.Kind
	Available bool
	Items     int
	Source    string
	LoadedAt  time.Time
	Err       error
}

type entry struct {
	cat      *catalog.Catalog
	source   string
	loadedAt time.Time
	err      error
}

// Registry holds one catalog slot per domain.
type Registry struct {
	loader Loader
	paths  map[kind.Kind]string
	now    func() time.Time

	mu      sync.RWMutex
	entries map[kind.Kind]entry
}

// NewRegistry creates a registry. paths maps each domain to its dataset file;
// domains without a path stay unavailable until a dataset is uploaded.
func NewRegistry(loader Loader, paths map[kind.Kind]string) *Registry {
	r := &Registry{
		loader:  loader,
		paths:   paths,
		now:     time.Now,
		entries: make(map[kind.Kind]entry, len(kind.All)),
	}
	for _, k := range kind.All {
		r.entries[k] = entry{err: errNotConfigured}
	}
	return r
}

// LoadAll loads every configured domain. Failures are logged as domain-scoped
// warnings and returned joined; successfully loaded domains stay usable.
func (r *Registry) LoadAll(ctx context.Context) error {
	var errs []error
	for _, k := range kind.All {
		if err := r.Reload(ctx, k); err != nil && !errors.Is(err, errNotConfigured) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload re-reads the dataset file of k.
func (r *Registry) Reload(ctx context.Context, k kind.Kind) error {
	if !k.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownDomain, k)
	}
	path, ok := r.paths[k]
	if !ok || path == "" {
		return fmt.Errorf("%s: %w", k, errNotConfigured)
	}

	cat, err := r.loader.Load(ctx, k, path)
	r.store(ctx, k, cat, path, err)
	if err != nil {
		return fmt.Errorf("load %s: %w", k, err)
	}
	return nil
}

// Replace swaps the catalog of k for one parsed from rd. On failure the
// current catalog is kept.
func (r *Registry) Replace(ctx context.Context, k kind.Kind, rd io.Reader) (Status, error) {
	if !k.IsValid() {
		return Status{}, fmt.Errorf("%w: %q", domain.ErrUnknownDomain, k)
	}
	cat, err := r.loader.Parse(ctx, k, rd)
	if err != nil {
		logger.FromContext(ctx).Warn("Dataset upload rejected",
			zap.String("domain", string(k)),
			zap.Error(err),
		)
		return Status{}, fmt.Errorf("parse %s upload: %w", k, err)
	}
	r.store(ctx, k, cat, SourceUpload, nil)
	return r.status(k), nil
}

// Catalog returns the loaded catalog of k.
func (r *Registry) Catalog(k kind.Kind) (*catalog.Catalog, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDomain, k)
	}
	r.mu.RLock()
	e := r.entries[k]
	r.mu.RUnlock()

	if e.cat == nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDomainUnavailable, k, e.err)
	}
	return e.cat, nil
}

// Status reports every domain in canonical order.
func (r *Registry) Status() []Status {
	out := make([]Status, 0, len(kind.All))
	for _, k := range kind.All {
		out = append(out, r.status(k))
	}
	return out
}

func (r *Registry) status(k kind.Kind) Status {
	r.mu.RLock()
	e := r.entries[k]
	r.mu.RUnlock()
	return Status{
		Kind:      k,
		Available: e.cat != nil,
		Items:     e.cat.Len(),
		Source:    e.source,
		LoadedAt:  e.loadedAt,
		Err:       e.err,
	}
}

// store records a load outcome. A failed reload keeps the previous catalog.
func (r *Registry) store(ctx context.Context, k kind.Kind, cat *catalog.Catalog, source string, err error) {
	log := logger.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		log.Warn("Dataset unavailable",
			zap.String("domain", string(k)),
			zap.String("source", source),
			zap.Error(err),
		)
		prev := r.entries[k]
		prev.err = err
		r.entries[k] = prev
		metrics.DatasetItems.WithLabelValues(string(k)).Set(float64(prev.cat.Len()))
		return
	}

	r.entries[k] = entry{cat: cat, source: source, loadedAt: r.now()}
	metrics.DatasetItems.WithLabelValues(string(k)).Set(float64(cat.Len()))
	log.Info("Dataset loaded",
		zap.String("domain", string(k)),
		zap.String("source", source),
		zap.Int("items", cat.Len()),
	)
}

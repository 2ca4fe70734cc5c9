package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
)

type fakeCatalogs struct {
	catalogs map[kind.Kind]*catalog.Catalog
	err      error
}

func (f *fakeCatalogs) Catalog(k kind.Kind) (*catalog.Catalog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.catalogs[k], nil
}

func init() {
	metrics.RegisterRecommendMetrics()
}

func TestService_Recommend(t *testing.T) {
	src := &fakeCatalogs{catalogs: map[kind.Kind]*catalog.Catalog{
		kind.Books: bookCatalog(
			book{title: "Dune", rating: 4.2},
			book{title: "Emma", rating: 4.0},
		),
	}}
	svc := New(src)

	res, err := svc.Recommend(context.Background(), kind.Books, query.New("dune", "", "", 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", res.Len())
	}
	if res.Kind() != kind.Books {
		t.Errorf("Kind() = %q, want books", res.Kind())
	}
}

func TestService_RecommendUnknownDomain(t *testing.T) {
	svc := New(&fakeCatalogs{})

	_, err := svc.Recommend(context.Background(), kind.Kind("music"), query.New("", "", "", 5))
	if !errors.Is(err, domain.ErrUnknownDomain) {
		t.Fatalf("expected ErrUnknownDomain, got %v", err)
	}
}

func TestService_RecommendUnavailable(t *testing.T) {
	svc := New(&fakeCatalogs{err: domain.ErrDomainUnavailable})

	_, err := svc.Recommend(context.Background(), kind.Movies, query.New("", "", "", 8))
	if !errors.Is(err, domain.ErrDomainUnavailable) {
		t.Fatalf("expected ErrDomainUnavailable, got %v", err)
	}
}

func TestService_RecommendEmptyCatalog(t *testing.T) {
	svc := New(&fakeCatalogs{catalogs: map[kind.Kind]*catalog.Catalog{}})

	res, err := svc.Recommend(context.Background(), kind.Courses, query.New("go", "", "", 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsEmpty() {
		t.Fatalf("expected empty result, got %d", res.Len())
	}
}

package recommend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
	"github.com/kailas-cloud/shelfrec/internal/logger"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
)

// Service runs the engine against the loaded catalogs and records metrics.
type Service struct {
	catalogs CatalogSource
	engine   *Engine
}

// New creates a recommendation service.
func New(catalogs CatalogSource) *Service {
	return &Service{catalogs: catalogs, engine: NewEngine()}
}

// Recommend resolves the domain catalog and applies q to it.
func (s *Service) Recommend(ctx context.Context, k kind.Kind, q query.Query) (result.Result, error) {
	d, err := descriptor.For(k)
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: %w", domain.ErrUnknownDomain, err)
	}

	cat, err := s.catalogs.Catalog(k)
	if err != nil {
		return result.Result{}, fmt.Errorf("catalog %s: %w", k, err)
	}

	start := time.Now()
	res := s.engine.Recommend(cat, d, q)
	elapsed := time.Since(start)

	domainLabel := string(k)
	metrics.RecommendQueriesTotal.WithLabelValues(domainLabel, string(res.Path())).Inc()
	metrics.RecommendResultSize.WithLabelValues(domainLabel).Observe(float64(res.Len()))
	metrics.RecommendDuration.WithLabelValues(domainLabel).Observe(elapsed.Seconds())
	if res.FuzzyCandidates() > 0 {
		metrics.RecommendFuzzyFallbackTotal.WithLabelValues(domainLabel).Inc()
	}

	logger.FromContext(ctx).Debug("Recommendation computed",
		zap.String("domain", domainLabel),
		zap.String("path", string(res.Path())),
		zap.Int("top_n", q.TopN()),
		zap.Int("results", res.Len()),
		zap.Int("fuzzy_candidates", res.FuzzyCandidates()),
		zap.Duration("latency", elapsed),
	)

	return res, nil
}

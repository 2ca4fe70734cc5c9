// Package app assembles the services shared by the API server and the CLI
// from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/config"
	"github.com/kailas-cloud/shelfrec/internal/db"
	dbMemory "github.com/kailas-cloud/shelfrec/internal/db/memory"
	dbValkey "github.com/kailas-cloud/shelfrec/internal/db/valkey"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
	"github.com/kailas-cloud/shelfrec/internal/repository/dataset"
	"github.com/kailas-cloud/shelfrec/internal/repository/imgcache"
	"github.com/kailas-cloud/shelfrec/internal/transport/httpimg"
	catalogsuc "github.com/kailas-cloud/shelfrec/internal/usecase/catalogs"
	"github.com/kailas-cloud/shelfrec/internal/usecase/cover"
	healthuc "github.com/kailas-cloud/shelfrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/shelfrec/internal/usecase/recommend"
	"github.com/kailas-cloud/shelfrec/internal/usecase/session"
)

// App holds the wired services.
type App struct {
	Catalogs  *catalogsuc.Registry
	Recommend *recommenduc.Service
	Covers    *cover.Resolver
	Sessions  *session.Store
	Health    *healthuc.Service

	cache db.Store
}

// New wires every service from cfg. Dataset loading is left to the caller
// (see Catalogs.LoadAll) so a failing domain never aborts startup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterRecommendMetrics()

	cache, err := newCache(ctx, cfg.Images.Cache)
	if err != nil {
		return nil, err
	}

	var fetcher cover.Fetcher = httpimg.New(httpimg.Config{
		MaxBytes:  cfg.Images.MaxBytes,
		UserAgent: cfg.Images.UserAgent,
		Breaker: httpimg.BreakerConfig{
			ConsecutiveFailures: cfg.Images.Breaker.ConsecutiveFailures,
			OpenFor:             config.Seconds(cfg.Images.Breaker.OpenSec),
		},
		Logger: logger,
	})
	if cache != nil {
		fetcher = imgcache.New(fetcher, cache, config.Seconds(cfg.Images.Cache.TTLSec), metrics.ImageCacheTotal, logger)
	}

	paths := make(map[kind.Kind]string, len(kind.All))
	for _, k := range kind.All {
		if p := cfg.DatasetPath(string(k)); p != "" {
			paths[k] = p
		}
	}
	registry := catalogsuc.NewRegistry(dataset.NewLoader(int64(cfg.Datasets.MaxMB)<<20), paths)

	// Pass a nil interface, not a typed nil pointer, when caching is off.
	var pinger healthuc.CachePinger
	if cache != nil {
		pinger = cache
	}

	return &App{
		Catalogs:  registry,
		Recommend: recommenduc.New(registry),
		Covers:    cover.New(fetcher, config.Seconds(cfg.Images.FetchTimeoutSec)),
		Sessions:  session.NewStore(config.Seconds(cfg.Session.TTLSec)),
		Health:    healthuc.New(registry, pinger),
		cache:     cache,
	}, nil
}

// Close releases the image cache connection.
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

// SweepSessions evicts idle sessions every period until ctx is done.
func (a *App) SweepSessions(ctx context.Context, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Sessions.Sweep(); n > 0 {
				logger.Debug("Idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func newCache(ctx context.Context, cfg config.CacheConfig) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		store = dbMemory.NewStore(cfg.MaxEntries)
	case config.CacheValkey:
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create image cache: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown image cache driver %q", cfg.Driver)
	}

	if err := store.WaitForReady(ctx, config.Seconds(cfg.ReadinessTimeout)); err != nil {
		store.Close()
		return nil, fmt.Errorf("image cache not ready: %w", err)
	}
	return store, nil
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation and image Prometheus metrics.
var (
	RecommendQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrec",
			Name:      "recommend_queries_total",
			Help:      "Total number of recommendation queries",
		},
		[]string{"domain", "path"}, // path: browse / filtered / empty_catalog
	)

	RecommendFuzzyFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrec",
			Name:      "recommend_fuzzy_fallback_total",
			Help:      "Title queries that added fuzzy candidates to substring matches",
		},
		[]string{"domain"},
	)

	RecommendResultSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfrec",
			Name:      "recommend_result_size",
			Help:      "Number of items returned per recommendation query",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
		[]string{"domain"},
	)

	RecommendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfrec",
			Name:      "recommend_duration_seconds",
			Help:      "Recommendation engine latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"domain"},
	)

	ImageResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrec",
			Name:      "image_resolve_total",
			Help:      "Image resolutions by outcome",
		},
		[]string{"outcome"}, // fetched / placeholder
	)

	ImageFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shelfrec",
			Name:      "image_fetch_duration_seconds",
			Help:      "Outbound image fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	ImageFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrec",
			Name:      "image_fetch_total",
			Help:      "Outbound image fetches by status",
		},
		[]string{"status"}, // ok / error / rejected
	)

	ImageBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrec",
			Name:      "image_breaker_transitions_total",
			Help:      "Image host circuit breaker state transitions",
		},
		[]string{"to"},
	)

	ImageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrec",
			Name:      "image_cache_total",
			Help:      "Image cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DatasetItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shelfrec",
			Name:      "dataset_items",
			Help:      "Items loaded per domain (0 when unavailable)",
		},
		[]string{"domain"},
	)
)

var recMetricsRegistered bool

// RegisterRecommendMetrics registers the recommendation metrics. Must be called once from main.
func RegisterRecommendMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendQueriesTotal)
	prometheus.MustRegister(RecommendFuzzyFallbackTotal)
	prometheus.MustRegister(RecommendResultSize)
	prometheus.MustRegister(RecommendDuration)
	prometheus.MustRegister(ImageResolveTotal)
	prometheus.MustRegister(ImageFetchDuration)
	prometheus.MustRegister(ImageFetchTotal)
	prometheus.MustRegister(ImageBreakerTransitionsTotal)
	prometheus.MustRegister(ImageCacheTotal)
	prometheus.MustRegister(DatasetItems)
	recMetricsRegistered = true
}

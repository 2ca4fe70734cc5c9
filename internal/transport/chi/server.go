package chi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/repository/export"
	catalogsuc "github.com/kailas-cloud/shelfrec/internal/usecase/catalogs"
	"github.com/kailas-cloud/shelfrec/internal/usecase/cover"
	healthuc "github.com/kailas-cloud/shelfrec/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/shelfrec/internal/usecase/recommend"
	"github.com/kailas-cloud/shelfrec/internal/usecase/refresh"
	"github.com/kailas-cloud/shelfrec/internal/usecase/session"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultMaxTopN        = 20
	DefaultMaxUploadBytes = 64 << 20
	maxImageSide          = 2000
)

// Options tunes request validation and limits.
type Options struct {
	MaxTopN     int
	DefaultTopN map[kind.Kind]int

	RefreshMin     time.Duration
	RefreshMax     time.Duration
	RefreshDefault time.Duration

	MaxUploadBytes    int64
	RequestsPerMinute int
}

func (o Options) withDefaults() Options {
	if o.MaxTopN <= 0 {
		o.MaxTopN = DefaultMaxTopN
	}
	if o.RefreshMin <= 0 {
		o.RefreshMin = refresh.MinInterval
	}
	if o.RefreshMax <= 0 {
		o.RefreshMax = refresh.MaxInterval
	}
	if o.RefreshDefault <= 0 {
		o.RefreshDefault = refresh.DefaultInterval
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return o
}

// Server serves the recommendation API.
type Server struct {
	recommend     *recommenduc.Service
	catalogs      *catalogsuc.Registry
	sessions      *session.Store
	covers        *cover.Resolver
	health        *healthuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	recommend *recommenduc.Service,
	catalogs *catalogsuc.Registry,
	sessions *session.Store,
	covers *cover.Resolver,
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	return &Server{
		recommend:     recommend,
		catalogs:      catalogs,
		sessions:      sessions,
		covers:        covers,
		health:        health,
		opts:          opts.withDefaults(),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		if s.opts.RequestsPerMinute > 0 {
			r.Use(RateLimitMiddleware(s.opts.RequestsPerMinute, time.Minute))
		}
		r.Get("/domains", s.ListDomains)
		r.Route("/{domain}", func(r chi.Router) {
			r.Get("/recommendations", s.Recommend)
			r.Get("/recommendations/stream", s.StreamRecommendations)
			r.Get("/export", s.Export)
			r.Get("/image", s.Image)
			r.Put("/dataset", s.UploadDataset)
		})
	})
}

// ListDomains handles GET /api/v1/domains.
func (s *Server) ListDomains(w http.ResponseWriter, _ *http.Request) {
	statuses := s.catalogs.Status()
	out := DomainList{Domains: make([]DomainStatus, 0, len(statuses))}
	for _, st := range statuses {
		out.Domains = append(out.Domains, statusToDTO(st))
	}
	writeJSON(w, http.StatusOK, out)
}

// Recommend handles GET /api/v1/{domain}/recommendations.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	k, d, err := domainParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	q, err := s.parseQuery(r, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res, err := s.recommend.Recommend(r.Context(), k, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	id := s.sessionID(w, r)
	s.sessions.Put(id, res)

	writeJSON(w, http.StatusOK, resultToDTO(d, res))
}

// Export handles GET /api/v1/{domain}/export.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	k, d, err := domainParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	id, ok := existingSessionID(r)
	if !ok {
		s.handleDomainError(w, fmt.Errorf("%w: no session", domain.ErrNoResult))
		return
	}
	res, err := s.sessions.LastFor(id, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(k, time.Now())))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, d, res); err != nil {
		s.logger.Error("Export write failed", zap.String("domain", string(k)), zap.Error(err))
	}
}

// Image handles GET /api/v1/{domain}/image. The response is always a PNG of
// the domain's image size; unusable sources yield the placeholder.
func (s *Server) Image(w http.ResponseWriter, r *http.Request) {
	k, d, err := domainParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !d.HasImage() {
		s.handleDomainError(w, fmt.Errorf("%w: %s items have no artwork", domain.ErrInvalidQuery, k))
		return
	}

	var src, caption string
	var width, height int
	params := r.URL.Query()
	for _, p := range []struct {
		name string
		dest any
	}{
		{"src", &src},
		{"caption", &caption},
		{"width", &width},
		{"height", &height},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, params, p.dest); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid "+p.name)
			return
		}
	}

	size := d.ImageSize
	if width > 0 || height > 0 {
		if width <= 0 || height <= 0 || width > maxImageSide || height > maxImageSide {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				fmt.Sprintf("width and height must both be between 1 and %d", maxImageSide))
			return
		}
		size = descriptor.Size{Width: width, Height: height}
	}
	if caption == "" {
		caption = d.ImageCaption
	}

	body, err := s.covers.ResolvePNG(r.Context(), src, size, caption)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// UploadDataset handles PUT /api/v1/{domain}/dataset. The body is a CSV file
// that replaces the domain's catalog; on failure the current catalog stays.
func (s *Server) UploadDataset(w http.ResponseWriter, r *http.Request) {
	k, _, err := domainParam(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	defer func() { _ = body.Close() }()

	st, err := s.catalogs.Replace(r.Context(), k, body)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusToDTO(st))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func domainParam(r *http.Request) (kind.Kind, descriptor.Descriptor, error) {
	k, err := kind.Parse(chi.URLParam(r, "domain"))
	if err != nil {
		return "", descriptor.Descriptor{}, fmt.Errorf("%w: %w", domain.ErrUnknownDomain, err)
	}
	d, err := descriptor.For(k)
	if err != nil {
		return "", descriptor.Descriptor{}, fmt.Errorf("%w: %w", domain.ErrUnknownDomain, err)
	}
	return k, d, nil
}

// parseQuery reads the criteria and top_n. A missing top_n takes the domain
// default; an explicit one must lie in [1, MaxTopN].
func (s *Server) parseQuery(r *http.Request, k kind.Kind) (query.Query, error) {
	params := r.URL.Query()

	var title, category, secondary string
	var topN *int
	for _, p := range []struct {
		name string
		dest any
	}{
		{"title", &title},
		{"category", &category},
		{"secondary", &secondary},
		{"top_n", &topN},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, params, p.dest); err != nil {
			return query.Query{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidQuery, p.name, err)
		}
	}

	n := s.defaultTopN(k)
	if topN != nil {
		if *topN < 1 || *topN > s.opts.MaxTopN {
			return query.Query{}, fmt.Errorf("%w: top_n must be between 1 and %d",
				domain.ErrInvalidQuery, s.opts.MaxTopN)
		}
		n = *topN
	}

	return query.New(title, category, secondary, n), nil
}

func (s *Server) defaultTopN(k kind.Kind) int {
	if n, ok := s.opts.DefaultTopN[k]; ok && n > 0 {
		return min(n, s.opts.MaxTopN)
	}
	if d, err := descriptor.For(k); err == nil && d.DefaultTopN > 0 {
		return min(d.DefaultTopN, s.opts.MaxTopN)
	}
	return 1
}

// intervalParam reads the optional interval (seconds) of a stream request.
func (s *Server) intervalParam(r *http.Request) (time.Duration, error) {
	var sec int
	if err := runtime.BindQueryParameter("form", true, false, "interval", r.URL.Query(), &sec); err != nil {
		return 0, fmt.Errorf("%w: interval: %w", domain.ErrInvalidQuery, err)
	}
	if sec < 0 {
		return 0, fmt.Errorf("%w: interval must not be negative", domain.ErrInvalidQuery)
	}
	return refresh.ClampInterval(
		time.Duration(sec)*time.Second, s.opts.RefreshMin, s.opts.RefreshMax, s.opts.RefreshDefault,
	), nil
}

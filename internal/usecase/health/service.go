package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates no domain can serve recommendations.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check name prefixes.
const (
	checkDatasetPrefix = "dataset:"
	checkImageCache    = "image_cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	catalogs CatalogReporter
	cache    CachePinger
}

// New creates a Service. cache can be nil when image caching is disabled.
func New(catalogs CatalogReporter, cache CachePinger) *Service {
	return &Service{catalogs: catalogs, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	available := 0
	for _, st := range s.catalogs.Status() {
		if st.Available {
			available++
			checks[checkDatasetPrefix+string(st.Kind)] = CheckOK
		} else {
			checks[checkDatasetPrefix+string(st.Kind)] = CheckError
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks[checkImageCache] = CheckError
		} else {
			checks[checkImageCache] = CheckOK
		}
	}

	if available == 0 {
		return Report{Status: Unhealthy, Checks: checks}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

// Package httpimg downloads remote artwork over HTTP with one circuit breaker
// per image host, so an unreachable host is skipped without waiting on it.
package httpimg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/metrics"
)

// Fetch errors.
var (
	ErrBadStatus  = errors.New("unexpected status")
	ErrTooLarge   = errors.New("image exceeds size limit")
	ErrInvalidURL = errors.New("invalid image url")
)

// StatusError reports a non-2xx response. It matches ErrBadStatus.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: %s: %d", e.URL, ErrBadStatus, e.Code)
}

// Is reports ErrBadStatus.
func (e *StatusError) Is(target error) bool { return target == ErrBadStatus }

// Defaults applied by New for zero config values.
const (
	DefaultMaxBytes         = 5 << 20
	DefaultUserAgent        = "shelfrec/1.0"
	DefaultBreakerFailures  = 5
	DefaultBreakerOpenFor   = 30 * time.Second
	DefaultBreakerInterval  = time.Minute
	defaultHalfOpenRequests = 1
)

// BreakerConfig tunes the per-host circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenFor is how long an open breaker rejects requests before probing again.
	OpenFor time.Duration
	// Interval resets failure counts while closed.
	Interval time.Duration
}

// Config holds the fetcher settings.
type Config struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
	Breaker   BreakerConfig
	Logger    *zap.Logger
}

// Fetcher implements cover.Fetcher over net/http.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	breaker   BreakerConfig
	logger    *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// New creates a Fetcher. Timeouts come from the caller's context.
func New(cfg Config) *Fetcher {
	f := &Fetcher{
		client:    cfg.Client,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
		breaker:   cfg.Breaker,
		logger:    cfg.Logger,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.breaker.ConsecutiveFailures == 0 {
		f.breaker.ConsecutiveFailures = DefaultBreakerFailures
	}
	if f.breaker.OpenFor <= 0 {
		f.breaker.OpenFor = DefaultBreakerOpenFor
	}
	if f.breaker.Interval <= 0 {
		f.breaker.Interval = DefaultBreakerInterval
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Fetch downloads rawURL through the breaker of its host.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	start := time.Now()
	data, err := f.breakerFor(u.Host).Execute(func() ([]byte, error) {
		return f.get(ctx, u.String())
	})
	metrics.ImageFetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ImageFetchTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("host %s: %w", u.Host, err)
	case err != nil:
		metrics.ImageFetchTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ImageFetchTotal.WithLabelValues("ok").Inc()
	return data, nil
}

// BreakerState reports the breaker state of host, "closed" when none exists yet.
func (f *Fetcher) BreakerState(host string) string {
	f.mu.Lock()
	cb, ok := f.breakers[host]
	f.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed.String()
	}
	return cb.State().String()
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("get %s: %w (%d bytes)", target, ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

func (f *Fetcher) breakerFor(host string) *gobreaker.CircuitBreaker[[]byte] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[host]; ok {
		return cb
	}

	failures := f.breaker.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        host,
		MaxRequests: defaultHalfOpenRequests,
		Interval:    f.breaker.Interval,
		Timeout:     f.breaker.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: hostResponded,
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("Image host breaker state changed",
				zap.String("host", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.ImageBreakerTransitionsTotal.WithLabelValues(to.String()).Inc()
		},
	})
	f.breakers[host] = cb
	return cb
}

// hostResponded reports whether err still shows a working host. Missing
// images and oversized bodies concern a single URL; transport errors,
// timeouts, 429 and 5xx count against the host.
func hostResponded(err error) bool {
	if err == nil || errors.Is(err, ErrTooLarge) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}

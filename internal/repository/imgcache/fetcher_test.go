package imgcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrec/internal/db"
	"github.com/kailas-cloud/shelfrec/internal/db/memory"
)

func TestFetch_CacheMiss(t *testing.T) {
	inner := &mockFetcher{data: []byte("png")}
	cf, ms := newTestCachedFetcher(t, inner)

	var gotKey string
	var gotTTL time.Duration
	ms.setFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		gotKey, gotTTL = key, ttl
		return nil
	}

	data, err := cf.Fetch(context.Background(), "https://img.example/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("data = %q", data)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if !strings.HasPrefix(gotKey, cacheKeyPrefix) {
		t.Errorf("key %q missing prefix %q", gotKey, cacheKeyPrefix)
	}
	if gotTTL != time.Hour {
		t.Errorf("ttl = %v, want 1h", gotTTL)
	}
}

func TestFetch_CacheHit(t *testing.T) {
	inner := &mockFetcher{data: []byte("fresh")}
	cf, ms := newTestCachedFetcher(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("cached"), nil
	}

	data, err := cf.Fetch(context.Background(), "https://img.example/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "cached" {
		t.Errorf("data = %q, want cached", data)
	}
	if inner.calls != 0 {
		t.Errorf("inner must not be called on hit, calls = %d", inner.calls)
	}
}

func TestFetch_InnerErrorNotCached(t *testing.T) {
	inner := &mockFetcher{err: errors.New("503")}
	cf, ms := newTestCachedFetcher(t, inner)

	setCalled := false
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		setCalled = true
		return nil
	}

	if _, err := cf.Fetch(context.Background(), "https://img.example/a.png"); err == nil {
		t.Fatal("expected error")
	}
	if setCalled {
		t.Error("failed fetch must not be cached")
	}
}

func TestFetch_StoreErrorsDegradeToInner(t *testing.T) {
	inner := &mockFetcher{data: []byte("png")}
	cf, ms := newTestCachedFetcher(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection refused")}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return &db.Error{Op: db.OpSet, Err: errors.New("connection refused")}
	}

	data, err := cf.Fetch(context.Background(), "https://img.example/a.png")
	if err != nil {
		t.Fatalf("store failures must not fail the fetch: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("data = %q", data)
	}
}

func TestFetch_WithMemoryStore(t *testing.T) {
	inner := &mockFetcher{data: []byte("png")}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_img_cache_total"}, []string{"result"})
	cf := New(inner, memory.NewStore(0), time.Minute, counter, zap.NewNop())
	ctx := context.Background()

	for range 3 {
		if _, err := cf.Fetch(ctx, "https://img.example/a.png"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	cf, _ := newTestCachedFetcher(t, &mockFetcher{})

	a := cf.cacheKey("https://img.example/a.png")
	if a != cf.cacheKey("https://img.example/a.png") {
		t.Error("same url must map to the same key")
	}
	if a == cf.cacheKey("https://img.example/b.png") {
		t.Error("different urls must map to different keys")
	}
}

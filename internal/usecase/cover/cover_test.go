package cover

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/shelfrec/internal/domain/catalog"
	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/query"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
	"github.com/kailas-cloud/shelfrec/internal/transport/httpimg"
)

// --- Fakes ---

type fakeFetcher struct {
	data  []byte
	err   error
	block bool
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.data, f.err
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func assertSize(t *testing.T, img image.Image, size descriptor.Size) {
	t.Helper()
	b := img.Bounds()
	if b.Dx() != size.Width || b.Dy() != size.Height {
		t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), size.Width, size.Height)
	}
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func isPlaceholder(img image.Image) bool {
	return rgbaAt(img, 0, 0) == PlaceholderBackground
}

var cardSize = descriptor.Size{Width: 300, Height: 450}

// --- Placeholder ---

func TestPlaceholder_Size(t *testing.T) {
	sizes := []descriptor.Size{
		{Width: 300, Height: 450},
		{Width: 1, Height: 1},
		{Width: 40, Height: 10},
		{Width: 800, Height: 200},
	}
	captions := []string{"", "No Cover", "A caption that is definitely longer than twenty characters"}

	for _, size := range sizes {
		for _, c := range captions {
			assertSize(t, Placeholder(size, c), size)
		}
	}
}

func TestPlaceholder_InvalidSizeUsesDefault(t *testing.T) {
	assertSize(t, Placeholder(descriptor.Size{}, "x"), DefaultSize)
}

func TestPlaceholder_Colors(t *testing.T) {
	img := Placeholder(cardSize, "No Poster")

	if got := rgbaAt(img, 0, 0); got != PlaceholderBackground {
		t.Errorf("corner = %v, want background %v", got, PlaceholderBackground)
	}

	found := false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rgbaAt(img, x, y) == PlaceholderForeground {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected caption pixels in foreground color")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"exactly twenty chars", "exactly twenty chars"},
		{"this one is longer than twenty", "this one is longer t"},
		{"ÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉ", "ÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉÉ"},
	}
	for _, tc := range tests {
		if got := truncateRunes(tc.in, maxCaptionRunes); got != tc.want {
			t.Errorf("truncateRunes(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// --- Fit ---

func TestFit_ExactSize(t *testing.T) {
	sources := []image.Rectangle{
		image.Rect(0, 0, 100, 100),
		image.Rect(0, 0, 1000, 100),
		image.Rect(0, 0, 30, 900),
		image.Rect(10, 20, 310, 470),
	}
	for _, r := range sources {
		src := image.NewRGBA(r)
		assertSize(t, Fit(src, cardSize), cardSize)
	}
}

func TestCropToAspect(t *testing.T) {
	tests := []struct {
		name string
		in   image.Rectangle
		want image.Rectangle
	}{
		{"wide", image.Rect(0, 0, 600, 450), image.Rect(150, 0, 450, 450)},
		{"tall", image.Rect(0, 0, 300, 900), image.Rect(0, 225, 300, 675)},
		{"exact", image.Rect(0, 0, 200, 300), image.Rect(0, 0, 200, 300)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cropToAspect(tc.in, cardSize); got != tc.want {
				t.Errorf("cropToAspect(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

// --- Resolver ---

func TestResolve_Fetched(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	f := &fakeFetcher{data: solidPNG(t, 120, 80, red)}
	r := New(f, time.Second)

	before := testutil.ToFloat64(metrics.ImageResolveTotal.WithLabelValues(OutcomeFetched))
	img := r.Resolve(context.Background(), "https://img.example/cover.png", cardSize, "No Cover")

	assertSize(t, img, cardSize)
	if got := rgbaAt(img, 150, 225); got != red {
		t.Errorf("center = %v, want red", got)
	}
	if after := testutil.ToFloat64(metrics.ImageResolveTotal.WithLabelValues(OutcomeFetched)); after != before+1 {
		t.Errorf("fetched counter = %v, want %v", after, before+1)
	}
}

func TestResolve_Placeholders(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		fetcher   *fakeFetcher
		wantCalls int32
	}{
		{"empty ref", "", &fakeFetcher{}, 0},
		{"not http", "covers/dune.jpg", &fakeFetcher{}, 0},
		{"fetch error", "http://img.example/x.jpg", &fakeFetcher{err: errors.New("404")}, 1},
		{"undecodable", "http://img.example/x.jpg", &fakeFetcher{data: []byte("<html>")}, 1},
		{"empty body", "http://img.example/x.jpg", &fakeFetcher{data: nil}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.fetcher, time.Second)
			img := r.Resolve(context.Background(), tc.ref, cardSize, "No Cover")

			assertSize(t, img, cardSize)
			if !isPlaceholder(img) {
				t.Error("expected placeholder")
			}
			if got := tc.fetcher.calls.Load(); got != tc.wantCalls {
				t.Errorf("fetch calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestResolve_NilFetcher(t *testing.T) {
	img := New(nil, 0).Resolve(context.Background(), "https://img.example/a.png", cardSize, "No Poster")
	if !isPlaceholder(img) {
		t.Error("expected placeholder without fetcher")
	}
}

func TestResolve_Timeout(t *testing.T) {
	r := New(&fakeFetcher{block: true}, 50*time.Millisecond)

	start := time.Now()
	img := r.Resolve(context.Background(), "https://slow.example/a.png", cardSize, "No Cover")

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("resolve took %v, timeout not applied", elapsed)
	}
	if !isPlaceholder(img) {
		t.Error("expected placeholder after timeout")
	}
}

func TestResolvePNG(t *testing.T) {
	data, err := New(nil, 0).ResolvePNG(context.Background(), "", cardSize, "No Cover")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	assertSize(t, img, cardSize)
}

func TestResolveAll_PreservesOrder(t *testing.T) {
	blue := color.RGBA{B: 255, A: 255}
	r := New(&fakeFetcher{data: solidPNG(t, 10, 15, blue)}, time.Second)

	reqs := []Request{
		{Ref: "https://img.example/1.png", Size: cardSize, Caption: "No Cover"},
		{Ref: "", Size: descriptor.Size{Width: 30, Height: 45}, Caption: "No Cover"},
		{Ref: "https://img.example/3.png", Size: descriptor.Size{Width: 60, Height: 90}, Caption: "No Cover"},
	}

	out := r.ResolveAll(context.Background(), reqs, 2)

	if len(out) != len(reqs) {
		t.Fatalf("len = %d, want %d", len(out), len(reqs))
	}
	for i, req := range reqs {
		assertSize(t, out[i], req.Size)
	}
	if !isPlaceholder(out[1]) {
		t.Error("second image should be a placeholder")
	}
	if isPlaceholder(out[0]) || isPlaceholder(out[2]) {
		t.Error("fetched images should not be placeholders")
	}
}

func TestRequests(t *testing.T) {
	d := descriptor.Movies()
	rows := []catalog.Row{
		{Text: map[string]string{descriptor.MovieTitle: "Up", descriptor.MoviePoster: "https://p/up.jpg"}},
		{Text: map[string]string{descriptor.MovieTitle: "Heat", descriptor.MoviePoster: ""}},
	}
	cat := catalog.New(kind.Movies, d.DisplayColumns, rows, d.Searchable())
	res := result.New(kind.Movies, query.New("", "", "", 8), cat.All(), cat.Columns(), result.PathBrowse, 0)

	reqs := Requests(d, res)
	if len(reqs) != 2 {
		t.Fatalf("len = %d, want 2", len(reqs))
	}
	if reqs[0].Ref != "https://p/up.jpg" || reqs[0].Caption != "No Poster" || reqs[0].Size != d.ImageSize {
		t.Errorf("unexpected request: %+v", reqs[0])
	}

	if got := Requests(descriptor.Courses(), res); got != nil {
		t.Errorf("courses have no artwork, got %d requests", len(got))
	}
}

func TestResolve_DeadLinksDoNotHideHost(t *testing.T) {
	green := color.RGBA{G: 255, A: 255}
	body := solidPNG(t, 20, 30, green)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	defer server.Close()

	r := New(httpimg.New(httpimg.Config{}), time.Second)
	ctx := context.Background()

	for range httpimg.DefaultBreakerFailures + 1 {
		if img := r.Resolve(ctx, server.URL+"/missing.png", cardSize, "No Poster"); !isPlaceholder(img) {
			t.Fatal("dead link should resolve to the placeholder")
		}
	}

	img := r.Resolve(ctx, server.URL+"/ok.png", cardSize, "No Poster")
	if got := rgbaAt(img, 0, 0); got != green {
		t.Errorf("pixel = %v, want fetched image %v", got, green)
	}
}

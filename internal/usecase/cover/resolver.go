// Package cover resolves item artwork into fixed-size images, falling back
// to a captioned placeholder whenever the remote image cannot be used.
package cover

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
	"github.com/kailas-cloud/shelfrec/internal/logger"
	"github.com/kailas-cloud/shelfrec/internal/metrics"
)

// DefaultFetchTimeout bounds a single remote image fetch.
const DefaultFetchTimeout = 4 * time.Second

// Resolve outcomes, used as metric labels.
const (
	OutcomeFetched     = "fetched"
	OutcomePlaceholder = "placeholder"
)

// Request names one image to resolve.
type Request struct {
	Ref     string
	Size    descriptor.Size
	Caption string
}

// Resolver turns image references into images of an exact size.
type Resolver struct {
	fetcher Fetcher
	timeout time.Duration
}

// New creates a Resolver. A nil fetcher resolves every reference to a placeholder.
func New(fetcher Fetcher, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Resolver{fetcher: fetcher, timeout: timeout}
}

// Resolve returns the remote image fitted to size, or a placeholder carrying
// caption. It never fails and the result always measures exactly size.
func (r *Resolver) Resolve(ctx context.Context, ref string, size descriptor.Size, caption string) image.Image {
	img, err := r.fetch(ctx, ref)
	if err != nil {
		logger.FromContext(ctx).Debug("Image replaced by placeholder",
			zap.String("ref", ref),
			zap.Error(err),
		)
		metrics.ImageResolveTotal.WithLabelValues(OutcomePlaceholder).Inc()
		return Placeholder(size, caption)
	}
	metrics.ImageResolveTotal.WithLabelValues(OutcomeFetched).Inc()
	return Fit(img, size)
}

// ResolvePNG resolves ref and encodes the image as PNG.
func (r *Resolver) ResolvePNG(ctx context.Context, ref string, size descriptor.Size, caption string) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Resolve(ctx, ref, size, caption)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ResolveAll resolves reqs with at most limit fetches in flight and returns
// images in request order. limit <= 0 means one at a time.
func (r *Resolver) ResolveAll(ctx context.Context, reqs []Request, limit int) []image.Image {
	if limit <= 0 {
		limit = 1
	}
	out := make([]image.Image, len(reqs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			out[i] = r.Resolve(ctx, req.Ref, req.Size, req.Caption)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Requests builds one Request per item of res, using the domain's image field,
// size and placeholder caption. Domains without artwork yield nil.
func Requests(d descriptor.Descriptor, res result.Result) []Request {
	if !d.HasImage() {
		return nil
	}
	reqs := make([]Request, 0, res.Len())
	for _, it := range res.Items() {
		reqs = append(reqs, Request{
			Ref:     it.Text(d.ImageField),
			Size:    d.ImageSize,
			Caption: d.ImageCaption,
		})
	}
	return reqs
}

func (r *Resolver) fetch(ctx context.Context, ref string) (image.Image, error) {
	if !strings.HasPrefix(ref, "http") {
		return nil, fmt.Errorf("not a remote reference")
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty image")
	}
	return img, nil
}

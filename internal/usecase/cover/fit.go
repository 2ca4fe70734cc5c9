package cover

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
)

// DefaultSize is the 2:3 card size used when a caller passes no size.
var DefaultSize = descriptor.Size{Width: 300, Height: 450}

// Fit center-crops src to the aspect ratio of size and scales it to exactly size.
func Fit(src image.Image, size descriptor.Size) *image.RGBA {
	size = normalizeSize(size)
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, cropToAspect(src.Bounds(), size), draw.Src, nil)
	return dst
}

// cropToAspect returns the largest centered rectangle of b with the aspect ratio of size.
func cropToAspect(b image.Rectangle, size descriptor.Size) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	// Compare w/h against W/H without floats.
	if w*size.Height > h*size.Width {
		cw := h * size.Width / size.Height
		if cw < 1 {
			cw = 1
		}
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := w * size.Height / size.Width
	if ch < 1 {
		ch = 1
	}
	y0 := b.Min.Y + (h-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

func normalizeSize(size descriptor.Size) descriptor.Size {
	if size.Width <= 0 || size.Height <= 0 {
		return DefaultSize
	}
	return size
}

package cover

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kailas-cloud/shelfrec/internal/domain/descriptor"
)

// Placeholder colors.
var (
	PlaceholderBackground = color.RGBA{R: 42, G: 42, B: 42, A: 255}
	PlaceholderForeground = color.RGBA{R: 0, G: 212, B: 255, A: 255}
)

const (
	maxCaptionRunes = 20
	// captionHeightRatio sizes the caption glyphs relative to the image height.
	captionHeightRatio = 0.08
	captionMargin      = 8
)

// Placeholder renders a solid image of exactly size with the caption centered.
// Captions longer than 20 characters are truncated.
func Placeholder(size descriptor.Size, caption string) *image.RGBA {
	size = normalizeSize(size)
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(PlaceholderBackground), image.Point{}, draw.Src)

	caption = truncateRunes(caption, maxCaptionRunes)
	if caption == "" {
		return dst
	}

	text := renderCaption(caption)
	tb := text.Bounds()

	scale := int(float64(size.Height)*captionHeightRatio) / tb.Dy()
	if maxScale := (size.Width - 2*captionMargin) / tb.Dx(); scale > maxScale {
		scale = maxScale
	}
	if scale < 1 {
		scale = 1
	}

	w, h := tb.Dx()*scale, tb.Dy()*scale
	x0, y0 := (size.Width-w)/2, (size.Height-h)/2
	draw.NearestNeighbor.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), text, tb, draw.Over, nil)
	return dst
}

// renderCaption draws s at the native size of the built-in bitmap face onto a
// transparent canvas cropped to the text box.
func renderCaption(s string) *image.RGBA {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	width := d.MeasureString(s).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	d.Dst = canvas
	d.Src = image.NewUniform(PlaceholderForeground)
	d.Dot = fixed.Point26_6{X: 0, Y: metrics.Ascent}
	d.DrawString(s)
	return canvas
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/ocrdesk/fonts"
	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/ocr"
)

// ImageSurface rasterizes drawing calls into a transparent RGBA image.
type ImageSurface struct {
	img  *image.RGBA
	face xfont.Face
}

// NewImageSurface returns a surface that draws labels with face. A nil face
// disables text.
func NewImageSurface(face xfont.Face) *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rectangle{}), face: face}
}

// Image returns the current raster.
func (s *ImageSurface) Image() *image.RGBA { return s.img }

func (s *ImageSurface) Reset(size Size) {
	w := int(math.Round(size.Width))
	h := int(math.Round(size.Height))
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

// StrokeRect draws an outline centred on the rectangle edges.
func (s *ImageSurface) StrokeRect(r ocr.Region, c color.Color, width float64) {
	half := width / 2
	x0, y0 := round(r.X-half), round(r.Y-half)
	x1, y1 := round(r.X+r.Width+half), round(r.Y+r.Height+half)
	lw := round(width)
	if lw < 1 {
		lw = 1
	}
	src := image.NewUniform(c)
	for _, bar := range []image.Rectangle{
		image.Rect(x0, y0, x1, y0+lw),
		image.Rect(x0, y1-lw, x1, y1),
		image.Rect(x0, y0+lw, x0+lw, y1-lw),
		image.Rect(x1-lw, y0+lw, x1, y1-lw),
	} {
		draw.Draw(s.img, bar, src, image.Point{}, draw.Over)
	}
}

func (s *ImageSurface) FillRect(r ocr.Region, c color.Color) {
	rect := image.Rect(round(r.X), round(r.Y), round(r.X+r.Width), round(r.Y+r.Height))
	draw.Draw(s.img, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *ImageSurface) DrawText(text string, x, y float64, c color.Color) {
	if s.face == nil {
		return
	}
	d := &xfont.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.P(round(x), round(y)),
	}
	d.DrawString(text)
}

func round(v float64) int { return int(math.Round(v)) }

// Compose scales src to displayed and draws the boxes of detail over it.
func (r *Renderer) Compose(ctx context.Context, src image.Image, detail ocr.DetailRecord, displayed Size) (*image.RGBA, int, error) {
	_, span := r.tracer.StartSpan(ctx, observability.SpanOverlayDraw)
	defer span.Finish()
	span.SetTag("stem", detail.Stem)

	b := src.Bounds()
	natural := Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	if !natural.Ready() {
		span.SetError(ErrImageNotReady)
		return nil, 0, ErrImageNotReady
	}
	if !displayed.Ready() {
		displayed = natural
	}
	face, err := fonts.LabelFace(r.style.FontSize)
	if err != nil {
		span.SetError(err)
		return nil, 0, fmt.Errorf("overlay: %w", err)
	}
	defer face.Close()

	out := image.NewRGBA(image.Rect(0, 0, round(displayed.Width), round(displayed.Height)))
	draw.CatmullRom.Scale(out, out.Bounds(), src, b, draw.Src, nil)

	surface := NewImageSurface(face)
	n, err := r.Render(surface, detail, displayed, natural)
	if err != nil {
		span.SetError(err)
		return nil, 0, err
	}
	draw.Draw(out, out.Bounds(), surface.Image(), image.Point{}, draw.Over)
	span.SetTag("boxes", n)
	return out, n, nil
}

// Package overlay draws numbered bounding boxes for OCR blocks on top of a
// page image that is displayed at a size different from its natural size.
package overlay

import (
	"errors"
	"image/color"
	"math"
	"strconv"

	"github.com/wudi/ocrdesk/coords"
	"github.com/wudi/ocrdesk/fonts"
	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/ocr"
)

// ErrImageNotReady is returned when the natural image size is not yet known.
var ErrImageNotReady = errors.New("overlay: image dimensions not available")

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Ready reports whether both dimensions are positive.
func (s Size) Ready() bool { return s.Width > 0 && s.Height > 0 }

// FitWidth returns the size of an image scaled to width with its aspect ratio
// preserved.
func FitWidth(natural Size, width float64) Size {
	if !natural.Ready() || width <= 0 {
		return natural
	}
	return Size{Width: width, Height: math.Round(natural.Height * width / natural.Width)}
}

// Style controls the look of boxes and labels.
type Style struct {
	Stroke       color.Color
	LineWidth    float64
	TileFill     color.Color
	TileHeight   float64
	MinTileWidth float64
	TextColor    color.Color
	TextInset    float64 // label x offset from the box left edge
	TextRise     float64 // label baseline distance above the box top edge
	FontSize     float64
}

// DefaultStyle is a white 2px outline with a white 30x20 label tile sitting
// above the top-left corner and a black index inside it.
func DefaultStyle() Style {
	return Style{
		Stroke:       color.White,
		LineWidth:    2,
		TileFill:     color.White,
		TileHeight:   20,
		MinTileWidth: 30,
		TextColor:    color.Black,
		TextInset:    8,
		TextRise:     6,
		FontSize:     12,
	}
}

// Surface is a drawing target sized to the displayed image.
type Surface interface {
	// Reset resizes the surface to size and clears it.
	Reset(size Size)
	StrokeRect(r ocr.Region, c color.Color, width float64)
	FillRect(r ocr.Region, c color.Color)
	DrawText(text string, x, y float64, c color.Color)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle overrides the default style.
func WithStyle(s Style) Option { return func(r *Renderer) { r.style = s } }

// WithLogger sets the logger used for skipped blocks.
func WithLogger(l observability.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTracer sets the tracer used by Compose.
func WithTracer(t observability.Tracer) Option {
	return func(r *Renderer) {
		if t != nil {
			r.tracer = t
		}
	}
}

// Renderer maps block boxes from natural image space into display space and
// draws them onto a Surface.
type Renderer struct {
	style  Style
	log    observability.Logger
	tracer observability.Tracer
}

// NewRenderer returns a renderer with the default style.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{style: DefaultStyle(), log: observability.NopLogger{}, tracer: observability.NopTracer()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Style returns the renderer's style.
func (r *Renderer) Style() Style { return r.style }

// Render clears s to the displayed size and draws every well-formed block of
// detail. Blocks whose bbox is not four finite numbers are skipped; labels keep
// the block's 1-based position in detail.Blocks. It returns the number of boxes
// drawn.
func (r *Renderer) Render(s Surface, detail ocr.DetailRecord, displayed, natural Size) (int, error) {
	if !natural.Ready() {
		return 0, ErrImageNotReady
	}
	m, err := coords.Fit(natural.Width, natural.Height, displayed.Width, displayed.Height)
	if err != nil {
		return 0, ErrImageNotReady
	}
	s.Reset(displayed)
	drawn := 0
	for i, b := range detail.Blocks {
		box, ok := b.Box()
		if !ok {
			r.log.Debug("skip malformed block", observability.String("stem", detail.Stem), observability.Int("index", i))
			continue
		}
		rect := m.TransformRegion(box)
		s.StrokeRect(rect, r.style.Stroke, r.style.LineWidth)

		label := strconv.Itoa(i + 1)
		tile := ocr.Region{X: rect.X, Y: rect.Y - r.style.TileHeight, Width: r.tileWidth(label), Height: r.style.TileHeight}
		s.FillRect(tile, r.style.TileFill)
		s.DrawText(label, rect.X+r.style.TextInset, rect.Y-r.style.TextRise, r.style.TextColor)
		drawn++
	}
	return drawn, nil
}

// tileWidth widens the label tile for indices that do not fit the minimum.
func (r *Renderer) tileWidth(label string) float64 {
	w := r.style.MinTileWidth
	adv, err := fonts.LabelAdvance(label, r.style.FontSize)
	if err != nil {
		return w
	}
	if need := math.Ceil(adv + 2*r.style.TextInset); need > w {
		return need
	}
	return w
}

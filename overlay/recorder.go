package overlay

import (
	"image/color"

	"github.com/wudi/ocrdesk/ocr"
)

// OpKind names a recorded drawing operation.
type OpKind string

const (
	OpStroke OpKind = "stroke"
	OpFill   OpKind = "fill"
	OpText   OpKind = "text"
)

// Op is one drawing call captured by a Recorder.
type Op struct {
	Kind      OpKind
	Rect      ocr.Region
	LineWidth float64
	Text      string
	X, Y      float64
	Color     color.Color
}

// Recorder is a Surface that keeps a log of drawing calls.
type Recorder struct {
	Size   Size
	Ops    []Op
	Resets int
}

func (r *Recorder) Reset(size Size) {
	r.Size = size
	r.Ops = nil
	r.Resets++
}

func (r *Recorder) StrokeRect(rect ocr.Region, c color.Color, width float64) {
	r.Ops = append(r.Ops, Op{Kind: OpStroke, Rect: rect, LineWidth: width, Color: c})
}

func (r *Recorder) FillRect(rect ocr.Region, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpFill, Rect: rect, Color: c})
}

func (r *Recorder) DrawText(text string, x, y float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpText, Text: text, X: x, Y: y, Color: c})
}

// Boxes returns the stroked rectangles in draw order.
func (r *Recorder) Boxes() []ocr.Region {
	var out []ocr.Region
	for _, op := range r.Ops {
		if op.Kind == OpStroke {
			out = append(out, op.Rect)
		}
	}
	return out
}

// Labels returns the drawn label texts in draw order.
func (r *Recorder) Labels() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

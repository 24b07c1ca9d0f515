// Package coords provides the scale transform used to reproject pixel
// coordinates from an image's natural resolution onto its displayed size.
package coords

import (
	"errors"

	"github.com/wudi/ocrdesk/ocr"
)

// Matrix is an affine transform [a b c d e f] mapping (x, y) to
// (a*x + c*y + e, b*x + d*y + f).
type Matrix [6]float64

func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// TransformRegion maps an axis-aligned region. Only scale and translation
// components are honoured; the result keeps the region's orientation.
func (m Matrix) TransformRegion(r ocr.Region) ocr.Region {
	return ocr.Region{
		X:      m[0]*r.X + m[2]*r.Y + m[4],
		Y:      m[1]*r.X + m[3]*r.Y + m[5],
		Width:  r.Width * m[0],
		Height: r.Height * m[3],
	}
}

// ErrZeroSize is returned when a fit is requested against an empty source.
var ErrZeroSize = errors.New("source size must be positive")

// Fit returns the scale transform from a natural size onto a displayed size.
func Fit(naturalW, naturalH, displayedW, displayedH float64) (Matrix, error) {
	if naturalW <= 0 || naturalH <= 0 {
		return Matrix{}, ErrZeroSize
	}
	return Scale(displayedW/naturalW, displayedH/naturalH), nil
}

// Package fonts supplies the face and metrics used to draw overlay labels.
// The Go Bold font is embedded, so no system fonts are needed.
package fonts

import (
	"fmt"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error
)

func parsedBold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
		if boldErr != nil {
			boldErr = fmt.Errorf("parse label font: %w", boldErr)
		}
	})
	return boldFont, boldErr
}

// LabelFace returns a bold face of the given pixel size. The face is not safe
// for concurrent use; callers create one per surface.
func LabelFace(size float64) (xfont.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid label size %v", size)
	}
	f, err := parsedBold()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: xfont.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new label face: %w", err)
	}
	return face, nil
}

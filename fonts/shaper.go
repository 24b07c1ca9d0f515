package fonts

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/math/fixed"
)

var (
	shapeMu   sync.Mutex
	shapeFace *gofont.Face
	shaper    shaping.HarfbuzzShaper
)

// LabelAdvance returns the shaped advance width of text, in pixels, when set
// in the label font at the given size.
func LabelAdvance(text string, size float64) (float64, error) {
	if text == "" {
		return 0, nil
	}
	shapeMu.Lock()
	defer shapeMu.Unlock()
	if shapeFace == nil {
		face, err := gofont.ParseTTF(bytes.NewReader(gobold.TTF))
		if err != nil {
			return 0, fmt.Errorf("parse label font: %w", err)
		}
		shapeFace = face
	}
	runes := []rune(text)
	out := shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      shapeFace,
		Size:      fixed.Int26_6(size * 64),
		Script:    language.Latin,
		Language:  language.DefaultLanguage(),
	})
	var adv fixed.Int26_6
	for _, g := range out.Glyphs {
		adv += g.XAdvance
	}
	return float64(adv) / 64.0, nil
}

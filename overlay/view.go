package overlay

import (
	"sync"

	"github.com/wudi/ocrdesk/ocr"
)

// View keeps an overlay in step with its page image. It redraws when the
// detail record changes, when the display is resized, and when the image
// finishes loading. Redraws requested before the natural size is known are
// deferred until ImageLoaded.
type View struct {
	mu        sync.Mutex
	renderer  *Renderer
	surface   Surface
	detail    *ocr.DetailRecord
	natural   Size
	displayed Size
	pending   bool
	drawn     int
}

// NewView binds a renderer to a surface.
func NewView(r *Renderer, s Surface) *View {
	if r == nil {
		r = NewRenderer()
	}
	return &View{renderer: r, surface: s}
}

// SetDetail replaces the record whose blocks are drawn.
func (v *View) SetDetail(d ocr.DetailRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.detail = &d
	return v.redrawLocked()
}

// Resize records a new displayed size.
func (v *View) Resize(displayed Size) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.displayed = displayed
	return v.redrawLocked()
}

// ImageLoaded records the sizes of a freshly loaded image and performs any
// deferred redraw.
func (v *View) ImageLoaded(natural, displayed Size) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.natural = natural
	v.displayed = displayed
	return v.redrawLocked()
}

// ImageUnloaded forgets the natural size while a new image source loads.
func (v *View) ImageUnloaded() {
	v.mu.Lock()
	v.natural = Size{}
	v.mu.Unlock()
}

// Pending reports whether a redraw is waiting for the image.
func (v *View) Pending() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending
}

// Drawn returns the number of boxes in the last completed draw.
func (v *View) Drawn() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.drawn
}

func (v *View) redrawLocked() error {
	if v.detail == nil {
		return nil
	}
	if !v.natural.Ready() {
		v.pending = true
		return nil
	}
	n, err := v.renderer.Render(v.surface, *v.detail, v.displayed, v.natural)
	if err != nil {
		return err
	}
	v.pending = false
	v.drawn = n
	return nil
}

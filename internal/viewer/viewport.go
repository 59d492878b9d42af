// Package viewer holds the per-document viewport state: current page, target
// bounding boxes, zoom and the last-rendered page size. One View belongs to
// one document view for its lifetime and is passed explicitly to whatever
// renders it; nothing here is ambient or process-wide.
package viewer

import (
	"sync"

	"github.com/planscope/planscope/internal/coords"
	"github.com/planscope/planscope/internal/models"
)

// Viewport is a snapshot of the view's transient state.
type Viewport struct {
	Page    int           `json:"page"`
	Boxes   []models.BBox `json:"boxes,omitempty"`
	Zoom    *float64      `json:"zoom,omitempty"`
	PdfSize *coords.Size  `json:"pdfSize,omitempty"`
}

// View owns one document's viewport. Page is 1-indexed; the target boxes and
// zoom reset whenever the displayed page changes, and the page size is only
// known after the page has rendered.
type View struct {
	mu          sync.Mutex
	page        int
	boxes       []models.BBox
	zoom        *float64
	pdfSize     *coords.Size
	jumpEnabled bool
}

// NewView starts at page 1 with jump-to-position enabled.
func NewView() *View {
	return &View{page: 1, jumpEnabled: true}
}

// Page returns the current 1-indexed page.
func (v *View) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// SetPage switches pages and resets the page-scoped state: target boxes,
// explicit zoom and the rendered page size.
func (v *View) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if page == v.page {
		return
	}
	v.page = page
	v.boxes = nil
	v.zoom = nil
	v.pdfSize = nil
}

// SetPdfSize records the rendered page's native size in PDF units.
func (v *View) SetPdfSize(s coords.Size) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pdfSize = &s
}

// SetZoom switches to an explicit zoom scale, dropping any auto-fit target.
func (v *View) SetZoom(scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = &scale
	v.boxes = nil
}

// SetJumpEnabled toggles the hover jump-to-position mode.
func (v *View) SetJumpEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jumpEnabled = enabled
}

// Hover handles a table-row hover carrying the hovered instances' page and
// boxes. With jump-to-position enabled it switches pages and adopts the boxes
// as the auto-fit target; disabled, it leaves the viewport untouched.
func (v *View) Hover(page int, boxes ...models.BBox) {
	v.mu.Lock()
	jump := v.jumpEnabled
	v.mu.Unlock()
	if !jump || len(boxes) == 0 {
		return
	}
	v.SetPage(page)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.boxes = append([]models.BBox(nil), boxes...)
	v.zoom = nil
}

// Snapshot returns a copy of the current viewport.
func (v *View) Snapshot() Viewport {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := Viewport{Page: v.page}
	out.Boxes = append([]models.BBox(nil), v.boxes...)
	if v.zoom != nil {
		z := *v.zoom
		out.Zoom = &z
	}
	if v.pdfSize != nil {
		s := *v.pdfSize
		out.PdfSize = &s
	}
	return out
}

// Fit computes the viewport placement for the given on-screen width. With an
// explicit zoom it scales the page directly; otherwise it auto-fits the
// target boxes. ok is false, and the current viewport stands, when the page
// size or target is not yet known.
func (v *View) Fit(viewportWidth float64) (coords.Fit, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pdfSize == nil || !v.pdfSize.Valid() {
		return coords.Fit{}, false
	}
	if v.zoom != nil {
		scale := *v.zoom
		if scale <= 0 {
			return coords.Fit{}, false
		}
		return coords.Fit{
			Canvas: coords.Size{Width: v.pdfSize.Width * scale, Height: v.pdfSize.Height * scale},
			Page:   *v.pdfSize,
			Scale:  scale,
		}, true
	}
	return coords.FitToBoxes(v.boxes, *v.pdfSize, viewportWidth)
}

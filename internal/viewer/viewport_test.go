package viewer

import (
	"reflect"
	"testing"

	"github.com/planscope/planscope/internal/coords"
	"github.com/planscope/planscope/internal/models"
)

func TestNewViewDefaults(t *testing.T) {
	v := NewView()
	if v.Page() != 1 {
		t.Errorf("initial page = %d, want 1", v.Page())
	}
	if _, ok := v.Fit(800); ok {
		t.Error("Fit must be a no-op before the page size is known")
	}
}

func TestSetPageResetsPageScopedState(t *testing.T) {
	v := NewView()
	v.SetPdfSize(coords.Size{Width: 612, Height: 792})
	v.SetZoom(2)
	v.Hover(1, models.BBox{0, 0, 10, 10})

	v.SetPage(2)
	snap := v.Snapshot()
	if snap.Page != 2 {
		t.Errorf("page = %d, want 2", snap.Page)
	}
	if len(snap.Boxes) != 0 || snap.Zoom != nil || snap.PdfSize != nil {
		t.Errorf("page switch must reset boxes, zoom and pdf size: %+v", snap)
	}
}

func TestSetPageSamePageKeepsState(t *testing.T) {
	v := NewView()
	v.SetPdfSize(coords.Size{Width: 612, Height: 792})
	v.SetZoom(1.5)

	v.SetPage(1)
	snap := v.Snapshot()
	if snap.Zoom == nil || snap.PdfSize == nil {
		t.Error("re-selecting the current page must not reset anything")
	}
}

func TestHoverJumpsToInstancePage(t *testing.T) {
	v := NewView()
	v.SetPdfSize(coords.Size{Width: 612, Height: 792})

	// Hovering a row whose instance sits on page 3 switches pages and adopts
	// the instance bbox as the fit target.
	box := models.BBox{10, 20, 110, 220}
	v.Hover(3, box)
	if v.Page() != 3 {
		t.Fatalf("page = %d, want 3 after hover", v.Page())
	}

	// The new page renders, reporting its size, and the fit frames the box.
	pdf := coords.Size{Width: 612, Height: 792}
	v.SetPdfSize(pdf)
	fit, ok := v.Fit(800)
	if !ok {
		t.Fatal("expected a computed fit")
	}
	want, _ := coords.FitToBoxes([]models.BBox{box}, pdf, 800)
	if !reflect.DeepEqual(fit, want) {
		t.Errorf("fit = %+v, want the auto-fit for the hovered box %+v", fit, want)
	}
	if fit.ScrollLeft < 0 || fit.ScrollTop < 0 {
		t.Errorf("scroll offsets must not be negative: %+v", fit)
	}
}

func TestHoverDisabledLeavesViewportAlone(t *testing.T) {
	v := NewView()
	v.SetPdfSize(coords.Size{Width: 612, Height: 792})
	v.SetJumpEnabled(false)

	v.Hover(5, models.BBox{1, 2, 3, 4})
	snap := v.Snapshot()
	if snap.Page != 1 || len(snap.Boxes) != 0 {
		t.Errorf("disabled jump must not move the viewport: %+v", snap)
	}
}

func TestHoverSamePageReplacesTarget(t *testing.T) {
	v := NewView()
	pdf := coords.Size{Width: 612, Height: 792}
	v.SetPdfSize(pdf)

	v.Hover(1, models.BBox{0, 0, 50, 50})
	v.Hover(1, models.BBox{100, 100, 200, 200})

	snap := v.Snapshot()
	if snap.PdfSize == nil {
		t.Fatal("same-page hover must keep the rendered page size")
	}
	if len(snap.Boxes) != 1 || snap.Boxes[0] != (models.BBox{100, 100, 200, 200}) {
		t.Errorf("boxes = %v, want only the latest hover target", snap.Boxes)
	}
}

func TestExplicitZoomOverridesAutoFit(t *testing.T) {
	v := NewView()
	pdf := coords.Size{Width: 600, Height: 800}
	v.SetPdfSize(pdf)
	v.Hover(1, models.BBox{10, 10, 20, 20})

	v.SetZoom(2)
	fit, ok := v.Fit(800)
	if !ok {
		t.Fatal("expected a fit under explicit zoom")
	}
	if fit.Scale != 2 || fit.Canvas.Width != 1200 || fit.Canvas.Height != 1600 {
		t.Errorf("explicit zoom fit = %+v, want scale 2 over the native size", fit)
	}
	if snap := v.Snapshot(); len(snap.Boxes) != 0 {
		t.Error("explicit zoom must clear the auto-fit target")
	}
}

func TestFitNoTargetBoxes(t *testing.T) {
	v := NewView()
	v.SetPdfSize(coords.Size{Width: 612, Height: 792})
	if _, ok := v.Fit(800); ok {
		t.Error("no zoom and no target boxes should yield no fit")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	v := NewView()
	v.SetPdfSize(coords.Size{Width: 612, Height: 792})
	v.Hover(1, models.BBox{0, 0, 10, 10})

	snap := v.Snapshot()
	snap.Boxes[0][2] = 999
	*snap.PdfSize = coords.Size{}

	fresh := v.Snapshot()
	if fresh.Boxes[0][2] != 10 || fresh.PdfSize.Width != 612 {
		t.Error("mutating a snapshot must not affect the view")
	}
}

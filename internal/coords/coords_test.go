package coords

import (
	"math"
	"testing"

	"github.com/planscope/planscope/internal/models"
)

func TestMapPointFlipsVerticalAxis(t *testing.T) {
	pdf := Size{Width: 612, Height: 792}
	canvas := Size{Width: 1224, Height: 1584}

	// Bottom-left of the page lands at the bottom-left of the raster.
	got := MapPoint(Point{X: 0, Y: 0}, canvas, pdf)
	if got.X != 0 || got.Y != canvas.Height {
		t.Errorf("origin mapped to (%v, %v), want (0, %v)", got.X, got.Y, canvas.Height)
	}

	// Top-right of the page lands at the top-right of the raster.
	got = MapPoint(Point{X: pdf.Width, Y: pdf.Height}, canvas, pdf)
	if got.X != canvas.Width || got.Y != 0 {
		t.Errorf("top-right mapped to (%v, %v), want (%v, 0)", got.X, got.Y, canvas.Width)
	}
}

func TestMapPointRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		pdf    Size
		canvas Size
		p      Point
	}{
		{"letter portrait", Size{612, 792}, Size{918, 1188}, Point{100.5, 320.25}},
		{"wide plan sheet", Size{2592, 1728}, Size{1000, 666.6}, Point{2591.9, 0.1}},
		{"downscaled", Size{612, 792}, Size{61.2, 79.2}, Point{306, 396}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapPoint(tc.p, tc.canvas, tc.pdf)
			back := UnmapPoint(mapped, tc.canvas, tc.pdf)
			if math.Abs(back.X-tc.p.X) > 1e-9 || math.Abs(back.Y-tc.p.Y) > 1e-9 {
				t.Errorf("round trip of %+v gave %+v", tc.p, back)
			}
		})
	}
}

func TestUnion(t *testing.T) {
	boxes := []models.BBox{
		{10, 20, 110, 220},
		{5, 40, 90, 400},
		{50, 10, 300, 100},
	}
	union, ok := Union(boxes)
	if !ok {
		t.Fatal("Union returned ok=false for non-empty input")
	}
	want := models.BBox{5, 10, 300, 400}
	if union != want {
		t.Errorf("Union = %v, want %v", union, want)
	}

	if _, ok := Union(nil); ok {
		t.Error("Union of no boxes should report ok=false")
	}
}

func TestFitToBoxesFramesBox(t *testing.T) {
	pdf := Size{Width: 612, Height: 792}
	boxes := []models.BBox{{10, 20, 110, 220}}
	const viewportWidth = 800.0

	fit, ok := FitToBoxes(boxes, pdf, viewportWidth)
	if !ok {
		t.Fatal("FitToBoxes returned ok=false")
	}

	// The box's 100-unit width should span the viewport width.
	wantCanvasWidth := math.Round(pdf.Width * viewportWidth / 100)
	if fit.Canvas.Width != wantCanvasWidth {
		t.Errorf("canvas width = %v, want %v", fit.Canvas.Width, wantCanvasWidth)
	}

	// Scroll places the box's top-left at the viewport origin.
	topLeft := MapPoint(Point{X: 10, Y: 220}, fit.Canvas, pdf)
	if fit.ScrollLeft != topLeft.X || fit.ScrollTop != topLeft.Y {
		t.Errorf("scroll = (%v, %v), want (%v, %v)", fit.ScrollLeft, fit.ScrollTop, topLeft.X, topLeft.Y)
	}
}

func TestFitToBoxesClampsZoom(t *testing.T) {
	pdf := Size{Width: 612, Height: 792}

	// A 1-unit box would need a huge scale; the canvas must stay capped.
	fit, ok := FitToBoxes([]models.BBox{{10, 10, 11, 11}}, pdf, 1600)
	if !ok {
		t.Fatal("FitToBoxes returned ok=false")
	}
	if fit.Canvas.Width > pdf.Width*MaxZoomFactor {
		t.Errorf("canvas width %v exceeds cap %v", fit.Canvas.Width, pdf.Width*MaxZoomFactor)
	}

	// Degenerate zero-width box hits the cap directly.
	fit, ok = FitToBoxes([]models.BBox{{50, 50, 50, 50}}, pdf, 1600)
	if !ok {
		t.Fatal("FitToBoxes returned ok=false for zero-width box")
	}
	if fit.Canvas.Width != pdf.Width*MaxZoomFactor {
		t.Errorf("canvas width = %v, want cap %v", fit.Canvas.Width, pdf.Width*MaxZoomFactor)
	}
}

func TestFitToBoxesNeverScrollsNegative(t *testing.T) {
	pdf := Size{Width: 612, Height: 792}
	cases := [][]models.BBox{
		{{0, 700, 600, 792}}, // top edge
		{{0, 0, 10, 10}},     // bottom-left corner
		{{0, 780, 612, 792}}, // full-width strip at the top
		{{-5, -5, 20, 20}},   // slightly out of page bounds
	}
	for _, boxes := range cases {
		fit, ok := FitToBoxes(boxes, pdf, 500)
		if !ok {
			t.Fatalf("FitToBoxes(%v) returned ok=false", boxes)
		}
		if fit.ScrollLeft < 0 || fit.ScrollTop < 0 {
			t.Errorf("FitToBoxes(%v) scroll = (%v, %v), want non-negative", boxes, fit.ScrollLeft, fit.ScrollTop)
		}
	}
}

func TestFitToBoxesIdempotent(t *testing.T) {
	pdf := Size{Width: 2592, Height: 1728}
	boxes := []models.BBox{{100, 200, 400, 500}, {350, 180, 600, 420}}

	first, ok1 := FitToBoxes(boxes, pdf, 1200)
	second, ok2 := FitToBoxes(boxes, pdf, 1200)
	if !ok1 || !ok2 {
		t.Fatal("FitToBoxes returned ok=false")
	}
	if first != second {
		t.Errorf("identical inputs produced different fits: %+v vs %+v", first, second)
	}
}

func TestFitToBoxesMissingInputsIsNoOp(t *testing.T) {
	if _, ok := FitToBoxes(nil, Size{612, 792}, 800); ok {
		t.Error("expected ok=false with no boxes")
	}
	if _, ok := FitToBoxes([]models.BBox{{0, 0, 10, 10}}, Size{}, 800); ok {
		t.Error("expected ok=false with no page size")
	}
	if _, ok := FitToBoxes([]models.BBox{{0, 0, 10, 10}}, Size{612, 792}, 0); ok {
		t.Error("expected ok=false with no viewport width")
	}
}

func TestOutlinesAreScrollRelative(t *testing.T) {
	pdf := Size{Width: 612, Height: 792}
	boxes := []models.BBox{{10, 20, 110, 220}, {200, 300, 250, 340}}

	fit, ok := FitToBoxes(boxes, pdf, 800)
	if !ok {
		t.Fatal("FitToBoxes returned ok=false")
	}
	outlines := fit.Outlines(boxes)
	if len(outlines) != len(boxes) {
		t.Fatalf("got %d outlines, want %d", len(outlines), len(boxes))
	}
	for i, o := range outlines {
		if o[0] > o[2] || o[1] > o[3] {
			t.Errorf("outline %d is inverted: %v", i, o)
		}
	}

	// The union's top-left outline corner coincides with the viewport origin.
	union, _ := Union(boxes)
	unionOutline := fit.Outlines([]models.BBox{union})[0]
	if math.Abs(unionOutline[0]) > 1e-9 || math.Abs(unionOutline[1]) > 1e-9 {
		t.Errorf("union outline top-left = (%v, %v), want origin", unionOutline[0], unionOutline[1])
	}
}

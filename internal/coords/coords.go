// Package coords translates between PDF user-space coordinates (origin
// bottom-left, y increasing upward) and on-screen raster coordinates (origin
// top-left, y increasing downward), and computes zoom/scroll viewports that
// frame element bounding boxes.
package coords

import (
	"math"

	"github.com/planscope/planscope/internal/models"
)

// MaxZoomFactor caps the rendered raster width at this multiple of the page's
// native width, so auto-fitting a tiny box cannot zoom without bound.
const MaxZoomFactor = 5

// FitMargin is subtracted from the computed scroll offsets so the framed box
// does not sit flush against the viewport edge. Offsets are clamped at zero.
const FitMargin = 0

// Size is a width/height pair, either in PDF units or raster pixels.
type Size struct {
	Width  float64
	Height float64
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

// Point is a coordinate in either space.
type Point struct {
	X float64
	Y float64
}

// MapPoint converts a PDF user-space point to raster pixels. The vertical
// flip must use the page's own height, not the canvas height.
func MapPoint(p Point, canvas, pdf Size) Point {
	return Point{
		X: p.X * canvas.Width / pdf.Width,
		Y: (pdf.Height - p.Y) * canvas.Height / pdf.Height,
	}
}

// UnmapPoint is the exact inverse of MapPoint.
func UnmapPoint(p Point, canvas, pdf Size) Point {
	return Point{
		X: p.X * pdf.Width / canvas.Width,
		Y: pdf.Height - p.Y*pdf.Height/canvas.Height,
	}
}

// MapBBox converts a PDF user-space bbox to a raster bbox
// [left, top, right, bottom]. The PDF box's top edge (yMax) becomes the raster
// top and its bottom edge (yMin) the raster bottom.
func MapBBox(b models.BBox, canvas, pdf Size) models.BBox {
	topLeft := MapPoint(Point{X: b[0], Y: b[3]}, canvas, pdf)
	bottomRight := MapPoint(Point{X: b[2], Y: b[1]}, canvas, pdf)
	return models.BBox{topLeft.X, topLeft.Y, bottomRight.X, bottomRight.Y}
}

// Union returns the bounding box covering every box in the slice. ok is false
// for an empty slice.
func Union(boxes []models.BBox) (union models.BBox, ok bool) {
	if len(boxes) == 0 {
		return models.BBox{}, false
	}
	union = boxes[0]
	for _, b := range boxes[1:] {
		union[0] = math.Min(union[0], b[0])
		union[1] = math.Min(union[1], b[1])
		union[2] = math.Max(union[2], b[2])
		union[3] = math.Max(union[3], b[3])
	}
	return union, true
}

// Fit is a computed viewport placement: the raster size the page should be
// rendered at and the scroll offsets that bring the target box to the
// viewport origin.
type Fit struct {
	Canvas     Size
	Page       Size
	Scale      float64
	ScrollLeft float64
	ScrollTop  float64
}

// FitToBoxes computes the viewport that frames the union of the given boxes
// within a viewport of the given pixel width. The raster width is capped at
// MaxZoomFactor times the page width and the scroll offsets never go
// negative. Identical inputs always produce an identical Fit. ok is false,
// leaving the caller's viewport untouched, when the page size or boxes are
// unavailable.
func FitToBoxes(boxes []models.BBox, pdf Size, viewportWidth float64) (fit Fit, ok bool) {
	union, ok := Union(boxes)
	if !ok || !pdf.Valid() || viewportWidth <= 0 {
		return Fit{}, false
	}

	canvasWidth := pdf.Width * MaxZoomFactor
	if w := union.Width(); w > 0 {
		canvasWidth = math.Min(canvasWidth, math.Round(pdf.Width*viewportWidth/w))
	}
	canvas := Size{
		Width:  canvasWidth,
		Height: pdf.Height * canvasWidth / pdf.Width,
	}

	topLeft := MapPoint(Point{X: union[0], Y: union[3]}, canvas, pdf)
	return Fit{
		Canvas:     canvas,
		Page:       pdf,
		Scale:      canvasWidth / pdf.Width,
		ScrollLeft: math.Max(topLeft.X-FitMargin, 0),
		ScrollTop:  math.Max(topLeft.Y-FitMargin, 0),
	}, true
}

// Outlines maps each box into scroll-relative raster coordinates so a
// multi-hit selection can be drawn as individual rectangles on top of the
// fitted viewport.
func (f Fit) Outlines(boxes []models.BBox) []models.BBox {
	out := make([]models.BBox, 0, len(boxes))
	for _, b := range boxes {
		mapped := MapBBox(b, f.Canvas, f.Page)
		out = append(out, models.BBox{
			mapped[0] - f.ScrollLeft,
			mapped[1] - f.ScrollTop,
			mapped[2] - f.ScrollLeft,
			mapped[3] - f.ScrollTop,
		})
	}
	return out
}

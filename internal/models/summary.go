package models

import (
	"encoding/json"
	"fmt"
)

// BBox is an axis-aligned bounding box [xMin, yMin, xMax, yMax] in PDF
// user-space units (origin bottom-left, y increasing upward).
type BBox [4]float64

// Width returns xMax - xMin.
func (b BBox) Width() float64 { return b[2] - b[0] }

// Height returns yMax - yMin.
func (b BBox) Height() float64 { return b[3] - b[1] }

// PdfElement is one detected drawing element (a door or window instance).
// Label may be empty when the detector found no tag text for the instance.
type PdfElement struct {
	Label      string `json:"label,omitempty"`
	BBox       BBox   `json:"bbox"`
	PageNumber int    `json:"pageNumber"`
}

// CategoryElements is the three-level mapping produced by the processing
// backend for one element category: page identifier -> tag/class ->
// element id -> detected instances.
type CategoryElements map[string]map[string]map[string][]PdfElement

// ScheduleTable is a manufacturer/architectural schedule extracted from the
// drawing set, used to cross-reference detected elements against catalog
// entries. The first column of each row is the row's element id.
type ScheduleTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// PdfSummaryJson is the structured processing result for one document.
type PdfSummaryJson struct {
	Doors          CategoryElements `json:"doors"`
	Windows        CategoryElements `json:"windows"`
	DoorSchedule   *ScheduleTable   `json:"doorSchedule,omitempty"`
	WindowSchedule *ScheduleTable   `json:"windowSchedule,omitempty"`
	HouseName      string           `json:"houseName,omitempty"`
	ArchitectName  string           `json:"architectName,omitempty"`
}

// PageDim records one page's native size in PDF units. The viewer needs it to
// map element bounding boxes onto rendered raster pixels.
type PageDim struct {
	Width  float64 `json:"width" firestore:"width"`
	Height float64 `json:"height" firestore:"height"`
}

// PdfSummaryRow mirrors the pdf_summary table. PdfSummary holds the result
// JSON as text and stays nil until the pipeline finishes; PageCount and
// PageDims are filled in by the ingest function when the upload lands.
type PdfSummaryRow struct {
	PdfID      string    `firestore:"pdf_id"`
	PdfName    string    `firestore:"pdf_name"`
	PdfSummary *string   `firestore:"pdf_summary"`
	PageCount  int       `firestore:"page_count,omitempty"`
	PageDims   []PageDim `firestore:"page_dims,omitempty"`
}

// Processed reports whether the result JSON has been written.
func (r PdfSummaryRow) Processed() bool { return r.PdfSummary != nil }

// PdfSummary is a decoded pdf_summary row. Summary is nil for rows whose
// result has not been written yet.
type PdfSummary struct {
	PdfID     string          `json:"pdfId"`
	PdfName   string          `json:"pdfName"`
	Summary   *PdfSummaryJson `json:"summary,omitempty"`
	PageCount int             `json:"pageCount,omitempty"`
	PageDims  []PageDim       `json:"pageDims,omitempty"`
}

// Decode parses the row's JSON-as-text summary field.
func (r PdfSummaryRow) Decode() (PdfSummary, error) {
	out := PdfSummary{
		PdfID:     r.PdfID,
		PdfName:   r.PdfName,
		PageCount: r.PageCount,
		PageDims:  r.PageDims,
	}
	if r.PdfSummary == nil {
		return out, nil
	}
	var summary PdfSummaryJson
	if err := json.Unmarshal([]byte(*r.PdfSummary), &summary); err != nil {
		return out, fmt.Errorf("failed to decode summary json for %s: %w", r.PdfID, err)
	}
	out.Summary = &summary
	return out, nil
}

// EncodeSummary serializes a result for storage in the pdf_summary text field.
func EncodeSummary(s PdfSummaryJson) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary json: %w", err)
	}
	return string(raw), nil
}

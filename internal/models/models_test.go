package models

import (
	"strings"
	"testing"
)

func TestHashBytesDeterministic(t *testing.T) {
	data := []byte("%PDF-1.4 minimal")
	a := HashBytes(data)
	b := HashBytes(data)
	if a != b {
		t.Errorf("same bytes hashed to %s and %s", a, b)
	}
	if len(a) != 64 || strings.ToLower(a) != a {
		t.Errorf("id %q is not a lowercase hex sha-256 digest", a)
	}
	if HashBytes([]byte("%PDF-1.4 other")) == a {
		t.Error("different bytes must not share an id")
	}
}

func TestNewDocumentIgnoresName(t *testing.T) {
	data := []byte("%PDF-1.4 content addressed")
	a := NewDocument("first.pdf", data)
	b := NewDocument("renamed.pdf", data)
	if a.PdfID != b.PdfID {
		t.Error("the id depends only on content, not the display name")
	}
	if b.PdfName != "renamed.pdf" {
		t.Errorf("pdfName = %q, want renamed.pdf", b.PdfName)
	}
}

func TestProcessingProgressStates(t *testing.T) {
	p := NewProcessingProgress("abc")
	if p.Terminal() || p.Succeeded() || p.Failed() {
		t.Errorf("fresh row must be non-terminal: %+v", p)
	}
	if p.CurrStep != 0 || p.TotalSteps != 1 {
		t.Errorf("fresh row = %+v, want currStep 0, totalSteps 1", p)
	}

	success := true
	p.Success = &success
	if !p.Terminal() || !p.Succeeded() || p.Failed() {
		t.Error("success=true must read as a committed success")
	}

	success = false
	if !p.Terminal() || p.Succeeded() || !p.Failed() {
		t.Error("success=false must read as a committed failure")
	}
}

func TestProcessingProgressPercent(t *testing.T) {
	cases := []struct {
		curr, total int
		want        float64
	}{
		{0, 4, 0},
		{1, 4, 25},
		{4, 4, 100},
		{5, 4, 100}, // never over 100 even if steps overshoot
		{1, 0, 0},   // unknown total reads as no progress
	}
	for _, tc := range cases {
		p := ProcessingProgress{CurrStep: tc.curr, TotalSteps: tc.total}
		if got := p.Percent(); got != tc.want {
			t.Errorf("Percent(%d/%d) = %v, want %v", tc.curr, tc.total, got, tc.want)
		}
	}
}

func TestSummaryRowDecode(t *testing.T) {
	raw, err := EncodeSummary(PdfSummaryJson{
		Doors: CategoryElements{
			"3": {"door": {"101": {{Label: "101A", BBox: BBox{10, 20, 110, 220}, PageNumber: 3}}}},
		},
		DoorSchedule: &ScheduleTable{
			Header: []string{"ID", "Type"},
			Rows:   [][]string{{"101", "Hinged"}},
		},
		HouseName: "Hillside Residence",
	})
	if err != nil {
		t.Fatal(err)
	}

	row := PdfSummaryRow{
		PdfID:      "abc",
		PdfName:    "plan.pdf",
		PdfSummary: &raw,
		PageCount:  12,
		PageDims:   []PageDim{{Width: 612, Height: 792}},
	}
	if !row.Processed() {
		t.Fatal("row with a summary must read as processed")
	}

	decoded, err := row.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Summary == nil {
		t.Fatal("expected a decoded summary")
	}
	if decoded.Summary.HouseName != "Hillside Residence" {
		t.Errorf("houseName = %q", decoded.Summary.HouseName)
	}
	got := decoded.Summary.Doors["3"]["door"]["101"]
	if len(got) != 1 || got[0].BBox != (BBox{10, 20, 110, 220}) {
		t.Errorf("doors round trip = %+v", got)
	}
	if decoded.PageCount != 12 || len(decoded.PageDims) != 1 {
		t.Errorf("page info lost in decode: %+v", decoded)
	}
}

func TestSummaryRowDecodeUnprocessed(t *testing.T) {
	row := PdfSummaryRow{PdfID: "abc", PdfName: "plan.pdf"}
	if row.Processed() {
		t.Fatal("row without a summary must not read as processed")
	}
	decoded, err := row.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Summary != nil {
		t.Error("unprocessed rows decode with a nil summary")
	}
}

func TestSummaryRowDecodeMalformed(t *testing.T) {
	bad := "{not json"
	row := PdfSummaryRow{PdfID: "abc", PdfSummary: &bad}
	if _, err := row.Decode(); err == nil {
		t.Error("expected a decode error for malformed summary text")
	}
}

func TestBBoxDimensions(t *testing.T) {
	b := BBox{10, 20, 110, 220}
	if b.Width() != 100 || b.Height() != 200 {
		t.Errorf("dims = %v x %v, want 100 x 200", b.Width(), b.Height())
	}
}

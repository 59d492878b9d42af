package summary

import (
	"reflect"
	"testing"

	"github.com/planscope/planscope/internal/models"
)

func elem(label string, page int) models.PdfElement {
	return models.PdfElement{Label: label, BBox: models.BBox{0, 0, 10, 10}, PageNumber: page}
}

func testCategory() models.CategoryElements {
	// The same element id shows up on two pages under different tags; the
	// flattened view must merge them under one id.
	return models.CategoryElements{
		"3": {
			"door": {
				"101": {elem("101A", 3), elem("101B", 3)},
				"102": {elem("102", 3)},
			},
		},
		"4": {
			"double door": {
				"101": {elem("101C", 4)},
			},
		},
		"10": {
			"door": {
				"103": {elem("103", 10)},
			},
		},
	}
}

func TestFlattenMergesAcrossPagesAndTags(t *testing.T) {
	flattened := Flatten(testCategory())

	if len(flattened) != 3 {
		t.Fatalf("got %d element ids, want 3", len(flattened))
	}
	if got := len(flattened["101"]); got != 3 {
		t.Errorf("id 101 has %d instances, want 3 summed across pages", got)
	}

	var pages []int
	for _, inst := range flattened["101"] {
		pages = append(pages, inst.PageNumber)
	}
	if !reflect.DeepEqual(pages, []int{3, 3, 4}) {
		t.Errorf("instance pages = %v, want [3 3 4]", pages)
	}
}

func TestCountMatchesFlattenedTotal(t *testing.T) {
	c := testCategory()
	total := Count(c)
	if total != 5 {
		t.Errorf("Count = %d, want 5", total)
	}

	flattenedTotal := 0
	for _, instances := range Flatten(c) {
		flattenedTotal += len(instances)
	}
	if total != flattenedTotal {
		t.Errorf("Count %d disagrees with flattened total %d", total, flattenedTotal)
	}
}

func TestPagesSortNumerically(t *testing.T) {
	got := Pages(testCategory())
	if !reflect.DeepEqual(got, []string{"3", "4", "10"}) {
		t.Errorf("Pages = %v, want [3 4 10]", got)
	}
}

func TestCrossReferenceDropsEmptyIds(t *testing.T) {
	table := &models.ScheduleTable{
		Header: []string{"ID", "Type", "Material"},
		Rows: [][]string{
			{"101", "Hinged", "Wood"},
			{"", "orphan row", "Steel"},
			{"999", "Sliding", "Glass"},
		},
	}
	rows := CrossReference(table, Flatten(testCategory()))

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 after dropping the empty id", len(rows))
	}
	if rows[0].ID != "101" || len(rows[0].Instances) != 3 {
		t.Errorf("row 101 = %+v, want 3 matched instances", rows[0])
	}
	if rows[1].ID != "999" || len(rows[1].Instances) != 0 {
		t.Errorf("row 999 should keep zero matches, got %+v", rows[1])
	}
}

func TestCrossReferenceNilTable(t *testing.T) {
	if rows := CrossReference(nil, nil); rows != nil {
		t.Errorf("expected nil rows for nil table, got %v", rows)
	}
}

func scheduleRow(id string, cells []string, labels ...string) ScheduleRow {
	row := ScheduleRow{ID: id, Cells: cells}
	for _, l := range labels {
		row.Instances = append(row.Instances, elem(l, 1))
	}
	return row
}

func TestGroupRowsBucketsBySelectedColumns(t *testing.T) {
	rows := []ScheduleRow{
		scheduleRow("101", []string{"101", "Hinged", "Wood"}, "b"),
		scheduleRow("102", []string{"102", "Sliding", "Wood"}, "a"),
		scheduleRow("103", []string{"103", "Hinged", "Wood"}, "c"),
	}
	groups := GroupRows(rows, []int{1})

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	// The Sliding bucket's only label "a" beats the Hinged bucket's "b".
	if !reflect.DeepEqual(groups[0].Key, []string{"Sliding"}) {
		t.Errorf("first group key = %v, want [Sliding]", groups[0].Key)
	}
	if len(groups[1].Rows) != 2 {
		t.Errorf("Hinged bucket has %d rows, want 2", len(groups[1].Rows))
	}

	instances := groups[1].Instances()
	if instances[0].Label != "b" || instances[1].Label != "c" {
		t.Errorf("bucket instances not label-sorted: %v", instances)
	}
}

func TestGroupRowsStableForEqualKeys(t *testing.T) {
	// Identical group key and identical labels: input order must survive.
	rows := []ScheduleRow{
		scheduleRow("201", []string{"201", "Fixed"}, "W1"),
		scheduleRow("202", []string{"202", "Fixed"}, "W1"),
		scheduleRow("203", []string{"203", "Fixed"}, "W1"),
	}
	groups := GroupRows(rows, []int{1})
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	var ids []string
	for _, row := range groups[0].Rows {
		ids = append(ids, row.ID)
	}
	if !reflect.DeepEqual(ids, []string{"201", "202", "203"}) {
		t.Errorf("row order = %v, want input order preserved", ids)
	}
}

func TestGroupRowsUnlabeledSortLast(t *testing.T) {
	rows := []ScheduleRow{
		scheduleRow("301", []string{"301", "A"}, ""),
		scheduleRow("302", []string{"302", "B"}, "w2"),
		scheduleRow("303", []string{"303", "C"}, ""),
	}
	groups := GroupRows(rows, []int{1})

	if !reflect.DeepEqual(groups[0].Key, []string{"B"}) {
		t.Errorf("labeled bucket should sort first, got %v", groups[0].Key)
	}
	// Both unlabeled buckets sort after the labeled one, in input order.
	if !reflect.DeepEqual(groups[1].Key, []string{"A"}) || !reflect.DeepEqual(groups[2].Key, []string{"C"}) {
		t.Errorf("unlabeled buckets out of order: %v, %v", groups[1].Key, groups[2].Key)
	}
}

func TestGroupRowsEmptyBucketsLast(t *testing.T) {
	rows := []ScheduleRow{
		scheduleRow("401", []string{"401", "AAA"}), // no instances at all
		scheduleRow("402", []string{"402", "ZZZ"}, "z9"),
	}
	groups := GroupRows(rows, []int{1})

	if groups[0].Key[0] != "ZZZ" {
		t.Errorf("non-empty bucket must sort first even with a later label, got %v", groups[0].Key)
	}
	if !groups[1].Empty() {
		t.Error("expected the AAA bucket to be empty")
	}
}

func TestBuildCategory(t *testing.T) {
	table := &models.ScheduleTable{
		Header: []string{"ID", "Type"},
		Rows:   [][]string{{"101", "Hinged"}, {"102", "Sliding"}},
	}
	view := BuildCategory(testCategory(), table, []int{1})

	if view.Total != 5 {
		t.Errorf("Total = %d, want 5", view.Total)
	}
	if len(view.Rows) != 2 {
		t.Errorf("got %d cross-referenced rows, want 2", len(view.Rows))
	}
	if len(view.Groups) != 2 {
		t.Errorf("got %d groups, want 2", len(view.Groups))
	}

	ungrouped := BuildCategory(testCategory(), table, nil)
	if ungrouped.Groups != nil {
		t.Error("no group-by selection should produce no groups")
	}
	bare := BuildCategory(testCategory(), nil, []int{1})
	if bare.Rows != nil || bare.Groups != nil {
		t.Error("categories without a schedule have no rows or groups")
	}
}

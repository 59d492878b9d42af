// Package summary turns the processing backend's nested element JSON into
// flattened, grouped rows for table display.
package summary

import (
	"sort"
	"strconv"
	"strings"

	"github.com/planscope/planscope/internal/models"
)

// labelSentinel sorts above every real label, so unlabeled instances and the
// groups that start with them always come last.
const labelSentinel = "\uffff"

func labelKey(e models.PdfElement) string {
	if e.Label == "" {
		return labelSentinel
	}
	return e.Label
}

// Flatten merges one category's page -> tag -> elementId -> instances mapping
// into elementId -> instances. The page and tag keys are dropped for row
// identity; every instance keeps its own page number and bbox, and
// multiplicities sum across pages.
func Flatten(c models.CategoryElements) map[string][]models.PdfElement {
	out := make(map[string][]models.PdfElement)
	pages := sortedKeys(c)
	for _, page := range pages {
		tags := sortedKeys(c[page])
		for _, tag := range tags {
			ids := sortedKeys(c[page][tag])
			for _, id := range ids {
				out[id] = append(out[id], c[page][tag][id]...)
			}
		}
	}
	return out
}

// Count is the recursive leaf-array count for a category, used as the
// displayed total.
func Count(c models.CategoryElements) int {
	total := 0
	for _, tags := range c {
		for _, ids := range tags {
			for _, elems := range ids {
				total += len(elems)
			}
		}
	}
	return total
}

// Pages lists the distinct page identifiers a category appears on, in
// ascending page order.
func Pages(c models.CategoryElements) []string {
	pages := sortedKeys(c)
	return pages
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		if aErr == nil && bErr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ScheduleRow is one schedule-table row paired with the detected instances
// sharing its id.
type ScheduleRow struct {
	ID        string
	Cells     []string
	Instances []models.PdfElement
}

// CrossReference pairs each schedule row with the flattened instances that
// share its id, which is the row's first column. Rows with an empty id are
// dropped; rows with no matching instances are kept with an empty match
// list. Instances within a row are sorted by label, unlabeled ones last,
// preserving input order between equal labels.
func CrossReference(table *models.ScheduleTable, flattened map[string][]models.PdfElement) []ScheduleRow {
	if table == nil {
		return nil
	}
	out := make([]ScheduleRow, 0, len(table.Rows))
	for _, cells := range table.Rows {
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		id := cells[0]
		instances := append([]models.PdfElement(nil), flattened[id]...)
		sort.SliceStable(instances, func(i, j int) bool {
			return labelKey(instances[i]) < labelKey(instances[j])
		})
		out = append(out, ScheduleRow{ID: id, Cells: cells, Instances: instances})
	}
	return out
}

// Group is a bucket of schedule rows sharing the same values in the selected
// group-by columns.
type Group struct {
	Key  []string
	Rows []ScheduleRow
}

// Instances collects the bucket's matched instances sorted by label,
// unlabeled ones last, stable across rows.
func (g Group) Instances() []models.PdfElement {
	var out []models.PdfElement
	for _, row := range g.Rows {
		out = append(out, row.Instances...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return labelKey(out[i]) < labelKey(out[j])
	})
	return out
}

// Empty reports a bucket with no matched instances at all.
func (g Group) Empty() bool {
	for _, row := range g.Rows {
		if len(row.Instances) > 0 {
			return false
		}
	}
	return true
}

// firstLabel is the bucket's sort key: the label its first instance would
// carry after the label sort, or the sentinel when the bucket is empty.
func (g Group) firstLabel() string {
	best := labelSentinel
	for _, row := range g.Rows {
		for _, inst := range row.Instances {
			if k := labelKey(inst); k < best {
				best = k
			}
		}
	}
	return best
}

// GroupRows buckets schedule rows by the concatenated values of the selected
// columns. Buckets are ordered by their first instance's label with unlabeled
// first-instances last; empty buckets sort after everything regardless of
// label. The sort is stable: rows with identical keys keep their relative
// input order, both within a bucket and across equal buckets.
func GroupRows(rows []ScheduleRow, groupBy []int) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, row := range rows {
		key := make([]string, 0, len(groupBy))
		for _, col := range groupBy {
			if col >= 0 && col < len(row.Cells) {
				key = append(key, row.Cells[col])
			} else {
				key = append(key, "")
			}
		}
		joined := strings.Join(key, "\x00")
		i, ok := index[joined]
		if !ok {
			i = len(groups)
			index[joined] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		gi, gj := groups[i], groups[j]
		if gi.Empty() != gj.Empty() {
			return !gi.Empty()
		}
		return gi.firstLabel() < gj.firstLabel()
	})
	return groups
}

// CategoryView is the assembled table model for one element category.
type CategoryView struct {
	Total  int                            `json:"total"`
	Pages  []string                       `json:"pages"`
	Groups []Group                        `json:"groups,omitempty"`
	Rows   []ScheduleRow                  `json:"rows,omitempty"`
	ByID   map[string][]models.PdfElement `json:"byId,omitempty"`
}

// BuildCategory flattens a category, cross-references its schedule when one
// is present, and applies the user's group-by column selection.
func BuildCategory(c models.CategoryElements, schedule *models.ScheduleTable, groupBy []int) CategoryView {
	flattened := Flatten(c)
	view := CategoryView{
		Total: Count(c),
		Pages: Pages(c),
		ByID:  flattened,
	}
	if schedule == nil {
		return view
	}
	view.Rows = CrossReference(schedule, flattened)
	if len(groupBy) > 0 {
		view.Groups = GroupRows(view.Rows, groupBy)
	}
	return view
}

// Package pipeline implements the progressive filter-and-aggregate pipeline
// that turns a raw POI table into the record sets and counts the dashboard
// displays. Every function is pure: inputs are never mutated and outputs are
// freshly allocated slices that share record pointers with their inputs.
package pipeline

import (
	"slices"
	"sort"

	"github.com/go-ports/poimap/internal/models"
)

// DefaultRows is the row count used when a selection does not request one.
const DefaultRows = 10

// ---------------------------------------------------------------------------
// Cleaning
// ---------------------------------------------------------------------------

// Clean drops every record whose latitude or longitude is missing.
// Relative order of the remaining records is preserved.
func Clean(raw models.RecordSet) models.RecordSet {
	out := make(models.RecordSet, 0, len(raw))
	for _, r := range raw {
		if r != nil && r.HasCoordinates() {
			out = append(out, r)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// CategoryOptions returns the sorted distinct non-null categories.
func CategoryOptions(records models.RecordSet) []string {
	return distinct(records, models.AttrCategory)
}

// StateOptions returns AllOption followed by the sorted distinct non-null states.
func StateOptions(records models.RecordSet) []string {
	return append([]string{models.AllOption}, distinct(records, models.AttrState)...)
}

// CityOptions returns AllOption followed by the sorted distinct non-null cities.
func CityOptions(records models.RecordSet) []string {
	return append([]string{models.AllOption}, distinct(records, models.AttrCity)...)
}

func distinct(records models.RecordSet, attr models.Attribute) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range records {
		v, ok := r.Value(attr)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Filters
// ---------------------------------------------------------------------------

// FilterByCategory keeps records whose category equals category exactly.
// There is no "all" choice for this dimension.
func FilterByCategory(records models.RecordSet, category string) models.RecordSet {
	return filterEq(records, models.AttrCategory, category)
}

// FilterByState keeps records whose state equals state; AllOption is the identity.
func FilterByState(records models.RecordSet, state string) models.RecordSet {
	if state == models.AllOption {
		return records
	}
	return filterEq(records, models.AttrState, state)
}

// FilterByCity keeps records whose city equals city; AllOption is the identity.
func FilterByCity(records models.RecordSet, city string) models.RecordSet {
	if city == models.AllOption {
		return records
	}
	return filterEq(records, models.AttrCity, city)
}

func filterEq(records models.RecordSet, attr models.Attribute, value string) models.RecordSet {
	out := make(models.RecordSet, 0, len(records))
	for _, r := range records {
		if v, ok := r.Value(attr); ok && v == value {
			out = append(out, r)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

// AggregateCounts groups records by attr and counts each group. Null keys are
// excluded. The result is ordered by descending count; equal counts keep the
// order in which their keys were first encountered.
func AggregateCounts(records models.RecordSet, attr models.Attribute) models.AggregateCount {
	index := make(map[string]int)
	counts := make(models.AggregateCount, 0)
	for _, r := range records {
		v, ok := r.Value(attr)
		if !ok {
			continue
		}
		if i, seen := index[v]; seen {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, models.Count{Key: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// ---------------------------------------------------------------------------
// Row limit and map centering
// ---------------------------------------------------------------------------

// RowLimit clamps requested into [1, len(selection)]. For an empty selection
// the range degenerates to the single value 1; callers render the empty table.
func RowLimit(selection models.RecordSet, requested int) int {
	n := len(selection)
	switch {
	case n == 0, requested < 1:
		return 1
	case requested > n:
		return n
	}
	return requested
}

// MapCenter returns the mean coordinate of selection. An empty selection falls
// back to the mean of dataset, and an empty dataset to models.DefaultCenter.
func MapCenter(selection, dataset models.RecordSet) (models.GeoPoint, models.CenterSource) {
	if p, ok := mean(selection); ok {
		return p, models.CenterSelection
	}
	if p, ok := mean(dataset); ok {
		return p, models.CenterDataset
	}
	return models.DefaultCenter, models.CenterDefault
}

func mean(records models.RecordSet) (models.GeoPoint, bool) {
	var lat, lon float64
	n := 0
	for _, r := range records {
		if !r.HasCoordinates() {
			continue
		}
		lat += *r.Latitude
		lon += *r.Longitude
		n++
	}
	if n == 0 {
		return models.GeoPoint{}, false
	}
	return models.GeoPoint{Lat: lat / float64(n), Lon: lon / float64(n)}, true
}

// ---------------------------------------------------------------------------
// Full run
// ---------------------------------------------------------------------------

// Result is the outcome of one pipeline run over a cleaned record set.
type Result struct {
	// Selection is the requested selection after resolution against the
	// options available at each stage.
	Selection models.FilterSelection
	// Reset lists the controls whose requested value was not a valid option.
	Reset []models.Attribute

	Categories []string
	States     []string // options after the category stage
	Cities     []string // options after the state stage

	ByCategory models.RecordSet
	ByState    models.RecordSet
	Records    models.RecordSet

	Center       models.GeoPoint
	CenterSource models.CenterSource
}

// Run applies the category, state and city stages in that fixed order to
// cleaned. Each stage's options are computed from the previous stage's
// output. An empty or unknown category resolves to the first category option;
// an empty state or city means AllOption, and an unknown one is reset to it.
func Run(cleaned models.RecordSet, sel models.FilterSelection) *Result {
	res := &Result{Selection: sel}

	res.Categories = CategoryOptions(cleaned)
	if !slices.Contains(res.Categories, sel.Category) {
		if sel.Category != "" {
			res.Reset = append(res.Reset, models.AttrCategory)
		}
		res.Selection.Category = ""
		if len(res.Categories) > 0 {
			res.Selection.Category = res.Categories[0]
		}
	}
	res.ByCategory = FilterByCategory(cleaned, res.Selection.Category)

	res.States = StateOptions(res.ByCategory)
	res.Selection.State = resolve(res.States, sel.State, models.AttrState, &res.Reset)
	res.ByState = FilterByState(res.ByCategory, res.Selection.State)

	res.Cities = CityOptions(res.ByState)
	res.Selection.City = resolve(res.Cities, sel.City, models.AttrCity, &res.Reset)
	res.Records = FilterByCity(res.ByState, res.Selection.City)

	requested := sel.Rows
	if requested <= 0 {
		requested = DefaultRows
	}
	res.Selection.Rows = RowLimit(res.Records, requested)
	res.Center, res.CenterSource = MapCenter(res.Records, cleaned)
	return res
}

func resolve(options []string, value string, attr models.Attribute, reset *[]models.Attribute) string {
	if value == "" {
		return models.AllOption
	}
	if !slices.Contains(options, value) {
		*reset = append(*reset, attr)
		return models.AllOption
	}
	return value
}

// Package models defines the core data types for the POI dashboard.
package models

// AllOption is the sentinel choice that disables the state or city filter.
const AllOption = "All"

// Well-known warehouse column names, in download order.
const (
	ColName      = "POI_NAME"
	ColCategory  = "CATEGORY_MAIN"
	ColCity      = "CITY"
	ColState     = "STATE"
	ColLatitude  = "LATITUDE"
	ColLongitude = "LONGITUDE"
)

// Columns lists the declared column order used by tables and CSV downloads.
var Columns = []string{ColName, ColCategory, ColCity, ColState, ColLatitude, ColLongitude}

// POIRecord is one row of the source table. Nil pointer fields are SQL NULLs.
type POIRecord struct {
	Name      string
	Category  *string
	City      *string
	State     *string
	Latitude  *float64
	Longitude *float64
	// Extra holds every other column of the row, keyed by column name.
	Extra map[string]any
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r *POIRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Value returns the attribute value of the record and whether it is non-null.
func (r *POIRecord) Value(attr Attribute) (string, bool) {
	var p *string
	switch attr {
	case AttrCategory:
		p = r.Category
	case AttrState:
		p = r.State
	case AttrCity:
		p = r.City
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// RecordSet is an ordered sequence of records sharing a common schema.
// Records are shared by pointer between sets and must not be mutated.
type RecordSet []*POIRecord

// Table is a RecordSet together with the ordered names of its pass-through columns.
type Table struct {
	Records      RecordSet
	ExtraColumns []string
}

// Attribute names a categorical column that can be filtered or counted.
type Attribute string

// Categorical attributes.
const (
	AttrCategory Attribute = "category"
	AttrState    Attribute = "state"
	AttrCity     Attribute = "city"
)

// ParseAttribute maps a user-supplied name to an Attribute.
func ParseAttribute(s string) (Attribute, bool) {
	switch Attribute(s) {
	case AttrCategory, AttrState, AttrCity:
		return Attribute(s), true
	}
	return "", false
}

// FilterSelection is the user's current control state. Category is required;
// State and City are either a value or AllOption.
type FilterSelection struct {
	Category string `json:"category"`
	State    string `json:"state"`
	City     string `json:"city"`
	Rows     int    `json:"rows"`
}

// Count is a single key of an AggregateCount.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AggregateCount maps categorical keys to record counts, ordered by
// descending count with ties in first-encountered order.
type AggregateCount []Count

// Total returns the sum of all counts.
func (a AggregateCount) Total() int {
	n := 0
	for _, c := range a {
		n += c.Count
	}
	return n
}

// Get returns the count for key, or 0 when absent.
func (a AggregateCount) Get(key string) int {
	for _, c := range a {
		if c.Key == key {
			return c.Count
		}
	}
	return 0
}

// GeoPoint is a WGS 84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CenterSource records which record set a map center was computed from.
type CenterSource string

// Map center sources.
const (
	CenterSelection CenterSource = "selection"
	CenterDataset   CenterSource = "dataset"
	CenterDefault   CenterSource = "default"
)

// DefaultCenter is the geographic center of the contiguous United States.
var DefaultCenter = GeoPoint{Lat: 39.8283, Lon: -98.5795}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Package dashboard assembles the already-computed structures the renderers
// display. Nothing here filters or aggregates: it only arranges the output of
// the pipeline.
package dashboard

import (
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/pipeline"
)

// Settings are the presentation defaults applied to every view.
type Settings struct {
	Zoom  int
	Pitch int
}

// DefaultSettings is the initial map view.
var DefaultSettings = Settings{Zoom: 10, Pitch: 40}

// Choices are the options offered by each control.
type Choices struct {
	Categories []string `json:"categories"`
	States     []string `json:"states"`
	Cities     []string `json:"cities"`
}

// RowLimit describes the row-count slider: its bounds and current value.
type RowLimit struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Value int `json:"value"`
}

// Row is one table row in the declared column order.
type Row struct {
	Name      string   `json:"POI_NAME"`
	Category  *string  `json:"CATEGORY_MAIN"`
	City      *string  `json:"CITY"`
	State     *string  `json:"STATE"`
	Latitude  *float64 `json:"LATITUDE"`
	Longitude *float64 `json:"LONGITUDE"`
}

// Table is the row-limited preview of the selection.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// MapView is the initial map state and the points to draw.
type MapView struct {
	Center       models.GeoPoint     `json:"center"`
	CenterSource models.CenterSource `json:"center_source"`
	Zoom         int                 `json:"zoom"`
	Pitch        int                 `json:"pitch"`
	Features     FeatureCollection   `json:"features"`
}

// View is everything a renderer needs for one pipeline run.
type View struct {
	Selection      models.FilterSelection `json:"selection"`
	Reset          []models.Attribute     `json:"reset,omitempty"`
	Options        Choices                `json:"options"`
	Count          int                    `json:"count"`
	Empty          bool                   `json:"empty"`
	RowLimit       RowLimit               `json:"row_limit"`
	Table          Table                  `json:"table"`
	Map            MapView                `json:"map"`
	CategoryCounts models.AggregateCount  `json:"category_counts"`
	StateCounts    models.AggregateCount  `json:"state_counts"`

	// Records is the full selection, used for downloads.
	Records models.RecordSet `json:"-"`
}

// Build arranges res and the dataset-wide counts into a View.
func Build(res *pipeline.Result, byCategory, byState models.AggregateCount, s Settings) *View {
	n := len(res.Records)
	v := &View{
		Selection: res.Selection,
		Reset:     res.Reset,
		Options: Choices{
			Categories: res.Categories,
			States:     res.States,
			Cities:     res.Cities,
		},
		Count: n,
		Empty: n == 0,
		RowLimit: RowLimit{
			Min:   1,
			Max:   max(n, 1),
			Value: res.Selection.Rows,
		},
		Map: MapView{
			Center:       res.Center,
			CenterSource: res.CenterSource,
			Zoom:         s.Zoom,
			Pitch:        s.Pitch,
			Features:     Features(res.Records),
		},
		CategoryCounts: byCategory,
		StateCounts:    byState,
		Records:        res.Records,
	}
	v.Table = buildTable(res.Records, res.Selection.Rows)
	return v
}

func buildTable(rs models.RecordSet, limit int) Table {
	t := Table{Columns: models.Columns, Rows: make([]Row, 0, min(limit, len(rs)))}
	for _, r := range rs {
		if len(t.Rows) == limit {
			break
		}
		t.Rows = append(t.Rows, Row{
			Name:      r.Name,
			Category:  r.Category,
			City:      r.City,
			State:     r.State,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return t
}

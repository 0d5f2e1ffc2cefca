package dashboard_test

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/poimap/internal/checkers"
	"github.com/go-ports/poimap/internal/dashboard"
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/pipeline"
)

func poi(name, category, city, state string, lat, lon float64) *models.POIRecord {
	return &models.POIRecord{
		Name:      name,
		Category:  models.Str(category),
		City:      models.Str(city),
		State:     models.Str(state),
		Latitude:  models.Float(lat),
		Longitude: models.Float(lon),
	}
}

func dataset() models.RecordSet {
	return models.RecordSet{
		poi("Joe's Diner", "Restaurant", "Austin", "TX", 30.26, -97.74),
		poi("Bean There", "Cafe", "Denver", "CO", 39.74, -104.99),
		poi("Lone Star Grill", "Restaurant", "Dallas", "TX", 32.78, -96.80),
		poi("Cafe Luna", "Cafe", "Austin", "TX", 30.27, -97.75),
		poi("Golden Gate Eats", "Restaurant", "San Francisco", "CA", 37.77, -122.42),
	}
}

func build(rs models.RecordSet, sel models.FilterSelection) *dashboard.View {
	res := pipeline.Run(rs, sel)
	return dashboard.Build(res,
		pipeline.AggregateCounts(rs, models.AttrCategory),
		pipeline.AggregateCounts(rs, models.AttrState),
		dashboard.DefaultSettings)
}

func TestBuild_HappyPath(t *testing.T) {
	c := qt.New(t)

	v := build(dataset(), models.FilterSelection{Category: "Restaurant", Rows: 2})

	c.Assert(v.Count, qt.Equals, 3)
	c.Assert(v.Empty, qt.IsFalse)
	c.Assert(v.RowLimit, qt.DeepEquals, dashboard.RowLimit{Min: 1, Max: 3, Value: 2})
	c.Assert(v.Table.Columns, qt.DeepEquals, models.Columns)
	c.Assert(v.Table.Rows, qt.HasLen, 2)
	c.Assert(v.Table.Rows[0].Name, qt.Equals, "Joe's Diner")
	c.Assert(v.Records, qt.HasLen, 3)
	c.Assert(v.Map.Zoom, qt.Equals, 10)
	c.Assert(v.Map.Pitch, qt.Equals, 40)
	c.Assert(v.Map.CenterSource, qt.Equals, models.CenterSelection)
	c.Assert(v.Map.Features.Features, qt.HasLen, 3)
	c.Assert(v.Options.States, qt.DeepEquals, []string{"All", "CA", "TX"})
	c.Assert(v.CategoryCounts.Get("Cafe"), qt.Equals, 2)
	c.Assert(v.StateCounts.Get("TX"), qt.Equals, 3)
}

func TestBuild_EmptySelection(t *testing.T) {
	c := qt.New(t)

	v := build(models.RecordSet{}, models.FilterSelection{Category: "Cafe"})

	c.Assert(v.Empty, qt.IsTrue)
	c.Assert(v.Count, qt.Equals, 0)
	c.Assert(v.RowLimit, qt.DeepEquals, dashboard.RowLimit{Min: 1, Max: 1, Value: 1})
	c.Assert(v.Table.Rows, qt.HasLen, 0)
	c.Assert(v.Map.Center, qt.DeepEquals, models.DefaultCenter)
	c.Assert(v.Map.CenterSource, qt.Equals, models.CenterDefault)
	c.Assert(v.Map.Features.Features, qt.IsNotNil)
}

func TestBuild_JSONShape(t *testing.T) {
	c := qt.New(t)

	v := build(dataset(), models.FilterSelection{Category: "Restaurant", State: "TX", City: "Austin"})
	data, err := json.Marshal(v)
	c.Assert(err, qt.IsNil)

	var doc any
	c.Assert(json.Unmarshal(data, &doc), qt.IsNil)
	c.Assert(doc, checkers.JSONPathEquals("$.count"), float64(1))
	c.Assert(doc, checkers.JSONPathEquals("$.selection.city"), "Austin")
	c.Assert(doc, checkers.JSONPathEquals("$.table.rows[0].POI_NAME"), "Joe's Diner")
	c.Assert(doc, checkers.JSONPathEquals("$.map.features.type"), "FeatureCollection")
	c.Assert(doc, checkers.JSONPathEquals("$.map.features.features[0].geometry.coordinates"), []any{-97.74, 30.26})
	c.Assert(doc, checkers.JSONPathEquals("$.map.features.features[0].properties.category"), "Restaurant")
	c.Assert(doc, checkers.JSONPathEquals("$.category_counts[0].key"), "Restaurant")
}

func TestFeatures_SkipsMissingCoordinates(t *testing.T) {
	c := qt.New(t)

	fc := dashboard.Features(models.RecordSet{
		poi("a", "Cafe", "X", "Y", 1, 2),
		{Name: "no coords"},
	})
	c.Assert(fc.Type, qt.Equals, "FeatureCollection")
	c.Assert(fc.Features, qt.HasLen, 1)
	c.Assert(fc.Features[0].Geometry.Coordinates, qt.Equals, [2]float64{2, 1})
}

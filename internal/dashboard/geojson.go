package dashboard

import "github.com/go-ports/poimap/internal/models"

// FeatureCollection is a GeoJSON FeatureCollection of POI points.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON point feature.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Geometry is a GeoJSON Point. Coordinates are [longitude, latitude].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureProperties carries the fields shown in a marker tooltip.
type FeatureProperties struct {
	Name     string  `json:"name"`
	Category *string `json:"category"`
	City     *string `json:"city"`
	State    *string `json:"state"`
}

// Features converts rs to a FeatureCollection, skipping records without
// coordinates. An empty rs yields an empty, non-nil feature list.
func Features(rs models.RecordSet) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(rs))}
	for _, r := range rs {
		if !r.HasCoordinates() {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: [2]float64{*r.Longitude, *r.Latitude},
			},
			Properties: FeatureProperties{
				Name:     r.Name,
				Category: r.Category,
				City:     r.City,
				State:    r.State,
			},
		})
	}
	return fc
}

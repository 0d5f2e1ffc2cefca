// Package render draws dashboard views: distribution charts via go-chart and
// the HTML page via html/template.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/go-ports/poimap/internal/models"
)

// ErrUnknownChart is returned for a chart name not in ChartNames.
var ErrUnknownChart = errors.New("unknown chart")

// ErrUnknownFormat is returned for an image format other than svg or png.
var ErrUnknownFormat = errors.New("unknown chart format")

// Format is an image encoding.
type Format string

// Supported chart formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the media type of f.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatPNG {
		return chart.PNG
	}
	return chart.SVG
}

type chartSpec struct {
	title string
	attr  models.Attribute
	pie   bool
}

var charts = map[string]chartSpec{
	"category-bar": {title: "POI Category Distribution (All Data)", attr: models.AttrCategory},
	"category-pie": {title: "POIs by Category", attr: models.AttrCategory, pie: true},
	"state-bar":    {title: "POI Distribution by State (All Data)", attr: models.AttrState},
}

// ChartNames lists the available charts in sorted order.
func ChartNames() []string {
	names := make([]string, 0, len(charts))
	for name := range charts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChartAttribute returns the attribute whose counts chart name plots.
func ChartAttribute(name string) (models.Attribute, error) {
	spec, ok := charts[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
	return spec.attr, nil
}

const (
	chartHeight = 480
	minWidth    = 640
	barSlot     = 40
)

// barColor matches the marker color of the map layer.
var barColor = drawing.Color{R: 0, G: 128, B: 255, A: 255}

// Chart renders chart name from counts. Empty counts render a "no data"
// placeholder rather than failing.
func Chart(name string, counts models.AggregateCount, format Format) ([]byte, error) {
	spec, ok := charts[name]
	if !ok {
		return nil, fmt.Errorf("render.Chart: %w: %q", ErrUnknownChart, name)
	}
	if !slices.Contains([]Format{FormatSVG, FormatPNG}, format) {
		return nil, fmt.Errorf("render.Chart: %w: %q", ErrUnknownFormat, format)
	}

	var buf bytes.Buffer
	var err error
	if spec.pie {
		err = pieChart(spec.title, counts).Render(format.provider(), &buf)
	} else {
		err = barChart(spec.title, counts).Render(format.provider(), &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("render.Chart %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func barChart(title string, counts models.AggregateCount) chart.BarChart {
	bars := make([]chart.Value, 0, len(counts))
	top := 0
	for _, c := range counts {
		bars = append(bars, chart.Value{
			Label: c.Key,
			Value: float64(c.Count),
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
		top = max(top, c.Count)
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "no data", Value: 0})
	}
	return chart.BarChart{
		Title:      title,
		Width:      max(minWidth, len(bars)*barSlot+120),
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		BarWidth:   barSlot / 2,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(max(top, 1))},
		},
		Bars: bars,
	}
}

func pieChart(title string, counts models.AggregateCount) chart.PieChart {
	values := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			values = append(values, chart.Value{Label: c.Key, Value: float64(c.Count)})
		}
	}
	if len(values) == 0 {
		values = append(values, chart.Value{Label: "no data", Value: 1})
	}
	return chart.PieChart{
		Title:  title,
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}
}

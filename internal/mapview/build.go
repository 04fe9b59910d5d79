package mapview

import (
	"fmt"
	"html"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/geo"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/pkg/colorscale"
)

// Shape styles for demographic layers.
const (
	StyleCircle  = "circle"
	StylePolygon = "polygon"
	StyleSquare  = "square"
)

// Options controls BuildDemographicMap.
type Options struct {
	Title  string
	Region *region.Region
	// Style is circle, polygon or square. Polygon falls back to a square
	// cell for records without a boundary.
	Style  string
	Family colorscale.Family
	Caps   map[model.Metric]float64
	Tile   Tile

	SimplifyTolerance float64
	// SampleRate keeps every n-th record; values below 2 keep all.
	SampleRate   int
	CellSize     float64
	CircleRadius float64
	FillOpacity  float64
}

func (o *Options) defaults() {
	if o.Style == "" {
		o.Style = StylePolygon
	}
	if o.CellSize <= 0 {
		o.CellSize = 0.04
	}
	if o.CircleRadius <= 0 {
		o.CircleRadius = 3000
	}
	if o.FillOpacity <= 0 {
		o.FillOpacity = 0.7
	}
	if o.Tile.URL == "" {
		o.Tile = TileFor("")
	}
	if o.Title == "" {
		o.Title = "Demographics"
	}
}

// BuildDemographicMap adds one exclusive layer per metric present in
// records, then the region's location sets and outlines. Only the first
// metric layer starts visible. Ranges are computed over the full dataset
// before sampling.
func BuildDemographicMap(records []*model.Record, opts Options) (*Map, error) {
	opts.defaults()
	switch opts.Style {
	case StyleCircle, StylePolygon, StyleSquare:
	default:
		return nil, eris.Errorf("mapview: unknown style %q", opts.Style)
	}

	center, zoom := [2]float64{40.1, -74.9}, 9
	if opts.Region != nil {
		center, zoom = opts.Region.Center, opts.Region.Zoom
	}
	m := New(opts.Title, center, zoom, opts.Tile)

	sampled := sample(records, opts.SampleRate)
	var nearest []region.Point
	if opts.Region != nil && len(opts.Region.PointSets) > 0 {
		nearest = opts.Region.PointSets[0].Points
	}

	// Cached simplified shapes; the same geometry serves every metric.
	shapes := make(map[string]string, len(sampled))

	first := true
	for _, metric := range model.AllMetrics {
		rng, n := dataset.ColorRange(records, metric, opts.Caps)
		if n == 0 {
			continue
		}
		scale := colorscale.PresetOr(opts.Family, metric.Theme())
		kind := KindChoropleth
		if opts.Style == StyleCircle {
			kind = KindCircles
		}
		layer := m.AddLayer(metric.Label(), kind, first)
		layer.Exclusive = true
		first = false

		for _, r := range sampled {
			v, ok := r.Value(metric)
			if !ok {
				continue
			}
			color, err := scale.Color(v, rng)
			if err != nil {
				return nil, eris.Wrapf(err, "mapview: colour %s for %s", metric, r.ID)
			}
			tip := tooltip(r, metric, v, nearest)
			st := Style{Color: color, FillColor: color, Weight: 0, Opacity: 0, FillOpacity: opts.FillOpacity, Fill: true}

			if opts.Style == StyleCircle {
				if !r.HasPoint {
					continue
				}
				layer.Circles = append(layer.Circles, Circle{Lat: r.Lat, Lon: r.Lon, Radius: opts.CircleRadius, Style: st, Tooltip: tip})
				continue
			}

			gj, ok := shapes[r.ID]
			if !ok {
				gj = shapeFor(r, opts)
				shapes[r.ID] = gj
			}
			if gj == "" {
				continue
			}
			st.Color, st.Weight, st.Opacity = "#ffffff", 0.3, 0.5
			layer.Shapes = append(layer.Shapes, Shape{Geometry: []byte(gj), Style: st, Tooltip: tip})
		}

		legend, err := NewLegend(layer.ID, metric, scale, rng)
		if err != nil {
			return nil, eris.Wrapf(err, "mapview: legend for %s", metric)
		}
		m.Legends = append(m.Legends, legend)
	}

	if opts.Region != nil {
		AddPointSets(m, opts.Region.PointSets)
		AddOutlines(m, opts.Region.Outlines)
	}

	zap.L().Info("mapview: built map",
		zap.String("title", opts.Title),
		zap.Int("records", len(sampled)),
		zap.Int("layers", len(m.Layers)),
	)
	return m, nil
}

// shapeFor returns the GeoJSON drawn for a record, or "" when it has no
// usable geometry.
func shapeFor(r *model.Record, opts Options) string {
	g := r.Boundary
	switch {
	case g != nil && opts.Style == StylePolygon:
		if opts.SimplifyTolerance > 0 {
			g = geo.Simplify(g, opts.SimplifyTolerance)
		}
	case r.HasPoint:
		g = geo.SquareCell(r.Lat, r.Lon, opts.CellSize)
	case g != nil:
		// Square style without a point: centre the cell on the boundary.
		lat, lon, err := geo.Centroid(g)
		if err != nil {
			return ""
		}
		g = geo.SquareCell(lat, lon, opts.CellSize)
	default:
		return ""
	}

	s, err := geo.Encode(g)
	if err != nil {
		zap.L().Debug("mapview: skipping unencodable geometry", zap.String("id", r.ID), zap.Error(err))
		return ""
	}
	return s
}

func sample(records []*model.Record, rate int) []*model.Record {
	if rate < 2 {
		return records
	}
	out := make([]*model.Record, 0, len(records)/rate+1)
	for i := 0; i < len(records); i += rate {
		out = append(out, records[i])
	}
	return out
}

func tooltip(r *model.Record, metric model.Metric, v float64, nearest []region.Point) string {
	var b strings.Builder
	if r.City != "" {
		fmt.Fprintf(&b, "<b>%s</b><br>", html.EscapeString(r.City))
	}
	if r.Kind == model.KindTract {
		fmt.Fprintf(&b, "Tract %s<br>", html.EscapeString(r.ID))
	} else {
		fmt.Fprintf(&b, "ZIP: %s<br>", html.EscapeString(r.ID))
	}
	if r.County != "" {
		fmt.Fprintf(&b, "%s County, %s<br>", html.EscapeString(strings.TrimSuffix(r.County, " County")), html.EscapeString(r.State))
	}
	fmt.Fprintf(&b, "%s: %s", metric.Label(), FormatValue(metric.Format(), v))

	if len(nearest) > 0 {
		lat, lon, ok := r.Lat, r.Lon, r.HasPoint
		if !ok && r.Boundary != nil {
			var err error
			lat, lon, err = geo.Centroid(r.Boundary)
			ok = err == nil
		}
		if ok {
			pts := make([][2]float64, len(nearest))
			for i, p := range nearest {
				pts[i] = [2]float64{p.Lat, p.Lon}
			}
			i, d := geo.Nearest(lat, lon, pts)
			if i >= 0 {
				fmt.Fprintf(&b, "<br>Nearest: %s (%s)", html.EscapeString(nearest[i].Name), FormatMiles(d))
			}
		}
	}
	return b.String()
}

// AddPointSets adds a marker layer per point set, with reach circles when
// the set defines a reach.
func AddPointSets(m *Map, sets []region.PointSet) {
	for _, ps := range sets {
		name := ps.Name
		layer := m.AddLayer(name, KindMarkers, true)
		label := ps.Label
		if label == "" {
			label = strings.ToUpper(name)
		}
		for _, p := range ps.Points {
			layer.Markers = append(layer.Markers, Marker{
				Lat:     p.Lat,
				Lon:     p.Lon,
				Color:   ps.Color,
				Tooltip: "<b>" + html.EscapeString(p.Name) + "</b>",
				Popup:   "<b>" + html.EscapeString(p.Name) + "</b><br>" + html.EscapeString(label),
			})
			if ps.ReachMeters > 0 {
				st := Style{Color: ps.Color, Weight: 2, Opacity: 0.8, Fill: ps.ReachFill, DashArray: "6 4"}
				if ps.ReachFill {
					st.FillColor, st.FillOpacity = ps.Color, 0.1
				}
				layer.Circles = append(layer.Circles, Circle{Lat: p.Lat, Lon: p.Lon, Radius: ps.ReachMeters, Style: st})
			}
		}
	}
}

// AddOutlines adds one line layer holding every outline.
func AddOutlines(m *Map, outlines []region.Outline) {
	if len(outlines) == 0 {
		return
	}
	layer := m.AddLayer("Boundaries", KindOutline, true)
	for _, o := range outlines {
		layer.Lines = append(layer.Lines, Line{
			Path:    o.Path,
			Style:   Style{Color: o.Color, Weight: 3, Opacity: 0.9, DashArray: "10 6"},
			Tooltip: html.EscapeString(o.Name),
		})
	}
}

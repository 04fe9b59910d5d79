// Package geo handles tract and ZIP boundary geometry: GeoJSON coding,
// simplification, spherical area and point helpers.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ErrNotPolygonal is returned for geometries that cannot be shaded.
var ErrNotPolygonal = eris.New("geo: geometry is not a polygon or multipolygon")

// maxDecimals keeps roughly 10cm precision in encoded coordinates.
const maxDecimals = 6

// Decode parses a GeoJSON geometry object. Only Polygon and MultiPolygon are
// accepted.
func Decode(data []byte) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "geo: decode geojson")
	}
	if !Polygonal(g) {
		return nil, ErrNotPolygonal
	}
	return g, nil
}

// Encode renders a geometry as a GeoJSON string.
func Encode(g geom.T) (string, error) {
	if g == nil {
		return "", nil
	}
	data, err := geojson.Marshal(g, geojson.EncodeGeometryWithMaxDecimalDigits(maxDecimals))
	if err != nil {
		return "", eris.Wrap(err, "geo: encode geojson")
	}
	return string(data), nil
}

// Polygonal reports whether g is a non-empty Polygon or MultiPolygon.
func Polygonal(g geom.T) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.NumLinearRings() > 0
	case *geom.MultiPolygon:
		return t.NumPolygons() > 0
	default:
		return false
	}
}

// Polygons flattens a Polygon or MultiPolygon into its polygons.
func Polygons(g geom.T) []*geom.Polygon {
	switch t := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{t}
	case *geom.MultiPolygon:
		out := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := range t.NumPolygons() {
			out = append(out, t.Polygon(i))
		}
		return out
	default:
		return nil
	}
}

// Feature is a boundary with display properties.
type Feature struct {
	ID         string
	Geometry   geom.T
	Properties map[string]any
}

// EncodeCollection renders features as a GeoJSON FeatureCollection.
func EncodeCollection(features []Feature) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode feature collection")
	}
	return data, nil
}

// DecodeCollection parses a GeoJSON FeatureCollection. Features without a
// polygonal geometry are dropped.
func DecodeCollection(data []byte) ([]Feature, error) {
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, eris.Wrap(err, "geo: decode feature collection")
	}
	out := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || !Polygonal(f.Geometry) {
			continue
		}
		out = append(out, Feature{ID: f.ID, Geometry: f.Geometry, Properties: f.Properties})
	}
	return out, nil
}

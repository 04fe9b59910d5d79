package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

const squareJSON = `{"type":"Polygon","coordinates":[[[-74.94,39.96],[-74.86,39.96],[-74.86,40.04],[-74.94,40.04],[-74.94,39.96]]]}`

func TestDecodeEncode(t *testing.T) {
	g, err := Decode([]byte(squareJSON))
	require.NoError(t, err)
	require.IsType(t, &geom.Polygon{}, g)

	s, err := Encode(g)
	require.NoError(t, err)
	assert.JSONEq(t, squareJSON, s)

	s, err = Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Point","coordinates":[1,2]}`))
	assert.ErrorIs(t, err, ErrNotPolygonal)

	_, err = Decode([]byte(`{"type":"Polygon","coordinates":`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestPolygons(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(SquareCell(40, -75, 0.01)))
	require.NoError(t, mp.Push(SquareCell(41, -75, 0.01)))

	assert.Len(t, Polygons(mp), 2)
	assert.Len(t, Polygons(SquareCell(40, -75, 0.01)), 1)
	assert.Nil(t, Polygons(geom.NewPointFlat(geom.XY, []float64{1, 2})))
	assert.True(t, Polygonal(mp))
	assert.False(t, Polygonal(geom.NewMultiPolygon(geom.XY)))
}

func TestCollectionRoundTrip(t *testing.T) {
	data, err := EncodeCollection([]Feature{
		{ID: "34005700100", Geometry: SquareCell(40, -74.9, 0.04), Properties: map[string]any{"GEOID": "34005700100"}},
	})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "FeatureCollection", raw["type"])

	features, err := DecodeCollection(data)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "34005700100", features[0].ID)
	assert.Equal(t, "34005700100", features[0].Properties["GEOID"])
}

func TestDecodeCollection_NumericIDAndPointsDropped(t *testing.T) {
	in := `{"type":"FeatureCollection","features":[
		{"type":"Feature","id":7,"geometry":` + squareJSON + `,"properties":{"AREALAND":1000}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}
	]}`
	features, err := DecodeCollection([]byte(in))
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "7", features[0].ID)

	_, err = DecodeCollection([]byte(`{"type":"Feature"}`))
	assert.Error(t, err)
}

func TestAreaSqMi(t *testing.T) {
	cell := SquareCell(40, -74.9, 0.04)
	assert.InDelta(t, 23.405, AreaSqMi(cell), 0.05)

	// Winding order does not matter.
	cw := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{-74.94, 39.96}, {-74.94, 40.04}, {-74.86, 40.04}, {-74.86, 39.96}, {-74.94, 39.96},
	}})
	assert.InDelta(t, AreaSqMi(cell), AreaSqMi(cw), 1e-6)

	// A hole is subtracted.
	holed := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		cell.Coords()[0],
		SquareCell(40, -74.9, 0.02).Coords()[0],
	})
	assert.InDelta(t, AreaSqMi(cell)*0.75, AreaSqMi(holed), 0.05)

	assert.Zero(t, AreaSqMi(nil))
}

func TestDistanceMeters(t *testing.T) {
	// One degree of latitude is about 111.2 km.
	assert.InDelta(t, 111195, DistanceMeters(40, -75, 41, -75), 50)
	assert.Zero(t, DistanceMeters(40, -75, 40, -75))
}

func TestNearest(t *testing.T) {
	pts := [][2]float64{{39.9526, -75.1652}, {40.608, -75.49}}
	i, d := Nearest(39.95, -75.16, pts)
	assert.Equal(t, 0, i)
	assert.Less(t, d, 1000.0)

	i, _ = Nearest(40, -75, nil)
	assert.Equal(t, -1, i)
}

func TestCentroid(t *testing.T) {
	lat, lon, err := Centroid(SquareCell(40.1, -74.9, 0.04))
	require.NoError(t, err)
	assert.InDelta(t, 40.1, lat, 1e-9)
	assert.InDelta(t, -74.9, lon, 1e-9)

	_, _, err = Centroid(nil)
	assert.Error(t, err)
}

func TestSimplify(t *testing.T) {
	// A square with many collinear points along each edge.
	var ring []geom.Coord
	for i := range 10 {
		ring = append(ring, geom.Coord{float64(i) / 10, 0})
	}
	for i := range 10 {
		ring = append(ring, geom.Coord{1, float64(i) / 10})
	}
	for i := range 10 {
		ring = append(ring, geom.Coord{1 - float64(i)/10, 1})
	}
	for i := range 10 {
		ring = append(ring, geom.Coord{0, 1 - float64(i)/10})
	}
	ring = append(ring, geom.Coord{0, 0})
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})

	s := Simplify(p, 0.001)
	assert.Equal(t, 5, VertexCount(s))
	assert.InDelta(t, AreaSqMi(p), AreaSqMi(s), 1)

	assert.Same(t, p, Simplify(p, 0))
}

func TestSimplify_KeepsTinyRings(t *testing.T) {
	tri := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{{0, 0}, {1, 0}, {0, 1}, {0, 0}}})
	s := Simplify(tri, 10)
	assert.Equal(t, 4, VertexCount(s))

	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(tri))
	s = Simplify(mp, 10)
	assert.IsType(t, &geom.MultiPolygon{}, s)
	assert.Equal(t, 4, VertexCount(s))
}

package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Centroid returns the area-weighted centre of g as lat, lon.
func Centroid(g geom.T) (lat, lon float64, err error) {
	if g == nil {
		return 0, 0, eris.New("geo: centroid of nil geometry")
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geo: centroid")
	}
	if len(c) < 2 {
		return 0, 0, eris.New("geo: centroid of empty geometry")
	}
	return c.Y(), c.X(), nil
}

// SquareCell returns an axis-aligned square polygon of half-width half
// degrees centred on the point. It stands in for a boundary when only a
// ZIP centroid is known.
func SquareCell(lat, lon, half float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{lon - half, lat - half},
		{lon + half, lat - half},
		{lon + half, lat + half},
		{lon - half, lat + half},
		{lon - half, lat - half},
	}})
}

// Nearest returns the index of the point closest to (lat, lon) and its
// distance in meters, or -1 when pts is empty.
func Nearest(lat, lon float64, pts [][2]float64) (int, float64) {
	best, bestDist := -1, 0.0
	for i, p := range pts {
		d := DistanceMeters(lat, lon, p[0], p[1])
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

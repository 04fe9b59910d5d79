package geo

import (
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

// Earth radius used for spherical measurements.
const (
	EarthRadiusMiles  = 3958.7613
	EarthRadiusMeters = 6371008.8
)

// SqMetersPerSqMile converts TIGER ALAND/AREALAND values.
const SqMetersPerSqMile = 2589988.11

// AreaSqMi returns the spherical area of a Polygon or MultiPolygon in square
// miles. Holes are subtracted. Other geometries have zero area.
func AreaSqMi(g geom.T) float64 {
	var steradians float64
	for _, p := range Polygons(g) {
		for i, ring := range p.Coords() {
			a := ringArea(ring)
			if i == 0 {
				steradians += a
			} else {
				steradians -= a
			}
		}
	}
	if steradians < 0 {
		return 0
	}
	return steradians * EarthRadiusMiles * EarthRadiusMiles
}

// ringArea is the area enclosed by a lon/lat ring on the unit sphere,
// independent of winding order.
func ringArea(ring []geom.Coord) float64 {
	n := len(ring)
	if n > 1 && ring[0].X() == ring[n-1].X() && ring[0].Y() == ring[n-1].Y() {
		n--
	}
	if n < 3 {
		return 0
	}
	pts := make([]s2.Point, n)
	for i := range n {
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(ring[i].Y(), ring[i].X()))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area()
}

// DistanceMeters is the great-circle distance between two points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// Simplify reduces vertex counts with Douglas-Peucker at the given tolerance
// in degrees. Rings that would collapse below a triangle keep their original
// vertices, so the result always has the same rings as the input.
func Simplify(g geom.T, tolerance float64) geom.T {
	if tolerance <= 0 {
		return g
	}
	switch t := g.(type) {
	case *geom.Polygon:
		return simplifyPolygon(t, tolerance)
	case *geom.MultiPolygon:
		out := geom.NewMultiPolygon(geom.XY)
		for _, p := range Polygons(t) {
			if err := out.Push(simplifyPolygon(p, tolerance)); err != nil {
				return g
			}
		}
		return out
	default:
		return g
	}
}

func simplifyPolygon(p *geom.Polygon, tolerance float64) *geom.Polygon {
	rings := p.Coords()
	out := make([][]geom.Coord, len(rings))
	for i, ring := range rings {
		out[i] = simplifyRing(xyOnly(ring), tolerance)
	}
	simplified, err := geom.NewPolygon(geom.XY).SetCoords(out)
	if err != nil {
		return p
	}
	return simplified
}

func xyOnly(ring []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(ring))
	for i, c := range ring {
		out[i] = geom.Coord{c.X(), c.Y()}
	}
	return out
}

// simplifyRing keeps the closing vertex and needs at least four points
// (a closed triangle) to stay a valid ring.
func simplifyRing(ring []geom.Coord, tolerance float64) []geom.Coord {
	if len(ring) <= 4 {
		return ring
	}
	keep := make([]bool, len(ring))
	keep[0], keep[len(ring)-1] = true, true

	// A closed ring's endpoints coincide, so split at the farthest vertex first.
	far := 0
	var best float64
	for i := 1; i < len(ring)-1; i++ {
		if d := dist(ring[0], ring[i]); d > best {
			far, best = i, d
		}
	}
	if far == 0 {
		return ring
	}
	keep[far] = true
	douglasPeucker(ring, 0, far, tolerance, keep)
	douglasPeucker(ring, far, len(ring)-1, tolerance, keep)

	out := make([]geom.Coord, 0, len(ring))
	for i, k := range keep {
		if k {
			out = append(out, ring[i])
		}
	}
	if len(out) < 4 {
		return ring
	}
	return out
}

func douglasPeucker(pts []geom.Coord, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}
	idx := -1
	var maxDist float64
	for i := first + 1; i < last; i++ {
		if d := segmentDist(pts[i], pts[first], pts[last]); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if idx < 0 || maxDist <= tolerance {
		return
	}
	keep[idx] = true
	douglasPeucker(pts, first, idx, tolerance, keep)
	douglasPeucker(pts, idx, last, tolerance, keep)
}

func dist(a, b geom.Coord) float64 {
	return math.Hypot(a.X()-b.X(), a.Y()-b.Y())
}

// segmentDist is the distance from p to the segment ab.
func segmentDist(p, a, b geom.Coord) float64 {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	if dx == 0 && dy == 0 {
		return dist(p, a)
	}
	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X()-(a.X()+t*dx), p.Y()-(a.Y()+t*dy))
}

// VertexCount returns the number of vertices across all rings.
func VertexCount(g geom.T) int {
	if g == nil || g.Stride() == 0 {
		return 0
	}
	return len(g.FlatCoords()) / g.Stride()
}

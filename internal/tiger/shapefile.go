package tiger

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/geo"
	"github.com/sells-group/demomap/internal/model"
)

// ReadBoundaries reads polygon records from a shapefile. keep, when non-nil,
// filters records by identifier before their geometry is converted. Records
// without a usable polygon are skipped.
func ReadBoundaries(shpPath string, p Product, keep func(id string) bool) ([]model.Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		fieldIdx[strings.ToUpper(strings.TrimRight(f.String(), "\x00"))] = i
	}
	idIdx, ok := fieldIdx[p.IDField]
	if !ok {
		return nil, eris.Errorf("tiger: shapefile %s has no %s field", shpPath, p.IDField)
	}
	attr := func(field string) string {
		i, ok := fieldIdx[field]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
	}

	var out []model.Boundary
	var skipped int
	for reader.Next() {
		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if keep != nil && !keep(id) {
			continue
		}

		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped++
			continue
		}

		b := model.Boundary{ID: id, Geometry: g}
		if p.NameField != "" {
			b.Name = attr(p.NameField)
		}
		if aland, err := strconv.ParseFloat(attr(p.AreaField), 64); err == nil && aland > 0 {
			b.AreaSqMi = aland / geo.SqMetersPerSqMile
		} else {
			b.AreaSqMi = geo.AreaSqMi(g)
		}
		out = append(out, b)
	}
	if err := reader.Err(); err != nil {
		return out, eris.Wrapf(err, "tiger: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped shapefile records",
			zap.String("product", p.Name),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// polygonToMultiPolygon converts a shapefile polygon to a MultiPolygon.
// Shapefile outer rings wind clockwise and holes counter-clockwise; each hole
// is attached to the outer ring preceding it.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys [][][]geom.Coord
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			continue
		}

		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		if signedArea(ring) > 0 && len(polys) > 0 {
			polys[len(polys)-1] = append(polys[len(polys)-1], ring)
			continue
		}
		polys = append(polys, [][]geom.Coord{ring})
	}
	if len(polys) == 0 {
		return nil
	}

	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		zap.L().Debug("tiger: skipping malformed polygon", zap.Error(err))
		return nil
	}
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i].X()*ring[i+1].Y() - ring[i+1].X()*ring[i].Y()
	}
	return sum / 2
}

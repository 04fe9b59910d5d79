package census

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/demomap/internal/fetcher"
	"github.com/sells-group/demomap/internal/geo"
	"github.com/sells-group/demomap/internal/model"
)

// TractBoundaries queries TIGERweb for the tract polygons of one county in
// WGS84. AREALAND (square meters) becomes AreaSqMi.
func (c *Client) TractBoundaries(ctx context.Context, stateFIPS, countyFIPS string) ([]model.Boundary, error) {
	q := url.Values{}
	q.Set("where", fmt.Sprintf("STATE='%s' AND COUNTY='%s'", stateFIPS, countyFIPS))
	q.Set("outFields", "GEOID,AREALAND,NAME")
	q.Set("outSR", "4326")
	q.Set("f", "geojson")
	u, err := fetcher.WithQuery(c.tigerWebURL, q)
	if err != nil {
		return nil, err
	}

	data, err := c.get(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "census: tigerweb %s%s", stateFIPS, countyFIPS)
	}
	features, err := geo.DecodeCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "census: tigerweb %s%s", stateFIPS, countyFIPS)
	}

	out := make([]model.Boundary, 0, len(features))
	for _, f := range features {
		geoid := model.NormalizeID(model.KindTract, propString(f.Properties, "GEOID"))
		if geoid == "" {
			continue
		}
		b := model.Boundary{
			ID:       geoid,
			Name:     propString(f.Properties, "NAME"),
			Geometry: f.Geometry,
		}
		if aland, ok := ParseValue(propString(f.Properties, "AREALAND")); ok && aland > 0 {
			b.AreaSqMi = aland / geo.SqMetersPerSqMile
		} else {
			b.AreaSqMi = geo.AreaSqMi(f.Geometry)
		}
		out = append(out, b)
	}
	return out, nil
}

// propString reads a GeoJSON property as a string whatever its JSON type.
func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

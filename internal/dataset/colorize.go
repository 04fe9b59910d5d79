package dataset

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/pkg/colorscale"
)

// DefaultCaps limits density so a few dense urban cores do not wash out the
// rest of the ramp.
var DefaultCaps = map[model.Metric]float64{
	model.MetricDensity: 10000,
}

// ColorRange returns the range used to colour a metric: the observed bounds
// with the cap, if any, applied to both ends.
func ColorRange(records []*model.Record, m model.Metric, caps map[model.Metric]float64) (colorscale.Range, int) {
	rng, n := Bounds(records, m)
	if c, ok := caps[m]; ok && n > 0 {
		rng.Min = math.Min(rng.Min, c)
		rng.Max = math.Min(rng.Max, c)
	}
	return rng, n
}

// Colorize assigns a colour for every present metric value using the
// family's preset for the metric. Ranges are computed over the whole
// dataset. The ranges used are returned for legends.
func Colorize(records []*model.Record, family colorscale.Family, caps map[model.Metric]float64) (map[model.Metric]colorscale.Range, error) {
	ranges := make(map[model.Metric]colorscale.Range)

	for _, m := range model.AllMetrics {
		rng, n := ColorRange(records, m, caps)
		if n == 0 {
			for _, r := range records {
				delete(r.Colors, m)
			}
			continue
		}
		ranges[m] = rng
		scale := colorscale.PresetOr(family, m.Theme())

		for _, r := range records {
			v, ok := r.Value(m)
			if !ok {
				delete(r.Colors, m)
				continue
			}
			hex, err := scale.Color(v, rng)
			if err != nil {
				return nil, eris.Wrapf(err, "dataset: colour %s for %s", m, r.ID)
			}
			if r.Colors == nil {
				r.Colors = make(map[model.Metric]string)
			}
			r.Colors[m] = hex
		}
	}
	return ranges, nil
}

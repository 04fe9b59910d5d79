package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/aclements/go-moremath/stats"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/synth"
)

// ImputeReport counts how missing values were filled.
type ImputeReport struct {
	Derived     int // density computed from population and area
	CountyMean  int
	Default     int
	Unfilled    int
	RecordsDone int
}

// Impute fills missing metrics in place. Density is derived from population
// and area where possible. Remaining gaps take the mean of the same metric
// over the record's county, then the region's static county default. rng
// jitters the defaults; nil uses them as-is.
func Impute(records []*model.Record, reg *region.Region, rng *rand.Rand) ImputeReport {
	var rep ImputeReport

	for _, r := range records {
		if _, ok := r.Value(model.MetricDensity); ok {
			continue
		}
		if pop, ok := r.Value(model.MetricPopulation); ok && r.AreaSqMi > 0 {
			r.Set(model.MetricDensity, pop/r.AreaSqMi)
			rep.Derived++
		}
	}

	means := countyMeans(records)

	for _, r := range records {
		touched := false
		key := r.CountyKey()
		for _, m := range model.AllMetrics {
			if _, ok := r.Value(m); ok {
				continue
			}
			if v, ok := means[key][m]; ok {
				r.Set(m, v)
				rep.CountyMean++
				touched = true
				continue
			}
			if reg != nil {
				if v, ok := reg.Default(key, m); ok {
					r.Set(m, synth.Jitter(rng, m, v))
					rep.Default++
					touched = true
					continue
				}
			}
			rep.Unfilled++
		}
		if touched {
			rep.RecordsDone++
		}
	}

	zap.L().Info("dataset: imputed missing values",
		zap.Int("records", rep.RecordsDone),
		zap.Int("derived_density", rep.Derived),
		zap.Int("county_mean", rep.CountyMean),
		zap.Int("default", rep.Default),
		zap.Int("unfilled", rep.Unfilled),
	)
	return rep
}

// countyMeans averages each metric over the records of each county. Records
// without a county are ignored.
func countyMeans(records []*model.Record) map[string]map[model.Metric]float64 {
	groups := make(map[string]map[model.Metric][]float64)
	for _, r := range records {
		if r.County == "" || r.State == "" {
			continue
		}
		key := r.CountyKey()
		if groups[key] == nil {
			groups[key] = make(map[model.Metric][]float64)
		}
		for m, v := range r.Metrics {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				groups[key][m] = append(groups[key][m], v)
			}
		}
	}

	out := make(map[string]map[model.Metric]float64, len(groups))
	for key, byMetric := range groups {
		out[key] = make(map[model.Metric]float64, len(byMetric))
		for m, xs := range byMetric {
			out[key][m] = stats.Mean(xs)
		}
	}
	return out
}

package dataset

import (
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/model"
)

// Limit is an exclusive (Min, Max) bound on a metric. Zero Max means
// unbounded above.
type Limit struct {
	Min, Max float64
}

func (l Limit) allows(v float64) bool {
	if v <= l.Min {
		return false
	}
	return l.Max == 0 || v < l.Max
}

// Rules maps metrics to sanity bounds. A record missing a bounded metric is
// dropped as well.
type Rules map[model.Metric]Limit

// TractRules are the sanity bounds applied to ACS tract data before
// rendering.
var TractRules = Rules{
	model.MetricMedianAge:       {Min: 0, Max: 100},
	model.MetricDensity:         {Min: -1, Max: 100000},
	model.MetricPopulation:      {Min: 0},
	model.MetricMedianIncome:    {Min: 10000},
	model.MetricMedianHomeValue: {Min: 10000},
}

// Clean returns the records that satisfy every rule.
func Clean(records []*model.Record, rules Rules) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	dropped := make(map[model.Metric]int)

	for _, r := range records {
		ok := true
		for m, lim := range rules {
			v, present := r.Value(m)
			if !present || !lim.allows(v) {
				dropped[m]++
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}

	if len(out) < len(records) {
		fields := []zap.Field{zap.Int("kept", len(out)), zap.Int("dropped", len(records)-len(out))}
		for m, n := range dropped {
			fields = append(fields, zap.Int(string(m), n))
		}
		zap.L().Info("dataset: cleaned records", fields...)
	}
	return out
}

// DropUnmapped removes records that have neither a point nor a boundary.
func DropUnmapped(records []*model.Record) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, r := range records {
		if r.HasPoint || r.Boundary != nil {
			out = append(out, r)
		}
	}
	return out
}

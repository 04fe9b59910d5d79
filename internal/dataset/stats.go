package dataset

import (
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/pkg/colorscale"
)

// Values collects the present values of a metric.
func Values(records []*model.Record, m model.Metric) []float64 {
	xs := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Value(m); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			xs = append(xs, v)
		}
	}
	return xs
}

// Bounds returns the observed range of a metric and how many records carry
// it. The range is zero when no record does.
func Bounds(records []*model.Record, m model.Metric) (colorscale.Range, int) {
	xs := Values(records, m)
	if len(xs) == 0 {
		return colorscale.Range{}, 0
	}
	lo, hi := stats.Bounds(xs)
	return colorscale.Range{Min: lo, Max: hi}, len(xs)
}

// Summary describes one metric across a dataset.
type Summary struct {
	Metric model.Metric
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Summarize reports every metric that at least one record carries.
func Summarize(records []*model.Record) []Summary {
	var out []Summary
	for _, m := range model.AllMetrics {
		xs := Values(records, m)
		if len(xs) == 0 {
			continue
		}
		lo, hi := stats.Bounds(xs)
		s := Summary{Metric: m, Count: len(xs), Min: lo, Max: hi, Mean: stats.Mean(xs)}
		if len(xs) > 1 {
			s.StdDev = stats.StdDev(xs)
		}
		out = append(out, s)
	}
	return out
}

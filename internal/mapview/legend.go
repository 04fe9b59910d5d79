package mapview

import (
	"github.com/aclements/go-moremath/scale"

	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/pkg/colorscale"
)

// LegendStop is one labelled swatch.
type LegendStop struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

// Legend describes the colour ramp of one layer.
type Legend struct {
	LayerID  string       `json:"layer_id"`
	Title    string       `json:"title"`
	Gradient []string     `json:"gradient"`
	Stops    []LegendStop `json:"stops"`
}

// maxTicks bounds the labelled stops per legend.
const maxTicks = 6

// Ticks returns "nice" values inside r for legend labels. A degenerate range
// yields its single value.
func Ticks(r colorscale.Range) []float64 {
	if r.Min == r.Max {
		return []float64{r.Min}
	}
	lin := scale.Linear{Min: r.Min, Max: r.Max}
	major, _ := lin.Ticks(scale.TickOptions{Max: maxTicks})

	out := make([]float64, 0, len(major))
	for _, t := range major {
		if t >= r.Min && t <= r.Max {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []float64{r.Min, r.Max}
	}
	return out
}

// NewLegend builds the legend for a metric coloured with s over r.
func NewLegend(layerID string, m model.Metric, s colorscale.Scale, r colorscale.Range) (Legend, error) {
	l := Legend{
		LayerID:  layerID,
		Title:    m.Label(),
		Gradient: s.Gradient(8),
	}
	for _, t := range Ticks(r) {
		c, err := s.Color(t, r)
		if err != nil {
			return Legend{}, err
		}
		l.Stops = append(l.Stops, LegendStop{Color: c, Label: FormatValue(m.Format(), t)})
	}
	return l, nil
}

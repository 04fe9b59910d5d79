package model

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/demomap/pkg/colorscale"
)

// Metric names a demographic measure carried by a Record.
type Metric string

// Demographic metrics. The string value is the CSV column name.
const (
	MetricPopulation      Metric = "population"
	MetricMedianIncome    Metric = "median_income"
	MetricMedianAge       Metric = "median_age"
	MetricHousingUnits    Metric = "housing_units"
	MetricDensity         Metric = "density"
	MetricMedianHomeValue Metric = "median_home_value"
)

// AllMetrics lists metrics in layer order.
var AllMetrics = []Metric{
	MetricPopulation,
	MetricDensity,
	MetricMedianIncome,
	MetricMedianAge,
	MetricHousingUnits,
	MetricMedianHomeValue,
}

// Format selects how a metric value is printed in tooltips and legends.
type Format int

// Value formats.
const (
	FormatCount Format = iota
	FormatDollars
	FormatYears
	FormatPerSqMi
)

type metricInfo struct {
	short  string
	label  string
	format Format
	theme  colorscale.Theme
}

var metricInfos = map[Metric]metricInfo{
	MetricPopulation:      {"pop", "Population", FormatCount, colorscale.Blue},
	MetricDensity:         {"density", "Population Density", FormatPerSqMi, colorscale.Purple},
	MetricMedianIncome:    {"income", "Median Income", FormatDollars, colorscale.Green},
	MetricMedianAge:       {"age", "Median Age", FormatYears, colorscale.Orange},
	MetricHousingUnits:    {"housing", "Housing Units", FormatCount, colorscale.Red},
	MetricMedianHomeValue: {"home_value", "Median Home Value", FormatDollars, colorscale.Forest},
}

// ParseMetric resolves a column name to a Metric.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if _, ok := metricInfos[m]; !ok {
		return "", eris.Errorf("model: unknown metric %q", s)
	}
	return m, nil
}

// Column is the CSV column holding the value.
func (m Metric) Column() string { return string(m) }

// ColorColumn is the CSV column holding the derived colour, e.g. pop_color.
func (m Metric) ColorColumn() string { return metricInfos[m].short + "_color" }

// Label is the human-readable layer name.
func (m Metric) Label() string { return metricInfos[m].label }

// Format returns the display format.
func (m Metric) Format() Format { return metricInfos[m].format }

// Theme is the hue used for the metric's colour scale.
func (m Metric) Theme() colorscale.Theme { return metricInfos[m].theme }

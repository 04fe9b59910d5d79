package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demomap/pkg/colorscale"
)

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		raw  string
		want string
	}{
		{KindZIP, "8054", "08054"},
		{KindZIP, " 19382 ", "19382"},
		{KindZIP, "7002.0", "07002"},
		{KindZIP, "", ""},
		{KindTract, "34005700100", "34005700100"},
		{KindTract, "340057001001", "34005700100"},
		{KindTract, "1000101100", "01000101100"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeID(tt.kind, tt.raw))
		})
	}
}

func TestKindColumns(t *testing.T) {
	assert.Equal(t, "zip_code", KindZIP.IDColumn())
	assert.Equal(t, "geoid", KindTract.IDColumn())
	assert.Equal(t, "tract", KindTract.String())
	assert.Equal(t, 5, KindZIP.Width())
}

func TestRecordValues(t *testing.T) {
	r := NewRecord(KindZIP, "8054")
	assert.Equal(t, "08054", r.ID)

	_, ok := r.Value(MetricPopulation)
	assert.False(t, ok)

	r.Set(MetricPopulation, 35000)
	r.Colors[MetricPopulation] = "#ffffff"
	v, ok := r.Value(MetricPopulation)
	require.True(t, ok)
	assert.InDelta(t, 35000, v, 0)

	r.Unset(MetricPopulation)
	_, ok = r.Value(MetricPopulation)
	assert.False(t, ok)
	assert.Empty(t, r.Colors)

	var zero Record
	zero.Set(MetricDensity, 1)
	assert.Len(t, zero.Metrics, 1)
}

func TestCountyKey(t *testing.T) {
	assert.Equal(t, "PA_Bucks", CountyKey("pa", "Bucks County"))
	assert.Equal(t, "DE_New Castle", CountyKey("DE", " New Castle "))

	r := &Record{State: "NJ", County: "Camden"}
	assert.Equal(t, "NJ_Camden", r.CountyKey())
}

func TestMetricInfo(t *testing.T) {
	assert.Equal(t, "pop_color", MetricPopulation.ColorColumn())
	assert.Equal(t, "home_value_color", MetricMedianHomeValue.ColorColumn())
	assert.Equal(t, "Median Income", MetricMedianIncome.Label())
	assert.Equal(t, FormatDollars, MetricMedianIncome.Format())
	assert.Equal(t, colorscale.Purple, MetricDensity.Theme())

	m, err := ParseMetric("median_age")
	require.NoError(t, err)
	assert.Equal(t, MetricMedianAge, m)

	_, err = ParseMetric("shoe_size")
	assert.Error(t, err)

	for _, m := range AllMetrics {
		assert.NotEmpty(t, m.Label())
	}
}

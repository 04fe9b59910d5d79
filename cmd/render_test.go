package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demomap/internal/mapview"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/pkg/colorscale"
)

func populationRecord(id string, pop float64, mapped bool) *model.Record {
	r := model.NewRecord(model.KindZIP, id)
	r.Set(model.MetricPopulation, pop)
	if mapped {
		r.SetPoint(39.94, -74.91)
	}
	return r
}

func TestDrawMap_RangesIncludeUnmappedRecords(t *testing.T) {
	recs := []*model.Record{
		populationRecord("08054", 1000, true),
		populationRecord("08057", 2500, true),
		populationRecord("19103", 10000, false),
	}

	m, drawn, err := drawMap(recs, mapview.Options{Style: mapview.StyleCircle, Family: colorscale.Classic})
	require.NoError(t, err)
	assert.Equal(t, 2, drawn)

	layer, ok := m.Layer(model.MetricPopulation.Label())
	require.True(t, ok)
	require.Len(t, layer.Circles, 2)

	scale := colorscale.PresetOr(colorscale.Classic, model.MetricPopulation.Theme())
	full := colorscale.Range{Min: 1000, Max: 10000}
	assert.Equal(t, scale.MustColor(2500, full), layer.Circles[1].Style.FillColor)
	assert.NotEqual(t, scale.MustColor(2500, colorscale.Range{Min: 1000, Max: 2500}), layer.Circles[1].Style.FillColor)
}

func TestDrawMap_NothingToDraw(t *testing.T) {
	_, _, err := drawMap([]*model.Record{populationRecord("19103", 10000, false)}, mapview.Options{})
	require.ErrorIs(t, err, errNothingToDraw)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demomap/internal/config"
	"github.com/sells-group/demomap/internal/gazetteer"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/store"
	"github.com/sells-group/demomap/internal/synth"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]model.Kind{"zip": model.KindZIP, "": model.KindZIP, "ZCTA": model.KindZIP, "tract": model.KindTract} {
		got, err := parseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseKind("county")
	assert.Error(t, err)
}

func TestParseCaps(t *testing.T) {
	caps, err := parseCaps(nil, 10000)
	require.NoError(t, err)
	assert.Equal(t, map[model.Metric]float64{model.MetricDensity: 10000}, caps)

	caps, err = parseCaps([]string{"density=5000", "median_income=200000"}, 10000)
	require.NoError(t, err)
	assert.InDelta(t, 5000, caps[model.MetricDensity], 0)
	assert.InDelta(t, 200000, caps[model.MetricMedianIncome], 0)

	_, err = parseCaps([]string{"density"}, 0)
	assert.Error(t, err)
	_, err = parseCaps([]string{"shoe_size=9"}, 0)
	assert.Error(t, err)
	_, err = parseCaps([]string{"density=lots"}, 0)
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	withConfig(t, &config.Config{Paths: config.PathsConfig{OutputDir: "out"}})

	assert.Equal(t, filepath.Join("out", "map.html"), outputPath("map.html"))
	assert.Equal(t, filepath.Join("data", "map.html"), outputPath(filepath.Join("data", "map.html")))
	assert.Equal(t, "/tmp/map.html", outputPath("/tmp/map.html"))
	assert.Equal(t, "", outputPath(""))
}

func TestTrackRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	err := trackRun(ctx, st, "generate", []string{"--seed", "7"}, func() (int, string, error) {
		return 12, "out/zips.csv", nil
	})
	require.NoError(t, err)

	boom := errors.New("census down")
	err = trackRun(ctx, st, "fetch zctas", nil, func() (int, string, error) {
		return 0, "", boom
	})
	require.ErrorIs(t, err, boom)

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byCommand := map[string]model.Run{}
	for _, r := range runs {
		byCommand[r.Command] = r
	}
	ok := byCommand["generate"]
	assert.Equal(t, model.RunStatusComplete, ok.Status)
	assert.Equal(t, 12, ok.Rows)
	assert.Equal(t, "out/zips.csv", ok.Output)
	assert.Equal(t, "--seed 7", ok.Args)

	failed := byCommand["fetch zctas"]
	assert.Equal(t, model.RunStatusFailed, failed.Status)
	assert.Equal(t, "census down", failed.Error)
}

func TestTrackRun_NilStore(t *testing.T) {
	called := false
	err := trackRun(context.Background(), nil, "render", nil, func() (int, string, error) {
		called = true
		return 1, "map.html", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestDefaultTitle(t *testing.T) {
	assert.Contains(t, defaultTitle(model.KindTract), "Census Tract")
	assert.Contains(t, defaultTitle(model.KindZIP), "ZIP Code")
}

func TestFormatCategories(t *testing.T) {
	recs := synth.Generate(synth.DefaultSeed, synth.Profiles[:1])
	var buf bytes.Buffer
	formatCategories(&buf, recs)

	out := buf.String()
	assert.Contains(t, out, "DENSITY")
	assert.Contains(t, out, "INCOME")
	assert.Contains(t, out, synth.IncomeCategory(recs[0].Metrics[model.MetricMedianIncome]))
}

func TestFormatCoverage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.ReplacePostalCodes(ctx, gazetteer.SourceName, "v1", []model.PostalCode{
		{ZIP: "08054", City: "Mount Laurel", State: "NJ", County: "Burlington", Lat: 39.94, Lon: -74.91},
		{ZIP: "08060", City: "Mount Holly", State: "NJ", County: "Burlington", Lat: 39.99, Lon: -74.79},
	}))

	reg, err := region.Default()
	require.NoError(t, err)
	cov, err := gazetteer.New(st, time.Minute).Coverage(ctx, reg)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatCoverage(&buf, cov)
	out := buf.String()
	assert.Contains(t, out, "Burlington")
	assert.Contains(t, out, "08054 08060")
	assert.Contains(t, out, "Total: 2 ZIP codes")
	assert.Contains(t, out, "No ZIP codes found for:")
	assert.Contains(t, out, "PA_Philadelphia")
}

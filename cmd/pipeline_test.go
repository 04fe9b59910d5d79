package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/store"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestPipeline_ColorizeRenderExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "demomap.db")
	t.Setenv("DEMOMAP_GAZETTEER_DB_PATH", dbPath)
	t.Setenv("DEMOMAP_PATHS_OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("DEMOMAP_LOG_LEVEL", "error")

	in := filepath.Join(dir, "zips.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"zip_code,state,county,city,lat,lon,population,median_income,median_age\n"+
			"08054,NJ,Burlington,Mount Laurel,39.94,-74.91,42000,95000,41\n"+
			"08057,NJ,Burlington,Moorestown,39.97,-74.94,20000,140000,44\n"+
			"19103,PA,Philadelphia,Philadelphia,39.95,-75.17,25000,60000,33\n"), 0o644))

	colored := filepath.Join(dir, "out", "colored.csv")
	require.NoError(t, execute(t, "colorize", in, "--out", colored, "--scale", "contrast"))

	recs, err := dataset.ReadFile(context.Background(), colored, model.KindZIP)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, r.Colors[model.MetricPopulation], r.ID)
	}

	mapPath := filepath.Join(dir, "out", "map.html")
	require.NoError(t, execute(t, "render", colored, "--out", mapPath, "--style", "circle", "--title", "Test Map"))
	html, err := os.ReadFile(mapPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(html), "<!DOCTYPE html>"))
	assert.Contains(t, string(html), "Test Map")
	assert.Contains(t, string(html), "Median Age")

	xlsxPath := filepath.Join(dir, "out", "zips.xlsx")
	require.NoError(t, execute(t, "export", "xlsx", colored, "--out", xlsxPath))
	_, err = os.Stat(xlsxPath)
	require.NoError(t, err)

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	commands := make(map[string]model.Run)
	for _, r := range runs {
		commands[r.Command] = r
	}
	for _, name := range []string{"colorize", "render", "export xlsx"} {
		run, ok := commands[name]
		require.True(t, ok, "missing run for %s", name)
		assert.Equal(t, model.RunStatusComplete, run.Status, name)
		assert.Equal(t, 3, run.Rows, name)
	}
	assert.Equal(t, mapPath, commands["render"].Output)
}

func TestPipeline_RenderRejectsUnknownStyle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEMOMAP_GAZETTEER_DB_PATH", filepath.Join(dir, "demomap.db"))
	t.Setenv("DEMOMAP_LOG_LEVEL", "error")

	in := filepath.Join(dir, "zips.csv")
	require.NoError(t, os.WriteFile(in, []byte("zip_code,lat,lon,population\n08054,39.94,-74.91,42000\n"), 0o644))

	err := execute(t, "render", in, "--out", filepath.Join(dir, "map.html"), "--style", "hexagon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown style")
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demomap/internal/model"
)

func serve(t *testing.T, h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_Health(t *testing.T) {
	rr := serve(t, buildRouter(t.TempDir(), nil), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_MapsIndexAndFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zip_map.html"), []byte("<html>zip</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("zip_code\n"), 0o644))
	h := buildRouter(dir, nil)

	rr := serve(t, h, http.MethodGet, "/api/maps", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var maps []mapFile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &maps))
	require.Len(t, maps, 1)
	assert.Equal(t, "zip_map.html", maps[0].Name)
	assert.Equal(t, "/maps/zip_map.html", maps[0].URL)
	assert.Equal(t, int64(16), maps[0].Size)

	rr = serve(t, h, http.MethodGet, "/maps/zip_map.html", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>zip</html>", rr.Body.String())

	rr = serve(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/api/maps", rr.Header().Get("Location"))
}

func TestBuildRouter_MissingDirHasNoMaps(t *testing.T) {
	rr := serve(t, buildRouter(filepath.Join(t.TempDir(), "nope"), nil), http.MethodGet, "/api/maps", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestBuildRouter_CORS(t *testing.T) {
	rr := serve(t, buildRouter(t.TempDir(), nil), http.MethodGet, "/health", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_Runs(t *testing.T) {
	rr := serve(t, buildRouter(t.TempDir(), nil), http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	st := newTestStore(t)
	ctx := context.Background()
	run, err := st.CreateRun(ctx, "render", "zips.csv")
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, run.ID, 42, "out/map.html", nil))

	rr = serve(t, buildRouter(t.TempDir(), st), http.MethodGet, "/api/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "render", runs[0].Command)
	assert.Equal(t, 42, runs[0].Rows)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

package gazetteer

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/demomap/internal/fetcher"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/store"
)

const usTxt = "US\t08002\tCherry Hill\tNew Jersey\tNJ\tCamden\t007\t\t\t39.9347\t-75.0309\t4\n" +
	"US\t08003\tCherry Hill\tNew Jersey\tNJ\tCamden\t007\t\t\t39.8846\t-74.9718\t4\n" +
	"US\t19103\tPhiladelphia\tPennsylvania\tPA\tPhiladelphia\t101\t\t\t39.9525\t-75.1748\t4\n" +
	"US\t19901\tDover\tDelaware\tDE\tKent\t001\t\t\t39.1564\t-75.4955\t4\n" +
	"US\t10001\tNew York\tNew York\tNY\tNew York\t061\t\t\t40.7484\t-73.9967\t4\n" +
	"US\t08004\tAtco\tNew Jersey\tNJ\tCamden\t007\t\t\tnot-a-number\t-74.8856\t4\n"

func zipArchive(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "gaz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newGeoNamesServer(t *testing.T, archive []byte, etag string, downloads *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		downloads.Add(1)
		w.Header().Set("ETag", etag)
		_, _ = w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParse(t *testing.T) {
	codes, err := Parse(context.Background(), strings.NewReader(usTxt), map[string]bool{"NJ": true, "PA": true, "DE": true})
	require.NoError(t, err)
	require.Len(t, codes, 4)

	assert.Equal(t, "08002", codes[0].ZIP)
	assert.Equal(t, "Cherry Hill", codes[0].City)
	assert.Equal(t, "NJ_Camden", codes[0].CountyKey())
	assert.Equal(t, "007", codes[0].CountyFIPS)
	assert.InDelta(t, -75.0309, codes[0].Lon, 1e-9)
	assert.Equal(t, 4, codes[0].Accuracy)

	all, err := Parse(context.Background(), strings.NewReader(usTxt), nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestLoader_Load(t *testing.T) {
	reg, err := region.Default()
	require.NoError(t, err)
	st := newTestStore(t)

	var downloads atomic.Int32
	srv := newGeoNamesServer(t, zipArchive(t, "US.txt", usTxt), `"v1"`, &downloads)

	l := &Loader{
		Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Backoff: time.Millisecond}),
		Store:   st,
		URL:     srv.URL + "/US.zip",
		WorkDir: t.TempDir(),
	}

	res, err := l.Load(context.Background(), reg, false)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, `"v1"`, res.ETag)

	// Second load sends the stored ETag and gets a 304.
	res, err = l.Load(context.Background(), reg, false)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, int32(1), downloads.Load())

	res, err = l.Load(context.Background(), reg, true)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, int32(2), downloads.Load())
}

func TestLoader_MissingEntry(t *testing.T) {
	reg, err := region.Default()
	require.NoError(t, err)

	var downloads atomic.Int32
	srv := newGeoNamesServer(t, zipArchive(t, "readme.txt", "nothing"), `"v1"`, &downloads)

	l := &Loader{
		Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, Backoff: time.Millisecond}),
		Store:   newTestStore(t),
		URL:     srv.URL,
		WorkDir: t.TempDir(),
	}
	_, err = l.Load(context.Background(), reg, false)
	assert.Error(t, err)
}

func loadedGazetteer(t *testing.T) *Gazetteer {
	t.Helper()
	st := newTestStore(t)
	codes, err := Parse(context.Background(), strings.NewReader(usTxt), nil)
	require.NoError(t, err)
	require.NoError(t, st.ReplacePostalCodes(context.Background(), SourceName, "", codes))
	return New(st, time.Minute)
}

func TestGazetteer_Lookup(t *testing.T) {
	g := loadedGazetteer(t)
	ctx := context.Background()

	p, err := g.Lookup(ctx, "8002")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "08002", p.ZIP)

	p, err = g.Lookup(ctx, "08002")
	require.NoError(t, err)
	require.NotNil(t, p)

	p, err = g.Lookup(ctx, "99999")
	require.NoError(t, err)
	assert.Nil(t, p)
	p, err = g.Lookup(ctx, "99999")
	require.NoError(t, err)
	assert.Nil(t, p)

	hits, misses := g.Hits()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestGazetteer_ByCountyAndPrefix(t *testing.T) {
	g := loadedGazetteer(t)
	reg, err := region.Default()
	require.NoError(t, err)
	ctx := context.Background()

	camden, ok := reg.County("NJ", "Camden")
	require.True(t, ok)
	codes, err := g.ByCounty(ctx, camden)
	require.NoError(t, err)
	assert.Len(t, codes, 2)

	codes, err = g.ByPrefix(ctx, "191")
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "Philadelphia", codes[0].City)
}

func TestGazetteer_Coverage(t *testing.T) {
	g := loadedGazetteer(t)
	reg, err := region.Default()
	require.NoError(t, err)

	cov, err := g.Coverage(context.Background(), reg)
	require.NoError(t, err)
	assert.Len(t, cov.Counties, len(reg.Counties()))
	assert.Equal(t, 4, cov.Total())
	assert.Len(t, cov.Missing, len(reg.Counties())-3)
	assert.NotContains(t, cov.Missing, "NJ_Camden")
	assert.Contains(t, cov.Missing, "NJ_Burlington")
	assert.IsIncreasing(t, cov.Missing)
}

package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDownload_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestDownload_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("file content here"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "out.txt")
	n, err := newTestFetcher().DownloadToFile(context.Background(), srv.URL+"/file", path)
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file content here", string(data))
}

func TestDownloadIfChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v2"`)
		_, _ = w.Write([]byte("new content"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	body, etag, changed, err := f.DownloadIfChanged(context.Background(), srv.URL, `"v1"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, body)
	assert.Equal(t, `"v1"`, etag)

	body, etag, changed, err = f.DownloadIfChanged(context.Background(), srv.URL, `"v0"`)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, `"v2"`, etag)
	data, err := io.ReadAll(body)
	_ = body.Close()
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetry_429SlowsAdaptiveLimiter(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	lim := NewAdaptiveLimiter(100, 10)
	f := NewHTTPFetcher(HTTPOptions{
		MaxRetries: 3,
		Backoff:    time.Millisecond,
		Limiters:   map[string]*AdaptiveLimiter{u.Host: lim},
	})

	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = body.Close()

	// halved to 50, then raised 20% on success
	assert.InDelta(t, 60, float64(lim.Limit()), 1e-9)
}

func TestDownload_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher().Download(ctx, srv.URL)
	assert.Error(t, err)
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := NewAdaptiveLimiter(10, 10)
	for range 20 {
		a.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), a.Limit())

	for range 20 {
		a.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), a.Limit())
}

func TestDefaultLimiters(t *testing.T) {
	l := DefaultLimiters()
	assert.Contains(t, l, "api.census.gov")
	assert.Contains(t, l, "download.geonames.org")
}

func TestWithQuery(t *testing.T) {
	got, err := WithQuery("https://api.census.gov/data/2022/acs/acs5?key=abc", url.Values{
		"get": {"NAME,B01003_001E"},
	})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Query().Get("key"))
	assert.Equal(t, "NAME,B01003_001E", u.Query().Get("get"))

	_, err = WithQuery("://bad", nil)
	assert.Error(t, err)
}

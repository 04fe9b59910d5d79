package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the base delay between retries; it doubles per attempt.
	Backoff time.Duration
	// Limiters overrides the per-host adaptive limiters.
	Limiters map[string]*AdaptiveLimiter
}

// AdaptiveLimiter is a per-host token bucket that speeds up after successes
// (20% per response, at most 2x the initial rate) and halves after a 429
// (never below a quarter of the initial rate).
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at r events/sec.
func NewAdaptiveLimiter(r rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, burst),
		initial: r,
		current: r,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = min(a.current*1.2, a.initial*2)
	a.limiter.SetLimit(a.current)
}

// OnRateLimit lowers the rate after a 429.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = max(a.current*0.5, a.initial/4)
	a.limiter.SetLimit(a.current)
	zap.L().Warn("fetcher: reducing request rate after 429",
		zap.Float64("new_rate", float64(a.current)),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// DefaultLimiters returns limiters for the Census and GeoNames hosts.
func DefaultLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"api.census.gov":          NewAdaptiveLimiter(5, 5),
		"tigerweb.geo.census.gov": NewAdaptiveLimiter(4, 4),
		"www2.census.gov":         NewAdaptiveLimiter(4, 4),
		"download.geonames.org":   NewAdaptiveLimiter(2, 2),
	}
}

// HTTPFetcher implements Fetcher using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*AdaptiveLimiter

	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "demomap/1.0"
	}
	limiters := opts.Limiters
	if limiters == nil {
		limiters = DefaultLimiters()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
		fallback: make(map[string]*rate.Limiter),
	}
}

// wait applies the host's adaptive limiter, or a shared 20/s limiter for
// unknown hosts. The adaptive limiter is returned so callers can report
// the outcome.
func (f *HTTPFetcher) wait(ctx context.Context, rawURL string) (*AdaptiveLimiter, error) {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	if a, ok := f.limiters[host]; ok {
		return a, eris.Wrap(a.Wait(ctx), "fetcher: rate limiter wait")
	}

	f.mu.Lock()
	lim, ok := f.fallback[host]
	if !ok {
		lim = rate.NewLimiter(20, 20)
		f.fallback[host] = lim
	}
	f.mu.Unlock()
	return nil, eris.Wrap(lim.Wait(ctx), "fetcher: rate limiter wait")
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("url", req.URL.String()))

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		adaptive, err := f.wait(ctx, req.URL.String())
		if err != nil {
			return nil, err
		}

		resp, err := f.client.Do(req.Clone(ctx))
		switch {
		case err != nil:
			lastErr = err
			log.Warn("http request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", req.URL.Host)
			if adaptive != nil {
				adaptive.OnRateLimit()
			}
			log.Warn("rate limited, backing off", zap.Int("attempt", attempt+1))
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.Host)
			log.Warn("server error, retrying", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
		default:
			if adaptive != nil {
				adaptive.OnSuccess()
			}
			return resp, nil
		}

		if attempt < f.opts.MaxRetries-1 {
			f.backoff(ctx, attempt)
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "fetcher: cancelled during retry")
		}
	}

	return nil, eris.Wrap(lastErr, "fetcher: all retries exhausted")
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(f.opts.Backoff) * math.Pow(2, float64(attempt)))
	d = min(d, 30*time.Second)
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (f *HTTPFetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	return req, nil
}

// Download fetches the URL and returns the response body. A 204 response
// yields ErrNoContent.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNoContent:
		_ = resp.Body.Close()
		return nil, ErrNoContent
	default:
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return writeFile(path, body)
}

// DownloadIfChanged fetches the URL only if the ETag has changed.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, "", false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "fetcher: download if changed")
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		_ = resp.Body.Close()
		return nil, etag, false, nil
	case http.StatusOK:
		return resp.Body, resp.Header.Get("ETag"), true, nil
	default:
		_ = resp.Body.Close()
		return nil, "", false, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
}

func writeFile(path string, r io.Reader) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, nil
}

// Package census queries the ACS 5-year API for tract and ZCTA demographics
// and the TIGERweb map service for tract boundaries.
package census

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/fetcher"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/resilience"
)

// Default service endpoints.
const (
	DefaultBaseURL     = "https://api.census.gov/data"
	DefaultTigerWebURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/8/query"
	DefaultYear        = 2022
)

// Variable maps an ACS estimate to the metric it fills.
type Variable struct {
	Code   string
	Metric model.Metric
}

// Variables requested for every geography.
var Variables = []Variable{
	{"B01003_001E", model.MetricPopulation},
	{"B19013_001E", model.MetricMedianIncome},
	{"B01002_001E", model.MetricMedianAge},
	{"B25001_001E", model.MetricHousingUnits},
	{"B25077_001E", model.MetricMedianHomeValue},
}

const zctaColumn = "zip code tabulation area"

// BoundarySource supplies tract polygons for one county.
type BoundarySource interface {
	TractBoundaries(ctx context.Context, stateFIPS, countyFIPS string) ([]model.Boundary, error)
}

// ResponseCache keeps raw API responses between runs.
type ResponseCache interface {
	GetCachedResponse(ctx context.Context, key string) ([]byte, error)
	SetCachedResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the ACS API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTigerWebURL overrides the TIGERweb tract layer query URL.
func WithTigerWebURL(u string) Option {
	return func(c *Client) { c.tigerWebURL = u }
}

// WithYear selects the ACS vintage.
func WithYear(y int) Option {
	return func(c *Client) { c.year = y }
}

// WithAPIKey sets the Census API key. Keyless requests are allowed at a
// lower daily quota.
func WithAPIKey(k string) Option {
	return func(c *Client) { c.apiKey = k }
}

// WithConcurrency bounds the number of counties fetched at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithBoundaryFallback sets a source used when TIGERweb fails for a county.
func WithBoundaryFallback(s BoundarySource) Option {
	return func(c *Client) { c.fallback = s }
}

// WithCache stores successful responses in cache for ttl.
func WithCache(cache ResponseCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithTigerWebBreaker replaces the breaker that stops TIGERweb queries after
// repeated failures.
func WithTigerWebBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.tigerweb = b }
}

// Client talks to the Census Bureau APIs.
type Client struct {
	f           fetcher.Fetcher
	baseURL     string
	tigerWebURL string
	year        int
	apiKey      string
	concurrency int
	fallback    BoundarySource
	cache       ResponseCache
	cacheTTL    time.Duration
	tigerweb    *resilience.Breaker
}

// NewClient creates a Client that downloads through f.
func NewClient(f fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{
		f:           f,
		baseURL:     DefaultBaseURL,
		tigerWebURL: DefaultTigerWebURL,
		year:        DefaultYear,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tigerweb == nil {
		c.tigerweb = resilience.New(resilience.Config{Name: "tigerweb", Threshold: 3, Cooldown: 2 * time.Minute})
	}
	return c
}

func (c *Client) acsURL(forClause, inClause string) (string, error) {
	codes := make([]string, len(Variables))
	for i, v := range Variables {
		codes[i] = v.Code
	}
	q := url.Values{}
	q.Set("get", "NAME,"+strings.Join(codes, ","))
	q.Set("for", forClause)
	if inClause != "" {
		q.Set("in", inClause)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return fetcher.WithQuery(c.baseURL+"/"+strconv.Itoa(c.year)+"/acs/acs5", q)
}

// get downloads rawURL, serving it from the response cache when possible.
// Cache failures are logged and otherwise ignored.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	key := cacheKey(rawURL)
	if c.cache != nil {
		data, err := c.cache.GetCachedResponse(ctx, key)
		if err != nil {
			zap.L().Warn("census: cache read failed", zap.String("key", key), zap.Error(err))
		} else if data != nil {
			return data, nil
		}
	}

	body, err := c.f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.SetCachedResponse(ctx, key, data, c.cacheTTL); err != nil {
			zap.L().Warn("census: cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return data, nil
}

// cacheKey drops the API key so cached rows never hold credentials.
func cacheKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Del("key")
	u.RawQuery = q.Encode()
	return u.String()
}

// getTable downloads an ACS response. Census returns a JSON array of arrays
// whose first row is the header.
func (c *Client) getTable(ctx context.Context, rawURL string) ([]string, [][]string, error) {
	data, err := c.get(ctx, rawURL)
	if eris.Is(err, fetcher.ErrNoContent) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return parseTable(data)
}

func parseTable(data []byte) ([]string, [][]string, error) {
	var raw [][]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, eris.Wrap(err, "census: unmarshal table")
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}

	flatten := func(row []*string) []string {
		out := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				out[i] = *v
			}
		}
		return out
	}
	header := flatten(raw[0])
	rows := make([][]string, 0, len(raw)-1)
	for _, r := range raw[1:] {
		rows = append(rows, flatten(r))
	}
	return header, rows, nil
}

// ParseValue converts an ACS estimate. Empty strings and the negative
// annotation codes (-666666666 and friends) mean the estimate is missing.
func ParseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if v <= -100000000 {
		return 0, false
	}
	return v, true
}

func column(row []string, idx map[string]int, name string) string {
	i, ok := idx[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func setMetrics(r *model.Record, row []string, idx map[string]int) {
	for _, v := range Variables {
		if val, ok := ParseValue(column(row, idx, v.Code)); ok {
			r.Set(v.Metric, val)
		}
	}
}

// Tracts returns ACS estimates for every tract in a county. Records carry
// the 11-digit GEOID but no state abbreviation or county name.
func (c *Client) Tracts(ctx context.Context, stateFIPS, countyFIPS string) ([]*model.Record, error) {
	u, err := c.acsURL("tract:*", "state:"+stateFIPS+" county:"+countyFIPS)
	if err != nil {
		return nil, err
	}
	header, rows, err := c.getTable(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "census: tracts for %s%s", stateFIPS, countyFIPS)
	}

	idx := fetcher.Columns(header)
	out := make([]*model.Record, 0, len(rows))
	for _, row := range rows {
		geoid := column(row, idx, "state") + column(row, idx, "county") + column(row, idx, "tract")
		r := model.NewRecord(model.KindTract, geoid)
		if len(r.ID) != model.GEOIDWidth {
			continue
		}
		setMetrics(r, row, idx)
		out = append(out, r)
	}
	return out, nil
}

// ZCTAs returns ACS estimates for ZIP code tabulation areas. keep filters
// by the five-digit code; nil keeps everything.
func (c *Client) ZCTAs(ctx context.Context, keep func(zip string) bool) ([]*model.Record, error) {
	u, err := c.acsURL(zctaColumn+":*", "")
	if err != nil {
		return nil, err
	}
	header, rows, err := c.getTable(ctx, u)
	if err != nil {
		return nil, eris.Wrap(err, "census: zctas")
	}

	idx := fetcher.Columns(header)
	var out []*model.Record
	for _, row := range rows {
		r := model.NewRecord(model.KindZIP, column(row, idx, zctaColumn))
		if len(r.ID) != model.ZIPWidth || (keep != nil && !keep(r.ID)) {
			continue
		}
		setMetrics(r, row, idx)
		out = append(out, r)
	}
	return out, nil
}

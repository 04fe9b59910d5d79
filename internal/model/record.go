// Package model defines the demographic record shared by every pipeline step.
package model

import (
	"strings"

	"github.com/twpayne/go-geom"
)

// Kind is the geographic unit a record describes.
type Kind int

// Geographic unit kinds.
const (
	KindZIP Kind = iota
	KindTract
)

// Fixed identifier widths.
const (
	ZIPWidth   = 5
	GEOIDWidth = 11
)

// IDColumn is the CSV column holding the record identifier.
func (k Kind) IDColumn() string {
	if k == KindTract {
		return "geoid"
	}
	return "zip_code"
}

func (k Kind) String() string {
	if k == KindTract {
		return "tract"
	}
	return "zip"
}

// Width is the fixed identifier width for the kind.
func (k Kind) Width() int {
	if k == KindTract {
		return GEOIDWidth
	}
	return ZIPWidth
}

// NormalizeID left-pads numeric identifiers that lost their leading zeros and
// drops the trailing block digit from 12-character tract ids.
func NormalizeID(k Kind, raw string) string {
	id := strings.TrimSpace(raw)
	if i := strings.IndexByte(id, '.'); i >= 0 && strings.Trim(id[i+1:], "0") == "" {
		id = id[:i]
	}
	w := k.Width()
	if k == KindTract && len(id) == w+1 {
		id = id[:w]
	}
	if id != "" && len(id) < w {
		id = strings.Repeat("0", w-len(id)) + id
	}
	return id
}

// Record is one ZIP code or census tract with its metrics.
type Record struct {
	ID     string
	Kind   Kind
	State  string
	County string
	City   string

	Lat, Lon float64
	HasPoint bool

	// Boundary is a Polygon or MultiPolygon in lon/lat order, or nil.
	Boundary geom.T
	AreaSqMi float64

	Metrics map[Metric]float64
	Colors  map[Metric]string
}

// NewRecord returns an empty record with its maps allocated.
func NewRecord(k Kind, id string) *Record {
	return &Record{
		ID:      NormalizeID(k, id),
		Kind:    k,
		Metrics: make(map[Metric]float64),
		Colors:  make(map[Metric]string),
	}
}

// Value returns the metric value and whether it is present.
func (r *Record) Value(m Metric) (float64, bool) {
	v, ok := r.Metrics[m]
	return v, ok
}

// Set stores a metric value.
func (r *Record) Set(m Metric, v float64) {
	if r.Metrics == nil {
		r.Metrics = make(map[Metric]float64)
	}
	r.Metrics[m] = v
}

// Unset removes a metric value.
func (r *Record) Unset(m Metric) {
	delete(r.Metrics, m)
	delete(r.Colors, m)
}

// SetPoint records a point location.
func (r *Record) SetPoint(lat, lon float64) {
	r.Lat, r.Lon, r.HasPoint = lat, lon, true
}

// CountyKey identifies a county within a state, e.g. "PA_Bucks".
func (r *Record) CountyKey() string {
	return CountyKey(r.State, r.County)
}

// CountyKey joins a state abbreviation and county name.
func CountyKey(state, county string) string {
	county = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(county), " County"))
	return strings.ToUpper(strings.TrimSpace(state)) + "_" + county
}

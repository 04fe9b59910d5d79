// Package region describes the mapped area: states, counties, their ZIP
// prefixes and fallback demographics, plus the locations drawn on top of the
// choropleth.
package region

import (
	_ "embed"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/demomap/internal/model"
)

//go:embed default.yaml
var defaultYAML []byte

// Region is the full map definition.
type Region struct {
	Name      string     `yaml:"name"`
	Center    [2]float64 `yaml:"center"`
	Zoom      int        `yaml:"zoom"`
	States    []State    `yaml:"states"`
	PointSets []PointSet `yaml:"point_sets"`
	Outlines  []Outline  `yaml:"outlines"`
}

// State is a state and the counties mapped within it.
type State struct {
	Abbr     string   `yaml:"abbr"`
	Name     string   `yaml:"name"`
	FIPS     string   `yaml:"fips"`
	Counties []County `yaml:"counties"`
}

// County is one county with the ZIP prefixes that overlap it.
type County struct {
	Name        string                   `yaml:"name"`
	FIPS        string                   `yaml:"fips"`
	ZIPPrefixes []string                 `yaml:"zip_prefixes"`
	Defaults    map[model.Metric]float64 `yaml:"defaults"`

	State     string `yaml:"-"`
	StateFIPS string `yaml:"-"`
}

// Key is the county key used by model.CountyKey.
func (c County) Key() string { return model.CountyKey(c.State, c.Name) }

// GEOIDPrefix is the five-digit state+county FIPS prefix shared by tract ids.
func (c County) GEOIDPrefix() string { return c.StateFIPS + c.FIPS }

// PointSet is a named group of locations drawn as markers.
type PointSet struct {
	Name        string  `yaml:"name"`
	Label       string  `yaml:"label"`
	Color       string  `yaml:"color"`
	ReachMeters float64 `yaml:"reach_meters"`
	ReachFill   bool    `yaml:"reach_fill"`
	Points      []Point `yaml:"points"`
}

// Point is a single named location.
type Point struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Outline is a highlighted boundary drawn as a line. Path is lat/lon pairs.
type Outline struct {
	Name  string       `yaml:"name"`
	Color string       `yaml:"color"`
	Path  [][2]float64 `yaml:"path"`
}

// Default returns the built-in NJ/DE/eastern PA region.
func Default() (*Region, error) {
	return Parse(defaultYAML)
}

// Load reads a region file. An empty path returns the built-in region.
func Load(path string) (*Region, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "region: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a region definition.
func Parse(data []byte) (*Region, error) {
	var r Region
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "region: parse")
	}

	for si := range r.States {
		s := &r.States[si]
		s.Abbr = strings.ToUpper(strings.TrimSpace(s.Abbr))
		for ci := range s.Counties {
			s.Counties[ci].State = s.Abbr
			s.Counties[ci].StateFIPS = s.FIPS
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Region) validate() error {
	if len(r.States) == 0 {
		return eris.New("region: no states defined")
	}
	for _, s := range r.States {
		if len(s.Abbr) != 2 || len(s.FIPS) != 2 {
			return eris.Errorf("region: state %q needs a 2-letter abbr and 2-digit fips", s.Name)
		}
		for _, c := range s.Counties {
			if len(c.FIPS) != 3 {
				return eris.Errorf("region: county %s needs a 3-digit fips, got %q", c.Key(), c.FIPS)
			}
			for _, p := range c.ZIPPrefixes {
				if len(p) != 3 {
					return eris.Errorf("region: county %s has bad zip prefix %q", c.Key(), p)
				}
			}
			for m := range c.Defaults {
				if _, err := model.ParseMetric(string(m)); err != nil {
					return eris.Wrapf(err, "region: county %s defaults", c.Key())
				}
			}
		}
	}
	return nil
}

// State looks up a state by abbreviation.
func (r *Region) State(abbr string) (State, bool) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	for _, s := range r.States {
		if s.Abbr == abbr {
			return s, true
		}
	}
	return State{}, false
}

// Counties returns every county in state order.
func (r *Region) Counties() []County {
	var out []County
	for _, s := range r.States {
		out = append(out, s.Counties...)
	}
	return out
}

// County looks up a county by state abbreviation and name. A trailing
// " County" on the name is ignored.
func (r *Region) County(state, name string) (County, bool) {
	key := model.CountyKey(state, name)
	for _, c := range r.Counties() {
		if strings.EqualFold(c.Key(), key) {
			return c, true
		}
	}
	return County{}, false
}

// CountyByGEOID finds the county a tract GEOID belongs to.
func (r *Region) CountyByGEOID(geoid string) (County, bool) {
	if len(geoid) < 5 {
		return County{}, false
	}
	for _, c := range r.Counties() {
		if c.GEOIDPrefix() == geoid[:5] {
			return c, true
		}
	}
	return County{}, false
}

// Prefixes returns the distinct ZIP prefixes of all counties, sorted.
func (r *Region) Prefixes() []string {
	var out []string
	for _, c := range r.Counties() {
		out = append(out, c.ZIPPrefixes...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// CountiesForPrefix returns the counties whose ZIP prefixes include p.
func (r *Region) CountiesForPrefix(p string) []County {
	var out []County
	for _, c := range r.Counties() {
		if slices.Contains(c.ZIPPrefixes, p) {
			out = append(out, c)
		}
	}
	return out
}

// Default returns the fallback value of a metric for the county key.
func (r *Region) Default(countyKey string, m model.Metric) (float64, bool) {
	for _, c := range r.Counties() {
		if strings.EqualFold(c.Key(), countyKey) {
			v, ok := c.Defaults[m]
			return v, ok
		}
	}
	return 0, false
}

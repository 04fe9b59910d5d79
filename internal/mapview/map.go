// Package mapview assembles layered Leaflet maps and renders them to a single
// self-contained HTML file.
package mapview

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

//go:embed map.html.tmpl
var mapTemplate string

var tmpl = template.Must(template.New("map").Parse(mapTemplate))

// LayerKind selects how a layer is drawn.
type LayerKind string

// Layer kinds.
const (
	KindChoropleth LayerKind = "choropleth"
	KindCircles    LayerKind = "circles"
	KindMarkers    LayerKind = "markers"
	KindOutline    LayerKind = "outline"
)

// Tile is a base map provider.
type Tile struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Tiles are the known base maps by config name.
var Tiles = map[string]Tile{
	"cartodbpositron": {
		Name:        "CartoDB Positron",
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
	},
	"openstreetmap": {
		Name:        "OpenStreetMap",
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap contributors",
	},
}

// TileFor returns the named tile set, or Positron when the name is unknown.
func TileFor(name string) Tile {
	if t, ok := Tiles[strings.ToLower(name)]; ok {
		return t
	}
	return Tiles["cartodbpositron"]
}

// Style is the Leaflet path style of a shape.
type Style struct {
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor,omitempty"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
	Fill        bool    `json:"fill"`
	DashArray   string  `json:"dashArray,omitempty"`
}

// Shape is a polygon feature of a choropleth layer. Geometry is GeoJSON.
type Shape struct {
	Geometry json.RawMessage `json:"geometry"`
	Style    Style           `json:"style"`
	Tooltip  string          `json:"tooltip,omitempty"`
}

// Circle is a circle with a radius in meters.
type Circle struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Radius  float64 `json:"radius"`
	Style   Style   `json:"style"`
	Tooltip string  `json:"tooltip,omitempty"`
}

// Marker is a labelled point drawn as a round badge.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Color   string  `json:"color"`
	Tooltip string  `json:"tooltip,omitempty"`
	Popup   string  `json:"popup,omitempty"`
}

// Line is a polyline; Path holds lat/lon pairs.
type Line struct {
	Path    [][2]float64 `json:"path"`
	Style   Style        `json:"style"`
	Tooltip string       `json:"tooltip,omitempty"`
}

// Layer is one toggleable overlay.
type Layer struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Kind    LayerKind `json:"kind"`
	Visible bool      `json:"visible"`
	// Exclusive layers are radio buttons; only one shows at a time.
	Exclusive bool     `json:"exclusive"`
	Shapes    []Shape  `json:"shapes,omitempty"`
	Circles   []Circle `json:"circles,omitempty"`
	Markers   []Marker `json:"markers,omitempty"`
	Lines     []Line   `json:"lines,omitempty"`
}

// Size returns the number of drawn elements.
func (l *Layer) Size() int {
	return len(l.Shapes) + len(l.Circles) + len(l.Markers) + len(l.Lines)
}

// Map is a complete map document.
type Map struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Center  [2]float64 `json:"center"`
	Zoom    int        `json:"zoom"`
	Tile    Tile       `json:"tile"`
	Layers  []*Layer   `json:"layers"`
	Legends []Legend   `json:"legends"`
}

// New creates an empty map.
func New(title string, center [2]float64, zoom int, tile Tile) *Map {
	return &Map{
		ID:     newID("map"),
		Title:  title,
		Center: center,
		Zoom:   zoom,
		Tile:   tile,
	}
}

// AddLayer appends a layer with a fresh id and returns it.
func (m *Map) AddLayer(name string, kind LayerKind, visible bool) *Layer {
	l := &Layer{ID: newID("layer"), Name: name, Kind: kind, Visible: visible}
	m.Layers = append(m.Layers, l)
	return l
}

// Layer finds a layer by name.
func (m *Map) Layer(name string) (*Layer, bool) {
	for _, l := range m.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Render writes the map as a standalone HTML document.
func (m *Map) Render(w io.Writer) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "mapview: marshal map")
	}
	err = tmpl.Execute(w, struct {
		Map  *Map
		Data template.JS
	}{m, template.JS(data)}) //nolint:gosec // json.Marshal escapes <, > and &
	return eris.Wrap(err, "mapview: execute template")
}

// Save renders the map to path, creating parent directories.
func (m *Map) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "mapview: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "mapview: create %s", path)
	}
	if err := m.Render(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "mapview: close file")
}

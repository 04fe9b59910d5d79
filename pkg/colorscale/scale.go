// Package colorscale maps scalar values onto hex colours for choropleth layers.
//
// A Scale is an ordered list of segments over the normalised domain [0, 1].
// Each segment blends linearly between two RGB colours. The observed value
// range is always passed in explicitly so results depend only on the inputs.
package colorscale

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// Validation errors.
var (
	ErrStopCount     = eris.New("colorscale: scale needs 2 or 3 stops")
	ErrNonFinite     = eris.New("colorscale: value or range is not finite")
	ErrInvertedRange = eris.New("colorscale: range min exceeds max")
	ErrSegments      = eris.New("colorscale: segments must cover [0, 1] in order")
)

// RGB is an 8-bit colour triple.
type RGB struct {
	R, G, B uint8
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses a #rrggbb (or #rgb) string.
func ParseHex(s string) (RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, eris.Wrapf(err, "colorscale: parse %q", s)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// MustHex is ParseHex for package-level literals.
func MustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Range is the observed [Min, Max] of a metric across a dataset.
type Range struct {
	Min, Max float64
}

// Validate reports whether the range can be used for normalisation.
func (r Range) Validate() error {
	if !finite(r.Min) || !finite(r.Max) {
		return ErrNonFinite
	}
	if r.Min > r.Max {
		return eris.Wrapf(ErrInvertedRange, "min=%g max=%g", r.Min, r.Max)
	}
	return nil
}

// Segment blends From→To over the normalised sub-domain [Lo, Hi].
type Segment struct {
	Lo, Hi   float64
	From, To RGB
}

// Scale is a named, immutable colour ramp.
type Scale struct {
	Name     string
	Segments []Segment
}

// TwoStop returns a single linear blend from lo to hi.
func TwoStop(name string, lo, hi RGB) Scale {
	return Scale{Name: name, Segments: []Segment{{Lo: 0, Hi: 1, From: lo, To: hi}}}
}

// ThreeStop splits the domain into two equal halves: lo→mid, mid→hi.
func ThreeStop(name string, lo, mid, hi RGB) Scale {
	return Scale{Name: name, Segments: []Segment{
		{Lo: 0, Hi: 0.5, From: lo, To: mid},
		{Lo: 0.5, Hi: 1, From: mid, To: hi},
	}}
}

// Tiered break points.
const (
	tierLow  = 0.33
	tierHigh = 0.67
)

// Tiered returns the three-segment ramp with breaks at 0.33 and 0.67.
func Tiered(name string, c0, c1, c2, c3 RGB) Scale {
	return Scale{Name: name, Segments: []Segment{
		{Lo: 0, Hi: tierLow, From: c0, To: c1},
		{Lo: tierLow, Hi: tierHigh, From: c1, To: c2},
		{Lo: tierHigh, Hi: 1, From: c2, To: c3},
	}}
}

// FromSegments builds a scale from explicit segments, which may be
// discontinuous at their joins.
func FromSegments(name string, segs ...Segment) (Scale, error) {
	s := Scale{Name: name, Segments: segs}
	if err := s.Validate(); err != nil {
		return Scale{}, err
	}
	return s, nil
}

// New builds a scale from 2 or 3 evenly placed stops. Three stops break at
// 0.5; use Tiered with a repeated middle stop for a flat middle band.
func New(name string, stops ...RGB) (Scale, error) {
	switch len(stops) {
	case 2:
		return TwoStop(name, stops[0], stops[1]), nil
	case 3:
		return ThreeStop(name, stops[0], stops[1], stops[2]), nil
	default:
		return Scale{}, eris.Wrapf(ErrStopCount, "%s: got %d", name, len(stops))
	}
}

// Validate checks that the segments are ordered, contiguous and span [0, 1].
func (s Scale) Validate() error {
	if len(s.Segments) == 0 {
		return eris.Wrapf(ErrSegments, "%s: no segments", s.Name)
	}
	if s.Segments[0].Lo != 0 || s.Segments[len(s.Segments)-1].Hi != 1 {
		return eris.Wrapf(ErrSegments, "%s: domain not [0, 1]", s.Name)
	}
	for i, seg := range s.Segments {
		if !(seg.Lo < seg.Hi) {
			return eris.Wrapf(ErrSegments, "%s: segment %d is empty", s.Name, i)
		}
		if i > 0 && s.Segments[i-1].Hi != seg.Lo {
			return eris.Wrapf(ErrSegments, "%s: gap before segment %d", s.Name, i)
		}
	}
	return nil
}

// Normalize maps value into [0, 1] relative to r. A degenerate range maps
// every value to 0.5.
func Normalize(value float64, r Range) float64 {
	t := 0.5
	if r.Max > r.Min {
		t = (value - r.Min) / (r.Max - r.Min)
	}
	return math.Max(0, math.Min(1, t))
}

// At returns the colour at normalised position t. t is clamped to [0, 1].
// A scale without segments yields black.
func (s Scale) At(t float64) RGB {
	if len(s.Segments) == 0 {
		return RGB{}
	}
	t = math.Max(0, math.Min(1, t))
	seg := s.Segments[len(s.Segments)-1]
	for _, candidate := range s.Segments[:len(s.Segments)-1] {
		if t < candidate.Hi {
			seg = candidate
			break
		}
	}
	f := (t - seg.Lo) / (seg.Hi - seg.Lo)
	f = math.Max(0, math.Min(1, f))
	return RGB{
		R: blend(seg.From.R, seg.To.R, f),
		G: blend(seg.From.G, seg.To.G, f),
		B: blend(seg.From.B, seg.To.B, f),
	}
}

// Color returns the hex colour for value within r.
func (s Scale) Color(value float64, r Range) (string, error) {
	if len(s.Segments) == 0 {
		return "", eris.Wrapf(ErrSegments, "%s: no segments", s.Name)
	}
	if !finite(value) {
		return "", eris.Wrapf(ErrNonFinite, "%s: value %g", s.Name, value)
	}
	if err := r.Validate(); err != nil {
		return "", eris.Wrapf(err, "%s", s.Name)
	}
	return s.At(Normalize(value, r)).Hex(), nil
}

// MustColor is Color for callers that have already validated their input.
func (s Scale) MustColor(value float64, r Range) string {
	c, err := s.Color(value, r)
	if err != nil {
		panic(err)
	}
	return c
}

// Gradient samples n evenly spaced colours from the scale, for legends.
func (s Scale) Gradient(n int) []string {
	if n < 2 {
		n = 2
	}
	out := make([]string, n)
	for i := range n {
		out[i] = s.At(float64(i) / float64(n-1)).Hex()
	}
	return out
}

// blend truncates toward zero and clamps to a byte.
func blend(from, to uint8, f float64) uint8 {
	v := float64(from) + (float64(to)-float64(from))*f
	v = math.Trunc(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

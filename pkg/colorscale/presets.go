package colorscale

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Family groups scales that share an interpolation layout.
type Family int

// Scale families.
const (
	// Classic is a single light-to-dark blend per hue.
	Classic Family = iota
	// Contrast blends near-white to a saturated dark tone.
	Contrast
	// Linear3 spreads three stops evenly over the domain.
	Linear3
	// Strong uses four stops with breaks at 0.33 and 0.67.
	Strong
)

var familyNames = map[Family]string{
	Classic:  "classic",
	Contrast: "contrast",
	Linear3:  "linear3",
	Strong:   "strong",
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return "unknown"
}

// ParseFamily resolves a configured family name.
func ParseFamily(s string) (Family, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, n := range familyNames {
		if n == s {
			return f, nil
		}
	}
	return 0, eris.Errorf("colorscale: unknown family %q", s)
}

// Theme is the hue assigned to a demographic dimension.
type Theme int

// Themes.
const (
	Green Theme = iota
	Blue
	Purple
	Orange
	Red
	Forest
)

type presetKey struct {
	family Family
	theme  Theme
}

var presets = map[presetKey]Scale{
	{Classic, Green}:  TwoStop("classic-green", RGB{0, 255, 0}, RGB{0, 100, 0}),
	{Classic, Blue}:   TwoStop("classic-blue", RGB{173, 216, 230}, RGB{0, 90, 160}),
	{Classic, Purple}: TwoStop("classic-purple", RGB{221, 160, 221}, RGB{130, 50, 130}),
	{Classic, Orange}: TwoStop("classic-orange", RGB{255, 200, 0}, RGB{255, 145, 0}),
	{Classic, Red}:    TwoStop("classic-red", RGB{255, 160, 122}, RGB{255, 0, 0}),

	{Contrast, Green}:  TwoStop("contrast-green", MustHex("#F7FFF7"), MustHex("#004D00")),
	{Contrast, Blue}:   TwoStop("contrast-blue", MustHex("#F0F8FF"), MustHex("#00008B")),
	{Contrast, Purple}: TwoStop("contrast-purple", MustHex("#FDF5FF"), MustHex("#2E0854")),
	{Contrast, Orange}: TwoStop("contrast-orange", MustHex("#FFFBF0"), MustHex("#B34400")),
	{Contrast, Red}:    TwoStop("contrast-red", MustHex("#FFF5F5"), MustHex("#8B0000")),
	{Contrast, Forest}: TwoStop("contrast-forest", MustHex("#FFFFF0"), MustHex("#006400")),

	{Linear3, Green}:  ThreeStop("linear3-green", MustHex("#F7FFF7"), MustHex("#00AA00"), MustHex("#004D00")),
	{Linear3, Blue}:   ThreeStop("linear3-blue", MustHex("#F0F8FF"), MustHex("#0066CC"), MustHex("#00008B")),
	{Linear3, Purple}: ThreeStop("linear3-purple", MustHex("#FDF5FF"), MustHex("#7B2D9E"), MustHex("#2E0854")),
	{Linear3, Orange}: ThreeStop("linear3-orange", MustHex("#FFFFF0"), MustHex("#228B22"), MustHex("#006400")),
	{Linear3, Red}:    ThreeStop("linear3-red", MustHex("#FFFFF0"), MustHex("#228B22"), MustHex("#006400")),
	{Linear3, Forest}: ThreeStop("linear3-forest", MustHex("#FFFFF0"), MustHex("#228B22"), MustHex("#006400")),

	{Strong, Green}:  Tiered("strong-green", RGB{232, 245, 233}, RGB{102, 187, 106}, RGB{27, 94, 32}, RGB{11, 56, 10}),
	{Strong, Blue}:   Tiered("strong-blue", RGB{227, 242, 253}, RGB{66, 165, 245}, RGB{13, 71, 161}, RGB{5, 34, 92}),
	{Strong, Purple}: Tiered("strong-purple", RGB{243, 229, 245}, RGB{171, 71, 188}, RGB{74, 20, 140}, RGB{35, 7, 66}),
	{Strong, Orange}: Tiered("strong-orange", RGB{255, 243, 224}, RGB{255, 152, 0}, RGB{255, 81, 0}, RGB{230, 0, 0}),
	// The red ramp jumps from 255 to 239 on the red channel at 0.33.
	{Strong, Red}: {Name: "strong-red", Segments: []Segment{
		{Lo: 0, Hi: tierLow, From: RGB{255, 235, 238}, To: RGB{255, 83, 80}},
		{Lo: tierLow, Hi: tierHigh, From: RGB{239, 83, 80}, To: RGB{183, 28, 28}},
		{Lo: tierHigh, Hi: 1, From: RGB{183, 28, 28}, To: RGB{136, 14, 14}},
	}},
}

// Preset returns the built-in scale for a family and theme.
func Preset(f Family, t Theme) (Scale, bool) {
	s, ok := presets[presetKey{f, t}]
	return s, ok
}

// PresetOr returns the preset for (f, t), falling back to the Contrast scale
// for t, then to Contrast green for an unknown theme.
func PresetOr(f Family, t Theme) Scale {
	if s, ok := Preset(f, t); ok {
		return s
	}
	if s, ok := Preset(Contrast, t); ok {
		return s
	}
	return presets[presetKey{Contrast, Green}]
}

// Package synth generates a deterministic synthetic ZIP demographic dataset
// for the mapped region. It stands in for the ACS API when that is
// unavailable and supplies the jitter used when imputing county defaults.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sells-group/demomap/internal/model"
)

// DefaultSeed keeps generated datasets stable between runs.
const DefaultSeed = 42

// Profile describes the demographic spread of a group of ZIP prefixes.
// Ranges are half-open [lo, hi).
type Profile struct {
	Name     string
	State    string
	Prefixes []string
	// Suffixes run from First up to (not including) Last in steps of Step.
	First, Last    int
	Step           int
	Population     [2]int
	AreaSqMi       [2]float64
	Income         [2]int
	Age            [2]int
	PersonsPerUnit [2]float64
}

// Profiles covers New Jersey, Delaware and eastern Pennsylvania.
var Profiles = []Profile{
	{"North NJ", "NJ", []string{"070", "071", "072", "073", "074", "075", "076", "077"}, 10, 99, 3,
		[2]int{15000, 55000}, [2]float64{1.5, 8}, [2]int{65000, 125000}, [2]int{35, 45}, [2]float64{2.3, 2.8}},
	{"Central NJ", "NJ", []string{"078", "079", "080", "088", "089"}, 10, 99, 4,
		[2]int{12000, 45000}, [2]float64{2, 12}, [2]int{55000, 95000}, [2]int{36, 44}, [2]float64{2.4, 2.9}},
	{"South NJ", "NJ", []string{"081", "082", "083", "084"}, 10, 99, 4,
		[2]int{8000, 35000}, [2]float64{3, 25}, [2]int{48000, 85000}, [2]int{38, 46}, [2]float64{2.5, 3}},
	{"North DE", "DE", []string{"197", "198", "199"}, 10, 99, 5,
		[2]int{10000, 45000}, [2]float64{2, 10}, [2]int{52000, 88000}, [2]int{34, 42}, [2]float64{2.3, 2.7}},
	{"South DE", "DE", []string{"199"}, 30, 80, 8,
		[2]int{5000, 25000}, [2]float64{15, 50}, [2]int{45000, 75000}, [2]int{40, 50}, [2]float64{2.2, 2.6}},
	{"Philadelphia", "PA", []string{"190", "191"}, 10, 99, 3,
		[2]int{18000, 60000}, [2]float64{0.8, 5}, [2]int{38000, 75000}, [2]int{32, 40}, [2]float64{2.2, 2.6}},
	{"Suburban Philadelphia", "PA", []string{"189", "193", "194"}, 10, 99, 4,
		[2]int{15000, 45000}, [2]float64{2, 12}, [2]int{75000, 135000}, [2]int{38, 46}, [2]float64{2.4, 2.9}},
	{"Lehigh Valley", "PA", []string{"180", "181", "182"}, 10, 99, 5,
		[2]int{12000, 40000}, [2]float64{3, 15}, [2]int{55000, 85000}, [2]int{36, 43}, [2]float64{2.4, 2.8}},
	{"Poconos", "PA", []string{"183", "184", "186"}, 10, 99, 6,
		[2]int{8000, 30000}, [2]float64{8, 40}, [2]int{45000, 72000}, [2]int{39, 47}, [2]float64{2.3, 2.7}},
	{"Reading", "PA", []string{"195", "196"}, 10, 80, 6,
		[2]int{10000, 35000}, [2]float64{4, 20}, [2]int{48000, 70000}, [2]int{37, 44}, [2]float64{2.4, 2.8}},
}

// NewRand returns the generator used for a seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Generate builds one record per synthetic ZIP, sorted by state then ZIP.
// A ZIP produced by more than one profile keeps its first values.
func Generate(seed int64, profiles []Profile) []*model.Record {
	rng := NewRand(seed)
	seen := make(map[string]bool)
	var out []*model.Record

	for _, p := range profiles {
		step := max(p.Step, 1)
		for _, prefix := range p.Prefixes {
			for i := p.First; i < p.Last && i < 100; i += step {
				r := p.record(rng, fmt.Sprintf("%s%02d", prefix, i))
				if seen[r.ID] {
					continue
				}
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (p Profile) record(rng *rand.Rand, zip string) *model.Record {
	pop := intIn(rng, p.Population)
	area := floatIn(rng, p.AreaSqMi)

	r := model.NewRecord(model.KindZIP, zip)
	r.State = p.State
	r.AreaSqMi = area
	r.Set(model.MetricPopulation, float64(pop))
	r.Set(model.MetricMedianIncome, float64(intIn(rng, p.Income)))
	r.Set(model.MetricMedianAge, float64(intIn(rng, p.Age)))
	r.Set(model.MetricHousingUnits, math.Trunc(float64(pop)/floatIn(rng, p.PersonsPerUnit)))
	r.Set(model.MetricDensity, math.Trunc(float64(pop)/area))
	return r
}

func intIn(rng *rand.Rand, r [2]int) int {
	if r[1] <= r[0] {
		return r[0]
	}
	return r[0] + rng.IntN(r[1]-r[0])
}

func floatIn(rng *rand.Rand, r [2]float64) float64 {
	return r[0] + rng.Float64()*(r[1]-r[0])
}

// Jitter perturbs a county default so imputed values do not repeat
// exactly. A nil rng returns base unchanged.
func Jitter(rng *rand.Rand, m model.Metric, base float64) float64 {
	if rng == nil {
		return base
	}
	switch m {
	case model.MetricPopulation, model.MetricHousingUnits:
		return math.Trunc(base * floatIn(rng, [2]float64{0.7, 1.3}))
	case model.MetricMedianIncome, model.MetricMedianHomeValue:
		return math.Trunc(base * floatIn(rng, [2]float64{0.85, 1.15}))
	case model.MetricMedianAge:
		return math.Trunc(base) + float64(intIn(rng, [2]int{-3, 4}))
	case model.MetricDensity:
		return math.Trunc(base * floatIn(rng, [2]float64{0.6, 1.4}))
	default:
		return base
	}
}

// DensityCategory buckets a density the way the summary report does.
func DensityCategory(d float64) string {
	switch {
	case d <= 500:
		return "Rural"
	case d <= 2000:
		return "Suburban"
	case d <= 5000:
		return "Urban"
	default:
		return "Dense Urban"
	}
}

// IncomeCategory buckets a median income.
func IncomeCategory(v float64) string {
	switch {
	case v <= 50000:
		return "Low"
	case v <= 75000:
		return "Medium"
	case v <= 100000:
		return "High"
	default:
		return "Very High"
	}
}

package census

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/resilience"
)

// Result is the outcome of a region-wide tract fetch.
type Result struct {
	Records    []*model.Record
	Boundaries map[string]model.Boundary
	// Failed lists county keys whose demographics could not be fetched.
	Failed []string
}

// FetchTracts fetches ACS estimates and boundaries for every county, a
// bounded number at a time. A county that fails is logged and skipped.
// Records are sorted by GEOID.
func (c *Client) FetchTracts(ctx context.Context, counties []region.County) (*Result, error) {
	log := zap.L().With(zap.String("component", "census"))

	res := &Result{Boundaries: make(map[string]model.Boundary)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, county := range counties {
		g.Go(func() error {
			clog := log.With(zap.String("county", county.Key()))

			recs, err := c.Tracts(gctx, county.StateFIPS, county.FIPS)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				clog.Warn("acs fetch failed, skipping county", zap.Error(err))
				mu.Lock()
				res.Failed = append(res.Failed, county.Key())
				mu.Unlock()
				return nil
			}
			for _, r := range recs {
				r.State = county.State
				r.County = county.Name
			}

			bounds, err := resilience.Call(gctx, c.tigerweb, func(ctx context.Context) ([]model.Boundary, error) {
				return c.TractBoundaries(ctx, county.StateFIPS, county.FIPS)
			})
			if err != nil && c.fallback != nil && gctx.Err() == nil {
				clog.Warn("tigerweb failed, using shapefile fallback", zap.Error(err))
				bounds, err = c.fallback.TractBoundaries(gctx, county.StateFIPS, county.FIPS)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				clog.Warn("no tract boundaries for county", zap.Error(err))
			}

			clog.Info("fetched county",
				zap.Int("tracts", len(recs)),
				zap.Int("boundaries", len(bounds)),
			)

			mu.Lock()
			defer mu.Unlock()
			res.Records = append(res.Records, recs...)
			for _, b := range bounds {
				res.Boundaries[b.ID] = b
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(res.Records, func(a, b *model.Record) int { return strings.Compare(a.ID, b.ID) })
	slices.Sort(res.Failed)
	return res, nil
}

// Assemble joins records with their boundaries and derives density as
// population per square mile. Records without a boundary, or missing both
// population and median income, are dropped.
func Assemble(records []*model.Record, bounds map[string]model.Boundary) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, r := range records {
		b, ok := bounds[r.ID]
		if !ok || b.Geometry == nil {
			continue
		}
		_, hasPop := r.Value(model.MetricPopulation)
		_, hasIncome := r.Value(model.MetricMedianIncome)
		if !hasPop && !hasIncome {
			continue
		}

		Attach(r, b)
		out = append(out, r)
	}
	return out
}

// Attach sets a record's boundary and area and, when population is known,
// its density.
func Attach(r *model.Record, b model.Boundary) {
	r.Boundary = b.Geometry
	r.AreaSqMi = b.AreaSqMi
	if pop, ok := r.Value(model.MetricPopulation); ok && b.AreaSqMi > 0 {
		r.Set(model.MetricDensity, pop/b.AreaSqMi)
	}
}

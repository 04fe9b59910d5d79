package dataset

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/model"
)

// Locator resolves a ZIP to its gazetteer entry; nil means unknown.
type Locator interface {
	Lookup(ctx context.Context, zip string) (*model.PostalCode, error)
}

// FromPostalCodes turns gazetteer entries into located ZIP records.
func FromPostalCodes(codes []model.PostalCode) []*model.Record {
	out := make([]*model.Record, 0, len(codes))
	for _, c := range codes {
		out = append(out, fromPostal(c))
	}
	return out
}

func fromPostal(c model.PostalCode) *model.Record {
	r := model.NewRecord(model.KindZIP, c.ZIP)
	r.State = c.State
	r.County = c.County
	r.City = c.City
	r.SetPoint(c.Lat, c.Lon)
	return r
}

// Geocode attaches gazetteer coordinates to ZIP records. Records the
// gazetteer does not know are dropped. Existing state, county and city
// values are kept.
func Geocode(ctx context.Context, records []*model.Record, loc Locator) ([]*model.Record, error) {
	out := make([]*model.Record, 0, len(records))
	missing := 0
	for _, r := range records {
		p, err := loc.Lookup(ctx, r.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: geocode %s", r.ID)
		}
		if p == nil {
			missing++
			continue
		}
		r.SetPoint(p.Lat, p.Lon)
		if r.State == "" {
			r.State = p.State
		}
		if r.County == "" {
			r.County = p.County
		}
		if r.City == "" {
			r.City = p.City
		}
		out = append(out, r)
	}

	zap.L().Info("dataset: geocoded records",
		zap.Int("located", len(out)),
		zap.Int("not_found", missing),
	)
	return out, nil
}

// Merge copies metrics from demo onto the matching base records by id and
// returns base with the number of matches. Values already on a base record
// win. Base records without a match are kept for imputation.
func Merge(base, demo []*model.Record) ([]*model.Record, int) {
	byID := make(map[string]*model.Record, len(demo))
	for _, d := range demo {
		byID[d.ID] = d
	}

	matched := 0
	for _, r := range base {
		d, ok := byID[r.ID]
		if !ok {
			continue
		}
		matched++
		for m, v := range d.Metrics {
			if _, has := r.Value(m); !has {
				r.Set(m, v)
			}
		}
		if r.AreaSqMi == 0 {
			r.AreaSqMi = d.AreaSqMi
		}
		if r.Boundary == nil {
			r.Boundary = d.Boundary
		}
		if r.City == "" {
			r.City = d.City
		}
		if r.State == "" {
			r.State = d.State
		}
		if r.County == "" {
			r.County = d.County
		}
	}
	return base, matched
}

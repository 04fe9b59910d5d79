package gazetteer

import (
	"context"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/store"
)

// Gazetteer answers ZIP lookups from the store. Single-ZIP lookups,
// including misses, are memoized for the configured TTL.
type Gazetteer struct {
	store store.Store
	memo  *ttlcache.Cache[string, *model.PostalCode]
}

// New creates a Gazetteer backed by st.
func New(st store.Store, ttl time.Duration) *Gazetteer {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Gazetteer{
		store: st,
		memo:  ttlcache.New[string, *model.PostalCode](ttlcache.WithTTL[string, *model.PostalCode](ttl)),
	}
}

// Lookup returns the ZIP's gazetteer entry, or nil when it is unknown.
func (g *Gazetteer) Lookup(ctx context.Context, zip string) (*model.PostalCode, error) {
	zip = model.NormalizeID(model.KindZIP, zip)
	if item := g.memo.Get(zip); item != nil {
		return item.Value(), nil
	}

	p, err := g.store.PostalCode(ctx, zip)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: lookup %s", zip)
	}
	g.memo.Set(zip, p, ttlcache.DefaultTTL)
	return p, nil
}

// Hits reports memo hits and misses.
func (g *Gazetteer) Hits() (hits, misses uint64) {
	m := g.memo.Metrics()
	return m.Hits, m.Misses
}

// ByCounty returns the county's ZIPs sorted by code.
func (g *Gazetteer) ByCounty(ctx context.Context, c region.County) ([]model.PostalCode, error) {
	codes, err := g.store.PostalCodesByCounty(ctx, c.State, c.Name)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: county %s", c.Key())
	}
	return codes, nil
}

// ByPrefix returns the ZIPs starting with prefix.
func (g *Gazetteer) ByPrefix(ctx context.Context, prefix string) ([]model.PostalCode, error) {
	codes, err := g.store.PostalCodesByPrefix(ctx, prefix)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: prefix %s", prefix)
	}
	return codes, nil
}

// CountyZIPs is one county's ZIP list.
type CountyZIPs struct {
	County region.County
	Codes  []model.PostalCode
}

// Coverage is the ZIP list of every county in a region.
type Coverage struct {
	Counties []CountyZIPs
	// Missing lists the keys of counties without any ZIP.
	Missing []string
}

// Total returns the number of ZIPs across all counties.
func (c *Coverage) Total() int {
	n := 0
	for _, cz := range c.Counties {
		n += len(cz.Codes)
	}
	return n
}

// Coverage lists the ZIPs of every county in reg and reports the counties
// the gazetteer has nothing for.
func (g *Gazetteer) Coverage(ctx context.Context, reg *region.Region) (*Coverage, error) {
	cov := &Coverage{}
	for _, c := range reg.Counties() {
		codes, err := g.ByCounty(ctx, c)
		if err != nil {
			return nil, err
		}
		cov.Counties = append(cov.Counties, CountyZIPs{County: c, Codes: codes})
		if len(codes) == 0 {
			cov.Missing = append(cov.Missing, c.Key())
		}
	}
	sort.Strings(cov.Missing)
	return cov, nil
}

package tiger

import (
	"context"
	"strings"
	"sync"

	"github.com/sells-group/demomap/internal/model"
)

// TractSource serves county tract boundaries from the per-state TIGER/Line
// tract shapefiles, reading each state file once.
type TractSource struct {
	Downloader *Downloader
	BaseURL    string
	Year       int

	mu     sync.Mutex
	states map[string][]model.Boundary
}

// TractBoundaries returns the tracts whose GEOID starts with the state and
// county FIPS codes.
func (s *TractSource) TractBoundaries(ctx context.Context, stateFIPS, countyFIPS string) ([]model.Boundary, error) {
	all, err := s.state(ctx, stateFIPS)
	if err != nil {
		return nil, err
	}
	prefix := stateFIPS + countyFIPS
	var out []model.Boundary
	for _, b := range all {
		if strings.HasPrefix(b.ID, prefix) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *TractSource) state(ctx context.Context, stateFIPS string) ([]model.Boundary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.states[stateFIPS]; ok {
		return b, nil
	}

	shpPath, err := s.Downloader.Download(ctx, DownloadURL(s.BaseURL, Tract, s.Year, stateFIPS))
	if err != nil {
		return nil, err
	}
	bounds, err := ReadBoundaries(shpPath, Tract, nil)
	if err != nil {
		return nil, err
	}
	if s.states == nil {
		s.states = make(map[string][]model.Boundary)
	}
	s.states[stateFIPS] = bounds
	return bounds, nil
}

// ZCTABoundaries reads the national ZCTA file, keeping codes accepted by keep.
func ZCTABoundaries(ctx context.Context, d *Downloader, baseURL string, year int, keep func(zip string) bool) ([]model.Boundary, error) {
	shpPath, err := d.Download(ctx, DownloadURL(baseURL, ZCTA, year, ""))
	if err != nil {
		return nil, err
	}
	return ReadBoundaries(shpPath, ZCTA, keep)
}

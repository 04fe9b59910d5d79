// Package gazetteer maintains the ZIP code gazetteer: representative points
// and county names for every postal code in the mapped states.
package gazetteer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/fetcher"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/store"
)

// SourceName identifies the GeoNames dump in the sources table.
const SourceName = "geonames"

// DefaultURL is the GeoNames US postal code archive.
const DefaultURL = "https://download.geonames.org/export/zip/US.zip"

// GeoNames postal dump columns (tab separated, no header).
const (
	colCountry = iota
	colPostal
	colPlace
	colStateName
	colStateAbbr
	colCountyName
	colCountyFIPS
	colAdmin3Name
	colAdmin3Code
	colLat
	colLon
	colAccuracy
)

// Loader refreshes the stored gazetteer from GeoNames.
type Loader struct {
	Fetcher fetcher.Fetcher
	Store   store.Store
	URL     string
	WorkDir string
}

// LoadResult reports what a load did.
type LoadResult struct {
	Rows    int
	Changed bool
	ETag    string
}

// Load downloads the archive unless the stored ETag still matches, keeps the
// rows for the region's states and replaces the stored gazetteer. force
// ignores the stored ETag.
func (l *Loader) Load(ctx context.Context, reg *region.Region, force bool) (*LoadResult, error) {
	log := zap.L().With(zap.String("component", "gazetteer"))

	rawURL := l.URL
	if rawURL == "" {
		rawURL = DefaultURL
	}

	etag := ""
	if !force {
		var err error
		etag, err = l.Store.SourceETag(ctx, SourceName)
		if err != nil {
			return nil, eris.Wrap(err, "gazetteer: read etag")
		}
	}

	body, newETag, changed, err := l.Fetcher.DownloadIfChanged(ctx, rawURL, etag)
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: download")
	}
	if !changed {
		n, err := l.Store.CountPostalCodes(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "gazetteer: count")
		}
		log.Info("gazetteer unchanged", zap.String("etag", etag), zap.Int("rows", n))
		return &LoadResult{Rows: n, ETag: etag}, nil
	}
	defer body.Close() //nolint:errcheck

	dir, err := os.MkdirTemp(l.WorkDir, "gazetteer-*")
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: create work dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	zipPath := filepath.Join(dir, "US.zip")
	if err := saveTo(zipPath, body); err != nil {
		return nil, err
	}
	txtPath, err := fetcher.ExtractZIPFile(zipPath, "US.txt", dir)
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: extract")
	}

	f, err := os.Open(txtPath)
	if err != nil {
		return nil, eris.Wrap(err, "gazetteer: open dump")
	}
	defer f.Close() //nolint:errcheck

	states := make(map[string]bool, len(reg.States))
	for _, s := range reg.States {
		states[s.Abbr] = true
	}
	codes, err := Parse(ctx, f, states)
	if err != nil {
		return nil, err
	}

	if err := l.Store.ReplacePostalCodes(ctx, SourceName, newETag, codes); err != nil {
		return nil, eris.Wrap(err, "gazetteer: store")
	}
	log.Info("gazetteer loaded", zap.Int("rows", len(codes)), zap.String("etag", newETag))
	return &LoadResult{Rows: len(codes), Changed: true, ETag: newETag}, nil
}

func saveTo(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "gazetteer: create archive")
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return eris.Wrap(err, "gazetteer: write archive")
	}
	return eris.Wrap(out.Close(), "gazetteer: close archive")
}

// Parse reads a GeoNames postal dump. Only rows whose state abbreviation is
// in states are kept; a nil map keeps every row. Rows with unusable
// coordinates are skipped.
func Parse(ctx context.Context, r io.Reader, states map[string]bool) ([]model.PostalCode, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		Delimiter:  '\t',
		LazyQuotes: true,
		TrimSpace:  true,
	})

	var out []model.PostalCode
	skipped := 0
	for row := range rowCh {
		if len(row) <= colLon {
			skipped++
			continue
		}
		abbr := strings.ToUpper(row[colStateAbbr])
		if states != nil && !states[abbr] {
			continue
		}
		lat, errLat := strconv.ParseFloat(row[colLat], 64)
		lon, errLon := strconv.ParseFloat(row[colLon], 64)
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}
		p := model.PostalCode{
			ZIP:        model.NormalizeID(model.KindZIP, row[colPostal]),
			City:       row[colPlace],
			State:      abbr,
			County:     row[colCountyName],
			CountyFIPS: row[colCountyFIPS],
			Lat:        lat,
			Lon:        lon,
		}
		if len(row) > colAccuracy {
			p.Accuracy, _ = strconv.Atoi(row[colAccuracy])
		}
		out = append(out, p)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "gazetteer: parse")
	}

	if skipped > 0 {
		zap.L().Debug("gazetteer: skipped malformed rows", zap.Int("count", skipped))
	}
	return out, nil
}

// Package dataset reads, writes and transforms tables of demographic records:
// CSV and XLSX I/O, range statistics, cleaning, imputation and colouring.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/fetcher"
	"github.com/sells-group/demomap/internal/geo"
	"github.com/sells-group/demomap/internal/model"
)

// Fixed column names shared by every table.
const (
	ColState    = "state"
	ColCounty   = "county"
	ColCity     = "city"
	ColLat      = "lat"
	ColLon      = "lon"
	ColArea     = "area_sqmi"
	ColGeometry = "geometry"
)

// column aliases accepted on read.
var aliases = map[string][]string{
	ColLat:  {"lat", "latitude"},
	ColLon:  {"lon", "lng", "longitude"},
	ColCity: {"city", "name", "place"},
}

// Columns returns the canonical column order for a kind.
func Columns(kind model.Kind) []string {
	cols := []string{kind.IDColumn(), ColState, ColCounty, ColCity, ColLat, ColLon, ColArea}
	for _, m := range model.AllMetrics {
		cols = append(cols, m.Column())
	}
	for _, m := range model.AllMetrics {
		cols = append(cols, m.ColorColumn())
	}
	return append(cols, ColGeometry)
}

// Read parses a CSV table. The identifier column (zip_code or geoid) is
// required; everything else is optional. Identifiers are zero padded to the
// kind's width.
func Read(ctx context.Context, r io.Reader, kind model.Kind) ([]*model.Record, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		p    *parser
		out  []*model.Record
		perr error
	)
	for row := range rowCh {
		if perr != nil {
			continue
		}
		if p == nil {
			p, perr = newParser(<-headerCh, kind)
			if perr != nil {
				continue
			}
		}
		if rec := p.parse(row); rec != nil {
			out = append(out, rec)
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "dataset: read csv")
	}
	if perr != nil {
		return nil, perr
	}
	if p == nil {
		// Header only, or empty input.
		select {
		case h := <-headerCh:
			if _, err := newParser(h, kind); err != nil {
				return nil, err
			}
		default:
		}
	}
	if p != nil {
		p.report()
	}
	return out, nil
}

// ReadFile reads a .csv or .xlsx table from disk.
func ReadFile(ctx context.Context, path string, kind model.Kind) ([]*model.Record, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := fetcher.ReadXLSX(path, "")
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", path)
		}
		return FromRows(rows, kind)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Read(ctx, f, kind)
}

// FromRows parses an in-memory table whose first row is the header.
func FromRows(rows [][]string, kind model.Kind) ([]*model.Record, error) {
	if len(rows) == 0 {
		return nil, eris.New("dataset: empty table")
	}
	p, err := newParser(rows[0], kind)
	if err != nil {
		return nil, err
	}
	var out []*model.Record
	for _, row := range rows[1:] {
		if rec := p.parse(row); rec != nil {
			out = append(out, rec)
		}
	}
	p.report()
	return out, nil
}

type parser struct {
	kind        model.Kind
	idx         map[string]int
	badGeometry int
	badID       int
}

func newParser(header []string, kind model.Kind) (*parser, error) {
	idx := fetcher.Columns(header)
	if _, ok := idx[kind.IDColumn()]; !ok {
		return nil, eris.Errorf("dataset: missing %s column", kind.IDColumn())
	}
	return &parser{kind: kind, idx: idx}, nil
}

func (p *parser) get(row []string, name string) string {
	names := aliases[name]
	if names == nil {
		names = []string{name}
	}
	for _, n := range names {
		if i, ok := p.idx[n]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

func (p *parser) parse(row []string) *model.Record {
	id := p.get(row, p.kind.IDColumn())
	if id == "" {
		p.badID++
		return nil
	}

	r := model.NewRecord(p.kind, id)
	r.State = strings.ToUpper(p.get(row, ColState))
	r.County = p.get(row, ColCounty)
	r.City = p.get(row, ColCity)

	lat, okLat := parseFloat(p.get(row, ColLat))
	lon, okLon := parseFloat(p.get(row, ColLon))
	if okLat && okLon {
		r.SetPoint(lat, lon)
	}
	if a, ok := parseFloat(p.get(row, ColArea)); ok {
		r.AreaSqMi = a
	}

	for _, m := range model.AllMetrics {
		if v, ok := parseFloat(p.get(row, m.Column())); ok {
			r.Set(m, v)
		}
		if c := p.get(row, m.ColorColumn()); c != "" {
			r.Colors[m] = c
		}
	}

	if raw := p.get(row, ColGeometry); raw != "" {
		g, err := geo.Decode([]byte(raw))
		if err != nil {
			p.badGeometry++
			zap.L().Debug("dataset: skipping malformed geometry", zap.String("id", r.ID), zap.Error(err))
		} else {
			r.Boundary = g
		}
	}
	return r
}

func (p *parser) report() {
	if p.badGeometry > 0 || p.badID > 0 {
		zap.L().Info("dataset: rows with problems",
			zap.Int("malformed_geometry", p.badGeometry),
			zap.Int("missing_id", p.badID),
		)
	}
}

func parseFloat(s string) (float64, bool) {
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Write writes records as CSV in the canonical column order.
func Write(w io.Writer, records []*model.Record, kind model.Kind) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns(kind)); err != nil {
		return eris.Wrap(err, "dataset: write header")
	}
	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write row %s", r.ID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

// WriteFile writes records to a CSV file, creating parent directories.
func WriteFile(path string, records []*model.Record, kind model.Kind) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "dataset: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: create %s", path)
	}
	if err := Write(f, records, kind); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "dataset: close file")
}

func toRow(r *model.Record) ([]string, error) {
	row := []string{r.ID, r.State, r.County, r.City, "", "", ""}
	if r.HasPoint {
		row[4], row[5] = formatFloat(r.Lat), formatFloat(r.Lon)
	}
	if r.AreaSqMi > 0 {
		row[6] = formatFloat(r.AreaSqMi)
	}
	for _, m := range model.AllMetrics {
		v, ok := r.Value(m)
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, formatFloat(v))
	}
	for _, m := range model.AllMetrics {
		row = append(row, r.Colors[m])
	}

	geometry := ""
	if r.Boundary != nil {
		s, err := geo.Encode(r.Boundary)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: encode geometry %s", r.ID)
		}
		geometry = s
	}
	return append(row, geometry), nil
}

package dataset

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/demomap/internal/model"
)

// Sheet names written by ExportXLSX.
const (
	DataSheet    = "Data"
	SummarySheet = "Summary"
)

// ExportXLSX writes records to a workbook with a data sheet and a per-metric
// summary sheet. The geometry column is omitted. Identifiers are written as
// text so leading zeros survive.
func ExportXLSX(path string, records []*model.Record, kind model.Kind) error {
	f := xlsx.NewFile()

	data, err := f.AddSheet(DataSheet)
	if err != nil {
		return eris.Wrap(err, "dataset: add data sheet")
	}
	cols := Columns(kind)
	cols = cols[:len(cols)-1]
	header := data.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}

	for _, r := range records {
		row, err := toRow(r)
		if err != nil {
			return err
		}
		xr := data.AddRow()
		for i, v := range row[:len(cols)] {
			cell := xr.AddCell()
			if i == 0 {
				cell.SetString(v)
				continue
			}
			if fv, ok := parseFloat(v); ok && isNumericColumn(cols[i]) {
				cell.SetFloat(fv)
				continue
			}
			cell.SetString(v)
		}
	}

	summary, err := f.AddSheet(SummarySheet)
	if err != nil {
		return eris.Wrap(err, "dataset: add summary sheet")
	}
	sh := summary.AddRow()
	for _, c := range []string{"metric", "count", "min", "max", "mean", "std_dev"} {
		sh.AddCell().SetString(c)
	}
	for _, s := range Summarize(records) {
		row := summary.AddRow()
		row.AddCell().SetString(s.Metric.Label())
		row.AddCell().SetInt(s.Count)
		row.AddCell().SetFloat(s.Min)
		row.AddCell().SetFloat(s.Max)
		row.AddCell().SetFloat(s.Mean)
		row.AddCell().SetFloat(s.StdDev)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "dataset: create output dir")
	}
	return eris.Wrapf(f.Save(path), "dataset: save %s", path)
}

func isNumericColumn(c string) bool {
	switch c {
	case ColLat, ColLon, ColArea:
		return true
	}
	_, err := model.ParseMetric(c)
	return err == nil
}

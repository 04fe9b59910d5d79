package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX returns the rows of one worksheet as strings. An empty sheet name
// selects the first sheet.
func ReadXLSX(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	var sheet *xlsx.Sheet
	switch {
	case sheetName != "":
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
		}
		sheet = s
	case len(f.Sheets) > 0:
		sheet = f.Sheets[0]
	default:
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheet string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	s, err := f.AddSheet(sheet)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := s.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, "ZIPs", [][]string{
		{"zip_code", "city"},
		{"08054", "Mount Laurel"},
	})

	rows, err := ReadXLSX(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"08054", "Mount Laurel"}, rows[1])

	rows, err = ReadXLSX(path, "ZIPs")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ReadXLSX(path, "Other")
	assert.Error(t, err)

	_, err = ReadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	assert.Error(t, err)
}

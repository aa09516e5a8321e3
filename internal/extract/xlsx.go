package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSXTable reads the first sheet of a workbook the same way ReadTable reads a csv.
func ReadXLSXTable(r io.Reader, maxRows int) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrNoData)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	var t Table
	for rows.Next() {
		row, err := rows.Columns()
		if err != nil {
			return t, err
		}
		if t.Header == nil {
			if len(row) == 0 {
				continue
			}
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
			t.Header = row
			continue
		}
		if len(row) > 0 && strings.HasPrefix(strings.TrimSpace(row[0]), "#") {
			continue
		}
		t.Rows = append(t.Rows, row)
		if maxRows > 0 && len(t.Rows) >= maxRows {
			break
		}
	}
	if t.Header == nil {
		return t, fmt.Errorf("%w: empty sheet %s", ErrNoData, sheets[0])
	}
	return t, nil
}

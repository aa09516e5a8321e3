package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"macroscrape/internal/record"
	"strings"
)

// Table is a CSV file held in memory, header first.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable reads at most maxRows data rows (0 means no limit). HXL hashtag rows,
// the second header row used by HDX datasets, are dropped.
func ReadTable(r io.Reader, maxRows int) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("%w: empty csv", ErrNoData)
	}
	if err != nil {
		return Table{}, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := Table{Header: header}
	for maxRows <= 0 || len(t.Rows) < maxRows {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t, err
		}
		if len(row) > 0 && strings.HasPrefix(strings.TrimSpace(row[0]), "#") {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Columns returns the indices of header cells that contain any of the keywords,
// case-insensitively, in header order.
func (t Table) Columns(keywords ...string) []int {
	var out []int
	for i, h := range t.Header {
		lower := strings.ToLower(h)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Cell returns the trimmed cell, or "" when the row is short.
func (t Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// LatestRow returns the row with the greatest parseable date in `dateCol`, and its
// normalized date. Rows with unparseable dates are ignored. When no row has a date,
// the last row is returned with an empty date.
func (t Table) LatestRow(dateCol int) ([]string, string, bool) {
	if len(t.Rows) == 0 {
		return nil, "", false
	}
	var latest []string
	latestDate := ""
	if dateCol >= 0 {
		for _, row := range t.Rows {
			date, err := record.NormalizeDate(t.Cell(row, dateCol), record.DayFirst)
			if err != nil {
				continue
			}
			if date >= latestDate {
				latest = row
				latestDate = date
			}
		}
	}
	if latest == nil {
		return t.Rows[len(t.Rows)-1], "", true
	}
	return latest, latestDate, true
}

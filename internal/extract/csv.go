package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"macroscrape/internal/record"
	"strings"
)

// Point is one extracted (date, value) tuple.
type Point struct {
	Date  string
	Year  int
	Value float64
	Label string
}

// SeriesOptions controls ParseSeriesCSV.
type SeriesOptions struct {
	// Window drops rows dated outside it, the zero value keeps everything.
	Window record.Window
	// MonthDay is the day bare YYYY-MM dates are pinned to.
	MonthDay int
}

// ParseSeriesCSV reads a two column series (the FRED graph CSV shape: a date column
// followed by a value column, header names vary). The columns are taken by position,
// so any header is accepted. Missing values ("." or empty) and rows outside the year
// window are skipped.
func ParseSeriesCSV(r io.Reader, opts SeriesOptions) ([]Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv", ErrNoData)
	}
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: expected at least 2 columns, got %d", ErrMalformed, len(header))
	}

	monthDay := opts.MonthDay
	if monthDay == 0 {
		monthDay = record.DayFirst
	}

	var points []Point
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return points, err
		}
		if len(row) < 2 {
			continue
		}

		date, err := record.NormalizeDate(strings.TrimSpace(row[0]), monthDay)
		if err != nil {
			continue
		}
		value, ok := Float(row[1])
		if !ok {
			continue
		}

		if !opts.Window.Contains(date) {
			continue
		}
		year, _ := Year(date[:4])

		points = append(points, Point{Date: date, Year: year, Value: value})
	}
	return points, nil
}

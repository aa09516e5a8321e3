package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var columns = []string{
	"indicator",
	"date",
	"value",
	"unit",
	"source",
	"note",
	"country",
	"country_code",
	"indicator_code",
	"category",
	"year",
}

func row(r record.Record) []string {
	year := ""
	if r.Year != 0 {
		year = strconv.Itoa(r.Year)
	}
	return []string{
		r.Indicator,
		r.Date,
		strconv.FormatFloat(r.Value, 'f', -1, 64),
		r.Unit,
		r.Source,
		r.Note,
		r.Country,
		r.CountryCode,
		r.IndicatorCode,
		r.Category,
		year,
	}
}

// WriteJSON writes the envelope as indented json.
func WriteJSON(w io.Writer, env record.Envelope) error {
	buff, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(buff, '\n'))
	return err
}

// WriteCSV flattens the envelope's records under a header row, the metadata is
// not part of the output.
func WriteCSV(w io.Writer, env record.Envelope) error {
	cw := csv.NewWriter(w)
	err := cw.Write(columns)
	if err != nil {
		return err
	}
	for _, r := range env.Data {
		err = cw.Write(row(r))
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	dataSheet     = "data"
	metadataSheet = "metadata"
)

// WriteXLSX writes the records to a "data" sheet and the metadata to a
// "metadata" sheet.
func WriteXLSX(w io.Writer, env record.Envelope) error {
	f := excelize.NewFile()
	defer f.Close()

	err := f.SetSheetName("Sheet1", dataSheet)
	if err != nil {
		return err
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	err = f.SetSheetRow(dataSheet, "A1", &header)
	if err != nil {
		return err
	}
	for i, r := range env.Data {
		cells := make([]any, len(columns))
		for j, v := range row(r) {
			cells[j] = v
		}
		// numeric cells stay numeric so the sheet can be charted
		cells[2] = r.Value
		if r.Year != 0 {
			cells[10] = r.Year
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(dataSheet, cell, &cells)
		if err != nil {
			return err
		}
	}

	_, err = f.NewSheet(metadataSheet)
	if err != nil {
		return err
	}
	meta := [][]any{
		{"description", env.Metadata.Description},
		{"total_records", env.Metadata.TotalRecords},
		{"last_updated", env.Metadata.LastUpdated},
	}
	for _, s := range env.Metadata.Sources {
		meta = append(meta, []any{"source", s})
	}
	for i, m := range meta {
		err = f.SetSheetRow(metadataSheet, fmt.Sprintf("A%d", i+1), &m)
		if err != nil {
			return err
		}
	}

	return f.Write(w)
}

func encoder(format string) (func(io.Writer, record.Envelope) error, error) {
	switch format {
	case config.FormatCSV:
		return WriteCSV, nil
	case config.FormatXLSX:
		return WriteXLSX, nil
	case config.FormatJSON, "":
		return WriteJSON, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// Write creates the parent directory of `path` if needed and overwrites the
// file with the envelope in the given format.
func Write(path, format string, env record.Envelope) error {
	encode, err := encoder(format)
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	err = encode(f, env)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

package output

import (
	"bytes"
	"encoding/json"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

func TestAggregate(t *testing.T) {
	desc := sources.Description{
		Name:    "china_macro",
		Title:   "China Macro Economic Indicators",
		Sources: []string{"World Bank API", "NBS China"},
		Order:   record.ByDateDesc,
	}
	batch := sources.Batch{Records: []record.Record{
		{Indicator: "gdp_growth", Date: "2023-12-31", Value: 5.2, Unit: "percent", Source: "World Bank"},
		{Indicator: "pmi_manufacturing", Date: "2024-11-28", Value: 50.3, Unit: "index", Source: "NBS"},
		{Indicator: "gdp_growth", Date: "2023-12-31", Value: 9.9, Unit: "percent", Source: "World Bank"},
		{Indicator: "gdp_growth", Date: "2023-13-31", Value: 1, Unit: "percent", Source: "World Bank"},
		{Indicator: "gdp_growth", Date: "2022-12-31", Value: math.NaN(), Unit: "percent", Source: "World Bank"},
	}}

	env, invalid := Aggregate(desc, batch, now)
	require.Len(t, invalid, 2)
	for _, err := range invalid {
		require.ErrorIs(t, err, record.ErrInvalidRecord)
	}

	expected := []record.Record{
		{Indicator: "pmi_manufacturing", Date: "2024-11-28", Value: 50.3, Unit: "index", Source: "NBS"},
		{Indicator: "gdp_growth", Date: "2023-12-31", Value: 5.2, Unit: "percent", Source: "World Bank"},
	}
	if diff := cmp.Diff(expected, env.Data); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, record.Metadata{
		Description:  "China Macro Economic Indicators",
		Sources:      []string{"World Bank API", "NBS China"},
		TotalRecords: 2,
		LastUpdated:  "2025-03-04 10:30:00",
	}, env.Metadata)
}

func TestAggregateIdempotent(t *testing.T) {
	batch := sources.Batch{Records: []record.Record{
		{Indicator: "DFF", Date: "2024-01-02", Value: 5.33, Source: "FRED"},
		{Indicator: "DFF", Date: "2024-01-01", Value: 5.33, Source: "FRED"},
		{Indicator: "DFF", Date: "2024-01-02", Value: 5.33, Source: "FRED"},
	}}
	desc := sources.Description{Name: "fed_policy", Order: record.ByIndicatorDate}

	first, _ := Aggregate(desc, batch, now)
	second, _ := Aggregate(desc, sources.Batch{Records: append(first.Data, first.Data...)}, now)
	require.Equal(t, 2, first.Metadata.TotalRecords)
	require.Equal(t, first.Data, second.Data)
	require.Equal(t, "fed_policy", first.Metadata.Description)
	require.Equal(t, []string{"FRED"}, first.Metadata.Sources)
}

func sampleEnvelope() record.Envelope {
	return record.NewEnvelope("China Macro Economic Indicators", []string{"NBS China"}, []record.Record{
		{Indicator: "pmi_manufacturing", Date: "2024-11-28", Value: 50.3, Unit: "index", Source: "NBS", Note: "Manufacturing PMI - Nov, 2024"},
		{Indicator: "gdp_growth", Date: "2023-12-31", Value: 5.25, Unit: "percent", Source: "World Bank", Country: "China", Year: 2023},
	}, now)
}

func TestWriteJSON(t *testing.T) {
	var buff bytes.Buffer
	require.NoError(t, WriteJSON(&buff, sampleEnvelope()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buff.Bytes(), &decoded))
	meta := decoded["metadata"].(map[string]any)
	require.Equal(t, float64(2), meta["total_records"])
	require.Equal(t, "2025-03-04 10:30:00", meta["last_updated"])

	data := decoded["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	require.NotContains(t, first, "country")
	require.NotContains(t, first, "year")
	second := data[1].(map[string]any)
	require.Equal(t, float64(2023), second["year"])
}

func TestWriteCSV(t *testing.T) {
	var buff bytes.Buffer
	require.NoError(t, WriteCSV(&buff, sampleEnvelope()))
	expected := "indicator,date,value,unit,source,note,country,country_code,indicator_code,category,year\n" +
		"pmi_manufacturing,2024-11-28,50.3,index,NBS,\"Manufacturing PMI - Nov, 2024\",,,,,\n" +
		"gdp_growth,2023-12-31,5.25,percent,World Bank,,China,,,,2023\n"
	require.Equal(t, expected, buff.String())
}

func TestWriteXLSX(t *testing.T) {
	var buff bytes.Buffer
	require.NoError(t, WriteXLSX(&buff, sampleEnvelope()))

	f, err := excelize.OpenReader(&buff)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(dataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "indicator", rows[0][0])
	require.Equal(t, "pmi_manufacturing", rows[1][0])
	require.Equal(t, "50.3", rows[1][2])

	meta, err := f.GetRows(metadataSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"description", "China Macro Economic Indicators"}, meta[0])
	require.Equal(t, []string{"source", "NBS China"}, meta[3])
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	path := filepath.Join(dir, "china_macro.json")

	require.NoError(t, Write(path, config.FormatJSON, sampleEnvelope()))
	// a second run overwrites the previous file
	empty := record.NewEnvelope("China Macro Economic Indicators", nil, nil, now)
	require.NoError(t, Write(path, config.FormatJSON, empty))

	buff, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded record.Envelope
	require.NoError(t, json.Unmarshal(buff, &decoded))
	require.Equal(t, 0, decoded.Metadata.TotalRecords)
	require.Empty(t, decoded.Data)

	err = Write(filepath.Join(dir, "out.parquet"), "parquet", empty)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "out.parquet"))
	require.True(t, os.IsNotExist(statErr))
}

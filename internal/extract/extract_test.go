package extract

import (
	"bytes"
	"macroscrape/internal/record"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseNumber(t *testing.T) {
	testCases := []struct {
		raw      string
		expected float64
		ok       bool
	}{
		{raw: "50.3", expected: 50.3, ok: true},
		{raw: " 1,234.5 ", expected: 1234.5, ok: true},
		{raw: "4.8%", expected: 4.8, ok: true},
		{raw: "-0.25", expected: -0.25, ok: true},
		{raw: ".", ok: false},
		{raw: "", ok: false},
		{raw: "abc", ok: false},
	}
	for _, tc := range testCases {
		v, ok := ParseNumber(tc.raw)
		require.Equal(t, tc.ok, ok, tc.raw)
		if tc.ok {
			require.Equal(t, tc.expected, v, tc.raw)
		}
	}
}

var testRules = RuleSet{
	RegexRule("industry_was", `manufacturing\s+industry\s+was\s+(\d+\.?\d*)`),
	RegexRule("generic_was", `Manufacturing\s+Purchasing\s+Managers.*?Index.*?was\s+(\d+\.?\d*)`),
}

func TestRuleOrderWins(t *testing.T) {
	// the generic rule would match 12.0 first in reading order, the specific one must win
	text := "The Manufacturing Purchasing Managers' Index (PMI) sub-index was 12.0 points lower. " +
		"In March, the manufacturing industry was 50.3 percent, up 0.1 points."

	m := testRules.First(text)
	require.True(t, m.Found)
	require.Equal(t, "industry_was", m.Rule)
	require.Equal(t, 50.3, m.Value)
}

func TestRuleFallsThrough(t *testing.T) {
	text := "The Manufacturing Purchasing Managers' Index for May was 49.5 percent."
	m := testRules.First(text)
	require.True(t, m.Found)
	require.Equal(t, "generic_was", m.Rule)
	require.Equal(t, 49.5, m.Value)
}

func TestExtractorBounds(t *testing.T) {
	e := Extractor{
		Rules:  testRules,
		Bounds: &record.Bounds{Min: 30, Max: 70},
	}

	kept := e.Extract("the manufacturing industry was 50.3 percent")
	require.True(t, kept.Found)
	require.False(t, kept.Rejected)
	require.Equal(t, 50.3, kept.Value)
	require.Empty(t, kept.Snippet)

	dropped := e.Extract("the manufacturing industry was 95.0 percent")
	require.False(t, dropped.Found)
	require.True(t, dropped.Rejected)
	require.Equal(t, 95.0, dropped.Value)
	require.NotEmpty(t, dropped.Snippet)
}

func TestExtractorMissSnippet(t *testing.T) {
	e := Extractor{
		Rules:          testRules,
		SnippetPattern: regexp.MustCompile(`(?i)(manufacturing.*?(?:percent|%))`),
	}

	text := "Overview. Output of manufacturing rose by 3.1 percent year on year, " + strings.Repeat("x", 300)
	m := e.Extract(text)
	require.False(t, m.Found)
	require.False(t, m.Rejected)
	require.Equal(t, "manufacturing rose by 3.1 percent", m.Snippet)

	long := Extractor{Rules: testRules}.Extract(strings.Repeat("y", 500))
	require.False(t, long.Found)
	require.Len(t, long.Snippet, 100)

	empty := Extractor{Rules: testRules}.Extract("")
	require.False(t, empty.Found)
	require.Equal(t, "", empty.Snippet)
}

func TestFloat(t *testing.T) {
	testCases := []struct {
		input    any
		expected float64
		ok       bool
	}{
		{input: 5.0, expected: 5.0, ok: true},
		{input: "4.8", expected: 4.8, ok: true},
		{input: nil},
		{input: "."},
		{input: "no data"},
		{input: true},
	}
	for _, tc := range testCases {
		v, ok := Float(tc.input)
		require.Equal(t, tc.ok, ok, "%v", tc.input)
		require.Equal(t, tc.expected, v, "%v", tc.input)
	}
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"values": map[string]any{
			"NGDP_RPCH": map[string]any{
				"CHN": map[string]any{"2024": "5.0"},
			},
		},
	}
	v, ok := Lookup(doc, "values", "NGDP_RPCH", "CHN", "2024")
	require.True(t, ok)
	require.Equal(t, "5.0", v)

	_, ok = Lookup(doc, "values", "NGDPD")
	require.False(t, ok)
	_, ok = Lookup(doc, "values", "NGDP_RPCH", "CHN", "2024", "deeper")
	require.False(t, ok)

	_, ok = String(doc, "values")
	require.False(t, ok)
}

func TestParseSeriesCSVWindow(t *testing.T) {
	input := `observation_date,DCOILWTICO
2019-06-03,53.26
2019-12-31,61.14
2020-01-02,61.17
2020-04-20,.
2021-07-01,
2022-03-08,123.7
2025-01-02,73.13
`
	testCases := []struct {
		name     string
		window   record.Window
		expected []Point
	}{
		{
			name:   "start only",
			window: record.Window{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
			expected: []Point{
				{Date: "2020-01-02", Year: 2020, Value: 61.17},
				{Date: "2022-03-08", Year: 2022, Value: 123.7},
				{Date: "2025-01-02", Year: 2025, Value: 73.13},
			},
		},
		{
			name: "mid-year bounds",
			window: record.Window{
				Start: time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2022, 3, 8, 0, 0, 0, 0, time.UTC),
			},
			expected: []Point{
				{Date: "2019-12-31", Year: 2019, Value: 61.14},
				{Date: "2020-01-02", Year: 2020, Value: 61.17},
				{Date: "2022-03-08", Year: 2022, Value: 123.7},
			},
		},
		{
			name: "open",
			expected: []Point{
				{Date: "2019-06-03", Year: 2019, Value: 53.26},
				{Date: "2019-12-31", Year: 2019, Value: 61.14},
				{Date: "2020-01-02", Year: 2020, Value: 61.17},
				{Date: "2022-03-08", Year: 2022, Value: 123.7},
				{Date: "2025-01-02", Year: 2025, Value: 73.13},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			points, err := ParseSeriesCSV(strings.NewReader(input), SeriesOptions{Window: tc.window})
			require.NoError(t, err)
			require.Equal(t, tc.expected, points)
		})
	}
}

func TestParseSeriesCSVMonthly(t *testing.T) {
	input := "DATE,PALLFNFINDEXM\n2023-11,170.2\n2023-12,168.9\n"
	points, err := ParseSeriesCSV(strings.NewReader(input), SeriesOptions{MonthDay: record.DayFirst})
	require.NoError(t, err)
	require.Equal(t, "2023-11-01", points[0].Date)
	require.Equal(t, "2023-12-01", points[1].Date)
}

func TestParseSeriesCSVErrors(t *testing.T) {
	_, err := ParseSeriesCSV(strings.NewReader(""), SeriesOptions{})
	require.ErrorIs(t, err, ErrNoData)

	_, err = ParseSeriesCSV(strings.NewReader("only_one_column\n1\n"), SeriesOptions{})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestReadTable(t *testing.T) {
	input := "\ufeffdate,admin1,market,commodity,unit,currency,price,usdprice\n" +
		"#date,#adm1+name,#loc+market+name,#item+name,#item+unit,#currency,#value,#value+usd\n" +
		"2024-01-15,Ha Noi,Long Bien,Rice,KG,VND,15000,0.61\n" +
		"2024-03-15,Ha Noi,Long Bien,Rice,KG,VND,16000,0.65\n" +
		"2024-02-15,Ha Noi,Long Bien,Rice,KG,VND,15500,0.63\n"

	table, err := ReadTable(strings.NewReader(input), 0)
	require.NoError(t, err)
	require.Equal(t, "date", table.Header[0])
	require.Len(t, table.Rows, 3)
	require.Equal(t, []int{6, 7}, table.Columns("price"))
	require.Equal(t, []int{0}, table.Columns("date", "period"))

	row, date, ok := table.LatestRow(0)
	require.True(t, ok)
	require.Equal(t, "2024-03-15", date)
	require.Equal(t, "16000", table.Cell(row, 6))
	require.Equal(t, "", table.Cell(row, 42))

	limited, err := ReadTable(strings.NewReader(input), 1)
	require.NoError(t, err)
	require.Len(t, limited.Rows, 1)
}

func TestReadXLSXTable(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"date", "market", "price"},
		{"#date", "#loc+market+name", "#value"},
		{"2024-01-15", "Long Bien", "15000"},
		{"2024-02-15", "Long Bien", "15500"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buff, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ReadXLSXTable(bytes.NewReader(buff.Bytes()), 0)
	require.NoError(t, err)
	require.Equal(t, []string{"date", "market", "price"}, table.Header)
	require.Len(t, table.Rows, 2)

	row, date, ok := table.LatestRow(0)
	require.True(t, ok)
	require.Equal(t, "2024-02-15", date)
	require.Equal(t, "15500", table.Cell(row, 2))

	_, err = ReadXLSXTable(strings.NewReader("not a workbook"), 0)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestPeriod(t *testing.T) {
	testCases := []struct {
		period   Period
		date     string
		previous string
		text     string
	}{
		{Period{Kind: Quarterly, Year: 2024, N: 1}, "2024-03-31", "2023-12-31", "Q1/2024"},
		{Period{Kind: Quarterly, Year: 2024, N: 2}, "2024-06-30", "2024-03-31", "Q2/2024"},
		{Period{Kind: Quarterly, Year: 2024, N: 4}, "2024-12-31", "2024-09-30", "Q4/2024"},
		{Period{Kind: Monthly, Year: 2025, N: 1}, "2025-01-01", "2024-12-01", "01/2025"},
		{Period{Kind: Monthly, Year: 2024, N: 11}, "2024-11-01", "2024-10-01", "11/2024"},
		{Period{Kind: Annual, Year: 2024}, "2024-12-31", "2023-12-31", "2024"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.date, tc.period.Date(), tc.text)
		require.Equal(t, tc.previous, tc.period.Previous().Date(), tc.text)
		require.Equal(t, tc.text, tc.period.String())
	}
}

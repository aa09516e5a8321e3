package hdx

import (
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"regexp"
	"strings"
)

// columnGroup selects the table columns that become one family of indicators.
type columnGroup struct {
	prefix   string
	keywords []string
	limit    int
}

var columnGroups = []columnGroup{
	{prefix: "price", keywords: []string{"price", "cost", "value"}, limit: 3},
	{prefix: "inflation", keywords: []string{"inflation", "change", "trend", "yoy"}, limit: 2},
	{prefix: "exchange_rate", keywords: []string{"exchange", "rate", "usd", "currency"}, limit: 2},
}

var (
	locationKeywords = []string{"country", "location", "region", "market"}
	dateKeywords     = []string{"date", "time", "month", "year", "period"}
)

var nonIdent = regexp.MustCompile(`[^a-z0-9]+`)

func columnID(header string) string {
	return strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(header), "_"), "_")
}

func first(cols []int, n int) []int {
	if len(cols) > n {
		return cols[:n]
	}
	return cols
}

// latest returns the most recent row by the first date-like column that holds
// parseable dates, or the last row with an empty date.
func latest(t extract.Table) ([]string, string, bool) {
	for _, col := range t.Columns(dateKeywords...) {
		row, date, ok := t.LatestRow(col)
		if ok && date != "" {
			return row, date, true
		}
	}
	return t.LatestRow(-1)
}

// TableRecords turns the latest row of a WFP table into one record per numeric
// price, inflation or exchange rate column. Rows without a date are stamped with
// `fallbackDate`.
func TableRecords(t extract.Table, norm record.Normalizer, fallbackDate string) []record.Record {
	row, date, ok := latest(t)
	if !ok {
		return nil
	}
	if date == "" {
		date = fallbackDate
	}

	locations := t.Columns(locationKeywords...)
	if len(locations) > 0 {
		norm.Country = t.Cell(row, locations[0])
	}

	var out []record.Record
	for _, group := range columnGroups {
		for _, col := range first(t.Columns(group.keywords...), group.limit) {
			value, ok := extract.Float(t.Cell(row, col))
			if !ok {
				continue
			}
			n := norm
			n.Indicator = group.prefix + "_" + columnID(t.Header[col])
			r, err := n.At(date, value)
			if err != nil {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

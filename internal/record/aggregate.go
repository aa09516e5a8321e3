package record

import (
	"cmp"
	"slices"
	"strings"
)

// Dedup keeps the first record of every Key and drops the rest, order is preserved.
func Dedup(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		key := r.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Order compares two records the way slices.SortFunc expects.
type Order func(a, b Record) int

// Sort sorts records in place, stable so ties keep fetch order.
func Sort(records []Record, order Order) {
	if order == nil {
		return
	}
	slices.SortStableFunc(records, order)
}

// ByDateDesc puts the most recent record first.
func ByDateDesc(a, b Record) int {
	if c := strings.Compare(b.Date, a.Date); c != 0 {
		return c
	}
	return strings.Compare(a.Indicator, b.Indicator)
}

// ByIndicatorDate is ascending by indicator then date.
func ByIndicatorDate(a, b Record) int {
	if c := strings.Compare(a.Indicator, b.Indicator); c != 0 {
		return c
	}
	return strings.Compare(a.Date, b.Date)
}

// ByCategoryIndicatorDate is the catalog order used by commodity style outputs.
func ByCategoryIndicatorDate(a, b Record) int {
	if c := strings.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	return ByIndicatorDate(a, b)
}

// ByCountryIndicatorYear is ascending by country, indicator code then year.
func ByCountryIndicatorYear(a, b Record) int {
	if c := strings.Compare(a.Country, b.Country); c != 0 {
		return c
	}
	if c := strings.Compare(a.IndicatorCode, b.IndicatorCode); c != 0 {
		return c
	}
	return cmp.Compare(a.Year, b.Year)
}

// ByCountryCodeYear is ascending by country code then year.
func ByCountryCodeYear(a, b Record) int {
	if c := strings.Compare(a.CountryCode, b.CountryCode); c != 0 {
		return c
	}
	return cmp.Compare(a.Year, b.Year)
}

// Sources returns the distinct Source values in first-seen order.
func Sources(records []Record) []string {
	var out []string
	for _, r := range records {
		if r.Source == "" || slices.Contains(out, r.Source) {
			continue
		}
		out = append(out, r.Source)
	}
	return out
}

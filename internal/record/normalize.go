package record

import (
	"fmt"
	"math"
	"time"
)

// Fixed day-of-month placeholders for monthly figures, these are not true month ends.
const (
	DayFirst  = 1
	DayPinned = 28
)

// Bounds is an exclusive plausibility range (Min, Max).
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) Contains(v float64) bool {
	return v > b.Min && v < b.Max
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%v, %v)", b.Min, b.Max)
}

// Round rounds half away from zero to `places` decimals, a negative
// `places` leaves the value untouched.
func Round(value float64, places int) float64 {
	if places < 0 {
		return value
	}
	pow := math.Pow(10, float64(places))
	return math.Round(value*pow) / pow
}

// AnnualDate pins a year to its last day.
func AnnualDate(year int) string {
	return fmt.Sprintf("%04d-12-31", year)
}

// MonthlyDate pins a month to a fixed day.
func MonthlyDate(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// NormalizeDate accepts the date shapes sources hand back and returns it as
// YYYY-MM-DD, bare years are pinned to year end and bare months to `monthDay`.
func NormalizeDate(raw string, monthDay int) (string, error) {
	layouts := []struct {
		layout string
		pin    func(t time.Time) string
	}{
		{layout: DateLayout},
		{layout: "2006-01-02 15:04:05"},
		{layout: time.RFC3339},
		{layout: "2006/01/02"},
		{layout: "2006-01", pin: func(t time.Time) string {
			return MonthlyDate(t.Year(), t.Month(), monthDay)
		}},
		{layout: "2006", pin: func(t time.Time) string {
			return AnnualDate(t.Year())
		}},
	}
	for _, l := range layouts {
		t, err := time.Parse(l.layout, raw)
		if err != nil {
			continue
		}
		if l.pin != nil {
			return l.pin(t), nil
		}
		return t.Format(DateLayout), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// Normalizer turns extracted (date, value) pairs of one indicator into Records.
type Normalizer struct {
	Indicator string
	Unit      string
	Source    string
	Note      string
	// Precision is the number of decimals kept, negative disables rounding.
	Precision int
	// Bounds, when set, discards values outside of it.
	Bounds *Bounds

	Country       string
	CountryCode   string
	IndicatorCode string
	Category      string
}

// At builds a record for an already formatted date.
func (n Normalizer) At(date string, value float64) (Record, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Record{}, fmt.Errorf("%w: value %v is not finite", ErrInvalidRecord, value)
	}
	if n.Bounds != nil && !n.Bounds.Contains(value) {
		return Record{}, OutOfBoundsError{Indicator: n.Indicator, Value: value, Bounds: *n.Bounds}
	}

	return Record{
		Indicator:     n.Indicator,
		Date:          date,
		Value:         Round(value, n.Precision),
		Unit:          n.Unit,
		Source:        n.Source,
		Note:          n.Note,
		Country:       n.Country,
		CountryCode:   n.CountryCode,
		IndicatorCode: n.IndicatorCode,
		Category:      n.Category,
	}, nil
}

// Annual builds a record pinned to the end of `year`.
func (n Normalizer) Annual(year int, value float64) (Record, error) {
	r, err := n.At(AnnualDate(year), value)
	if err != nil {
		return Record{}, err
	}
	r.Year = year
	return r, nil
}

// Monthly builds a record pinned to `day` of the month.
func (n Normalizer) Monthly(year int, month time.Month, day int, value float64) (Record, error) {
	return n.At(MonthlyDate(year, month, day), value)
}

// WithNote returns a copy of the normalizer with a different note.
func (n Normalizer) WithNote(note string) Normalizer {
	n.Note = note
	return n
}

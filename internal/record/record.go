package record

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the layout every Record.Date is normalized to.
const DateLayout = "2006-01-02"

// TimestampLayout is the layout of Metadata.LastUpdated.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one observed value of one indicator at one point in time.
//
// The optional dimensions (Country, CountryCode, IndicatorCode, Category, Year) are
// only set by multi-country and catalog style sources.
type Record struct {
	Indicator string  `json:"indicator"`
	Date      string  `json:"date"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Source    string  `json:"source"`
	Note      string  `json:"note,omitempty"`

	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
	IndicatorCode string `json:"indicator_code,omitempty"`
	Category      string `json:"category,omitempty"`
	Year          int    `json:"year,omitempty"`
}

// Key identifies a record for deduplication, two records from the same run with
// the same key are considered duplicates. The indicator code, country code and
// category take part in the key when set, so series sharing a title and
// multi-country or catalog sources keep one series per dimension.
func (r Record) Key() string {
	parts := []string{r.Indicator}
	if r.IndicatorCode != "" {
		parts = append(parts, r.IndicatorCode)
	}
	if r.CountryCode != "" {
		parts = append(parts, r.CountryCode)
	}
	if r.Category != "" {
		parts = append(parts, r.Category)
	}
	parts = append(parts, r.Date)
	return strings.Join(parts, "|")
}

// Time parses Date.
func (r Record) Time() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// Validate checks that the date parses and the value is finite.
func (r Record) Validate() error {
	if r.Indicator == "" {
		return fmt.Errorf("%w: empty indicator", ErrInvalidRecord)
	}
	if _, err := r.Time(); err != nil {
		return fmt.Errorf("%w: date %q: %w", ErrInvalidRecord, r.Date, err)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return fmt.Errorf("%w: value %v is not finite", ErrInvalidRecord, r.Value)
	}
	return nil
}

type Metadata struct {
	Description  string   `json:"description"`
	Sources      []string `json:"sources"`
	TotalRecords int      `json:"total_records"`
	LastUpdated  string   `json:"last_updated"`
}

// Envelope is the top-level object of an output file.
type Envelope struct {
	Metadata Metadata `json:"metadata"`
	Data     []Record `json:"data"`
}

// NewEnvelope wraps records, `now` becomes the last_updated timestamp.
func NewEnvelope(description string, sources []string, records []Record, now time.Time) Envelope {
	if records == nil {
		records = []Record{}
	}
	if sources == nil {
		sources = []string{}
	}
	return Envelope{
		Metadata: Metadata{
			Description:  description,
			Sources:      sources,
			TotalRecords: len(records),
			LastUpdated:  now.Format(TimestampLayout),
		},
		Data: records,
	}
}

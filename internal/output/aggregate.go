package output

import (
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"time"
)

// Aggregate validates, dedups and sorts the records of a batch and wraps them in
// an envelope. Records that fail validation are dropped and returned as errors.
func Aggregate(desc sources.Description, batch sources.Batch, now time.Time) (record.Envelope, []error) {
	var invalid []error
	valid := make([]record.Record, 0, len(batch.Records))
	for _, r := range batch.Records {
		err := r.Validate()
		if err != nil {
			invalid = append(invalid, err)
			continue
		}
		valid = append(valid, r)
	}

	records := record.Dedup(valid)
	record.Sort(records, desc.Order)

	srcs := desc.Sources
	if len(srcs) == 0 {
		srcs = record.Sources(records)
	}
	title := desc.Title
	if title == "" {
		title = desc.Name
	}
	return record.NewEnvelope(title, srcs, records, now), invalid
}

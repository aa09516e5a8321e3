package fred

import (
	"bytes"
	"context"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"time"
)

const (
	report_fetch_series = "source.fetch-series"
	report_collected    = "records"
)

const DefaultGraphURL = "https://fred.stlouisfed.org"

type CSVOptions struct {
	BaseURL string
	// Window drops observations dated outside it.
	Window  record.Window
	Timeout time.Duration
}

// CSVSource downloads every series of a Bundle through the public graph CSV
// endpoint, no api key required.
type CSVSource struct {
	bundle Bundle
	opts   CSVOptions
	http   *adapter.HTTP
	deps   sources.Deps
}

func NewCSV(bundle Bundle) func(deps sources.Deps) (*CSVSource, error) {
	return func(deps sources.Deps) (*CSVSource, error) {
		return NewCSVWithOptions(deps, bundle, CSVOptions{
			BaseURL: deps.BaseURL(bundle.Name, DefaultGraphURL),
			Window:  deps.Config.Window(deps.Clock.Now()),
			Timeout: time.Second * 30,
		})
	}
}

func NewCSVWithOptions(deps sources.Deps, bundle Bundle, opts CSVOptions) (*CSVSource, error) {
	deps = deps.Scoped(bundle.Name)
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Headers: map[string]string{"accept": "text/csv"},
	}, deps.Tel)
	if err != nil {
		return nil, err
	}
	return &CSVSource{bundle: bundle, opts: opts, http: client, deps: deps}, nil
}

func (s *CSVSource) Name() string {
	return s.bundle.Name
}

func (s *CSVSource) Describe() sources.Description {
	return sources.Description{
		Name:    s.bundle.Name,
		Title:   s.bundle.Title,
		Sources: []string{"FRED (Federal Reserve Economic Data)"},
		Order:   s.bundle.Order,
	}
}

func (s *CSVSource) fetchSeries(ctx context.Context, series Series) sources.Batch {
	var batch sources.Batch

	res := adapter.Map(
		s.http.Get(ctx, "/graph/fredgraph.csv", map[string]string{"id": series.ID}),
		func(body []byte) ([]extract.Point, error) {
			return extract.ParseSeriesCSV(bytes.NewReader(body), extract.SeriesOptions{
				Window:   s.opts.Window,
				MonthDay: record.DayFirst,
			})
		},
	)
	if !res.OK() {
		s.deps.Tel.ReportWarning(report_fetch_series, series.ID, res.Error())
		sources.FailResult(&batch, series.ID, res)
		return batch
	}
	if len(res.Value) == 0 {
		batch.Fail(series.ID, adapter.ReasonEmpty, fmt.Errorf("%w: %s has no observations in %s", extract.ErrNoData, series.ID, s.opts.Window))
		return batch
	}

	norm := record.Normalizer{
		Indicator:     series.Name,
		Unit:          series.Unit,
		Source:        "FRED",
		Note:          series.Note,
		Precision:     s.bundle.Precision,
		IndicatorCode: series.ID,
		Category:      series.Category,
	}
	for _, p := range res.Value {
		r, err := norm.At(p.Date, p.Value)
		if err != nil {
			continue
		}
		batch.Add(r)
	}
	s.deps.Tel.ReportDebug("fetched series", series.ID, len(batch.Records))
	return batch
}

func (s *CSVSource) Collect(ctx context.Context) (sources.Batch, error) {
	batch := sources.MergeAll(sources.FanOut(ctx, s.bundle.Series, s.fetchSeries))
	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

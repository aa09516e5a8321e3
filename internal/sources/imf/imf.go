package imf

import (
	"context"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"time"
)

const (
	report_fetch_indicator = "source.fetch-indicator"
	report_collected       = "records"
)

const DefaultBaseURL = "https://www.imf.org/external/datamapper"

type Indicator struct {
	Code string
	Name string
	Unit string
}

type Country struct {
	Code string
	Name string
}

// Dataset is one IMF DataMapper extraction, a set of indicators for a set of
// countries (or country groups).
type Dataset struct {
	Name       string
	Title      string
	Source     string
	Indicators []Indicator
	Countries  []Country
	Order      record.Order
}

var GDP = Dataset{
	Name:   "imf_gdp",
	Title:  "GDP data for China, United States, and Euro Area",
	Source: "IMF World Economic Outlook API",
	Indicators: []Indicator{
		{Code: "NGDP_RPCH", Name: "Real GDP growth (Annual percent change)", Unit: "Percent"},
		{Code: "NGDPD", Name: "Gross domestic product, current prices (U.S. dollars, Billions)", Unit: "U.S. dollars, Billions"},
	},
	Countries: []Country{
		{Code: "CHN", Name: "China"},
		{Code: "USA", Name: "United States"},
		{Code: "EURO", Name: "Euro Area"},
	},
	Order: record.ByCountryIndicatorYear,
}

var Inflation = Dataset{
	Name:   "imf_inflation",
	Title:  "Global inflation trends",
	Source: "IMF World Economic Outlook API",
	Indicators: []Indicator{
		{Code: "PCPIPCH", Name: "Inflation, average consumer prices (Annual percent change)", Unit: "Percent"},
	},
	Countries: []Country{
		{Code: "WEOWORLD", Name: "World"},
		{Code: "ADVEC", Name: "Advanced economies"},
		{Code: "OEMDC", Name: "Emerging market and developing economies"},
	},
	Order: record.ByCountryCodeYear,
}

type Options struct {
	BaseURL string
	// Window drops observations dated outside it, an open end keeps
	// projections past the current year.
	Window  record.Window
	Timeout time.Duration
}

type Source struct {
	dataset Dataset
	opts    Options
	http    *adapter.HTTP
	deps    sources.Deps
}

func New(dataset Dataset) func(deps sources.Deps) (*Source, error) {
	return func(deps sources.Deps) (*Source, error) {
		window := deps.Config.Window(deps.Clock.Now())
		if deps.Config.EndDate == "" {
			window.End = time.Time{}
		}
		return NewWithOptions(deps, dataset, Options{
			BaseURL: deps.BaseURL(dataset.Name, DefaultBaseURL),
			Window:  window,
			Timeout: time.Second * 30,
		})
	}
}

func NewWithOptions(deps sources.Deps, dataset Dataset, opts Options) (*Source, error) {
	deps = deps.Scoped(dataset.Name)
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
	}, deps.Tel)
	if err != nil {
		return nil, err
	}
	return &Source{dataset: dataset, opts: opts, http: client, deps: deps}, nil
}

func (s *Source) Name() string {
	return s.dataset.Name
}

func (s *Source) Describe() sources.Description {
	return sources.Description{
		Name:    s.dataset.Name,
		Title:   s.dataset.Title,
		Sources: []string{s.dataset.Source},
		Order:   s.dataset.Order,
	}
}

// response is the DataMapper shape: values -> indicator -> country -> year -> value.
// Values come back as numbers or strings depending on the endpoint.
type response struct {
	Values map[string]map[string]map[string]any `json:"values"`
}

func (s *Source) fetchIndicator(ctx context.Context, ind Indicator) sources.Batch {
	var batch sources.Batch

	res := adapter.GetJSON[response](ctx, s.http, fmt.Sprintf("/api/v1/%s", ind.Code), nil)
	if !res.OK() {
		s.deps.Tel.ReportWarning(report_fetch_indicator, ind.Code, res.Error())
		sources.FailResult(&batch, ind.Code, res)
		return batch
	}

	series := res.Value.Values[ind.Code]
	if len(series) == 0 {
		batch.Fail(ind.Code, adapter.ReasonEmpty, fmt.Errorf("%w: no values for %s", extract.ErrNoData, ind.Code))
		return batch
	}

	for _, country := range s.dataset.Countries {
		norm := record.Normalizer{
			Indicator:     ind.Name,
			Unit:          ind.Unit,
			Source:        s.dataset.Source,
			Precision:     -1,
			Country:       country.Name,
			CountryCode:   country.Code,
			IndicatorCode: ind.Code,
		}
		for rawYear, rawValue := range series[country.Code] {
			year, ok := extract.Year(rawYear)
			if !ok {
				continue
			}
			value, ok := extract.Float(rawValue)
			if !ok {
				continue
			}
			r, err := norm.Annual(year, value)
			if err != nil || !s.opts.Window.Contains(r.Date) {
				continue
			}
			batch.Add(r)
		}
	}

	// map iteration order is random, keep the batch deterministic
	record.Sort(batch.Records, record.ByCountryIndicatorYear)
	return batch
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	batch := sources.MergeAll(sources.FanOut(ctx, s.dataset.Indicators, s.fetchIndicator))
	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

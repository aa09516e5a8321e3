package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"time"
)

const Name = "worldbank"

const (
	report_fetch_indicator = "source.fetch-indicator"
	report_collected       = "records"
)

const DefaultBaseURL = "https://api.worldbank.org"

type Indicator struct {
	Code string
	Name string
	Note string
}

// Indicators is the default set fetched for China.
var Indicators = []Indicator{
	{
		Code: "NY.GDP.MKTP.KD.ZG",
		Name: "gdp_growth",
		Note: "Annual GDP Growth (%)",
	},
	{
		Code: "NE.GDI.TOTL.KD.ZG",
		Name: "investment_growth",
		Note: "Gross Capital Formation Growth (annual %) - Credit Proxy",
	},
}

type Options struct {
	BaseURL    string
	Country    string
	Indicators []Indicator
	// Window bounds the requested years and filters the annual records.
	Window     record.Window
	Timeout    time.Duration
}

type Source struct {
	opts Options
	http *adapter.HTTP
	deps sources.Deps
}

func New(deps sources.Deps) (*Source, error) {
	return NewWithOptions(deps, Options{
		BaseURL:    deps.BaseURL(Name, DefaultBaseURL),
		Country:    "CN",
		Indicators: Indicators,
		Window:     deps.Config.Window(deps.Clock.Now()),
		Timeout:    time.Second * 10,
	})
}

func NewWithOptions(deps sources.Deps, opts Options) (*Source, error) {
	deps = deps.Scoped(Name)
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
	}, deps.Tel)
	if err != nil {
		return nil, err
	}
	return &Source{opts: opts, http: client, deps: deps}, nil
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Describe() sources.Description {
	return sources.Description{
		Name:    Name,
		Title:   "World Bank indicators",
		Sources: []string{"World Bank (GDP/Investment History)"},
		Order:   record.ByDateDesc,
	}
}

type observation struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// decodePage reads the second element of the [paging, observations] pair the
// API responds with. An error body is a single element array.
func decodePage(page []json.RawMessage) ([]observation, error) {
	if len(page) < 2 {
		return nil, fmt.Errorf("expected [paging, observations], got %d elements", len(page))
	}
	var out []observation
	err := json.Unmarshal(page[1], &out)
	return out, err
}

func (s *Source) fetchIndicator(ctx context.Context, ind Indicator) sources.Batch {
	var batch sources.Batch

	path := fmt.Sprintf("/v2/country/%s/indicator/%s", s.opts.Country, ind.Code)
	res := adapter.Map(
		adapter.GetJSON[[]json.RawMessage](ctx, s.http, path, map[string]string{
			"format":   "json",
			"date":     fmt.Sprintf("%d:%d", s.opts.Window.Start.Year(), s.opts.Window.End.Year()),
			"per_page": "100",
		}),
		decodePage,
	)
	if !res.OK() {
		s.deps.Tel.ReportWarning(report_fetch_indicator, ind.Code, res.Error())
		sources.FailResult(&batch, ind.Code, res)
		return batch
	}

	norm := record.Normalizer{
		Indicator: ind.Name,
		Unit:      "percent",
		Source:    "World Bank",
		Note:      ind.Note,
		Precision: 2,
	}
	for _, obs := range res.Value {
		if obs.Value == nil {
			continue
		}
		year, ok := parseYear(obs.Date)
		if !ok {
			continue
		}
		r, err := norm.Annual(year, *obs.Value)
		if err != nil {
			s.deps.Tel.ReportDebug("skipped observation", ind.Code, obs.Date, err)
			continue
		}
		if !s.opts.Window.Contains(r.Date) {
			continue
		}
		batch.Add(r)
	}
	return batch
}

func parseYear(raw string) (int, bool) {
	t, err := time.Parse("2006", raw)
	if err != nil {
		return 0, false
	}
	return t.Year(), true
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	batch := sources.MergeAll(sources.FanOut(ctx, s.opts.Indicators, s.fetchIndicator))
	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

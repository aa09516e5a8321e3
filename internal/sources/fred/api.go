package fred

import (
	"context"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"time"
)

const (
	report_fetch_observations = "source.fetch-observations"
)

const DefaultAPIURL = "https://api.stlouisfed.org"

// CredentialName is the config credential (or upper-cased env var) holding the api key.
const CredentialName = "fred_api_key"

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type observationsResponse struct {
	Observations []observation `json:"observations"`
}

// apiClient wraps the keyed FRED api, every call carries the key and asks for json.
type apiClient struct {
	http *adapter.HTTP
	key  string
}

func getAPI[T any](ctx context.Context, c apiClient, path string, params map[string]string) adapter.Result[T] {
	query := map[string]string{
		"api_key":   c.key,
		"file_type": "json",
	}
	for k, v := range params {
		query[k] = v
	}
	return adapter.GetJSON[T](ctx, c.http, path, query)
}

func newAPIClient(deps sources.Deps, baseURL string, timeout, delay time.Duration) (apiClient, error) {
	key, err := deps.Config.Credential(CredentialName)
	if err != nil {
		return apiClient{}, err
	}
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL: baseURL,
		Timeout: timeout,
		Delay:   delay,
	}, deps.Tel)
	if err != nil {
		return apiClient{}, err
	}
	return apiClient{http: client, key: key}, nil
}

const APIName = "fred_api"

// VietnamSeries is the default set fetched by the api source.
var VietnamSeries = []Series{
	{ID: "DEXVND", Name: "DEXVND", Unit: "Vietnamese Dong to One U.S. Dollar", Note: "Exchange Rate - Daily"},
	{ID: "VNMCPIALLMINMEI", Name: "VNMCPIALLMINMEI", Unit: "Index 2015=100", Note: "CPI Inflation - Monthly"},
	{ID: "VNMNGDP", Name: "VNMNGDP", Unit: "Vietnamese Dong", Note: "GDP - Annual"},
}

type APIOptions struct {
	BaseURL  string
	Series   []Series
	Lookback time.Duration
	Timeout  time.Duration
}

// APISource fetches recent observations through the keyed api.
type APISource struct {
	opts APIOptions
	deps sources.Deps
}

func NewAPI(deps sources.Deps) (*APISource, error) {
	return NewAPIWithOptions(deps, APIOptions{
		BaseURL:  deps.BaseURL(APIName, DefaultAPIURL),
		Series:   VietnamSeries,
		Lookback: time.Hour * 24 * 365,
		Timeout:  time.Second * 30,
	})
}

func NewAPIWithOptions(deps sources.Deps, opts APIOptions) (*APISource, error) {
	return &APISource{opts: opts, deps: deps.Scoped(APIName)}, nil
}

func (s *APISource) Name() string {
	return APIName
}

func (s *APISource) Describe() sources.Description {
	return sources.Description{
		Name:        APIName,
		Title:       "Vietnam macro indicators (FRED, last year)",
		Sources:     []string{"FRED"},
		Order:       record.ByIndicatorDate,
		Credentials: []string{CredentialName},
	}
}

func (s *APISource) Collect(ctx context.Context) (sources.Batch, error) {
	client, err := newAPIClient(s.deps, s.opts.BaseURL, s.opts.Timeout, 0)
	if err != nil {
		return sources.Batch{}, err
	}
	start := s.deps.Clock.Now().Add(-s.opts.Lookback).Format(record.DateLayout)

	batch := sources.MergeAll(sources.FanOut(ctx, s.opts.Series, func(ctx context.Context, series Series) sources.Batch {
		var batch sources.Batch
		res := getAPI[observationsResponse](ctx, client, "/fred/series/observations", map[string]string{
			"series_id":         series.ID,
			"observation_start": start,
		})
		if !res.OK() {
			s.deps.Tel.ReportWarning(report_fetch_observations, series.ID, res.Error())
			sources.FailResult(&batch, series.ID, res)
			return batch
		}
		norm := record.Normalizer{
			Indicator:     series.Name,
			Unit:          series.Unit,
			Source:        "FRED",
			Note:          series.Note,
			Precision:     4,
			IndicatorCode: series.ID,
		}
		batch.Add(observationRecords(norm, res.Value.Observations)...)
		return batch
	}))

	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

// observationRecords skips missing observations, which the api reports as ".".
func observationRecords(norm record.Normalizer, observations []observation) []record.Record {
	var out []record.Record
	for _, obs := range observations {
		value, ok := extract.Float(obs.Value)
		if !ok {
			continue
		}
		date, err := record.NormalizeDate(obs.Date, record.DayFirst)
		if err != nil {
			continue
		}
		r, err := norm.At(date, value)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

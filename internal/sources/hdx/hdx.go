package hdx

import (
	"bytes"
	"context"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"strconv"
	"strings"
	"time"
)

const Name = "hdx_wfp"

const (
	report_search    = "source.search"
	report_resource  = "source.fetch-resource"
	report_collected = "records"
)

const DefaultBaseURL = "https://data.humdata.org"

type Options struct {
	BaseURL      string
	Organization string
	Keywords     []Keyword
	// Rows is how many search results are ranked per keyword.
	Rows int
	// MaxRows caps how much of a resource is read.
	MaxRows int
	// Delay is the fixed spacing between two requests.
	Delay   time.Duration
	Timeout time.Duration
}

type Source struct {
	opts Options
	http *adapter.HTTP
	deps sources.Deps
}

func New(deps sources.Deps) (*Source, error) {
	return NewWithOptions(deps, Options{
		BaseURL:      deps.BaseURL(Name, DefaultBaseURL),
		Organization: "wfp",
		Keywords:     Keywords,
		Rows:         20,
		MaxRows:      1000,
		Delay:        time.Second * 2,
		Timeout:      time.Second * 60,
	})
}

func NewWithOptions(deps sources.Deps, opts Options) (*Source, error) {
	deps = deps.Scoped(Name)
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Delay:   opts.Delay,
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
		Title:   "WFP macro indicators (market prices, inflation, exchange rates)",
		Sources: []string{"HDX CKAN API (WFP)"},
		Order:   record.ByCategoryIndicatorDate,
	}
}

func (s *Source) search(ctx context.Context, kw Keyword) adapter.Result[Dataset] {
	res := adapter.GetJSON[searchResponse](ctx, s.http, "/api/3/action/package_search", map[string]string{
		"q":    kw.Query,
		"fq":   "organization:" + s.opts.Organization,
		"rows": strconv.Itoa(s.opts.Rows),
		"sort": "metadata_modified desc",
	})
	return adapter.Map(res, func(body searchResponse) (Dataset, error) {
		if !body.Success {
			msg := "unknown error"
			if body.Error != nil {
				msg = body.Error.Message
			}
			return Dataset{}, fmt.Errorf("package_search failed: %s", msg)
		}
		ranked := RankDatasets(kw, body.Result.Results)
		if len(ranked) == 0 {
			return Dataset{}, fmt.Errorf("%w: no datasets for %q", extract.ErrNoData, kw.Query)
		}
		return ranked[0], nil
	})
}

func (s *Source) readResource(ctx context.Context, res Resource) adapter.Result[extract.Table] {
	format := strings.ToUpper(res.Format)
	var read func(body []byte) (extract.Table, error)
	switch format {
	case "CSV":
		read = func(body []byte) (extract.Table, error) {
			return extract.ReadTable(bytes.NewReader(body), s.opts.MaxRows)
		}
	case "XLSX":
		read = func(body []byte) (extract.Table, error) {
			return extract.ReadXLSXTable(bytes.NewReader(body), s.opts.MaxRows)
		}
	default:
		return adapter.Empty[extract.Table](adapter.ReasonMalformed, fmt.Errorf("unsupported resource format %s", format))
	}
	return adapter.Map(s.http.Get(ctx, res.URL, nil), read)
}

func (s *Source) collectKeyword(ctx context.Context, kw Keyword) sources.Batch {
	var batch sources.Batch

	found := s.search(ctx, kw)
	if !found.OK() {
		s.deps.Tel.ReportWarning(report_search, kw.Query, found.Error())
		sources.FailResult(&batch, kw.Query, found)
		return batch
	}
	ds := found.Value
	s.deps.Tel.ReportDebug("selected dataset", kw.Query, ds.Title, ds.MetadataModified)

	resource, ok := PickResource(ds)
	if !ok {
		batch.Fail(kw.Query, adapter.ReasonMissingElement, fmt.Errorf("%w: %s has no data resource", extract.ErrNoData, ds.Title))
		return batch
	}

	table := s.readResource(ctx, resource)
	if !table.OK() {
		s.deps.Tel.ReportWarning(report_resource, resource.URL, table.Error())
		sources.FailResult(&batch, kw.Query, table)
		return batch
	}

	norm := record.Normalizer{
		Source:        "WFP via HDX",
		Note:          ds.Title,
		Precision:     4,
		IndicatorCode: ds.Name,
		Category:      kw.Query,
	}
	today := s.deps.Clock.Now().Format(record.DateLayout)
	records := TableRecords(table.Value, norm, today)
	if len(records) == 0 {
		batch.Fail(kw.Query, adapter.ReasonEmpty, fmt.Errorf("%w: no numeric indicator columns in %s", extract.ErrNoData, resource.Name))
		return batch
	}
	batch.Add(records...)
	return batch
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	var batch sources.Batch
	for _, kw := range s.opts.Keywords {
		if ctx.Err() != nil {
			batch.Fail(kw.Query, adapter.ReasonCancelled, ctx.Err())
			break
		}
		batch.Merge(s.collectKeyword(ctx, kw))
	}
	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

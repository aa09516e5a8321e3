package fred

import (
	"context"
	"macroscrape/internal/adapter"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"strconv"
	"time"
)

const (
	report_scan_category = "source.scan-category"
)

const CategoryName = "fred_vietnam"

// VietnamCategory is the FRED category holding every Vietnam series.
const VietnamCategory = 32841

type category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type childrenResponse struct {
	Categories []category `json:"categories"`
}

type seriesMeta struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Units              string `json:"units"`
	Frequency          string `json:"frequency"`
	SeasonalAdjustment string `json:"seasonal_adjustment"`
}

type seriesResponse struct {
	Series []seriesMeta `json:"seriess"`
}

type CategoryOptions struct {
	BaseURL string
	Root    int
	// Delay is the fixed spacing between two api calls.
	Delay   time.Duration
	Timeout time.Duration
}

// CategorySource walks a category tree and keeps the latest observation of
// every series found in it.
type CategorySource struct {
	opts CategoryOptions
	deps sources.Deps
}

func NewCategory(deps sources.Deps) (*CategorySource, error) {
	return NewCategoryWithOptions(deps, CategoryOptions{
		BaseURL: deps.BaseURL(CategoryName, DefaultAPIURL),
		Root:    VietnamCategory,
		Delay:   time.Millisecond * 100,
		Timeout: time.Second * 30,
	})
}

func NewCategoryWithOptions(deps sources.Deps, opts CategoryOptions) (*CategorySource, error) {
	return &CategorySource{opts: opts, deps: deps.Scoped(CategoryName)}, nil
}

func (s *CategorySource) Name() string {
	return CategoryName
}

func (s *CategorySource) Describe() sources.Description {
	return sources.Description{
		Name:        CategoryName,
		Title:       "Latest value of every FRED Vietnam indicator",
		Sources:     []string{"FRED (Category " + strconv.Itoa(s.opts.Root) + " - Vietnam)"},
		Order:       record.ByIndicatorDate,
		Credentials: []string{CredentialName},
	}
}

type scan struct {
	client  apiClient
	visited map[int]bool
	seen    map[string]bool
	found   []seriesMeta
	batch   sources.Batch
}

// walk lists the series of a category before descending into its children,
// categories reachable twice are scanned once.
func (s *CategorySource) walk(ctx context.Context, sc *scan, id int) {
	if sc.visited[id] || ctx.Err() != nil {
		return
	}
	sc.visited[id] = true
	target := "category " + strconv.Itoa(id)

	series := getAPI[seriesResponse](ctx, sc.client, "/fred/category/series", map[string]string{
		"category_id": strconv.Itoa(id),
		"limit":       "1000",
	})
	if series.OK() {
		for _, meta := range series.Value.Series {
			if sc.seen[meta.ID] {
				continue
			}
			sc.seen[meta.ID] = true
			sc.found = append(sc.found, meta)
		}
	} else {
		s.deps.Tel.ReportWarning(report_scan_category, id, series.Error())
		sources.FailResult(&sc.batch, target, series)
	}

	children := getAPI[childrenResponse](ctx, sc.client, "/fred/category/children", map[string]string{
		"category_id": strconv.Itoa(id),
	})
	if !children.OK() {
		s.deps.Tel.ReportWarning(report_scan_category, id, children.Error())
		sources.FailResult(&sc.batch, target, children)
		return
	}
	for _, child := range children.Value.Categories {
		s.walk(ctx, sc, child.ID)
	}
}

func (s *CategorySource) Collect(ctx context.Context) (sources.Batch, error) {
	client, err := newAPIClient(s.deps, s.opts.BaseURL, s.opts.Timeout, s.opts.Delay)
	if err != nil {
		return sources.Batch{}, err
	}

	sc := &scan{
		client:  client,
		visited: map[int]bool{},
		seen:    map[string]bool{},
	}
	s.walk(ctx, sc, s.opts.Root)
	s.deps.Tel.ReportDebug("found series", len(sc.found))

	for _, meta := range sc.found {
		if ctx.Err() != nil {
			sc.batch.Fail(meta.ID, adapter.ReasonCancelled, ctx.Err())
			break
		}
		res := getAPI[observationsResponse](ctx, client, "/fred/series/observations", map[string]string{
			"series_id":  meta.ID,
			"sort_order": "desc",
			"limit":      "1",
		})
		if !res.OK() {
			s.deps.Tel.ReportWarning(report_fetch_observations, meta.ID, res.Error())
			sources.FailResult(&sc.batch, meta.ID, res)
			continue
		}
		note := meta.Frequency
		if meta.SeasonalAdjustment != "" {
			note += ", " + meta.SeasonalAdjustment
		}
		norm := record.Normalizer{
			Indicator:     meta.Title,
			Unit:          meta.Units,
			Source:        "FRED",
			Note:          note,
			Precision:     4,
			IndicatorCode: meta.ID,
			Country:       "Vietnam",
		}
		sc.batch.Add(observationRecords(norm, res.Value.Observations)...)
	}

	s.deps.Tel.ReportCount(report_collected, int64(len(sc.batch.Records)))
	return sc.batch, nil
}

package tourism

import (
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

const Name = "tourism_vn"

const (
	report_fetch_category = "source.fetch-category"
	report_collected      = "records"
)

const DefaultBaseURL = "https://thongke.tourism.vn"

// FirstYear is the earliest year the statistics portal publishes.
const FirstYear = 2008

// Category is one pivot table on the portal, Rows is its `row-list` selector.
type Category struct {
	Key     string
	Title   string
	RowCode string
	Rows    string
}

var Categories = []Category{
	{
		Key:     "by_transport",
		Title:   "Phân theo phương tiện",
		RowCode: "17",
		Rows:    "17_1701,17_1702,17_1703",
	},
	{
		Key:     "by_market",
		Title:   "Phân theo thị trường",
		RowCode: "14",
		Rows: "14_1401,14_1402,14_140102,14_140106,14_140108,14_140110,14_140111,14_140119,14_140122,14_140124," +
			"14_140128,14_140131,14_140134,14_140139,14_140141,14_140203,14_140206,14_140208,14_140214,14_140215," +
			"14_140231,14_140232,14_140233,14_140234,14_140241,14_140243,14_140244,14_140246,14_140247,14_140501," +
			"14_140507,14_140308,14_140321,14_140145,14_140248,14_140336,14_140455,14_140515,14_140146,14_140147," +
			"14_140249,14_1406",
	},
	{
		Key:     "by_visitor_type",
		Title:   "Phân theo đối tượng khách",
		RowCode: "12",
		Rows:    "12_1201",
	},
	{
		Key:     "by_visitor_group",
		Title:   "Phân theo nhóm khách",
		RowCode: "24",
		Rows:    "24_2401,24_2402",
	},
}

const tableSelector = "#output table.pvtTable"

// pivotJS reads the rendered pivot table: the header row holds the years, every
// body row a label followed by one cell per year.
const pivotJS = `(() => {
	const table = document.querySelector('#output table.pvtTable');
	if (!table) return null;
	const headers = [];
	const headerRow = table.querySelector('thead tr');
	if (headerRow) {
		const ths = headerRow.querySelectorAll('th');
		for (let i = 1; i < ths.length; i++) headers.push(ths[i].innerText.trim());
	}
	const rows = [];
	const tbody = table.querySelector('tbody');
	if (tbody) {
		tbody.querySelectorAll('tr').forEach(tr => {
			const cells = tr.querySelectorAll('td, th');
			if (cells.length === 0) return;
			const values = [];
			for (let i = 1; i < cells.length; i++) values.push(cells[i].innerText.trim());
			rows.push({label: cells[0].innerText.trim(), values});
		});
	}
	return {headers, rows};
})()`

type pivotRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

type pivot struct {
	Headers []string   `json:"headers"`
	Rows    []pivotRow `json:"rows"`
}

type Options struct {
	BaseURL    string
	Categories []Category
	Years      []int
	Timeout    time.Duration
	// Settle is how long the page is left to finish rendering after the table appears.
	Settle time.Duration
}

type Source struct {
	opts Options
	deps sources.Deps
}

func years(from, to int) []int {
	var out []int
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

func New(deps sources.Deps) (*Source, error) {
	return NewWithOptions(deps, Options{
		BaseURL:    deps.BaseURL(Name, DefaultBaseURL),
		Categories: Categories,
		Years:      years(FirstYear, deps.Clock.Now().Year()),
		Timeout:    time.Second * 30,
		Settle:     time.Second * 2,
	})
}

func NewWithOptions(deps sources.Deps, opts Options) (*Source, error) {
	if len(opts.Years) == 0 {
		return nil, fmt.Errorf("tourism: no years requested")
	}
	return &Source{opts: opts, deps: deps.Scoped(Name)}, nil
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Describe() sources.Description {
	return sources.Description{
		Name:    Name,
		Title:   "International visitors to Vietnam",
		Sources: []string{"https://thongke.tourism.vn/"},
		Order:   record.ByCategoryIndicatorDate,
		Browser: true,
	}
}

// CategoryURL is the pivot table page of a category over every requested year.
func (s *Source) CategoryURL(c Category) string {
	nam := make([]string, len(s.opts.Years))
	for i, y := range s.opts.Years {
		nam[i] = strconv.Itoa(y)
	}
	return fmt.Sprintf(
		"%s/index.php/statistic/stat/6?share=99&type=type1&rowcode=%s&input-type=4&row-list=%s&nam=%s",
		strings.TrimRight(s.opts.BaseURL, "/"), c.RowCode, c.Rows, strings.Join(nam, ","),
	)
}

// parseCount reads a visitor count, thousands may be separated by "," or ".".
func parseCount(raw string) (float64, bool) {
	raw = strings.NewReplacer(",", "", ".", "", " ", "").Replace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

func pivotRecords(p pivot, norm record.Normalizer) []record.Record {
	var out []record.Record
	for _, row := range p.Rows {
		n := norm
		n.Indicator = row.Label
		for i, raw := range row.Values {
			if i >= len(p.Headers) {
				break
			}
			year, ok := extract.Year(p.Headers[i])
			if !ok {
				continue
			}
			value, ok := parseCount(raw)
			if !ok {
				continue
			}
			r, err := n.Annual(year, value)
			if err != nil {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	if s.deps.OpenBrowser == nil {
		return sources.Batch{}, fmt.Errorf("%s needs a browser", Name)
	}
	browser, err := s.deps.OpenBrowser(ctx)
	if err != nil {
		return sources.Batch{}, fmt.Errorf("start browser: %w", err)
	}
	defer browser.Close()

	var batch sources.Batch
	for _, c := range s.opts.Categories {
		if ctx.Err() != nil {
			batch.Fail(c.Key, adapter.ReasonCancelled, ctx.Err())
			break
		}

		res := adapter.FetchStructured[*pivot](ctx, browser, adapter.Target{
			URL:           s.CategoryURL(c),
			ReadySelector: tableSelector,
			Timeout:       s.opts.Timeout,
			Settle:        s.opts.Settle,
		}, pivotJS, s.deps.Tel)
		if res.OK() && (res.Value == nil || len(res.Value.Headers) == 0) {
			res = adapter.Empty[*pivot](adapter.ReasonMissingElement, fmt.Errorf("%s rendered no pivot table", c.Key))
		}
		if !res.OK() {
			s.deps.Tel.ReportWarning(report_fetch_category, c.Key, res.Error())
			sources.FailResult(&batch, c.Key, res)
			continue
		}

		records := pivotRecords(*res.Value, record.Normalizer{
			Unit:      "visitors",
			Source:    "thongke.tourism.vn",
			Note:      c.Title,
			Precision: 0,
			Category:  c.Key,
		})
		s.deps.Tel.ReportDebug("extracted category", c.Key, len(records))
		batch.Add(records...)
	}

	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

package tradingeconomics

import (
	"context"
	"errors"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"macroscrape/pkg/htmlutil"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const Name = "tradingeconomics_vn"

const (
	report_fetch_page = "source.fetch-page"
	report_parse_row  = "source.parse-row"
	report_collected  = "records"
)

const DefaultBaseURL = "https://tradingeconomics.com"

// overview repeats indicators that also appear under their own category.
const overview = "overview"

var ErrPeriod = errors.New("unrecognized period")

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var (
	monthPattern   = regexp.MustCompile(`^([A-Za-z]{3})/(\d{2})$`)
	quarterPattern = regexp.MustCompile(`^Q([1-4])/(\d{2})$`)
	yearPattern    = regexp.MustCompile(`^(\d{4})$`)
)

// parsePeriod reads the reference column: "Dec/25", "Q3/25" or "2024".
func parsePeriod(raw string) (extract.Period, error) {
	raw = strings.TrimSpace(raw)
	if m := monthPattern.FindStringSubmatch(raw); m != nil {
		month, ok := months[strings.ToLower(m[1])]
		if ok {
			yy, _ := strconv.Atoi(m[2])
			return extract.Period{Kind: extract.Monthly, Year: 2000 + yy, N: month}, nil
		}
	}
	if m := quarterPattern.FindStringSubmatch(raw); m != nil {
		q, _ := strconv.Atoi(m[1])
		yy, _ := strconv.Atoi(m[2])
		return extract.Period{Kind: extract.Quarterly, Year: 2000 + yy, N: q}, nil
	}
	if m := yearPattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		return extract.Period{Kind: extract.Annual, Year: year}, nil
	}
	return extract.Period{}, fmt.Errorf("%w: %q", ErrPeriod, raw)
}

// row is one indicator line: name, last, previous, highest, lowest, unit, reference.
type row struct {
	Category  string
	Name      string
	Last      string
	Previous  string
	Unit      string
	Reference string
}

// parseRows reads every category tab, an indicator listed under several tabs
// keeps the last non overview one.
func parseRows(doc *goquery.Document) []row {
	var order []string
	rows := map[string]row{}

	doc.Find("div.tab-pane").Each(func(_ int, pane *goquery.Selection) {
		category, _ := pane.Attr("id")
		if category == "" {
			category = "unknown"
		}
		pane.Find("table.table-hover tr").Each(func(_ int, tr *goquery.Selection) {
			var cols []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				cols = append(cols, htmlutil.CleanText(td.Text()))
			})
			if len(cols) < 7 || cols[0] == "" {
				return
			}
			name := cols[0]
			if _, seen := rows[name]; seen {
				if category == overview {
					return
				}
			} else {
				order = append(order, name)
			}
			rows[name] = row{
				Category:  category,
				Name:      name,
				Last:      cols[1],
				Previous:  cols[2],
				Unit:      cols[5],
				Reference: cols[6],
			}
		})
	})

	out := make([]row, len(order))
	for i, name := range order {
		out[i] = rows[name]
	}
	return out
}

type Options struct {
	BaseURL string
	Country string
	// MinYear drops indicators whose reference period is older, stale series
	// stay listed on the page for years.
	MinYear int
	Timeout time.Duration
}

// Source reads the last and previous value of every indicator of a country's
// indicator overview page.
type Source struct {
	opts Options
	http *adapter.HTTP
	deps sources.Deps
}

func New(deps sources.Deps) (*Source, error) {
	return NewWithOptions(deps, Options{
		BaseURL: deps.BaseURL(Name, DefaultBaseURL),
		Country: "vietnam",
		MinYear: deps.Clock.Now().Year() - 1,
		Timeout: time.Second * 30,
	})
}

func NewWithOptions(deps sources.Deps, opts Options) (*Source, error) {
	deps = deps.Scoped(Name)
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL:          opts.BaseURL,
		Timeout:          opts.Timeout,
		CloudflareBypass: true,
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
		Title:   "Vietnam indicators, last and previous reference period",
		Sources: []string{"Trading Economics"},
		Order:   record.ByCategoryIndicatorDate,
	}
}

func rowRecords(r row, p extract.Period) ([]record.Record, error) {
	norm := record.Normalizer{
		Indicator: r.Name,
		Unit:      r.Unit,
		Source:    "Trading Economics",
		Precision: 4,
		Country:   "Vietnam",
		Category:  r.Category,
	}

	var out []record.Record
	for _, obs := range []struct {
		raw string
		at  extract.Period
	}{
		{r.Last, p},
		{r.Previous, p.Previous()},
	} {
		value, ok := extract.ParseNumber(obs.raw)
		if !ok {
			continue
		}
		rec, err := norm.WithNote("Reference " + obs.at.String()).At(obs.at.Date(), value)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no numeric value in %q / %q", r.Last, r.Previous)
	}
	return out, nil
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	var batch sources.Batch
	path := "/" + s.opts.Country + "/indicators"

	page := s.http.GetDocument(ctx, path, nil)
	if !page.OK() {
		s.deps.Tel.ReportWarning(report_fetch_page, path, page.Error())
		sources.FailResult(&batch, path, page)
		return batch, nil
	}
	rows := parseRows(page.Value)
	if len(rows) == 0 {
		batch.Fail(path, adapter.ReasonMissingElement, fmt.Errorf("%w: no indicator tables on %s", extract.ErrNoData, path))
		return batch, nil
	}

	for _, r := range rows {
		p, err := parsePeriod(r.Reference)
		if err == nil && p.Year < s.opts.MinYear {
			s.deps.Tel.ReportDebug("skipped stale indicator", r.Name, r.Reference)
			continue
		}
		var records []record.Record
		if err == nil {
			records, err = rowRecords(r, p)
		}
		if err != nil {
			s.deps.Tel.ReportWarning(report_parse_row, r.Name, err)
			batch.Fail(r.Name, adapter.ReasonMalformed, err)
			continue
		}
		batch.Add(records...)
	}

	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

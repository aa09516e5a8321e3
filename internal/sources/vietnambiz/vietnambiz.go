package vietnambiz

import (
	"context"
	"errors"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const Name = "vietnambiz"

const (
	report_fetch_table = "source.fetch-table"
	report_parse_row   = "source.parse-row"
	report_collected   = "records"
)

const DefaultURL = "https://data.vietnambiz.vn/macro-economic"

const rowSelector = "tr.ant-table-row"

// rowsJS reads the indicator table: name, period, current and previous value.
const rowsJS = `(() => {
	const rows = [];
	document.querySelectorAll('tr.ant-table-row').forEach(row => {
		const cells = row.querySelectorAll('td');
		if (cells.length < 4) return;
		const nameEl = cells[0].querySelector('[class*="name"], span, div');
		const name = (nameEl ? nameEl.textContent : cells[0].textContent).trim();
		if (!name) return;
		rows.push({
			name: name,
			period: cells[1].textContent.trim(),
			current: cells[2].textContent.trim(),
			previous: cells[3].textContent.trim(),
		});
	});
	return rows;
})()`

type row struct {
	Name     string `json:"name"`
	Period   string `json:"period"`
	Current  string `json:"current"`
	Previous string `json:"previous"`
}

var ErrPeriod = errors.New("unrecognized period")

var periodPatterns = []struct {
	kind    extract.PeriodKind
	pattern *regexp.Regexp
}{
	{extract.Quarterly, regexp.MustCompile(`(?i)^(?:q|qu[ýy]\s*)([1-4])\s*[/-]\s*(\d{4})$`)},
	{extract.Monthly, regexp.MustCompile(`(?i)^(?:t|th[áa]ng\s*)?(1[0-2]|0?[1-9])\s*[/-]\s*(\d{4})$`)},
	{extract.Annual, regexp.MustCompile(`(?i)^(?:n[ăa]m\s*)?(\d{4})$`)},
}

// parsePeriod reads the period column: "Quý 3/2024", "Tháng 1/2025", "2024" and
// their short forms.
func parsePeriod(raw string) (extract.Period, error) {
	raw = strings.TrimSpace(raw)
	for _, p := range periodPatterns {
		m := p.pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if p.kind == extract.Annual {
			year, _ := strconv.Atoi(m[1])
			return extract.Period{Kind: extract.Annual, Year: year}, nil
		}
		n, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		return extract.Period{Kind: p.kind, Year: year, N: n}, nil
	}
	return extract.Period{}, fmt.Errorf("%w: %q", ErrPeriod, raw)
}

// parseValue reads a displayed figure, the separator appearing last is taken as
// the decimal point when both are used. A lone separator followed by exactly 3
// digits groups thousands.
func parseValue(raw string) (value float64, percent bool, ok bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "%") {
		percent = true
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" || raw == "-" {
		return 0, percent, false
	}

	comma, dot := strings.LastIndex(raw, ","), strings.LastIndex(raw, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case comma >= 0:
		if strings.Count(raw, ",") == 1 && len(raw)-comma-1 != 3 {
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case dot >= 0:
		if strings.Count(raw, ".") > 1 {
			raw = strings.ReplaceAll(raw, ".", "")
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, percent, false
	}
	return v, percent, true
}

type Options struct {
	URL     string
	Timeout time.Duration
	// Settle is how long the table is left to finish rendering.
	Settle time.Duration
}

// Source reads the latest and previous value of every indicator listed on the
// macro economic dashboard.
type Source struct {
	opts Options
	deps sources.Deps
}

func New(deps sources.Deps) (*Source, error) {
	return NewWithOptions(deps, Options{
		URL:     deps.BaseURL(Name, DefaultURL),
		Timeout: time.Second * 45,
		Settle:  time.Second * 3,
	})
}

func NewWithOptions(deps sources.Deps, opts Options) (*Source, error) {
	return &Source{opts: opts, deps: deps.Scoped(Name)}, nil
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Describe() sources.Description {
	return sources.Description{
		Name:    Name,
		Title:   "Vietnam macro indicators, latest and previous period",
		Sources: []string{"VietnamBiz (data.vietnambiz.vn)"},
		Order:   record.ByIndicatorDate,
		Browser: true,
	}
}

func rowRecords(r row) ([]record.Record, error) {
	p, err := parsePeriod(r.Period)
	if err != nil {
		return nil, err
	}

	var out []record.Record
	for _, obs := range []struct {
		raw string
		at  extract.Period
	}{
		{r.Current, p},
		{r.Previous, p.Previous()},
	} {
		value, percent, ok := parseValue(obs.raw)
		if !ok {
			continue
		}
		unit := "value"
		if percent {
			unit = "percent"
		}
		rec, err := record.Normalizer{
			Indicator: r.Name,
			Unit:      unit,
			Source:    "VietnamBiz",
			Note:      "Period " + obs.at.String(),
			Precision: 4,
			Country:   "Vietnam",
		}.At(obs.at.Date(), value)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no numeric value in %q / %q", r.Current, r.Previous)
	}
	return out, nil
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
	res := adapter.FetchStructured[[]row](ctx, browser, adapter.Target{
		URL:           s.opts.URL,
		ReadySelector: rowSelector,
		Timeout:       s.opts.Timeout,
		Settle:        s.opts.Settle,
	}, rowsJS, s.deps.Tel)
	if res.OK() && len(res.Value) == 0 {
		res = adapter.Empty[[]row](adapter.ReasonMissingElement, fmt.Errorf("indicator table has no rows"))
	}
	if !res.OK() {
		s.deps.Tel.ReportWarning(report_fetch_table, s.opts.URL, res.Error())
		sources.FailResult(&batch, s.opts.URL, res)
		return batch, nil
	}

	for _, r := range res.Value {
		records, err := rowRecords(r)
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

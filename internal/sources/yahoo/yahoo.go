package yahoo

import (
	"context"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/extract"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"net/url"
	"strconv"
	"time"
)

const (
	report_fetch_chart = "source.fetch-chart"
	report_collected   = "records"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

type Ticker struct {
	Symbol   string
	Name     string
	Category string
	Unit     string
}

// Basket is a set of tickers written to one output file.
type Basket struct {
	Name    string
	Title   string
	Tickers []Ticker
	// Latest keeps only the last close of every ticker.
	Latest bool
	// Lookback replaces the configured start date when set.
	Lookback  time.Duration
	Precision int
	Order     record.Order
}

// Commodities are continuous futures (plus two fertilizer proxies) with daily
// closes over the configured range.
var Commodities = Basket{
	Name:  "yahoo_commodities",
	Title: "Daily commodity prices from Yahoo Finance",
	Tickers: []Ticker{
		{Symbol: "CL=F", Name: "Crude Oil - WTI", Category: "Energy", Unit: "USD per Barrel"},
		{Symbol: "BZ=F", Name: "Crude Oil - Brent", Category: "Energy", Unit: "USD per Barrel"},
		{Symbol: "HG=F", Name: "Copper", Category: "Metals", Unit: "USD per Pound"},
		{Symbol: "HRC=F", Name: "Steel (Hot-Rolled Coil)", Category: "Metals", Unit: "USD per Short Ton"},
		{Symbol: "ZR=F", Name: "Rough Rice", Category: "Agriculture", Unit: "USD per Hundredweight"},
		{Symbol: "KC=F", Name: "Coffee", Category: "Agriculture", Unit: "US cents per Pound"},
		{Symbol: "SOIL", Name: "Global X Fertilizers/Potash ETF", Category: "Fertilizer", Unit: "USD (ETF Price)"},
		{Symbol: "NTR", Name: "Nutrien Ltd (Stock)", Category: "Fertilizer", Unit: "USD (Stock Price)"},
	},
	Precision: 2,
	Order:     record.ByCategoryIndicatorDate,
}

// Market is the latest session of the main commodity futures.
var Market = Basket{
	Name:  "yahoo_market",
	Title: "Latest commodity futures prices from Yahoo Finance",
	Tickers: []Ticker{
		{Symbol: "CL=F", Name: "Crude Oil - WTI", Category: "Energy", Unit: "USD per Barrel"},
		{Symbol: "NG=F", Name: "Natural Gas", Category: "Energy", Unit: "USD per MMBtu"},
		{Symbol: "HRC=F", Name: "Steel (Hot-Rolled Coil)", Category: "Metals", Unit: "USD per Short Ton"},
		{Symbol: "GC=F", Name: "Gold", Category: "Metals", Unit: "USD per Troy Ounce"},
		{Symbol: "ZR=F", Name: "Rough Rice", Category: "Agriculture", Unit: "USD per Hundredweight"},
		{Symbol: "ZW=F", Name: "Wheat", Category: "Agriculture", Unit: "US cents per Bushel"},
		{Symbol: "ZC=F", Name: "Corn", Category: "Agriculture", Unit: "US cents per Bushel"},
		{Symbol: "ZS=F", Name: "Soybeans", Category: "Agriculture", Unit: "US cents per Bushel"},
		{Symbol: "SB=F", Name: "Sugar #11", Category: "Agriculture", Unit: "US cents per Pound"},
		{Symbol: "KC=F", Name: "Coffee", Category: "Agriculture", Unit: "US cents per Pound"},
	},
	Latest:    true,
	Lookback:  time.Hour * 24 * 7,
	Precision: 4,
	Order:     record.ByCategoryIndicatorDate,
}

type Options struct {
	BaseURL string
	Window  record.Window
	// Delay is the fixed spacing between two chart requests.
	Delay   time.Duration
	Timeout time.Duration
}

type Source struct {
	basket Basket
	opts   Options
	http   *adapter.HTTP
	deps   sources.Deps
}

func New(basket Basket) func(deps sources.Deps) (*Source, error) {
	return func(deps sources.Deps) (*Source, error) {
		now := deps.Clock.Now()
		window := deps.Config.Window(now)
		if basket.Lookback > 0 {
			window = record.Window{Start: now.Add(-basket.Lookback), End: now}
		}
		return NewWithOptions(deps, basket, Options{
			BaseURL: deps.BaseURL(basket.Name, DefaultBaseURL),
			Window:  window,
			Delay:   time.Millisecond * 500,
			Timeout: time.Second * 30,
		})
	}
}

func NewWithOptions(deps sources.Deps, basket Basket, opts Options) (*Source, error) {
	deps = deps.Scoped(basket.Name)
	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Delay:   opts.Delay,
	}, deps.Tel)
	if err != nil {
		return nil, err
	}
	return &Source{basket: basket, opts: opts, http: client, deps: deps}, nil
}

func (s *Source) Name() string {
	return s.basket.Name
}

func (s *Source) Describe() sources.Description {
	return sources.Description{
		Name:    s.basket.Name,
		Title:   s.basket.Title,
		Sources: []string{"Yahoo Finance"},
		Order:   s.basket.Order,
	}
}

type quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Currency  string `json:"currency"`
		GMTOffset int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quote `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// session is one trading day of a chart.
type session struct {
	date   string
	open   *float64
	high   *float64
	low    *float64
	close  float64
	volume *float64
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// sessions pairs timestamps with closes, days without a close are skipped.
// Dates are taken in the exchange's own offset so a session keeps its trading day.
func sessions(res chartResult) []session {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	zone := time.FixedZone(res.Meta.Symbol, res.Meta.GMTOffset)

	var out []session
	for i, ts := range res.Timestamp {
		closing := at(q.Close, i)
		if closing == nil {
			continue
		}
		out = append(out, session{
			date:   time.Unix(ts, 0).In(zone).Format(record.DateLayout),
			open:   at(q.Open, i),
			high:   at(q.High, i),
			low:    at(q.Low, i),
			close:  *closing,
			volume: at(q.Volume, i),
		})
	}
	return out
}

func format(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func (s session) note() string {
	return fmt.Sprintf("open %s, high %s, low %s, volume %s", format(s.open), format(s.high), format(s.low), format(s.volume))
}

func (s *Source) chart(ctx context.Context, symbol string) adapter.Result[chartResult] {
	// period2 is exclusive, one more day keeps the end date's session
	query := map[string]string{
		"interval": "1d",
		"period1":  strconv.FormatInt(s.opts.Window.Start.Unix(), 10),
		"period2":  strconv.FormatInt(s.opts.Window.End.AddDate(0, 0, 1).Unix(), 10),
	}
	if s.opts.Window.End.IsZero() {
		query["period2"] = strconv.FormatInt(s.deps.Clock.Now().AddDate(0, 0, 1).Unix(), 10)
	}

	return adapter.Map(
		adapter.GetJSON[chartResponse](ctx, s.http, "/v8/finance/chart/"+url.PathEscape(symbol), query),
		func(body chartResponse) (chartResult, error) {
			if e := body.Chart.Error; e != nil {
				return chartResult{}, fmt.Errorf("%s: %s", e.Code, e.Description)
			}
			if len(body.Chart.Result) == 0 {
				return chartResult{}, fmt.Errorf("%w: no chart for %s", extract.ErrNoData, symbol)
			}
			return body.Chart.Result[0], nil
		},
	)
}

func (s *Source) fetchTicker(ctx context.Context, ticker Ticker) sources.Batch {
	var batch sources.Batch

	res := s.chart(ctx, ticker.Symbol)
	if !res.OK() {
		s.deps.Tel.ReportWarning(report_fetch_chart, ticker.Symbol, res.Error())
		sources.FailResult(&batch, ticker.Symbol, res)
		return batch
	}

	var days []session
	for _, day := range sessions(res.Value) {
		if s.opts.Window.Contains(day.date) {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		batch.Fail(ticker.Symbol, adapter.ReasonEmpty, fmt.Errorf("%w: %s has no sessions in %s", extract.ErrNoData, ticker.Symbol, s.opts.Window))
		return batch
	}
	if s.basket.Latest {
		days = days[len(days)-1:]
	}

	norm := record.Normalizer{
		Indicator:     ticker.Name,
		Unit:          ticker.Unit,
		Source:        "Yahoo Finance",
		Precision:     s.basket.Precision,
		IndicatorCode: ticker.Symbol,
		Category:      ticker.Category,
	}
	for _, day := range days {
		n := norm
		if s.basket.Latest {
			n = n.WithNote(day.note())
		}
		r, err := n.At(day.date, day.close)
		if err != nil {
			continue
		}
		batch.Add(r)
	}
	s.deps.Tel.ReportDebug("fetched chart", ticker.Symbol, len(batch.Records))
	return batch
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	batch := sources.MergeAll(sources.FanOut(ctx, s.basket.Tickers, s.fetchTicker))
	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

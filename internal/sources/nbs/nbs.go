package nbs

import (
	"context"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"macroscrape/pkg/htmlutil"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const Name = "nbs_pmi"

const (
	report_scan_index  = "source.scan-index"
	report_fetch_page  = "source.fetch-article"
	report_extract     = "source.extract"
	report_out_of_band = "source.out-of-bounds"
	report_collected   = "records"
)

const DefaultBaseURL = "http://www.stats.gov.cn/english/PressRelease/"

type Options struct {
	// BaseURL is the press release listing, index pages are resolved against it.
	BaseURL string
	// Pages is how many archive pages (index_1.html ...) are scanned after index.html.
	Pages          int
	IndexTimeout   time.Duration
	ArticleTimeout time.Duration
	// UseBrowser renders pages in a headless browser instead of plain HTTP.
	UseBrowser       bool
	CloudflareBypass bool
}

type Source struct {
	opts Options
	deps sources.Deps
}

func New(deps sources.Deps) (*Source, error) {
	return NewWithOptions(deps, Options{
		BaseURL:          deps.BaseURL(Name, DefaultBaseURL),
		Pages:            30,
		IndexTimeout:     time.Second * 10,
		ArticleTimeout:   time.Second * 20,
		UseBrowser:       deps.Config.Browser.Enabled,
		CloudflareBypass: true,
	})
}

func NewWithOptions(deps sources.Deps, opts Options) (*Source, error) {
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("nbs base url: %w", err)
	}
	return &Source{opts: opts, deps: deps.Scoped(Name)}, nil
}

func (s *Source) Name() string {
	return Name
}

func (s *Source) Describe() sources.Description {
	return sources.Description{
		Name:    Name,
		Title:   "China manufacturing PMI",
		Sources: []string{"NBS China (PMI History)"},
		Order:   record.ByDateDesc,
		Browser: s.opts.UseBrowser,
	}
}

// indexPages lists index.html followed by index_1.html ... index_N.html.
func (s *Source) indexPages() ([]string, error) {
	base, err := url.Parse(s.opts.BaseURL)
	if err != nil {
		return nil, err
	}
	names := []string{"index.html"}
	for i := 1; i <= s.opts.Pages; i++ {
		names = append(names, fmt.Sprintf("index_%d.html", i))
	}
	pages := make([]string, len(names))
	for i, name := range names {
		pages[i] = base.ResolveReference(&url.URL{Path: name}).String()
	}
	return pages, nil
}

// fetcher is how pages are retrieved, over HTTP or through a browser.
type fetcher interface {
	anchors(ctx context.Context, page string) adapter.Result[[]htmlutil.Anchor]
	text(ctx context.Context, article string) adapter.Result[string]
	// concurrent reports whether several pages may be fetched at once.
	concurrent() bool
	close() error
}

type httpFetcher struct {
	index   *adapter.HTTP
	article *adapter.HTTP
}

func (f httpFetcher) anchors(ctx context.Context, page string) adapter.Result[[]htmlutil.Anchor] {
	base, err := url.Parse(page)
	if err != nil {
		return adapter.Empty[[]htmlutil.Anchor](adapter.ReasonTransport, err)
	}
	return adapter.Map(f.index.GetDocument(ctx, page, nil), func(doc *goquery.Document) ([]htmlutil.Anchor, error) {
		return htmlutil.GetAnchors(base, doc.Find("a")), nil
	})
}

func (f httpFetcher) text(ctx context.Context, article string) adapter.Result[string] {
	res := adapter.Map(f.article.GetDocument(ctx, article, nil), func(doc *goquery.Document) (string, error) {
		text := ""
		for _, n := range doc.Find("body").Nodes {
			text += htmlutil.GetText(n)
		}
		return text, nil
	})
	if res.OK() && res.Value == "" {
		return adapter.Empty[string](adapter.ReasonMissingElement, fmt.Errorf("%s has no body", article))
	}
	return res
}

func (f httpFetcher) concurrent() bool {
	return true
}

func (f httpFetcher) close() error {
	return nil
}

const anchorsJS = `Array.from(document.querySelectorAll('a')).map(a => ({href: a.href, text: a.innerText.trim()}))`

type browserAnchor struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

type browserFetcher struct {
	browser        adapter.Browser
	indexTimeout   time.Duration
	articleTimeout time.Duration
	tel            telemetry.API
}

func (f browserFetcher) anchors(ctx context.Context, page string) adapter.Result[[]htmlutil.Anchor] {
	res := adapter.FetchStructured[[]browserAnchor](ctx, f.browser, adapter.Target{
		URL:     page,
		Timeout: f.indexTimeout,
	}, anchorsJS, f.tel)
	return adapter.Map(res, func(found []browserAnchor) ([]htmlutil.Anchor, error) {
		out := make([]htmlutil.Anchor, 0, len(found))
		for _, a := range found {
			if a.Href == "" {
				continue
			}
			out = append(out, htmlutil.Anchor{Name: htmlutil.CleanText(a.Text), Href: a.Href})
		}
		return out, nil
	})
}

func (f browserFetcher) text(ctx context.Context, article string) adapter.Result[string] {
	return adapter.FetchText(ctx, f.browser, adapter.Target{
		URL:          article,
		TextSelector: "body",
		Timeout:      f.articleTimeout,
	}, f.tel)
}

func (f browserFetcher) concurrent() bool {
	return false
}

func (f browserFetcher) close() error {
	return f.browser.Close()
}

func (s *Source) openFetcher(ctx context.Context) (fetcher, error) {
	if s.opts.UseBrowser {
		if s.deps.OpenBrowser == nil {
			return nil, fmt.Errorf("browser mode selected but no browser is available")
		}
		browser, err := s.deps.OpenBrowser(ctx)
		if err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		return browserFetcher{
			browser:        browser,
			indexTimeout:   s.opts.IndexTimeout,
			articleTimeout: s.opts.ArticleTimeout,
			tel:            s.deps.Tel,
		}, nil
	}

	client, err := adapter.NewHTTP(adapter.HTTPOptions{
		Timeout:          s.opts.IndexTimeout,
		CloudflareBypass: s.opts.CloudflareBypass,
		Cookies:          true,
	}, s.deps.Tel)
	if err != nil {
		return nil, err
	}
	return httpFetcher{
		index:   client,
		article: client.WithTimeout(s.opts.ArticleTimeout),
	}, nil
}

// Release is a PMI release link found on an index page.
type Release struct {
	URL   string
	Title string
	Date  string
}

type pageScan struct {
	page string
	res  adapter.Result[[]htmlutil.Anchor]
}

// scanIndex collects release links from every index page, deduplicated by url
// and kept in page order.
func (s *Source) scanIndex(ctx context.Context, f fetcher) ([]Release, sources.Batch) {
	var batch sources.Batch
	pages, err := s.indexPages()
	if err != nil {
		batch.Fail(s.opts.BaseURL, adapter.ReasonTransport, err)
		return nil, batch
	}

	scanPage := func(ctx context.Context, page string) pageScan {
		return pageScan{page: page, res: f.anchors(ctx, page)}
	}
	var scans []pageScan
	if f.concurrent() {
		scans = sources.FanOut(ctx, pages, scanPage)
	} else {
		for _, page := range pages {
			scans = append(scans, scanPage(ctx, page))
		}
	}

	var releases []Release
	seen := map[string]bool{}
	for _, scan := range scans {
		if !scan.res.OK() {
			s.deps.Tel.ReportDebug(report_scan_index, scan.page, scan.res.Error())
			sources.FailResult(&batch, scan.page, scan.res)
			continue
		}
		for _, a := range scan.res.Value {
			if !IsPMIRelease(a.Name) || seen[a.Href] {
				continue
			}
			seen[a.Href] = true

			year, month, ok := ReleaseMonth(a.Name)
			if !ok {
				s.deps.Tel.ReportDebug("release title has no month", a.Name)
				continue
			}
			releases = append(releases, Release{
				URL:   a.Href,
				Title: a.Name,
				Date:  record.MonthlyDate(year, month, record.DayPinned),
			})
		}
	}
	return releases, batch
}

func (s *Source) Collect(ctx context.Context) (sources.Batch, error) {
	f, err := s.openFetcher(ctx)
	if err != nil {
		return sources.Batch{}, err
	}
	defer f.close()

	releases, batch := s.scanIndex(ctx, f)
	s.deps.Tel.ReportDebug("found releases", len(releases))

	extractor := NewPMIExtractor()
	norm := record.Normalizer{
		Indicator: "pmi_manufacturing",
		Unit:      "index",
		Source:    "NBS",
		Precision: 2,
		Bounds:    extractor.Bounds,
	}

	done := map[string]bool{}
	for _, rel := range releases {
		if done[rel.Date] {
			continue
		}
		if ctx.Err() != nil {
			batch.Fail(rel.URL, adapter.ReasonCancelled, ctx.Err())
			break
		}

		res := f.text(ctx, rel.URL)
		if !res.OK() {
			s.deps.Tel.ReportWarning(report_fetch_page, rel.URL, res.Error())
			sources.FailResult(&batch, rel.URL, res)
			continue
		}

		m := extractor.Extract(cleanArticle(res.Value))
		if m.Rejected {
			s.deps.Tel.ReportWarning(report_out_of_band, rel.Title, m.Rule, m.Value, m.Snippet)
			continue
		}
		if !m.Found {
			s.deps.Tel.ReportWarning(report_extract, rel.URL, m.Snippet)
			continue
		}

		r, err := norm.WithNote("Manufacturing PMI - "+rel.Title).At(rel.Date, m.Value)
		if err != nil {
			s.deps.Tel.ReportWarning(report_extract, rel.URL, err)
			continue
		}
		batch.Add(r)
		done[rel.Date] = true
		s.deps.Tel.ReportDebug("extracted pmi", rel.Date, m.Value, m.Rule)
	}

	s.deps.Tel.ReportCount(report_collected, int64(len(batch.Records)))
	return batch, nil
}

package nbs

import (
	"context"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/adapter/browsertest"
	"macroscrape/internal/components/chrono"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func page(links ...string) string {
	body := "<html><body><ul>"
	for _, l := range links {
		body += "<li>" + l + "</li>"
	}
	return body + "</ul></body></html>"
}

func link(href, title string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, href, title)
}

func article(paragraphs ...string) string {
	body := `<html><head><script>var pmi = 12.5;</script></head><body><div class="TRS_Editor">`
	for _, p := range paragraphs {
		body += "<p>" + p + "</p>"
	}
	return body + "</div></body></html>"
}

type site struct {
	mu   sync.Mutex
	hits map[string]int
}

func (s *site) hit(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits[path]++
}

func (s *site) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newSite(t *testing.T) (*site, *httptest.Server) {
	s := &site{hits: map[string]int{}}
	pages := map[string]string{
		"/english/PressRelease/index.html": page(
			link("202512/t20251201_1.html", "Purchasing Managers' Index for November 2025"),
			link("202512/t20251202_2.html", "Purchasing Managers' Index for November 2025 (Revised)"),
			link("202511/t20251101_1.html", "Purchasing Managers' Index for October 2025"),
			link("202511/t20251102_9.html", "China's Purchasing Managers' Index for October 2025 Explained"),
			link("202510/t20251001_1.html", "Purchasing Managers' Index for September 2025"),
			link("202508/t20250801_1.html", "Purchasing Managers' Index for July 2025"),
			link("202512/t20251201_1.html", "Purchasing Managers' Index for November 2025"),
			link("202512/t20251215_3.html", "National Economy Maintained Stable Growth in November"),
		),
		"/english/PressRelease/index_1.html": page(
			link("/english/PressRelease/202509/t20250901_1.html", "Purchasing Managers' Index for August 2025"),
		),
		"/english/PressRelease/202512/t20251201_1.html": article(
			"In November 2025, the Purchasing Managers' Index (PMI) for China's manufacturing industry was 49.2 percent, 0.2 percentage point higher than last month.",
			"The manufacturing PMI was 51.0 percent for large enterprises.",
		),
		"/english/PressRelease/202512/t20251202_2.html": article(
			"the manufacturing industry was 49.9 percent",
		),
		"/english/PressRelease/202511/t20251101_1.html": article(
			"In October the manufacturing PMI stood at 95.0 percent",
		),
		"/english/PressRelease/202510/t20251001_1.html": article(
			"In September, the manufacturing PMI stood at 49.8 percent.",
		),
		"/english/PressRelease/202508/t20250801_1.html": article(
			"The manufacturing sector expanded by 3 percent on the year.",
		),
		"/english/PressRelease/202509/t20250901_1.html": article(
			"The Manufacturing Purchasing Managers' Index (PMI) was 49.4 percent.",
		),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hit(r.URL.Path)
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return s, server
}

func testDeps(rec *telemetry.Recorder) sources.Deps {
	return sources.Deps{
		Config: config.Default(),
		Clock:  chrono.FixedImpl{At: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)},
		Tel:    rec,
	}
}

func pmi(date string, value float64, title string) record.Record {
	return record.Record{
		Indicator: "pmi_manufacturing",
		Date:      date,
		Value:     value,
		Unit:      "index",
		Source:    "NBS",
		Note:      "Manufacturing PMI - " + title,
	}
}

func TestCollectHTTP(t *testing.T) {
	s, server := newSite(t)
	rec := telemetry.NewRecorder()

	src, err := NewWithOptions(testDeps(rec), Options{
		BaseURL:        server.URL + "/english/PressRelease/",
		Pages:          2,
		IndexTimeout:   time.Second * 5,
		ArticleTimeout: time.Second * 5,
	})
	require.NoError(t, err)
	require.False(t, src.Describe().Browser)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)

	expected := []record.Record{
		pmi("2025-11-28", 49.2, "Purchasing Managers' Index for November 2025"),
		pmi("2025-09-28", 49.8, "Purchasing Managers' Index for September 2025"),
		pmi("2025-08-28", 49.4, "Purchasing Managers' Index for August 2025"),
	}
	if diff := cmp.Diff(expected, batch.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	// the duplicated link is fetched once, the revised release for an already
	// extracted month is never fetched
	require.Equal(t, 1, s.count("/english/PressRelease/202512/t20251201_1.html"))
	require.Equal(t, 0, s.count("/english/PressRelease/202512/t20251202_2.html"))
	require.Equal(t, 0, s.count("/english/PressRelease/202511/t20251102_9.html"))

	require.Len(t, batch.Failures, 1)
	require.Equal(t, adapter.ReasonStatus, batch.Failures[0].Reason)
	require.Contains(t, batch.Failures[0].Target, "index_2.html")

	require.True(t, rec.HasReport("warning", "nbs_pmi: source.out-of-bounds"))
	require.True(t, rec.HasReport("warning", "nbs_pmi: source.extract"))

	n, ok := rec.Count("nbs_pmi: records")
	require.True(t, ok)
	require.Equal(t, int64(3), n)
}

func TestCollectBrowser(t *testing.T) {
	base := "https://nbs.test/english/PressRelease/"
	fake := &browsertest.Fake{Pages: map[string]browsertest.Page{
		base + "index.html": {
			Selectors: map[string]string{"body": ""},
			Eval: []map[string]string{
				{"href": base + "202512/t20251201_1.html", "text": "Purchasing Managers' Index for November 2025\n"},
				{"href": "", "text": "Purchasing Managers' Index for May 2025"},
				{"href": base + "202511/t20251101_1.html", "text": "Purchasing Managers' Index for October 2025"},
			},
		},
		base + "202512/t20251201_1.html": {
			Selectors: map[string]string{"body": "In November, the manufacturing PMI stood at 49.2 percent."},
		},
		base + "202511/t20251101_1.html": {
			Selectors: map[string]string{"body": "In October, the manufacturing industry was 49.0 percent."},
		},
	}}

	deps := testDeps(telemetry.NewRecorder())
	deps.OpenBrowser = fake.Factory()
	src, err := NewWithOptions(deps, Options{
		BaseURL:        base,
		Pages:          1,
		IndexTimeout:   time.Second,
		ArticleTimeout: time.Second,
		UseBrowser:     true,
	})
	require.NoError(t, err)
	require.True(t, src.Describe().Browser)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)

	expected := []record.Record{
		pmi("2025-11-28", 49.2, "Purchasing Managers' Index for November 2025"),
		pmi("2025-10-28", 49.0, "Purchasing Managers' Index for October 2025"),
	}
	if diff := cmp.Diff(expected, batch.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	// index_1.html does not exist
	require.Len(t, batch.Failures, 1)
	require.Equal(t, adapter.ReasonTransport, batch.Failures[0].Reason)

	require.True(t, fake.Closed())
	// a failed navigation is not a visit
	require.Equal(t, []string{
		base + "index.html",
		base + "202512/t20251201_1.html",
		base + "202511/t20251101_1.html",
	}, fake.Visited())
}

func TestCollectBrowserUnavailable(t *testing.T) {
	src, err := NewWithOptions(testDeps(telemetry.NewRecorder()), Options{
		BaseURL:    "https://nbs.test/english/PressRelease/",
		UseBrowser: true,
	})
	require.NoError(t, err)

	_, err = src.Collect(context.Background())
	require.Error(t, err)
}

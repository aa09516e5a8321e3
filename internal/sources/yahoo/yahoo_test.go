package yahoo

import (
	"context"
	"encoding/json"
	"macroscrape/internal/adapter"
	"macroscrape/internal/components/chrono"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// 2024-01-02 and 2024-01-03 market open in New York (UTC-5), plus a day with no close
const wtiChart = `{"chart":{"result":[{
	"meta":{"symbol":"CL=F","currency":"USD","gmtoffset":-18000},
	"timestamp":[1704171600,1704258000,1704344400],
	"indicators":{"quote":[{
		"open":[71.65,70.5,null],
		"high":[72.1,73.2,null],
		"low":[70.1,70.3,null],
		"close":[70.38,72.704,null],
		"volume":[312000,298000,null]
	}]}
}],"error":null}}`

const notFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

var now = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func testDeps() sources.Deps {
	return sources.Deps{
		Config: config.Default(),
		Clock:  chrono.FixedImpl{At: now},
		Tel:    telemetry.NewRecorder(),
	}
}

type chartServer struct {
	mu      sync.Mutex
	queries map[string]string
}

func (c *chartServer) serve(t *testing.T, charts map[string]string) string {
	c.queries = map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		c.mu.Lock()
		c.queries[symbol] = r.URL.RawQuery
		c.mu.Unlock()

		body, ok := charts[symbol]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(notFound))
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestSessions(t *testing.T) {
	var body chartResponse
	require.NoError(t, json.Unmarshal([]byte(wtiChart), &body))

	days := sessions(body.Chart.Result[0])
	require.Len(t, days, 2)
	require.Equal(t, "2024-01-02", days[0].date)
	require.Equal(t, "2024-01-03", days[1].date)
	require.Equal(t, 72.704, days[1].close)
	require.Equal(t, "open 70.5, high 73.2, low 70.3, volume 298000", days[1].note())
}

func TestCommodities(t *testing.T) {
	c := &chartServer{}
	base := c.serve(t, map[string]string{"CL=F": wtiChart})

	src, err := NewWithOptions(testDeps(), Commodities, Options{
		BaseURL: base,
		Window: record.Window{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)

	expected := []record.Record{
		{Indicator: "Crude Oil - WTI", Date: "2024-01-02", Value: 70.38, Unit: "USD per Barrel", Source: "Yahoo Finance", IndicatorCode: "CL=F", Category: "Energy"},
		{Indicator: "Crude Oil - WTI", Date: "2024-01-03", Value: 72.7, Unit: "USD per Barrel", Source: "Yahoo Finance", IndicatorCode: "CL=F", Category: "Energy"},
	}
	if diff := cmp.Diff(expected, batch.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	// every other ticker is unknown to the server
	require.Len(t, batch.Failures, len(Commodities.Tickers)-1)
	for _, f := range batch.Failures {
		require.Equal(t, adapter.ReasonStatus, f.Reason)
	}

	// period2 is the day after the end date
	require.Contains(t, c.queries["CL=F"], "period1=1704067200")
	require.Contains(t, c.queries["CL=F"], "period2=1704412800")
	require.Contains(t, c.queries["CL=F"], "interval=1d")
}

func TestCommoditiesWindow(t *testing.T) {
	c := &chartServer{}
	base := c.serve(t, map[string]string{"CL=F": wtiChart})

	src, err := NewWithOptions(testDeps(), Basket{
		Name:      "wti",
		Tickers:   Commodities.Tickers[:1],
		Precision: 2,
	}, Options{
		BaseURL: base,
		Window: record.Window{
			Start: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	require.Equal(t, "2024-01-02", batch.Records[0].Date)
}

func TestMarketLatest(t *testing.T) {
	c := &chartServer{}
	base := c.serve(t, map[string]string{"CL=F": wtiChart, "GC=F": `{"chart":{"result":[],"error":null}}`})

	deps := testDeps()
	deps.Config.Sources[Market.Name] = config.SourceConfig{BaseURL: base}
	src, err := New(Market)(deps)
	require.NoError(t, err)
	require.Equal(t, record.Window{Start: now.Add(-time.Hour * 24 * 7), End: now}, src.opts.Window)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)

	require.Equal(t, []record.Record{{
		Indicator:     "Crude Oil - WTI",
		Date:          "2024-01-03",
		Value:         72.704,
		Unit:          "USD per Barrel",
		Source:        "Yahoo Finance",
		Note:          "open 70.5, high 73.2, low 70.3, volume 298000",
		IndicatorCode: "CL=F",
		Category:      "Energy",
	}}, batch.Records)

	reasons := map[adapter.Reason]int{}
	for _, f := range batch.Failures {
		reasons[f.Reason]++
	}
	require.Equal(t, 1, reasons[adapter.ReasonMalformed])
	require.Equal(t, len(Market.Tickers)-2, reasons[adapter.ReasonStatus])
}

package imf

import (
	"context"
	"macroscrape/internal/adapter"
	"macroscrape/internal/components/chrono"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, bodies map[string]string) string {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

var since2020 = record.Window{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}

func testDeps() sources.Deps {
	return sources.Deps{
		Config: config.Default(),
		Clock:  chrono.FixedImpl{At: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		Tel:    telemetry.NewRecorder(),
	}
}

func TestGDPRealGrowth(t *testing.T) {
	base := serve(t, map[string]string{
		"/api/v1/NGDP_RPCH": `{"values":{"NGDP_RPCH":{"CHN":{"2024":"5.0","2025":"4.8"}}}}`,
	})

	src, err := NewWithOptions(testDeps(), GDP, Options{BaseURL: base, Window: since2020})
	require.NoError(t, err)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)

	expected := []record.Record{
		{
			Indicator:     "Real GDP growth (Annual percent change)",
			Date:          "2024-12-31",
			Value:         5.0,
			Unit:          "Percent",
			Source:        "IMF World Economic Outlook API",
			Country:       "China",
			CountryCode:   "CHN",
			IndicatorCode: "NGDP_RPCH",
			Year:          2024,
		},
		{
			Indicator:     "Real GDP growth (Annual percent change)",
			Date:          "2025-12-31",
			Value:         4.8,
			Unit:          "Percent",
			Source:        "IMF World Economic Outlook API",
			Country:       "China",
			CountryCode:   "CHN",
			IndicatorCode: "NGDP_RPCH",
			Year:          2025,
		},
	}
	if diff := cmp.Diff(expected, batch.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	// NGDPD is not served
	require.Len(t, batch.Failures, 1)
	require.Equal(t, "NGDPD", batch.Failures[0].Target)
	require.Equal(t, adapter.ReasonStatus, batch.Failures[0].Reason)
}

func TestGDPFiltersAndCountries(t *testing.T) {
	base := serve(t, map[string]string{
		"/api/v1/NGDP_RPCH": `{"values":{"NGDP_RPCH":{
			"CHN":{"2019":6.0,"2020":2.2,"2021":8.4},
			"USA":{"2020":-2.2,"2021":null},
			"EURO":{"2020":"n/a"},
			"JPN":{"2020":-4.1}
		}}}`,
		"/api/v1/NGDPD": `{"values":{"NGDPD":{"USA":{"2020":21354.1}}}}`,
	})

	src, err := NewWithOptions(testDeps(), GDP, Options{BaseURL: base, Window: since2020})
	require.NoError(t, err)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)
	require.Empty(t, batch.Failures)

	type point struct {
		Code string
		Ind  string
		Year int
	}
	var got []point
	record.Sort(batch.Records, src.Describe().Order)
	for _, r := range batch.Records {
		got = append(got, point{r.CountryCode, r.IndicatorCode, r.Year})
	}
	require.Equal(t, []point{
		{"CHN", "NGDP_RPCH", 2020},
		{"CHN", "NGDP_RPCH", 2021},
		{"USA", "NGDPD", 2020},
		{"USA", "NGDP_RPCH", 2020},
	}, got)
}

func TestInflation(t *testing.T) {
	base := serve(t, map[string]string{
		"/api/v1/PCPIPCH": `{"values":{"PCPIPCH":{
			"WEOWORLD":{"2023":6.7,"2024":5.8},
			"ADVEC":{"2024":2.6},
			"OEMDC":{"2024":7.9}
		}}}`,
	})

	src, err := NewWithOptions(testDeps(), Inflation, Options{BaseURL: base, Window: since2020})
	require.NoError(t, err)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)

	record.Sort(batch.Records, src.Describe().Order)
	var codes []string
	for _, r := range batch.Records {
		require.Equal(t, "Percent", r.Unit)
		codes = append(codes, r.CountryCode)
	}
	require.Equal(t, []string{"ADVEC", "OEMDC", "WEOWORLD", "WEOWORLD"}, codes)
}

func TestEmptyValues(t *testing.T) {
	base := serve(t, map[string]string{
		"/api/v1/PCPIPCH": `{"values":{}}`,
	})

	src, err := NewWithOptions(testDeps(), Inflation, Options{BaseURL: base, Window: since2020})
	require.NoError(t, err)

	batch, err := src.Collect(context.Background())
	require.NoError(t, err)
	require.Empty(t, batch.Records)
	require.Len(t, batch.Failures, 1)
	require.Equal(t, adapter.ReasonEmpty, batch.Failures[0].Reason)
}

func TestConfiguredRange(t *testing.T) {
	body := `{"values":{"PCPIPCH":{"WEOWORLD":{"2019":3.5,"2021":4.7,"2024":5.8,"2029":3.2}}}}`
	testCases := []struct {
		name     string
		start    string
		end      string
		expected []int
	}{
		{name: "projections kept without end date", start: "2021", expected: []int{2021, 2024, 2029}},
		{name: "end date drops later years", start: "2020-06-15", end: "2024-12-31", expected: []int{2021, 2024}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			base := serve(t, map[string]string{"/api/v1/PCPIPCH": body})
			deps := testDeps()
			deps.Config.StartDate = tc.start
			deps.Config.EndDate = tc.end
			deps.Config.Sources[Inflation.Name] = config.SourceConfig{BaseURL: base}

			src, err := New(Inflation)(deps)
			require.NoError(t, err)
			batch, err := src.Collect(context.Background())
			require.NoError(t, err)

			var years []int
			for _, r := range batch.Records {
				years = append(years, r.Year)
			}
			require.Equal(t, tc.expected, years)
		})
	}
}

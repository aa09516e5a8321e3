package adapter

import (
	"context"
	"macroscrape/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestHTTP(t *testing.T, opts HTTPOptions) (*HTTP, *telemetry.Recorder) {
	t.Helper()
	rec := telemetry.NewRecorder()
	h, err := NewHTTP(opts, rec)
	require.NoError(t, err)
	return h, rec
}

func TestHTTPGetJSON(t *testing.T) {
	var gotPath, gotFormat, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("format")
		gotUA = r.Header.Get("User-Agent")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": 5.25, "name": "gdp"}`))
	}))
	defer server.Close()

	h, _ := newTestHTTP(t, HTTPOptions{BaseURL: server.URL})

	type payload struct {
		Value float64 `json:"value"`
		Name  string  `json:"name"`
	}
	res := GetJSON[payload](
		context.Background(), h,
		"/v2/country/CN/indicator/NY.GDP.MKTP.KD.ZG",
		map[string]string{"format": "json"},
	)
	require.True(t, res.OK(), res.Error())
	require.NoError(t, res.Error())
	require.Equal(t, payload{Value: 5.25, Name: "gdp"}, res.Value)

	require.Equal(t, "/v2/country/CN/indicator/NY.GDP.MKTP.KD.ZG", gotPath)
	require.Equal(t, "json", gotFormat)
	require.Equal(t, DefaultUserAgent, gotUA)
}

func TestHTTPEmptyResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not here"))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("  \n"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte("late"))
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h, rec := newTestHTTP(t, HTTPOptions{BaseURL: server.URL, Timeout: time.Millisecond * 100})
	ctx := context.Background()

	testCases := []struct {
		path   string
		reason Reason
	}{
		{path: "/missing", reason: ReasonStatus},
		{path: "/empty", reason: ReasonEmpty},
		{path: "/slow", reason: ReasonTimeout},
	}
	for _, tc := range testCases {
		res := h.Get(ctx, tc.path, nil)
		require.False(t, res.OK(), tc.path)
		require.Equal(t, tc.reason, res.Reason, tc.path)
		require.Error(t, res.Error(), tc.path)
	}
	require.True(t, rec.HasReport("warning", report_http_get))

	garbage := GetJSON[map[string]any](ctx, h, "/garbage", nil)
	require.False(t, garbage.OK())
	require.Equal(t, ReasonMalformed, garbage.Reason)

	// a per call override still shares the same client
	longer := h.WithTimeout(time.Second * 5).Get(ctx, "/slow", nil)
	require.True(t, longer.OK(), longer.Error())
	require.Equal(t, "late", string(longer.Value))
}

func TestHTTPDelay(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	delay := time.Millisecond * 150
	h, _ := newTestHTTP(t, HTTPOptions{BaseURL: server.URL, Delay: delay})

	for i := 0; i < 3; i++ {
		res := h.Get(context.Background(), "/", nil)
		require.True(t, res.OK(), res.Error())
	}

	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		// a little slack for timer granularity
		require.GreaterOrEqual(t, hits[i].Sub(hits[i-1]), delay-time.Millisecond*20)
	}
}

func TestHTTPCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	h, _ := newTestHTTP(t, HTTPOptions{BaseURL: server.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.Get(ctx, "/", nil)
	require.False(t, res.OK())
	require.Equal(t, ReasonCancelled, res.Reason)
}

func TestHTTPGetDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><ul class="list"><li><a href="/a">A</a></li></ul></body></html>`))
	}))
	defer server.Close()

	h, _ := newTestHTTP(t, HTTPOptions{BaseURL: server.URL, Cookies: true, Headers: map[string]string{"Referer": "https://example.com"}})
	res := h.GetDocument(context.Background(), "/", nil)
	require.True(t, res.OK(), res.Error())
	require.Equal(t, "A", res.Value.Find("ul.list a").Text())
}

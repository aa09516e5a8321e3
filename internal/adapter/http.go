package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"macroscrape/internal/components/telemetry"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_http_get = "http.get"
)

// DefaultUserAgent mimics a desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type HTTPOptions struct {
	// BaseURL is prepended to relative paths, absolute URLs are used as is.
	BaseURL string
	// Timeout bounds a single call, defaults to 30s.
	Timeout time.Duration
	// Delay is the fixed minimum spacing between two requests, zero disables it.
	Delay     time.Duration
	UserAgent string
	Headers   map[string]string
	// CloudflareBypass wraps the transport with browser-like TLS and header fingerprints.
	CloudflareBypass bool
	// Cookies keeps a cookie jar across calls.
	Cookies bool
}

// HTTP is the API adapter, a thin wrapper over a resty client that turns every
// failure into an empty Result instead of an error.
type HTTP struct {
	client  *resty.Client
	timeout time.Duration
	tel     telemetry.API
}

func NewHTTP(opts HTTPOptions, tel telemetry.API) (*HTTP, error) {
	client := resty.New()
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}
	if opts.Cookies {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client.SetCookieJar(jar)
	}
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	for k, v := range opts.Headers {
		client.SetHeader(k, v)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	if opts.Delay > 0 {
		// burst of 1 turns the limiter into a fixed interval between requests
		limiter := rate.NewLimiter(rate.Every(opts.Delay), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, tel)

	return &HTTP{
		client:  client,
		timeout: timeout,
		tel:     tel,
	}, nil
}

// WithTimeout returns an adapter sharing the same client (and delay) but with a
// different per-call timeout.
func (h *HTTP) WithTimeout(timeout time.Duration) *HTTP {
	return &HTTP{client: h.client, timeout: timeout, tel: h.tel}
}

// Get fetches `path` and returns the raw body. Non-2xx statuses, timeouts and
// empty bodies all yield an empty Result.
func (h *HTTP) Get(ctx context.Context, path string, query map[string]string) Result[[]byte] {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	res, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		reason := classify(err)
		h.tel.ReportWarning(report_http_get, fmt.Errorf("%s: %w", reason, err), path)
		return Empty[[]byte](reason, err)
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() >= 300 {
		err := fmt.Errorf("%s returned %s", res.Request.URL, res.Status())
		h.tel.ReportWarning(report_http_get, err)
		return Empty[[]byte](ReasonStatus, err)
	}
	body := res.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return Empty[[]byte](ReasonEmpty, fmt.Errorf("%s returned an empty body", res.Request.URL))
	}
	return OK(body)
}

// GetJSON fetches and decodes a JSON body into T.
func GetJSON[T any](ctx context.Context, h *HTTP, path string, query map[string]string) Result[T] {
	return Map(h.Get(ctx, path, query), func(body []byte) (T, error) {
		var out T
		err := json.Unmarshal(body, &out)
		return out, err
	})
}

// GetDocument fetches and parses an HTML page.
func (h *HTTP) GetDocument(ctx context.Context, path string, query map[string]string) Result[*goquery.Document] {
	return Map(h.Get(ctx, path, query), func(body []byte) (*goquery.Document, error) {
		return goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	})
}

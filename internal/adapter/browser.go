package adapter

import (
	"context"
	"errors"
	"fmt"
	"macroscrape/internal/components/telemetry"
	"strings"
	"time"
)

const (
	report_browser_fetch = "browser.fetch"
)

// ErrMissingElement is returned by a Browser when the ready selector never appears.
var ErrMissingElement = errors.New("element not found")

// Browser drives a headless browser. Implementations own the browser process,
// Close terminates it.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until `selector` is present in the DOM.
	WaitReady(ctx context.Context, selector string) error
	// Text returns the rendered inner text of `selector`.
	Text(ctx context.Context, selector string) (string, error)
	// Evaluate runs `js` in the page and decodes its result into `out`.
	Evaluate(ctx context.Context, js string, out any) error
	Close() error
}

// Target is one browser navigation.
type Target struct {
	URL string
	// ReadySelector is waited on after navigation, empty means "body".
	ReadySelector string
	// TextSelector is what FetchText reads, empty means "body".
	TextSelector string
	// Timeout bounds navigation plus extraction, defaults to 60s.
	Timeout time.Duration
	// Settle is a fixed pause after the page is ready, for pages that keep
	// rendering with javascript after the selector appears.
	Settle time.Duration
}

func (t Target) readySelector() string {
	if t.ReadySelector == "" {
		return "body"
	}
	return t.ReadySelector
}

func (t Target) textSelector() string {
	if t.TextSelector == "" {
		return "body"
	}
	return t.TextSelector
}

func (t Target) timeout() time.Duration {
	if t.Timeout <= 0 {
		return time.Second * 60
	}
	return t.Timeout
}

func open(ctx context.Context, b Browser, target Target) error {
	err := b.Navigate(ctx, target.URL)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	err = b.WaitReady(ctx, target.readySelector())
	if err != nil {
		return fmt.Errorf("wait for %s: %w", target.readySelector(), err)
	}
	if target.Settle > 0 {
		select {
		case <-time.After(target.Settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func browserReason(err error) Reason {
	if errors.Is(err, ErrMissingElement) {
		return ReasonMissingElement
	}
	return classify(err)
}

// FetchText navigates to the target and returns its rendered text.
func FetchText(ctx context.Context, b Browser, target Target, tel telemetry.API) Result[string] {
	ctx, cancel := context.WithTimeout(ctx, target.timeout())
	defer cancel()

	err := open(ctx, b, target)
	if err != nil {
		tel.ReportWarning(report_browser_fetch, err, target.URL)
		return Empty[string](browserReason(err), err)
	}
	text, err := b.Text(ctx, target.textSelector())
	if err != nil {
		tel.ReportWarning(report_browser_fetch, err, target.URL)
		return Empty[string](browserReason(err), err)
	}
	if strings.TrimSpace(text) == "" {
		return Empty[string](ReasonEmpty, fmt.Errorf("%s rendered no text", target.URL))
	}
	return OK(text)
}

// FetchStructured navigates to the target and decodes the result of `js` into T.
func FetchStructured[T any](ctx context.Context, b Browser, target Target, js string, tel telemetry.API) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, target.timeout())
	defer cancel()

	err := open(ctx, b, target)
	if err != nil {
		tel.ReportWarning(report_browser_fetch, err, target.URL)
		return Empty[T](browserReason(err), err)
	}
	var out T
	err = b.Evaluate(ctx, js, &out)
	if err != nil {
		tel.ReportWarning(report_browser_fetch, err, target.URL)
		return Empty[T](ReasonMalformed, err)
	}
	return OK(out)
}

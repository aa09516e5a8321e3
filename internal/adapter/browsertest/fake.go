// Package browsertest provides an in-memory adapter.Browser for source tests.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"macroscrape/internal/adapter"
	"sync"
)

// Page is the canned state of one url.
type Page struct {
	// Selectors maps the selectors present on the page to their inner text.
	Selectors map[string]string
	// Eval is what any Evaluate call on the page returns, nil means undefined.
	Eval any
}

// Fake serves Pages keyed by url, navigating to an unknown url fails.
type Fake struct {
	Pages map[string]Page

	mu      sync.Mutex
	current string
	visited []string
	closed  bool
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("browser closed")
	}
	if _, ok := f.Pages[url]; !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	f.current = url
	f.visited = append(f.visited, url)
	return nil
}

func (f *Fake) page() Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Pages[f.current]
}

func (f *Fake) WaitReady(ctx context.Context, selector string) error {
	if _, ok := f.page().Selectors[selector]; !ok {
		return adapter.ErrMissingElement
	}
	return nil
}

func (f *Fake) Text(ctx context.Context, selector string) (string, error) {
	text, ok := f.page().Selectors[selector]
	if !ok {
		return "", adapter.ErrMissingElement
	}
	return text, nil
}

func (f *Fake) Evaluate(ctx context.Context, js string, out any) error {
	page := f.page()
	if page.Eval == nil {
		return errors.New("evaluation returned undefined")
	}
	buff, err := json.Marshal(page.Eval)
	if err != nil {
		return err
	}
	return json.Unmarshal(buff, out)
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Visited returns the urls navigated to, in order.
func (f *Fake) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visited...)
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Factory returns a sources.BrowserFactory style function that always hands out f.
func (f *Fake) Factory() func(ctx context.Context) (adapter.Browser, error) {
	return func(ctx context.Context) (adapter.Browser, error) {
		return f, nil
	}
}

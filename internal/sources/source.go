package sources

import (
	"context"
	"errors"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/components/chrono"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"sync"
)

var ErrUnknownSource = errors.New("unknown source")

// ReasonSetup marks a part of a bundle that could not run at all.
const ReasonSetup adapter.Reason = "setup"

// Description is what a source declares about itself, it drives the envelope
// and the order records are written in.
type Description struct {
	Name  string
	Title string
	// Sources is the envelope `sources` list.
	Sources []string
	Order   record.Order
	// Browser is set when the source needs a headless browser.
	Browser bool
	// Credentials lists the credential names the source requires.
	Credentials []string
}

// Failure is one fetch that yielded nothing.
type Failure struct {
	Target string
	Reason adapter.Reason
	Err    error
}

func (f Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Target, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", f.Target, f.Reason, f.Err)
}

// Batch is the outcome of one Collect, records in fetch order.
type Batch struct {
	Records  []record.Record
	Failures []Failure
}

func (b *Batch) Add(records ...record.Record) {
	b.Records = append(b.Records, records...)
}

func (b *Batch) Fail(target string, reason adapter.Reason, err error) {
	b.Failures = append(b.Failures, Failure{Target: target, Reason: reason, Err: err})
}

// FailResult records an empty adapter result.
func FailResult[T any](b *Batch, target string, res adapter.Result[T]) {
	b.Fail(target, res.Reason, res.Err)
}

func (b *Batch) Merge(other Batch) {
	b.Records = append(b.Records, other.Records...)
	b.Failures = append(b.Failures, other.Failures...)
}

// Err joins every failure, nil when there are none.
func (b Batch) Err() error {
	var errs []error
	for _, f := range b.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Source is one standalone collector.
type Source interface {
	Name() string
	Describe() Description
	// Collect runs one pass. Transient failures end up in Batch.Failures, the
	// returned error is reserved for problems that prevent the source from
	// running at all (a missing credential, a browser that won't start).
	Collect(ctx context.Context) (Batch, error)
}

// BrowserFactory starts a browser, the caller closes it.
type BrowserFactory func(ctx context.Context) (adapter.Browser, error)

// Deps is what every source constructor receives.
type Deps struct {
	Config      config.Config
	Clock       chrono.API
	Tel         telemetry.API
	OpenBrowser BrowserFactory
}

// Scoped returns a copy of the deps whose telemetry is namespaced under `name`.
func (d Deps) Scoped(name string) Deps {
	d.Tel = telemetry.NewScopedAPI(name, d.Tel)
	return d
}

// BaseURL returns the configured override for a source or `fallback`.
func (d Deps) BaseURL(name, fallback string) string {
	if u := d.Config.Source(name).BaseURL; u != "" {
		return u
	}
	return fallback
}

// FanOut runs fn for every item concurrently and waits for all of them. Results
// come back in item order, so the outcome does not depend on which goroutine
// finished first.
func FanOut[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) R) []R {
	results := make([]R, len(items))
	wg := sync.WaitGroup{}
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			results[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()
	return results
}

// MergeAll concatenates batches in order.
func MergeAll(batches []Batch) Batch {
	var out Batch
	for _, b := range batches {
		out.Merge(b)
	}
	return out
}

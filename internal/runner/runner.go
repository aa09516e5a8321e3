package runner

import (
	"context"
	"errors"
	"fmt"
	"macroscrape/internal/adapter"
	"macroscrape/internal/components/chrono"
	"macroscrape/internal/components/telemetry"
	"macroscrape/internal/config"
	"macroscrape/internal/output"
	"macroscrape/internal/sources"
	"macroscrape/internal/store"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_source_setup   = "runner.source-setup"
	report_source_failure = "runner.source-failure"
	report_invalid_record = "runner.invalid-record"
	report_write          = "runner.write"
	report_archive        = "runner.archive"
)

// ErrPersist wraps failures to write an output file or archive a run.
var ErrPersist = errors.New("persist failed")

var tracer = otel.Tracer("macroscrape/runner")

type Options struct {
	Config config.Config
	Clock  chrono.API
	Tel    telemetry.API
	// OpenBrowser defaults to ChromeFactory(Config.Browser).
	OpenBrowser sources.BrowserFactory
	// Store, when set, archives every written run.
	Store   *store.Store
	Catalog []Entry
}

// Outcome is the result of running one source.
type Outcome struct {
	Source   string
	Records  int
	Invalid  int
	Failures []sources.Failure
	Output   string
	Duration time.Duration
	// Err is set when the source could not run or its output could not be written.
	Err error
}

// ChromeFactory starts a chromedp browser configured by `cfg`.
func ChromeFactory(cfg config.BrowserConfig) sources.BrowserFactory {
	return func(ctx context.Context) (adapter.Browser, error) {
		return adapter.NewChrome(ctx, adapter.ChromeOptions{
			RemoteURL: cfg.RemoteURL,
			ExecPath:  cfg.ExecPath,
			Headful:   cfg.Headful,
		})
	}
}

type Runner struct {
	opts Options
	tel  telemetry.API
}

func New(opts Options) *Runner {
	if opts.Catalog == nil {
		opts.Catalog = Catalog
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = ChromeFactory(opts.Config.Browser)
	}
	return &Runner{
		opts: opts,
		tel:  telemetry.NewScopedAPI("runner", opts.Tel),
	}
}

// Run runs the named sources concurrently, each one writes its own output file.
//
// The returned error joins every persistence failure. Sources that could not run
// at all (a missing credential, no browser) only fail the run when none of the
// requested sources produced an output.
func (r *Runner) Run(ctx context.Context, names []string) ([]Outcome, error) {
	entries := make([]Entry, len(names))
	for i, name := range names {
		entry, err := Lookup(r.opts.Catalog, name)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
	}

	outcomes := sources.FanOut(ctx, entries, r.runOne)

	var persistErrs []error
	var setupErrs []error
	written := 0
	for _, o := range outcomes {
		switch {
		case o.Err == nil:
			written++
		case errors.Is(o.Err, ErrPersist):
			persistErrs = append(persistErrs, o.Err)
		default:
			setupErrs = append(setupErrs, o.Err)
		}
	}
	if len(persistErrs) > 0 {
		return outcomes, errors.Join(persistErrs...)
	}
	if written == 0 && len(setupErrs) > 0 {
		return outcomes, errors.Join(setupErrs...)
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, entry Entry) Outcome {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("source %s", entry.Name))
	defer span.End()
	span.SetAttributes(attribute.String("source", entry.Name))

	started := r.opts.Clock.Now()
	outcome := Outcome{Source: entry.Name}

	fail := func(err error) Outcome {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.RecordSourceFailure(ctx, entry.Name)
		outcome.Err = err
		outcome.Duration = r.opts.Clock.Now().Sub(started)
		return outcome
	}

	src, err := entry.New(sources.Deps{
		Config:      r.opts.Config,
		Clock:       r.opts.Clock,
		Tel:         r.opts.Tel,
		OpenBrowser: r.opts.OpenBrowser,
	})
	if err != nil {
		r.tel.ReportBroken(report_source_setup, entry.Name, err)
		return fail(fmt.Errorf("%s: %w", entry.Name, err))
	}

	batch, err := src.Collect(ctx)
	if err != nil {
		r.tel.ReportBroken(report_source_setup, entry.Name, err)
		return fail(fmt.Errorf("%s: %w", entry.Name, err))
	}
	for _, f := range batch.Failures {
		r.tel.ReportWarning(report_source_failure, entry.Name, f.Target, string(f.Reason), f.Err)
	}
	outcome.Failures = batch.Failures

	desc := src.Describe()
	env, invalid := output.Aggregate(desc, batch, r.opts.Clock.Now())
	for _, err := range invalid {
		r.tel.ReportWarning(report_invalid_record, entry.Name, err)
	}
	outcome.Invalid = len(invalid)
	outcome.Records = len(env.Data)
	if outcome.Records == 0 {
		telemetry.RecordSourceFailure(ctx, entry.Name)
	}

	path, err := r.opts.Config.OutputPath(entry.Name)
	if err != nil {
		return fail(fmt.Errorf("%w: %s: %w", ErrPersist, entry.Name, err))
	}
	err = output.Write(path, r.opts.Config.Format(entry.Name), env)
	if err != nil {
		r.tel.ReportBroken(report_write, entry.Name, err)
		return fail(fmt.Errorf("%w: %s: %w", ErrPersist, entry.Name, err))
	}
	outcome.Output = path
	telemetry.RecordCollected(ctx, entry.Name, outcome.Records)
	span.SetAttributes(attribute.Int("records", outcome.Records))

	if r.opts.Store != nil {
		_, err = r.opts.Store.Push(ctx, store.Run{
			Source:     entry.Name,
			StartedAt:  started,
			FinishedAt: r.opts.Clock.Now(),
			Failures:   len(batch.Failures),
			Output:     path,
		}, env.Data)
		if err != nil {
			r.tel.ReportBroken(report_archive, entry.Name, err)
			return fail(fmt.Errorf("%w: archive %s: %w", ErrPersist, entry.Name, err))
		}
	}

	outcome.Duration = r.opts.Clock.Now().Sub(started)
	return outcome
}
